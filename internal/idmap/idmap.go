// Package idmap is the identity mapper collaborator: it converts
// between numeric uid/gid and the name@domain principal strings NFSv4
// ACEs carry. There is no third-party nfsidmap-equivalent package
// anywhere in the retrieval pack (see DESIGN.md), so this wraps the
// standard library's os/user, which is the closest available
// uid/gid-to-name authority on a Linux host.
package idmap

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Config replaces the source library's global conf_path: the domain
// used to qualify bare names into name@domain, plus optional static
// overrides for tests and environments without a working NSS setup.
type Config struct {
	Domain    string
	StaticUID map[uint32]string
	StaticGID map[uint32]string
}

// Mapper resolves uid/gid <-> name@domain. The zero value is usable;
// Init is idempotent and only needs calling to override defaults.
type Mapper struct {
	once sync.Once
	cfg  Config
}

func (m *Mapper) ensureInit() {
	m.once.Do(func() {
		if m.cfg.Domain == "" {
			m.cfg.Domain = discoverDefaultDomain()
		}
	})
}

// Init sets the mapper's configuration. Only the first call takes
// effect, mirroring the source library's once-only initialisation
// latch.
func (m *Mapper) Init(cfg Config) error {
	m.once.Do(func() {
		if cfg.Domain == "" {
			cfg.Domain = discoverDefaultDomain()
		}
		m.cfg = cfg
	})
	return nil
}

// DefaultDomain returns the domain new name@domain strings are
// qualified with.
func (m *Mapper) DefaultDomain() string {
	m.ensureInit()
	return m.cfg.Domain
}

// UIDToName resolves a uid to a name@domain principal string.
func (m *Mapper) UIDToName(uid uint32) (string, error) {
	m.ensureInit()
	if name, ok := m.cfg.StaticUID[uid]; ok {
		return m.qualify(name), nil
	}
	u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		return "", fmt.Errorf("idmap: uid %d: %w", uid, err)
	}
	return m.qualify(u.Username), nil
}

// GIDToName resolves a gid to a name@domain principal string.
func (m *Mapper) GIDToName(gid uint32) (string, error) {
	m.ensureInit()
	if name, ok := m.cfg.StaticGID[gid]; ok {
		return m.qualify(name), nil
	}
	g, err := user.LookupGroupId(strconv.FormatUint(uint64(gid), 10))
	if err != nil {
		return "", fmt.Errorf("idmap: gid %d: %w", gid, err)
	}
	return m.qualify(g.Name), nil
}

// NameToUID resolves a name@domain (or bare name) principal string to
// a uid.
func (m *Mapper) NameToUID(name string) (uint32, error) {
	m.ensureInit()
	local := m.unqualify(name)
	for uid, n := range m.cfg.StaticUID {
		if n == local {
			return uid, nil
		}
	}
	u, err := user.Lookup(local)
	if err != nil {
		return 0, fmt.Errorf("idmap: name %q: %w", name, err)
	}
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("idmap: name %q: %w", name, err)
	}
	return uint32(uid), nil
}

// NameToGID resolves a name@domain (or bare name) principal string to
// a gid.
func (m *Mapper) NameToGID(name string) (uint32, error) {
	m.ensureInit()
	local := m.unqualify(name)
	for gid, n := range m.cfg.StaticGID {
		if n == local {
			return gid, nil
		}
	}
	g, err := user.LookupGroup(local)
	if err != nil {
		return 0, fmt.Errorf("idmap: name %q: %w", name, err)
	}
	gid, err := strconv.ParseUint(g.Gid, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("idmap: name %q: %w", name, err)
	}
	return uint32(gid), nil
}

func (m *Mapper) qualify(name string) string {
	if m.cfg.Domain == "" {
		return name
	}
	return name + "@" + m.cfg.Domain
}

func (m *Mapper) unqualify(name string) string {
	if idx := strings.IndexByte(name, '@'); idx >= 0 {
		return name[:idx]
	}
	return name
}

// discoverDefaultDomain supplements nfs4_get_default_domain, which in
// the source reads /etc/idmapd.conf; there is no equivalent config
// file concept here, so the domain defaults to the host's DNS domain
// suffix, if any.
func discoverDefaultDomain() string {
	hostname, err := os.Hostname()
	if err != nil {
		log.WithError(err).Debug("idmap: hostname lookup failed, domain left empty")
		return ""
	}
	parts := strings.SplitN(hostname, ".", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return ""
}
