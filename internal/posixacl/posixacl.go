// Package posixacl is a minimal POSIX.1e ACL container: the external
// collaborator the NFSv4 translator reads from and writes into. It
// implements the kernel's acl_ea_header/acl_ea_entry xattr layout for
// system.posix_acl_access and system.posix_acl_default directly, since
// no third-party POSIX ACL package is available to wrap.
package posixacl

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Tag identifies the kind of principal an entry applies to. Values
// match the kernel's e_tag field (include/uapi/linux/acl.h) so Encode
// produces a byte-identical xattr.
type Tag uint16

const (
	TagUserObj  Tag = 0x01
	TagUser     Tag = 0x02
	TagGroupObj Tag = 0x04
	TagGroup    Tag = 0x08
	TagMask     Tag = 0x10
	TagOther    Tag = 0x20
)

func (t Tag) String() string {
	switch t {
	case TagUserObj:
		return "USER_OBJ"
	case TagUser:
		return "USER"
	case TagGroupObj:
		return "GROUP_OBJ"
	case TagGroup:
		return "GROUP"
	case TagMask:
		return "MASK"
	case TagOther:
		return "OTHER"
	default:
		return "UNKNOWN"
	}
}

// Permission bits within Entry.Perm.
const (
	PermRead    uint16 = 0x4
	PermWrite   uint16 = 0x2
	PermExecute uint16 = 0x1
)

// aclVersion is the only version the kernel's acl_ea_header supports.
const aclVersion uint32 = 2

// undefinedID is the qualifier value the kernel uses for entries that
// carry no uid/gid (everything but USER and GROUP).
const undefinedID uint32 = 0xffffffff

// Entry is one ACL entry: a tagged principal and its permission set.
type Entry struct {
	Tag       Tag
	Qualifier uint32 // uid/gid for USER/GROUP, undefinedID otherwise
	Perm      uint16
}

// NewEntry builds an entry. id is ignored for tags that carry no
// qualifier.
func NewEntry(tag Tag, id uint32, perm uint16) *Entry {
	q := id
	if tag != TagUser && tag != TagGroup {
		q = undefinedID
	}
	return &Entry{Tag: tag, Qualifier: q, Perm: perm & 0x7}
}

// HasRead, HasWrite, HasExecute report individual permission bits.
func (e *Entry) HasRead() bool    { return e.Perm&PermRead != 0 }
func (e *Entry) HasWrite() bool   { return e.Perm&PermWrite != 0 }
func (e *Entry) HasExecute() bool { return e.Perm&PermExecute != 0 }

// AddPerm ORs bits into the entry's permission set.
func (e *Entry) AddPerm(perm uint16) { e.Perm |= perm & 0x7 }

// ClearPerms zeroes the entry's permission set.
func (e *Entry) ClearPerms() { e.Perm = 0 }

func (e *Entry) equalTagID(o *Entry) bool {
	return e.Tag == o.Tag && e.Qualifier == o.Qualifier
}

// Equal compares tag, qualifier and permset.
func (e *Entry) Equal(o *Entry) bool {
	return e.equalTagID(o) && e.Perm == o.Perm
}

func (e *Entry) String() string {
	perm := []byte("---")
	if e.HasRead() {
		perm[0] = 'r'
	}
	if e.HasWrite() {
		perm[1] = 'w'
	}
	if e.HasExecute() {
		perm[2] = 'x'
	}
	switch e.Tag {
	case TagUser, TagGroup:
		return fmt.Sprintf("%s:%d:%s", e.Tag, e.Qualifier, perm)
	default:
		return fmt.Sprintf("%s:%s", e.Tag, perm)
	}
}

func (e *Entry) toBytes(buf *bytes.Buffer) {
	binary.Write(buf, binary.LittleEndian, uint16(e.Tag))
	binary.Write(buf, binary.LittleEndian, e.Perm)
	binary.Write(buf, binary.LittleEndian, e.Qualifier)
}

// entryWireSize is sizeof(acl_ea_entry): tag(2) + perm(2) + id(4).
const entryWireSize = 8

// headerWireSize is sizeof(acl_ea_header): just the version field.
const headerWireSize = 4

// BaselineSize is the xattr length of an ACL with exactly the three
// mandatory entries (USER_OBJ, GROUP_OBJ, OTHER) and no MASK — the
// threshold the extended-file classifier compares against.
const BaselineSize = headerWireSize + 3*entryWireSize

func parseEntry(b []byte) (*Entry, []byte, error) {
	if len(b) < entryWireSize {
		return nil, nil, fmt.Errorf("posixacl: truncated entry")
	}
	e := &Entry{
		Tag:       Tag(binary.LittleEndian.Uint16(b[0:2])),
		Perm:      binary.LittleEndian.Uint16(b[2:4]),
		Qualifier: binary.LittleEndian.Uint32(b[4:8]),
	}
	return e, b[entryWireSize:], nil
}

// ACL is an ordered set of entries. Ordering only matters on the wire:
// the kernel requires entries sorted by ascending tag value before a
// Setxattr call, which Encode enforces via sort().
type ACL struct {
	Version uint32
	Entries []*Entry
}

// New returns an empty ACL with capacity for n entries.
func New(n int) *ACL {
	return &ACL{Version: aclVersion, Entries: make([]*Entry, 0, n)}
}

// FromMode synthesises a trivial three-entry ACL from POSIX mode bits,
// used when an object carries no ACL xattr at all.
func FromMode(mode uint32, ownerUID, ownerGID uint32) *ACL {
	a := New(3)
	a.AddEntry(NewEntry(TagUserObj, ownerUID, uint16((mode>>6)&7)))
	a.AddEntry(NewEntry(TagGroupObj, ownerGID, uint16((mode>>3)&7)))
	a.AddEntry(NewEntry(TagOther, undefinedID, uint16(mode&7)))
	return a
}

// AddEntry appends e, replacing any existing entry with the same tag
// and qualifier.
func (a *ACL) AddEntry(e *Entry) {
	if pos := a.indexOf(e); pos >= 0 {
		deleted := a.Entries[pos]
		a.Entries = append(a.Entries[:pos], a.Entries[pos+1:]...)
		log.WithField("entry", deleted.String()).Debug("posixacl: replacing existing entry")
	}
	a.Entries = append(a.Entries, e)
}

// RemoveEntry deletes the entry with the same tag and qualifier as e,
// if present, and reports whether anything was removed.
func (a *ACL) RemoveEntry(e *Entry) bool {
	pos := a.indexOf(e)
	if pos < 0 {
		return false
	}
	a.Entries = append(a.Entries[:pos], a.Entries[pos+1:]...)
	return true
}

func (a *ACL) indexOf(e *Entry) int {
	for i, existing := range a.Entries {
		if existing.equalTagID(e) {
			return i
		}
	}
	return -1
}

// ByTag returns the first entry with the given tag, or nil.
func (a *ACL) ByTag(tag Tag) *Entry {
	for _, e := range a.Entries {
		if e.Tag == tag {
			return e
		}
	}
	return nil
}

// NamedEntries returns all USER or GROUP entries, in insertion order.
func (a *ACL) NamedEntries(tag Tag) []*Entry {
	var out []*Entry
	for _, e := range a.Entries {
		if e.Tag == tag {
			out = append(out, e)
		}
	}
	return out
}

func (a *ACL) sort() {
	sort.SliceStable(a.Entries, func(i, j int) bool {
		if a.Entries[i].Tag != a.Entries[j].Tag {
			return a.Entries[i].Tag < a.Entries[j].Tag
		}
		return a.Entries[i].Qualifier < a.Entries[j].Qualifier
	})
}

// Valid checks the structural requirements the kernel enforces before
// accepting an ACL xattr: exactly one USER_OBJ, GROUP_OBJ and OTHER
// entry, exactly one MASK entry when any USER or GROUP entry is
// present (at most one otherwise), and no duplicate (tag, qualifier)
// pairs.
func (a *ACL) Valid() error {
	var userObj, groupObj, other, mask int
	var named int
	seen := map[[2]uint32]bool{}
	for _, e := range a.Entries {
		key := [2]uint32{uint32(e.Tag), e.Qualifier}
		if seen[key] {
			return fmt.Errorf("posixacl: duplicate entry %s", e.String())
		}
		seen[key] = true

		switch e.Tag {
		case TagUserObj:
			userObj++
		case TagGroupObj:
			groupObj++
		case TagOther:
			other++
		case TagMask:
			mask++
		case TagUser, TagGroup:
			named++
		default:
			return fmt.Errorf("posixacl: unknown tag %d", e.Tag)
		}
	}
	if userObj != 1 || groupObj != 1 || other != 1 {
		return fmt.Errorf("posixacl: must have exactly one each of USER_OBJ, GROUP_OBJ, OTHER")
	}
	if named > 0 && mask != 1 {
		return fmt.Errorf("posixacl: MASK entry required when named USER/GROUP entries are present")
	}
	if named == 0 && mask > 1 {
		return fmt.Errorf("posixacl: at most one MASK entry")
	}
	return nil
}

// Encode sorts a copy of the ACL by tag and produces the
// system.posix_acl_{access,default} xattr bytes.
func (a *ACL) Encode() ([]byte, error) {
	c := a.Clone()
	c.sort()
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, c.Version)
	for _, e := range c.Entries {
		e.toBytes(buf)
	}
	return buf.Bytes(), nil
}

// Decode parses the system.posix_acl_{access,default} xattr format.
func Decode(b []byte) (*ACL, error) {
	if len(b) < headerWireSize {
		return nil, fmt.Errorf("posixacl: xattr shorter than header")
	}
	a := &ACL{Version: binary.LittleEndian.Uint32(b[:headerWireSize])}
	rest := b[headerWireSize:]
	for len(rest) > 0 {
		e, next, err := parseEntry(rest)
		if err != nil {
			return nil, err
		}
		a.Entries = append(a.Entries, e)
		rest = next
	}
	return a, nil
}

// Clone returns a deep copy.
func (a *ACL) Clone() *ACL {
	c := &ACL{Version: a.Version, Entries: make([]*Entry, len(a.Entries))}
	for i, e := range a.Entries {
		d := *e
		c.Entries[i] = &d
	}
	return c
}

// Equal compares two ACLs irrespective of entry order.
func (a *ACL) Equal(o *ACL) bool {
	if a.Version != o.Version || len(a.Entries) != len(o.Entries) {
		return false
	}
	x, y := a.Clone(), o.Clone()
	x.sort()
	y.sort()
	for i := range x.Entries {
		if !x.Entries[i].Equal(y.Entries[i]) {
			return false
		}
	}
	return true
}

func (a *ACL) String() string {
	c := a.Clone()
	c.sort()
	sb := &strings.Builder{}
	for _, e := range c.Entries {
		sb.WriteString(e.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
