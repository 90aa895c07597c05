// Copyright (c) 2017 Cory Close. See LICENSE file.

package nfs4acl

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/coreacl/libnfs4acl-go/internal/idmap"
	"github.com/coreacl/libnfs4acl-go/internal/posixacl"
)

// strictModeEnabled gates the opt-in shape-matcher cross-check behind
// NFS4ACL_STRICT=1 — a cheap consistency check, not the default path.
func strictModeEnabled() bool {
	return os.Getenv("NFS4ACL_STRICT") == "1"
}

const (
	nfs4XattrName         = "system.nfs4_acl"
	posixAccessXattrName  = "system.posix_acl_access"
	posixDefaultXattrName = "system.posix_acl_default"

	// nfs4GuessACECount sizes the speculative first read so the common
	// case (a handful of ACEs, short principal names) avoids a second
	// syscall.
	nfs4GuessACECount = 12
)

func nfs4GuessBufferSize() int {
	return atomSize + nfs4GuessACECount*(atomSize*4+atomSize)
}

// xattrGetter reads an extended attribute into dest, returning the
// attribute's length (as unix.Getxattr/Fgetxattr do); dest == nil
// queries the length without copying data.
type xattrGetter func(dest []byte) (int, error)

// xattrSetter writes an extended attribute's full value.
type xattrSetter func(value []byte) error

// getxattrRetry implements the guess-then-retry protocol: it first
// tries a pre-sized buffer, and on ERANGE falls back to querying the
// exact size and reading again. ENODATA/ENOATTR maps to
// ErrNoAttribute and EOPNOTSUPP to ErrNotSupported so callers can
// branch on those with errors.Is.
func getxattrRetry(get xattrGetter, guessSize int) ([]byte, error) {
	buf := make([]byte, guessSize)
	n, err := get(buf)
	if err == nil {
		return buf[:n], nil
	}
	switch {
	case errors.Is(err, unix.ERANGE):
		size, err := get(nil)
		if err != nil {
			return nil, classifyXattrErr(err)
		}
		exact := make([]byte, size)
		n, err = get(exact)
		if err != nil {
			return nil, classifyXattrErr(err)
		}
		return exact[:n], nil
	default:
		return nil, classifyXattrErr(err)
	}
}

func classifyXattrErr(err error) error {
	switch {
	case errors.Is(err, unix.ENODATA):
		return fmt.Errorf("%w", ErrNoAttribute)
	case errors.Is(err, unix.EOPNOTSUPP):
		return fmt.Errorf("%w", ErrNotSupported)
	case errors.Is(err, unix.ERANGE):
		return fmt.Errorf("%w", ErrRangeExceeded)
	default:
		return err
	}
}

func posixXattrName(kind ACLKind) string {
	if kind == KindDefault {
		return posixDefaultXattrName
	}
	return posixAccessXattrName
}

// probeTarget abstracts over a path or an open file descriptor so the
// probe/dispatch logic below doesn't need two copies.
type probeTarget struct {
	getNFS4  xattrGetter
	getPosix func(kind ACLKind) xattrGetter
	setNFS4  xattrSetter
	setPosix func(kind ACLKind) xattrSetter
}

func pathTarget(path string) probeTarget {
	return probeTarget{
		getNFS4: func(dest []byte) (int, error) { return unix.Getxattr(path, nfs4XattrName, dest) },
		getPosix: func(kind ACLKind) xattrGetter {
			return func(dest []byte) (int, error) { return unix.Getxattr(path, posixXattrName(kind), dest) }
		},
		setNFS4: func(value []byte) error { return unix.Setxattr(path, nfs4XattrName, value, 0) },
		setPosix: func(kind ACLKind) xattrSetter {
			return func(value []byte) error { return unix.Setxattr(path, posixXattrName(kind), value, 0) }
		},
	}
}

func fdTarget(fd int) probeTarget {
	return probeTarget{
		getNFS4: func(dest []byte) (int, error) { return unix.Fgetxattr(fd, nfs4XattrName, dest) },
		getPosix: func(kind ACLKind) xattrGetter {
			return func(dest []byte) (int, error) { return unix.Fgetxattr(fd, posixXattrName(kind), dest) }
		},
		setNFS4: func(value []byte) error { return unix.Fsetxattr(fd, nfs4XattrName, value, 0) },
		setPosix: func(kind ACLKind) xattrSetter {
			return func(value []byte) error { return unix.Fsetxattr(fd, posixXattrName(kind), value, 0) }
		},
	}
}

// objectMode is the stat state the probe/dispatch logic needs: is_dir
// to select the translation direction, and owner uid/gid to
// synthesise a trivial ACL when no ACL xattr exists at all.
type objectMode struct {
	mode     uint32
	ownerUID uint32
	ownerGID uint32
	isDir    bool
}

func statMode(path string, fd int, useFd bool) (objectMode, error) {
	var st unix.Stat_t
	var err error
	if useFd {
		err = unix.Fstat(fd, &st)
	} else {
		err = unix.Stat(path, &st)
	}
	if err != nil {
		return objectMode{}, err
	}
	return objectMode{
		mode:     uint32(st.Mode &^ unix.S_IFMT),
		ownerUID: st.Uid,
		ownerGID: st.Gid,
		isDir:    st.Mode&unix.S_IFMT == unix.S_IFDIR,
	}, nil
}

// getACL is the shared read path behind the path and fd facades:
// probe the NFSv4 xattr first, fall back to the POSIX xattr, and
// finally synthesise from mode bits.
func getACL(target probeTarget, kind ACLKind, mode objectMode, mapper *idmap.Mapper) (*posixacl.ACL, error) {
	nfs4Bytes, err := getxattrRetry(target.getNFS4, nfs4GuessBufferSize())
	switch {
	case err == nil:
		acl, err := DecodeXattr(nfs4Bytes, mode.isDir)
		if err != nil {
			return nil, err
		}
		if strictModeEnabled() {
			if err := ValidateShapeForKind(acl, kind); err != nil {
				log.WithError(err).Warn("nfs4acl: shape validator disagrees with the stored ACL")
			}
		}
		return TranslateToPOSIX(acl, kind, mapper)

	case errors.Is(err, ErrNoAttribute), errors.Is(err, ErrNotSupported):
		posixBytes, err := getxattrRetry(target.getPosix(kind), posixacl.BaselineSize)
		switch {
		case err == nil:
			return posixacl.Decode(posixBytes)
		case errors.Is(err, ErrNoAttribute), errors.Is(err, ErrNotSupported):
			return fallbackACL(kind, mode)
		default:
			return nil, err
		}

	default:
		return nil, err
	}
}

func fallbackACL(kind ACLKind, mode objectMode) (*posixacl.ACL, error) {
	if kind == KindDefault {
		if !mode.isDir {
			return nil, fmt.Errorf("%w: default ACL requested on non-directory", ErrAccessDenied)
		}
		return posixacl.New(0), nil
	}
	return posixacl.FromMode(mode.mode, mode.ownerUID, mode.ownerGID), nil
}

// setACL is the shared write path: when an NFSv4 xattr already
// governs the object, the caller's POSIX ACL is woven into it so
// inherited ACEs of the other flavour survive; otherwise the POSIX
// codec writes the xattr directly.
func setACL(target probeTarget, kind ACLKind, mode objectMode, pacl *posixacl.ACL, mapper *idmap.Mapper) error {
	if kind == KindDefault && !mode.isDir {
		return fmt.Errorf("%w: default ACL requested on non-directory", ErrAccessDenied)
	}

	existing, err := getxattrRetry(target.getNFS4, nfs4GuessBufferSize())
	switch {
	case err == nil:
		nfsAcl, err := DecodeXattr(existing, mode.isDir)
		if err != nil {
			return err
		}
		if err := TranslateFromPOSIX(nfsAcl, pacl, kind, mode.isDir, mapper); err != nil {
			return err
		}
		encoded, err := nfsAcl.EncodeXattr()
		if err != nil {
			return err
		}
		return target.setNFS4(encoded)

	case errors.Is(err, ErrNoAttribute), errors.Is(err, ErrNotSupported):
		encoded, err := pacl.Encode()
		if err != nil {
			return err
		}
		return target.setPosix(kind)(encoded)

	default:
		return err
	}
}

