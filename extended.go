// Copyright (c) 2017 Cory Close. See LICENSE file.

package nfs4acl

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/coreacl/libnfs4acl-go/internal/posixacl"
)

// trivialNFS4ACECount is the ACE count of an NFSv4 ACL that encodes
// nothing beyond ordinary owner/group/other mode bits: three
// ALLOW/DENY pairs, one per well-known principal.
const trivialNFS4ACECount = 6

// HasExtendedACL reports whether an object carries permissions
// beyond what its mode bits express, preferring the
// NFSv4 xattr's ACE count when present and falling back to the POSIX
// xattrs' encoded size otherwise.
func HasExtendedACL(target probeTarget) (bool, error) {
	nfs4Bytes, err := getxattrRetry(target.getNFS4, nfs4GuessBufferSize())
	switch {
	case err == nil:
		acl, err := DecodeXattr(nfs4Bytes, false)
		if err != nil {
			return false, err
		}
		return len(acl.Entries) > trivialNFS4ACECount, nil

	case errors.Is(err, ErrNoAttribute), errors.Is(err, ErrNotSupported):
		// A present default ACL is significant even at the trivial
		// 3-entry size (it governs inheritance); a present access ACL
		// only matters once it grows past that baseline.
		access, err := extendedBySize(target.getPosix(KindAccess), false)
		if err != nil {
			return false, err
		}
		if access {
			return true, nil
		}
		return extendedBySize(target.getPosix(KindDefault), true)

	default:
		return false, err
	}
}

func extendedBySize(get xattrGetter, orEqual bool) (bool, error) {
	size, err := get(nil)
	switch {
	case err == nil:
		if orEqual {
			return size >= posixacl.BaselineSize, nil
		}
		return size > posixacl.BaselineSize, nil
	case errors.Is(err, unix.ENODATA):
		return false, nil
	case errors.Is(err, unix.EOPNOTSUPP):
		return false, nil
	default:
		return false, err
	}
}
