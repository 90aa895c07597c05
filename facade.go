// Copyright (c) 2017 Cory Close. See LICENSE file.

package nfs4acl

import (
	"github.com/coreacl/libnfs4acl-go/internal/idmap"
	"github.com/coreacl/libnfs4acl-go/internal/posixacl"
)

// GetACL reads the effective or default POSIX ACL for path, probing
// the NFSv4 xattr before the POSIX xattrs and finally mode bits.
func GetACL(path string, kind ACLKind, mapper *idmap.Mapper) (*posixacl.ACL, error) {
	mode, err := statMode(path, 0, false)
	if err != nil {
		return nil, err
	}
	return getACL(pathTarget(path), kind, mode, mapper)
}

// GetACLFd is GetACL for an already-open file descriptor.
func GetACLFd(fd int, kind ACLKind, mapper *idmap.Mapper) (*posixacl.ACL, error) {
	mode, err := statMode("", fd, true)
	if err != nil {
		return nil, err
	}
	return getACL(fdTarget(fd), kind, mode, mapper)
}

// SetACL writes pacl as path's effective or default ACL, weaving it
// into any existing NFSv4 ACL so the other flavour's inherited ACEs
// survive.
func SetACL(path string, kind ACLKind, pacl *posixacl.ACL, mapper *idmap.Mapper) error {
	mode, err := statMode(path, 0, false)
	if err != nil {
		return err
	}
	return setACL(pathTarget(path), kind, mode, pacl, mapper)
}

// SetACLFd is SetACL for an already-open file descriptor.
func SetACLFd(fd int, kind ACLKind, pacl *posixacl.ACL, mapper *idmap.Mapper) error {
	mode, err := statMode("", fd, true)
	if err != nil {
		return err
	}
	return setACL(fdTarget(fd), kind, mode, pacl, mapper)
}

// IsExtended reports whether path carries an ACL beyond its mode
// bits.
func IsExtended(path string) (bool, error) {
	return HasExtendedACL(pathTarget(path))
}

// IsExtendedFd is IsExtended for an already-open file descriptor.
func IsExtendedFd(fd int) (bool, error) {
	return HasExtendedACL(fdTarget(fd))
}
