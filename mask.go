// Copyright (c) 2017 Cory Close. See LICENSE file.

package nfs4acl

import "github.com/coreacl/libnfs4acl-go/internal/posixacl"

// AnyoneMode is the set of bits every principal carries regardless of
// its POSIX permset: read-attributes, read-ACL, synchronize.
const AnyoneMode = MaskReadAttributes | MaskReadACL | MaskSynchronize

// OwnerMode is added on top of AnyoneMode for the owner principal:
// write-attributes, write-ACL.
const OwnerMode = MaskWriteAttributes | MaskWriteACL

// getMask maps a POSIX permset to an NFSv4 access mask: start from
// AnyoneMode, add OwnerMode when isOwner, then fold in the bits a
// posixacl.Entry's permset contributes.
func getMask(perm uint16, isOwner, isDir bool) uint32 {
	mask := uint32(AnyoneMode)
	if isOwner {
		mask |= OwnerMode
	}
	if perm&posixacl.PermRead != 0 {
		mask |= MaskReadData
	}
	if perm&posixacl.PermWrite != 0 {
		mask |= MaskWriteData | MaskAppendData
		if isDir {
			mask |= MaskDeleteChild
		}
	}
	if perm&posixacl.PermExecute != 0 {
		mask |= MaskExecute
	}
	return mask
}

// setModeFromNFS4 maps an NFSv4 access mask back to a POSIX permset: a
// deliberately permissive mapping where a principal's POSIX perm set
// reports read/write/execute if any NFSv4 bit that could grant it is
// present, so a file is never reported as more restrictive than it is.
func setModeFromNFS4(accessMask uint32, isDir bool) uint16 {
	var perm uint16
	if accessMask&MaskReadData != 0 {
		perm |= posixacl.PermRead
	}
	writeBits := accessMask&MaskWriteData != 0 || accessMask&MaskAppendData != 0
	if isDir && accessMask&MaskDeleteChild != 0 {
		writeBits = true
	}
	if writeBits {
		perm |= posixacl.PermWrite
	}
	if accessMask&MaskExecute != 0 {
		perm |= posixacl.PermExecute
	}
	return perm
}
