// Copyright (c) 2017 Cory Close. See LICENSE file.

package nfs4acl

import (
	"encoding/binary"
	"fmt"
)

// DecodeXattr parses the system.nfs4_acl wire format:
//
//	uint32 ace_count
//	repeated ace_count times:
//	    uint32 type
//	    uint32 flags
//	    uint32 access_mask
//	    uint32 who_len
//	    byte   who[who_len]
//	    byte   pad[0 or padding to next 4-byte boundary]
//
// Padding follows the minimal-padding convention: no padding byte is
// emitted when who_len is already a multiple of 4.
func DecodeXattr(value []byte, isDir bool) (*ACL, error) {
	acl := &ACL{IsDirectory: isDir}

	if len(value) < atomSize {
		return nil, fmt.Errorf("%w: xattr shorter than ace count", ErrInvalidArgument)
	}

	pos := 0
	count := int(binary.BigEndian.Uint32(value[pos:]))
	pos += atomSize

	for i := 0; i < count; i++ {
		if pos+atomSize*4 > len(value) {
			return nil, fmt.Errorf("%w: truncated ace header", ErrInvalidArgument)
		}

		aceType := binary.BigEndian.Uint32(value[pos:])
		pos += atomSize
		flags := binary.BigEndian.Uint32(value[pos:])
		pos += atomSize
		mask := binary.BigEndian.Uint32(value[pos:])
		pos += atomSize
		whoLen := int(binary.BigEndian.Uint32(value[pos:]))
		pos += atomSize

		if whoLen < 0 || pos+whoLen > len(value) {
			return nil, fmt.Errorf("%w: truncated who string", ErrInvalidArgument)
		}
		who := string(value[pos : pos+whoLen])
		pos += whoLen
		if pad := whoLen % atomSize; pad != 0 {
			pos += atomSize - pad
		}
		if pos > len(value) {
			return nil, fmt.Errorf("%w: truncated who padding", ErrInvalidArgument)
		}

		acl.Add(NewACE(aceType, flags, mask, who))
	}

	return acl, nil
}

// EncodedSize predicts the exact byte length EncodeXattr will produce,
// without allocating the buffer itself.
func (acl *ACL) EncodedSize() int {
	size := atomSize
	for _, ace := range acl.Entries {
		size += atomSize * 4
		size += minimalPadLength(len(ace.Who))
	}
	return size
}

// EncodeXattr packs the ACL into the system.nfs4_acl wire format
// described on DecodeXattr.
func (acl *ACL) EncodeXattr() ([]byte, error) {
	size := acl.EncodedSize()
	out := make([]byte, size)
	pos := 0

	binary.BigEndian.PutUint32(out[pos:], uint32(len(acl.Entries)))
	pos += atomSize

	for _, ace := range acl.Entries {
		binary.BigEndian.PutUint32(out[pos:], ace.Type)
		pos += atomSize
		binary.BigEndian.PutUint32(out[pos:], ace.Flags)
		pos += atomSize
		binary.BigEndian.PutUint32(out[pos:], ace.AccessMask)
		pos += atomSize

		whoLen := len(ace.Who)
		binary.BigEndian.PutUint32(out[pos:], uint32(whoLen))
		pos += atomSize

		copy(out[pos:], ace.Who)
		pos += minimalPadLength(whoLen)
	}

	return out, nil
}

// minimalPadLength returns the number of bytes a who string of the
// given length occupies on the wire: rounded up to the next 4-byte
// boundary, with no padding at all when whoLength is already aligned.
func minimalPadLength(whoLength int) int {
	if rem := whoLength % atomSize; rem != 0 {
		return whoLength + (atomSize - rem)
	}
	return whoLength
}
