// Copyright (c) 2017 Cory Close. See LICENSE file.

package nfs4acl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/coreacl/libnfs4acl-go/internal/posixacl"
)

func fakeTarget(nfs4 []byte, nfs4Err error, posixAccessSize, posixDefaultSize int, posixErr error) probeTarget {
	get := func(data []byte, err error, size int) xattrGetter {
		return func(dest []byte) (int, error) {
			if err != nil {
				return 0, err
			}
			if dest == nil {
				return size, nil
			}
			n := copy(dest, data)
			return n, nil
		}
	}
	return probeTarget{
		getNFS4: get(nfs4, nfs4Err, len(nfs4)),
		getPosix: func(kind ACLKind) xattrGetter {
			if kind == KindDefault {
				return get(nil, posixErr, posixDefaultSize)
			}
			return get(nil, posixErr, posixAccessSize)
		},
	}
}

func TestHasExtendedACLViaNFS4ACECount(t *testing.T) {
	trivial := trivialACL(false)
	encoded, err := trivial.EncodeXattr()
	require.NoError(t, err)
	target := fakeTarget(encoded, nil, 0, 0, nil)
	got, err := HasExtendedACL(target)
	require.NoError(t, err)
	assert.False(t, got, "exactly 6 ACEs is trivial")

	named := NewACL(false)
	for _, ace := range trivial.Entries {
		named.Add(ace)
	}
	named.Add(NewACE(TypeAllow, 0, MaskReadData, "alice@d"))
	encoded, err = named.EncodeXattr()
	require.NoError(t, err)
	target = fakeTarget(encoded, nil, 0, 0, nil)
	got, err = HasExtendedACL(target)
	require.NoError(t, err)
	assert.True(t, got, "7 or more ACEs is non-trivial")
}

func TestHasExtendedACLViaPosixSize(t *testing.T) {
	target := fakeTarget(nil, unix.ENODATA, posixacl.BaselineSize, 0, nil)
	got, err := HasExtendedACL(target)
	require.NoError(t, err)
	assert.False(t, got, "access xattr at exactly the baseline is trivial")

	target = fakeTarget(nil, unix.ENODATA, posixacl.BaselineSize+8, 0, nil)
	got, err = HasExtendedACL(target)
	require.NoError(t, err)
	assert.True(t, got, "access xattr past the baseline is non-trivial")

	target = fakeTarget(nil, unix.ENODATA, 0, posixacl.BaselineSize, nil)
	got, err = HasExtendedACL(target)
	require.NoError(t, err)
	assert.True(t, got, "any present default ACL, even at baseline size, is non-trivial")
}
