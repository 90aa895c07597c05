// Copyright (c) 2017 Cory Close. See LICENSE file.

package nfs4acl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyWho(t *testing.T) {
	assert.Equal(t, uint(WhoOwner), NewACE(TypeAllow, 0, 0, "OWNER@").WhoType)
	assert.Equal(t, uint(WhoGroup), NewACE(TypeAllow, 0, 0, "GROUP@").WhoType)
	assert.Equal(t, uint(WhoEveryone), NewACE(TypeAllow, 0, 0, "EVERYONE@").WhoType)
	assert.Equal(t, uint(WhoNamed), NewACE(TypeAllow, 0, 0, "alice@example.com").WhoType)
}

func TestACEStringCompactNotation(t *testing.T) {
	ace := NewACE(TypeAllow, FlagFileInherit|FlagDirectoryInherit, MaskReadData|MaskExecute, "alice@d")
	s := ace.String()
	assert.Contains(t, s, "A:")
	assert.Contains(t, s, "fd")
	assert.Contains(t, s, "alice@d")
	assert.Contains(t, s, "r")
	assert.Contains(t, s, "x")
}

func TestACEVerboseNotation(t *testing.T) {
	ace := NewACE(TypeDeny, FlagIdentifierGroup, MaskWriteData, "GROUP@")
	s := ace.Verbose(false)
	assert.Contains(t, s, "DENY")
	assert.Contains(t, s, "g")
}

func TestACEDirectoryAliasesDiffer(t *testing.T) {
	ace := NewACE(TypeAllow, 0, MaskDeleteChild, "OWNER@")
	file := ace.format(false, false)
	dir := ace.format(false, true)
	assert.NotContains(t, file, "D")
	assert.Contains(t, dir, "D")
}

func TestApplyAndRemoveAccessMask(t *testing.T) {
	ace := NewACE(TypeAllow, 0, MaskReadData, "OWNER@")
	ace.applyAccessMask(MaskWriteData)
	assert.Equal(t, MaskReadData|MaskWriteData, ace.AccessMask)
	ace.removeAccessMask(MaskReadData)
	assert.Equal(t, MaskWriteData, ace.AccessMask)
}

func TestApplyAndRemoveFlags(t *testing.T) {
	ace := NewACE(TypeAllow, FlagFileInherit, 0, "OWNER@")
	ace.applyFlags(FlagDirectoryInherit)
	assert.Equal(t, FlagFileInherit|FlagDirectoryInherit, ace.Flags)
	ace.removeFlags(FlagFileInherit)
	assert.Equal(t, FlagDirectoryInherit, ace.Flags)
}

func TestCloneIsIndependent(t *testing.T) {
	ace := NewACE(TypeAllow, 0, MaskReadData, "OWNER@")
	c := ace.clone()
	c.applyAccessMask(MaskWriteData)
	assert.Equal(t, uint32(MaskReadData), ace.AccessMask)
	assert.Equal(t, MaskReadData|MaskWriteData, c.AccessMask)
}

func TestWhoStringAtomLength(t *testing.T) {
	assert.Equal(t, 0, whoStringAtomLength(0))
	assert.Equal(t, 4, whoStringAtomLength(1))
	assert.Equal(t, 4, whoStringAtomLength(4))
	assert.Equal(t, 8, whoStringAtomLength(5))
}
