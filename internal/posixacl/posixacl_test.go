package posixacl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trivialACL() *ACL {
	a := New(3)
	a.AddEntry(NewEntry(TagUserObj, 0, PermRead|PermWrite))
	a.AddEntry(NewEntry(TagGroupObj, 0, PermRead))
	a.AddEntry(NewEntry(TagOther, 0, 0))
	return a
}

func TestValidRequiresMandatoryEntries(t *testing.T) {
	a := trivialACL()
	assert.NoError(t, a.Valid())

	missingOther := New(2)
	missingOther.AddEntry(NewEntry(TagUserObj, 0, PermRead))
	missingOther.AddEntry(NewEntry(TagGroupObj, 0, PermRead))
	assert.Error(t, missingOther.Valid())

	dupUserObj := trivialACL()
	dupUserObj.Entries = append(dupUserObj.Entries, NewEntry(TagUserObj, 0, PermRead))
	assert.Error(t, dupUserObj.Valid())
}

func TestValidRequiresMaskWithNamedEntries(t *testing.T) {
	a := trivialACL()
	a.AddEntry(NewEntry(TagUser, 1000, PermRead))
	assert.Error(t, a.Valid(), "named USER entry without MASK must be rejected")

	a.AddEntry(NewEntry(TagMask, 0, PermRead))
	assert.NoError(t, a.Valid())
}

func TestAddEntryKeepsQualifierUnique(t *testing.T) {
	a := trivialACL()
	a.AddEntry(NewEntry(TagUser, 1000, PermRead))
	a.AddEntry(NewEntry(TagMask, 0, PermRead))
	// second AddEntry with the same (tag, qualifier) replaces, not duplicates.
	a.AddEntry(NewEntry(TagUser, 1000, PermWrite))
	require.Len(t, a.NamedEntries(TagUser), 1)
	assert.Equal(t, PermWrite, a.NamedEntries(TagUser)[0].Perm)
	assert.NoError(t, a.Valid())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	a := trivialACL()
	a.AddEntry(NewEntry(TagUser, 1000, PermRead|PermExecute))
	a.AddEntry(NewEntry(TagGroup, 2000, PermRead))
	a.AddEntry(NewEntry(TagMask, 0, PermRead|PermExecute))

	encoded, err := a.Encode()
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.True(t, a.Equal(decoded), "round trip must preserve all entries:\nwant %s\ngot  %s", a, decoded)
}

func TestEncodeSortsByTagThenQualifier(t *testing.T) {
	a := New(6)
	a.AddEntry(NewEntry(TagOther, 0, 0))
	a.AddEntry(NewEntry(TagGroup, 2000, PermRead))
	a.AddEntry(NewEntry(TagUser, 1000, PermRead))
	a.AddEntry(NewEntry(TagGroupObj, 0, PermRead))
	a.AddEntry(NewEntry(TagMask, 0, PermRead))
	a.AddEntry(NewEntry(TagUserObj, 0, PermRead|PermWrite))

	encoded, err := a.Encode()
	require.NoError(t, err)
	decoded, err := Decode(encoded)
	require.NoError(t, err)

	var tags []Tag
	for _, e := range decoded.Entries {
		tags = append(tags, e.Tag)
	}
	assert.True(t, sortedAscending(tags), "encoded entries must be tag-ordered, got %v", tags)
}

func sortedAscending(tags []Tag) bool {
	for i := 1; i < len(tags); i++ {
		if tags[i] < tags[i-1] {
			return false
		}
	}
	return true
}

func TestFromMode(t *testing.T) {
	a := FromMode(0o750, 1000, 2000)
	require.NoError(t, a.Valid())

	userObj := a.ByTag(TagUserObj)
	require.NotNil(t, userObj)
	assert.True(t, userObj.HasRead())
	assert.True(t, userObj.HasWrite())
	assert.True(t, userObj.HasExecute())

	groupObj := a.ByTag(TagGroupObj)
	require.NotNil(t, groupObj)
	assert.True(t, groupObj.HasExecute())
	assert.False(t, groupObj.HasWrite())

	other := a.ByTag(TagOther)
	require.NotNil(t, other)
	assert.False(t, other.HasRead())
	assert.False(t, other.HasWrite())
	assert.False(t, other.HasExecute())
}

func TestAddEntryReplacesBySameTagAndQualifier(t *testing.T) {
	a := trivialACL()
	original := len(a.Entries)
	a.AddEntry(NewEntry(TagGroupObj, 0, PermRead|PermWrite))
	assert.Len(t, a.Entries, original, "replacing GROUP_OBJ must not grow the entry count")
	assert.Equal(t, PermRead|PermWrite, a.ByTag(TagGroupObj).Perm)
}

func TestRemoveEntry(t *testing.T) {
	a := trivialACL()
	a.AddEntry(NewEntry(TagUser, 1000, PermRead))
	a.AddEntry(NewEntry(TagMask, 0, PermRead))

	removed := a.RemoveEntry(NewEntry(TagUser, 1000, 0))
	assert.True(t, removed)
	assert.Empty(t, a.NamedEntries(TagUser))

	assert.False(t, a.RemoveEntry(NewEntry(TagUser, 1000, 0)), "second removal finds nothing")
}

func TestBaselineSizeMatchesTrivialEncoding(t *testing.T) {
	a := trivialACL()
	encoded, err := a.Encode()
	require.NoError(t, err)
	assert.Equal(t, BaselineSize, len(encoded))
}

func TestEqualIgnoresOrder(t *testing.T) {
	a := trivialACL()
	b := New(3)
	b.AddEntry(NewEntry(TagOther, 0, 0))
	b.AddEntry(NewEntry(TagUserObj, 0, PermRead|PermWrite))
	b.AddEntry(NewEntry(TagGroupObj, 0, PermRead))
	assert.True(t, a.Equal(b))
}
