package idmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticMapper(t *testing.T) *Mapper {
	t.Helper()
	m := &Mapper{}
	require.NoError(t, m.Init(Config{
		Domain:    "example.com",
		StaticUID: map[uint32]string{1000: "alice", 1001: "bob"},
		StaticGID: map[uint32]string{2000: "devs"},
	}))
	return m
}

func TestUIDToNameQualifiesWithDomain(t *testing.T) {
	m := staticMapper(t)
	name, err := m.UIDToName(1000)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", name)
}

func TestGIDToNameQualifiesWithDomain(t *testing.T) {
	m := staticMapper(t)
	name, err := m.GIDToName(2000)
	require.NoError(t, err)
	assert.Equal(t, "devs@example.com", name)
}

func TestNameToUIDAcceptsQualifiedAndBareNames(t *testing.T) {
	m := staticMapper(t)
	uid, err := m.NameToUID("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), uid)

	uid, err = m.NameToUID("bob")
	require.NoError(t, err)
	assert.Equal(t, uint32(1001), uid)
}

func TestNameToGIDAcceptsQualifiedAndBareNames(t *testing.T) {
	m := staticMapper(t)
	gid, err := m.NameToGID("devs@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint32(2000), gid)
}

func TestUnknownUIDFails(t *testing.T) {
	m := staticMapper(t)
	_, err := m.UIDToName(9999)
	assert.Error(t, err)
}

func TestInitIsOnceOnly(t *testing.T) {
	m := &Mapper{}
	require.NoError(t, m.Init(Config{Domain: "first.example", StaticUID: map[uint32]string{1: "one"}}))
	require.NoError(t, m.Init(Config{Domain: "second.example", StaticUID: map[uint32]string{9999: "two"}}))

	assert.Equal(t, "first.example", m.DefaultDomain(), "second Init call must not override the first")
	_, err := m.UIDToName(9999)
	assert.Error(t, err, "config from the second Init call must not have taken effect")
}

func TestZeroValueMapperIsUsable(t *testing.T) {
	m := &Mapper{}
	// DefaultDomain triggers ensureInit via the sync.Once latch without
	// ever calling Init explicitly.
	_ = m.DefaultDomain()
}
