package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnabledBooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, 1), name)
	}
	for _, name := range []string{"b", "d", "f", "unknown"} {
		assert.False(t, m.Enabled(name, 1), name)
	}
}

func TestEnabledPercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%")

	assert.True(t, m.Enabled("always", 1))
	assert.False(t, m.Enabled("never", 1))

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, m.Enabled("canary", 42),
			"rollout evaluation must be deterministic per user")
	}

	assert.False(t, m.Enabled("canary", 0),
		"anonymous bucket never enters a partial rollout")
	assert.True(t, m.Enabled("always", 0),
		"fully-on flags apply to anonymous callers too")
}

func TestPercentageSplitsUsers(t *testing.T) {
	m := NewManager("half=50%")

	enabled := 0
	for userID := uint(1); userID <= 200; userID++ {
		if m.Enabled("half", userID) {
			enabled++
		}
	}
	assert.Greater(t, enabled, 0)
	assert.Less(t, enabled, 200)
}

func TestParseDropsMalformedPairs(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off ,w=150%,v=maybe")

	snap := m.Snapshot(123)
	require.Len(t, snap, 3)
	assert.True(t, snap["x"])
	assert.False(t, snap["z"])
	assert.Contains(t, snap, "y")
}

func TestNilManagerIsOff(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled("anything", 1))
}
