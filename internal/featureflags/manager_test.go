package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_Booleans(t *testing.T) {
	m := NewManager("signup=on,swagger=off,a=true,b=false,c=1,d=0")

	assert.True(t, m.Enabled(Signup, 0))
	assert.False(t, m.Enabled(Swagger, 0))
	assert.True(t, m.Enabled("a", 7))
	assert.False(t, m.Enabled("b", 7))
	assert.True(t, m.Enabled("c", 7))
	assert.False(t, m.Enabled("d", 7))
	assert.False(t, m.Enabled("missing", 7))
}

func TestEnabled_Percentages(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,junk=x%")

	assert.True(t, m.EnabledForAll("always"))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("junk", 1))
	assert.False(t, m.Enabled("canary", 0), "anonymous users stay out of partial rollouts")

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42))
	}
}

func TestNewManager_SkipsMalformedPairs(t *testing.T) {
	m := NewManager(" bad ,X=On, y = 20% ,=on,z=")

	snap := m.Snapshot(123)
	assert.Len(t, snap, 2)
	assert.True(t, snap["x"])
	assert.Contains(t, snap, "y")
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled(Signup, 1))
	assert.Empty(t, m.Snapshot(1))
}
