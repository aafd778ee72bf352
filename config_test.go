package naml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfigPopulatesDefaults(t *testing.T) {
	c := NewConfig()
	assert.Equal(t, 1, c.GetInt("codegen.optimize"))
	assert.True(t, c.GetBool("codegen.emit_debug_info"))
	assert.Equal(t, 0, c.GetInt("scheduler.workers"))
	assert.Equal(t, 16, c.GetInt("channel.default_capacity"))
	assert.False(t, c.GetBool("pkgmanifest.offline"))
}

func TestConfigSetGetOverridesDefault(t *testing.T) {
	c := NewConfig()
	c.SetInt("scheduler.workers", 4)
	assert.Equal(t, 4, c.GetInt("scheduler.workers"))
}

func TestConfigGetMissingKeyPanics(t *testing.T) {
	c := NewConfig()
	assert.Panics(t, func() { c.GetInt("does.not.exist") })
}

func TestConfigGetWrongTypePanics(t *testing.T) {
	c := NewConfig()
	assert.Panics(t, func() { c.GetString("codegen.optimize") })
}
