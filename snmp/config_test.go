package snmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	c := NewConfig()

	assert.Equal(t, "public", c.GetString(OptCommunity))
	assert.Equal(t, 5000, c.GetInt(OptTimeout))
	assert.Equal(t, 1, c.GetInt(OptRetries))
	assert.Equal(t, 161, c.GetInt(OptPort))
	assert.Equal(t, 0, c.GetInt(OptNonRepeaters))
	assert.Equal(t, 10, c.GetInt(OptMaxRepetitions))
}

func TestConfigSetDefault(t *testing.T) {
	c := NewConfig()
	c.SetDefault(OptCommunity, "private")
	assert.Equal(t, "private", c.GetString(OptCommunity))
	assert.Equal(t, "private", c.GetDefault(OptCommunity))
}

func TestConfigMergeCallSiteWins(t *testing.T) {
	c := NewConfig()
	c.SetDefault(OptRetries, 3)

	merged := c.Merge(map[string]interface{}{
		OptRetries:   7,
		OptCommunity: "override",
	})

	assert.Equal(t, 7, merged[OptRetries])
	assert.Equal(t, "override", merged[OptCommunity])
	// Untouched defaults flow through.
	assert.Equal(t, 161, merged[OptPort])
}
