package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)

	assert.Empty(t, config.TCPAddress)
	assert.Equal(t, "https://boneclub.example", config.Link)
	assert.Equal(t, 10, config.BonesPerPoint)
	assert.Equal(t, time.Minute, config.SettleInterval)
	assert.Equal(t, "6379", config.Redis.Port)
}

func TestLoadFile(t *testing.T) {
	// Given a configuration file and an environment variable
	path := filepath.Join(t.TempDir(), "config.yml")
	err := os.WriteFile(path, []byte(`tcp: ":2000"
web: ":8080"
bones-per-point: 25
redis:
  host: redis
mail:
  server: smtp.example:25
  enabled: true
`), 0600)
	require.NoError(t, err)
	t.Setenv("BONECLUB_WEB", ":9090")

	// When the configuration is loaded
	config, err := Load(path)
	require.NoError(t, err)

	// Then the environment takes precedence over the file
	assert.Equal(t, ":2000", config.TCPAddress)
	assert.Equal(t, ":9090", config.WebAddress)
	assert.Equal(t, 25, config.BonesPerPoint)
	assert.Equal(t, "redis:6379", config.Redis.Addr())

	op := config.Options()
	assert.Equal(t, "smtp.example:25", op.MailServer)
	assert.True(t, op.Mail)
	assert.Equal(t, 25, op.BonesPerPoint)
	assert.Equal(t, time.Minute, op.SettleInterval)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)

	// Given no listen address
	config.TCPAddress, config.WebAddress = "", ""

	// Then the configuration is refused
	assert.Error(t, config.Validate())

	config.TCPAddress = "localhost:1337"
	assert.NoError(t, config.Validate())

	config.TCPAddress, config.WebAddress = "", ":8080"
	assert.NoError(t, config.Validate())
}
