package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalYAML = `
indata:
  base_url: https://connector.example.com
  token: secret
sel:
  base_url: https://sel.example.com
  email: user@example.com
  password: pass
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.API.Addr)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.API.AllowedOrigins)
	assert.Equal(t, "orders.db", cfg.Store.Path)
	assert.Equal(t, "https://re.jrc.ec.europa.eu/api", cfg.PVGIS.BaseURL)
	assert.Equal(t, 100, cfg.Engine.SocSteps)
	assert.Equal(t, 10, cfg.Engine.PowerSteps)
	assert.Equal(t, 10*time.Minute, cfg.Engine.Timeout())
	assert.Equal(t, 90*24*time.Hour, cfg.Retention.MaxAgeDuration())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", minimalYAML+`
api:
  addr: ":9000"
  allowed_origins: ["https://rec.example.com"]
engine:
  soc_steps: 200
  order_timeout: 5m
retention:
  schedule: "0 3 * * *"
  max_age: 720h
`))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.API.Addr)
	assert.Equal(t, []string{"https://rec.example.com"}, cfg.API.AllowedOrigins)
	assert.Equal(t, 200, cfg.Engine.SocSteps)
	assert.Equal(t, 5*time.Minute, cfg.Engine.Timeout())
	assert.Equal(t, "0 3 * * *", cfg.Retention.Schedule)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention.MaxAgeDuration())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LEM_SEL__PASSWORD", "from-env")
	cfg, err := Load(writeConfig(t, "config.yaml", minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.SEL.Password)
}

func TestLoadJSON(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.json", `{
		"indata": {"base_url": "https://connector.example.com"},
		"sel": {"base_url": "https://sel.example.com"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "https://connector.example.com", cfg.Indata.BaseURL)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	_, err := Load(writeConfig(t, "config.toml", "x = 1"))
	assert.ErrorContains(t, err, "unsupported config format")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "config.yaml", minimalYAML+`
engine:
  order_timeout: soon
`))
	assert.ErrorContains(t, err, "invalid order_timeout")

	_, err = Load(writeConfig(t, "config.yaml", minimalYAML+`
mqtt:
  broker: tcp://localhost:1883
  qos: 7
`))
	assert.ErrorContains(t, err, "qos")
}
