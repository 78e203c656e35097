package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "truenas:\n  url: https://nas.local\n  password: pw\n"), false)
	require.NoError(t, err)

	assert.Equal(t, "root", cfg.TrueNAS.User)
	assert.Equal(t, 30*time.Second, cfg.TrueNAS.Timeout.Duration())
	assert.Equal(t, "./truenasctl.sqlite", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.GetLevel())
	assert.True(t, cfg.Log.Colors)
	assert.Equal(t, 5.0, cfg.Reconciler.RateLimitRPS)
	assert.Equal(t, 90, cfg.Ledger.RetentionDays)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ExplicitZeroValuesKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
truenas:
  url: https://nas.local
  password: pw
  timeout: 0s
database:
  path: ""
log:
  colors: false
  level: DEBUG
`), false)
	require.NoError(t, err)

	assert.Equal(t, time.Duration(0), cfg.TrueNAS.Timeout.Duration())
	assert.Equal(t, "", cfg.Database.Path)
	assert.False(t, cfg.Log.Colors)
	assert.Equal(t, "debug", cfg.Log.GetLevel())
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TRUENAS_TEST_URL", "https://10.0.0.5")
	t.Setenv("TRUENAS_TEST_PASSWORD", "hunter2")

	cfg, err := Load(writeConfig(t, `
truenas:
  url: ${TRUENAS_TEST_URL}
  user: ${TRUENAS_TEST_USER:admin}
  password: ${TRUENAS_TEST_PASSWORD}
`), false)
	require.NoError(t, err)

	assert.Equal(t, "https://10.0.0.5", cfg.TrueNAS.URL)
	assert.Equal(t, "admin", cfg.TrueNAS.User)
	assert.Equal(t, "hunter2", cfg.TrueNAS.Password)
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := Load(missing, false)
	assert.Error(t, err)

	cfg, err := Load(missing, true)
	require.NoError(t, err)
	assert.Equal(t, "root", cfg.TrueNAS.User)
}

func TestLoad_BadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "truenas:\n  timeout: soon\n"), false)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TrueNASConfig
		wantErr string
	}{
		{name: "ok", cfg: TrueNASConfig{URL: "http://nas", Password: "pw"}},
		{name: "missing_all", cfg: TrueNASConfig{}, wantErr: "truenas.url, truenas.password"},
		{name: "no_scheme", cfg: TrueNASConfig{URL: "nas.local", Password: "pw"}, wantErr: "must start with"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.TrueNAS = tt.cfg
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_NegativeRetention(t *testing.T) {
	_, err := Load(writeConfig(t, "ledger:\n  retention_days: -1\n"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retention_days")

	cfg := Default()
	cfg.TrueNAS = TrueNASConfig{URL: "http://nas", Password: "pw"}
	cfg.Ledger.RetentionDays = -3
	assert.Error(t, cfg.Validate())
}
