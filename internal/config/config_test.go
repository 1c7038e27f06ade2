package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults without file",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.True(t, cfg.Dashboard.SelectAllDefault)
				assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.Dashboard.MaxUploadBytes)
				assert.Equal(t, DefaultSessionTTL, cfg.Dashboard.SessionTTL)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
			},
		},
		{
			name: "file overrides defaults",
			file: `
server:
  port: 9090
dashboard:
  select_all_default: false
  session_ttl: 10m
paths:
  default_dataset: sample.csv
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.False(t, cfg.Dashboard.SelectAllDefault)
				assert.Equal(t, 10*time.Minute, cfg.Dashboard.SessionTTL)
				assert.Equal(t, "sample.csv", cfg.Paths.DefaultDataset)
				// untouched sections keep defaults
				assert.Equal(t, DefaultSweepInterval, cfg.Dashboard.SweepInterval)
			},
		},
		{
			name: "env overrides file",
			env: map[string]string{
				"ISSUEPULSE_SERVER_PORT":                  "7070",
				"ISSUEPULSE_DASHBOARD_SELECT_ALL_DEFAULT": "true",
				"ISSUEPULSE_SECURITY_ALLOWED_ORIGINS":     "http://a.example,http://b.example",
			},
			file: "server:\n  port: 9090\ndashboard:\n  select_all_default: false\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.True(t, cfg.Dashboard.SelectAllDefault)
				assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Security.AllowedOrigins)
			},
		},
		{
			name: "unsupported log format is coerced to json",
			env:  map[string]string{"ISSUEPULSE_LOGGING_FORMAT": "text", "ISSUEPULSE_LOGGING_OUTPUT": "syslog"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "console", cfg.Logging.Output)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"ISSUEPULSE_SERVER_PORT": "70000"},
			wantErr: "invalid server port",
		},
		{
			name:    "non-positive upload limit",
			file:    "dashboard:\n  max_upload_bytes: 0\n",
			wantErr: "max upload bytes",
		},
		{
			name:    "unknown trace exporter",
			env:     map[string]string{"ISSUEPULSE_TELEMETRY_TRACE_EXPORTER": "jaeger"},
			wantErr: "unknown trace exporter",
		},
		{
			name:    "malformed env value",
			env:     map[string]string{"ISSUEPULSE_DASHBOARD_SESSION_TTL": "forever"},
			wantErr: "failed to load config from env",
		},
		{
			name:    "malformed yaml",
			file:    "server: [unterminated",
			wantErr: "failed to load config from file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := LoadFrom(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, AppName, cfg.Telemetry.ServiceName)
}

func TestValidate_SweepIntervalRequiredWithTTL(t *testing.T) {
	cfg := Default()
	cfg.Dashboard.SweepInterval = 0
	assert.Error(t, cfg.validate())

	cfg.Dashboard.SessionTTL = 0
	assert.NoError(t, cfg.validate())
}

func TestGetConfigFilePath_Explicit(t *testing.T) {
	t.Setenv("ISSUEPULSE_CONFIG", "/etc/issuepulse/config.yaml")
	assert.Equal(t, "/etc/issuepulse/config.yaml", getConfigFilePath())
}
