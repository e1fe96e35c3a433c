package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worklist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8104, cfg.Server.Port)
	assert.Equal(t, "MODALITY_SCP", cfg.Server.AETitle)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.False(t, cfg.PACS.Check)
	assert.Equal(t, "127.0.0.1:9104", cfg.PACS.Address())
	assert.Equal(t, "STOR", cfg.PACS.AETitle)
	assert.Equal(t, "KOBOWORKLIST", cfg.PACS.LocalAETitle)
	assert.Equal(t, 30*time.Second, cfg.PACS.Interval)
	assert.EqualValues(t, 8, cfg.PACS.MaxOperations)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "WorklistItems.db", cfg.Store.DSN)
	assert.True(t, cfg.Store.SeedSample)
	assert.Equal(t, "1.2.840.113619", cfg.Worklist.UIDRoot)
	assert.Len(t, cfg.Worklist.Modalities, 11)
	assert.Empty(t, cfg.Redis.Address)
	assert.Equal(t, "worklist:pacs-matches", cfg.Redis.Stream)
	assert.Equal(t, ":8104", cfg.Server.ListenAddress())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 11112
  ae_title: WORKLIST
pacs:
  check: true
  host: pacs.example.org
  interval: 2m
  max_operations: 4
store:
  driver: postgres
  dsn: postgres://worklist@db/worklist?sslmode=disable
worklist:
  modalities: [CT, MR]
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 11112, cfg.Server.Port)
	assert.Equal(t, "WORKLIST", cfg.Server.AETitle)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout, "unset keys keep their defaults")
	assert.True(t, cfg.PACS.Check)
	assert.Equal(t, "pacs.example.org:9104", cfg.PACS.Address())
	assert.Equal(t, 2*time.Minute, cfg.PACS.Interval)
	assert.EqualValues(t, 4, cfg.PACS.MaxOperations)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, []string{"CT", "MR"}, cfg.Worklist.Modalities)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 11112\n")
	t.Setenv("WORKLIST_SERVER_PORT", "4242")
	t.Setenv("WORKLIST_PACS_CHECK", "true")
	t.Setenv("WORKLIST_PACS_INTERVAL", "45s")
	t.Setenv("WORKLIST_MODALITIES", "ct, mr ,,us")
	t.Setenv("WORKLIST_REDIS_ADDRESS", "localhost:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4242, cfg.Server.Port)
	assert.True(t, cfg.PACS.Check)
	assert.Equal(t, 45*time.Second, cfg.PACS.Interval)
	assert.Equal(t, []string{"CT", "MR", "US"}, cfg.Worklist.Modalities)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{name: "unknown key", yaml: "server:\n  prot: 1\n", wantErr: "prot"},
		{name: "bad duration", yaml: "pacs:\n  interval: soon\n", wantErr: "parse config"},
		{name: "port out of range", yaml: "server:\n  port: 70000\n", wantErr: "server.port"},
		{name: "AE title too long", yaml: "server:\n  ae_title: A_VERY_LONG_AE_TITLE\n", wantErr: "server.ae_title"},
		{name: "unknown driver", yaml: "store:\n  driver: mysql\n", wantErr: "store.driver"},
		{name: "bad log level", yaml: "logging:\n  level: chatty\n", wantErr: "logging.level"},
		{name: "zero interval", yaml: "pacs:\n  interval: 0s\n", wantErr: "pacs.interval"},
		{name: "pacs check without host", yaml: "pacs:\n  check: true\n  host: \"\"\n", wantErr: "pacs.host"},
		{name: "bad env bool", env: map[string]string{"WORKLIST_PACS_CHECK": "maybe"}, wantErr: "WORKLIST_PACS_CHECK"},
		{name: "bad env window", env: map[string]string{"WORKLIST_PACS_MAX_OPERATIONS": "70000"}, wantErr: "WORKLIST_PACS_MAX_OPERATIONS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeConfig(t, tt.yaml)

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("Association established", "calling_ae", "MRMODALITY")

	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "calling_ae=MRMODALITY")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(file.Bytes()), &entry))
	assert.Equal(t, "Association established", entry["msg"])
	assert.Equal(t, "MRMODALITY", entry["calling_ae"])
}

func TestSetupLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worklist.log")

	logger, cleanup := SetupLogger(path, slog.LevelInfo)
	logger.Info("Worklist query completed", "matches", 2)
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"matches":2`), string(data))
}
