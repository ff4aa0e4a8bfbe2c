package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelocantos/pipesh/internal/audit"
	"github.com/marcelocantos/pipesh/internal/config"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "pipesh dev\n", out.String())
}

func TestAuditVerifyAndTail(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger, err := audit.NewLogger(fs, "/a/audit.jsonl")
	require.NoError(t, err)
	for _, line := range []string{"echo one", "echo two", "echo three"} {
		require.NoError(t, logger.Log(audit.Record{Line: line, Origin: audit.OriginREPL}))
	}

	var out bytes.Buffer
	assert.Equal(t, 0, runAuditVerify(&out, fs, "/a/audit.jsonl"))
	assert.Equal(t, "audit log integrity verified\n", out.String())

	out.Reset()
	assert.Equal(t, 0, runAuditTail(&out, fs, "/a/audit.jsonl", 2))
	assert.NotContains(t, out.String(), "echo one")
	assert.Contains(t, out.String(), "echo two")
	assert.Contains(t, out.String(), "echo three")
}

func TestAuditTamperDetected(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger, err := audit.NewLogger(fs, "/audit.jsonl")
	require.NoError(t, err)
	require.NoError(t, logger.Log(audit.Record{Line: "echo hi"}))

	data, err := afero.ReadFile(fs, "/audit.jsonl")
	require.NoError(t, err)
	tampered := strings.Replace(string(data), "echo hi", "echo HI", 1)
	require.NoError(t, afero.WriteFile(fs, "/audit.jsonl", []byte(tampered), 0600))

	var out bytes.Buffer
	assert.Equal(t, 1, runAuditVerify(&out, fs, "/audit.jsonl"))
	assert.Contains(t, out.String(), "FAILED")
}

func TestAuditTailMissingLog(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 1, runAuditTail(&out, afero.NewMemMapFs(), "/none.jsonl", 5))
	assert.Contains(t, out.String(), "pipesh audit:")
}

func TestNewLoggerQuietWhenInteractive(t *testing.T) {
	cfg := config.DefaultConfig()

	log, err := newLogger(cfg, &bytes.Buffer{}, true)
	require.NoError(t, err)
	assert.Equal(t, zerolog.Disabled, log.GetLevel())

	cfg.Log.Level = "debug"
	log, err = newLogger(cfg, &bytes.Buffer{}, true)
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())

	cfg.Log.Level = "info"
	log, err = newLogger(cfg, &bytes.Buffer{}, false)
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}
