package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_RedactsSensitiveKeys(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core))

	l.Info("login", "username", "alice", "credential", "pw", "access_token", "abc")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "alice", fields["username"])
	assert.Equal(t, redacted, fields["credential"])
	assert.Equal(t, redacted, fields["access_token"])
}

func TestLogger_WithKeepsContext(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core)).With("component", "registry")

	l.Warn("dropped", "username", "bob")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "registry", entries[0].ContextMap()["component"])
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
}

func TestSanitizeKVs_OddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"a", 1, "dangling"})
	assert.Equal(t, []interface{}{"a", 1, "dangling"}, out)
}
