package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetLogger(t *testing.T) {
	t.Helper()
	_ = Close()
	t.Cleanup(func() { _ = Close() })
}

func TestInitTwiceWithoutCloseErrors(t *testing.T) {
	resetLogger(t)
	require.NoError(t, Init(Config{Level: LevelInfo, Format: "console"}))
	assert.Error(t, Init(Config{Level: LevelInfo, Format: "console"}))
}

func TestGetLazilyInitializesWithoutExplicitInit(t *testing.T) {
	resetLogger(t)
	l := Get()
	assert.NotNil(t, l)
}

func TestCloseIsIdempotent(t *testing.T) {
	resetLogger(t)
	require.NoError(t, Init(Config{Level: LevelInfo, Format: "console"}))
	assert.NoError(t, Close())
	assert.NoError(t, Close())
}

func TestWithNamespaceAndComponentReturnScopedLoggers(t *testing.T) {
	resetLogger(t)
	assert.NotNil(t, WithNamespace("acme.orders"))
	assert.NotNil(t, WithComponent("catalog"))
	assert.NotNil(t, WithBucket("acme.orders", 3))
	assert.NotNil(t, WithPlan("acme.orders", 1))
	assert.NotNil(t, WithClause("acme.orders", 0))
}
