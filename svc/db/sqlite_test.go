package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLiteWithConfig(filepath.Join(t.TempDir(), "pastabin.db"), 10, 5, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteBackend(t *testing.T) {
	runBackendSuite(t, newTestSQLite(t))
}

func TestSQLiteNoSecretIsNull(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Create(context.Background(), "nullSecr", []byte("x"), ""))
	var isNull bool
	err := s.DB().QueryRow(`SELECT secret IS NULL FROM pastes WHERE id = ?`, "nullSecr").Scan(&isNull)
	require.NoError(t, err)
	assert.True(t, isNull)
}

func TestSQLiteCircuitBreaker(t *testing.T) {
	s := newTestSQLite(t)
	for i := 0; i < maxFailures; i++ {
		s.recordError(assert.AnError)
	}
	assert.ErrorIs(t, s.checkCircuit(), ErrCircuitOpen)
	assert.ErrorIs(t, s.Ping(context.Background()), ErrCircuitOpen)

	s.circuitOpened = time.Now().Add(-cooldownSeconds * time.Second).Unix()
	require.NoError(t, s.checkCircuit())
	s.recordError(nil)
	require.NoError(t, s.Ping(context.Background()))
}

func TestSQLiteCheckpoint(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Create(context.Background(), "walTest1", []byte("x"), "s"))
	require.NoError(t, s.checkpoint(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, s.RunWALMaintenance(ctx, time.Hour))
}
