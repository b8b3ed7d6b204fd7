package svc

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"pastabin/pkg/domain"
	"pastabin/svc/cache"
	"pastabin/svc/util"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constReader byte

func (r constReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r)
	}
	return len(p), nil
}

type countingBackend struct {
	Backend
	creates int
}

func (c *countingBackend) Create(ctx context.Context, id domain.PasteID, content []byte, secret domain.Secret) error {
	c.creates++
	return c.Backend.Create(ctx, id, content, secret)
}

type faultyBackend struct {
	Backend
}

func (faultyBackend) Read(context.Context, domain.PasteID) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func newMemory(t *testing.T) *cache.LRU {
	t.Helper()
	l, err := cache.NewLRU(100)
	require.NoError(t, err)
	return l
}

func newStore(t *testing.T, b Backend) *Paste {
	t.Helper()
	return NewPaste(b, util.NewIDCodec(nil), util.NewSecretGen(nil), DefaultOpts())
}

func secretPtr(s domain.Secret) *domain.Secret { return &s }

func TestCreateReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newStore(t, newMemory(t))
	for _, content := range [][]byte{[]byte("hello"), {}, {0, 1, 2, 255}} {
		id, secret, err := p.Create(ctx, content)
		require.NoError(t, err)
		assert.Len(t, id.String(), util.IDSize)
		assert.Len(t, secret.String(), util.SecretSize)
		got, err := p.Read(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	}
}

func TestCreateRegeneratesOnCollision(t *testing.T) {
	ctx := context.Background()
	mem := newMemory(t)
	require.NoError(t, mem.Create(ctx, "00000000", []byte("taken"), "x"))

	src := append(bytes.Repeat([]byte{0}, 8), bytes.Repeat([]byte{1}, 8)...)
	counted := &countingBackend{Backend: mem}
	p := NewPaste(counted, util.NewIDCodec(bytes.NewReader(src)), util.NewSecretGen(nil), DefaultOpts())

	id, _, err := p.Create(ctx, []byte("new"))
	require.NoError(t, err)
	assert.Equal(t, domain.PasteID("11111111"), id)
	assert.Equal(t, 2, counted.creates)

	got, err := p.Read(ctx, "00000000")
	require.NoError(t, err)
	assert.Equal(t, []byte("taken"), got)
}

func TestCreateExhausted(t *testing.T) {
	ctx := context.Background()
	mem := newMemory(t)
	require.NoError(t, mem.Create(ctx, "00000000", []byte("taken"), "x"))

	counted := &countingBackend{Backend: mem}
	p := NewPaste(counted, util.NewIDCodec(constReader(0)), util.NewSecretGen(nil), DefaultOpts())

	_, _, err := p.Create(ctx, []byte("new"))
	assert.True(t, errors.Is(err, domain.ErrStorageExhausted))
	assert.Equal(t, 4, counted.creates)
	assert.Equal(t, 1, mem.Len())
}

func TestCreateNoRetries(t *testing.T) {
	ctx := context.Background()
	mem := newMemory(t)
	require.NoError(t, mem.Create(ctx, "00000000", nil, ""))
	counted := &countingBackend{Backend: mem}
	p := NewPaste(counted, util.NewIDCodec(constReader(0)), util.NewSecretGen(nil), Opts{IDSize: 8, SecretSize: 12})

	_, _, err := p.Create(ctx, nil)
	assert.True(t, errors.Is(err, domain.ErrStorageExhausted))
	assert.Equal(t, 1, counted.creates)
}

func TestDeleteAuthorization(t *testing.T) {
	ctx := context.Background()
	p := newStore(t, newMemory(t))
	id, secret, err := p.Create(ctx, []byte("guarded"))
	require.NoError(t, err)

	err = p.Delete(ctx, id, nil)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	err = p.Delete(ctx, id, secretPtr("wrong"))
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	err = p.Delete(ctx, id, secretPtr(""))
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	err = p.Delete(ctx, id, secretPtr(secret+"x"))
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	_, err = p.Read(ctx, id)
	require.NoError(t, err)

	require.NoError(t, p.Delete(ctx, id, &secret))
	_, err = p.Read(ctx, id)
	assert.True(t, errors.Is(err, domain.ErrPasteNotFound))

	err = p.Delete(ctx, id, &secret)
	assert.True(t, errors.Is(err, domain.ErrPasteNotFound))
}

func TestDeleteLegacyPasteWithoutSecret(t *testing.T) {
	ctx := context.Background()
	mem := newMemory(t)
	require.NoError(t, mem.Create(ctx, "legacy", []byte("old"), ""))
	p := newStore(t, mem)

	require.NoError(t, p.Delete(ctx, "legacy", nil))
	_, err := p.Read(ctx, "legacy")
	assert.True(t, errors.Is(err, domain.ErrPasteNotFound))
}

func TestReadMissingAndEmpty(t *testing.T) {
	ctx := context.Background()
	p := newStore(t, newMemory(t))
	_, err := p.Read(ctx, "nothere1")
	assert.True(t, errors.Is(err, domain.ErrPasteNotFound))
	_, err = p.Read(ctx, "")
	assert.True(t, errors.Is(err, domain.ErrPasteNotFound))
	err = p.Delete(ctx, "", nil)
	assert.True(t, errors.Is(err, domain.ErrPasteNotFound))
}

func TestReadFaultIsNotNotFound(t *testing.T) {
	p := newStore(t, faultyBackend{Backend: newMemory(t)})
	_, err := p.Read(context.Background(), "abc")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrPasteNotFound))
	assert.Equal(t, 500, domain.Status(err))
	assert.True(t, strings.Contains(err.Error(), "disk on fire"))
}

func TestSecretsAreDistinct(t *testing.T) {
	ctx := context.Background()
	p := newStore(t, newMemory(t))
	_, s1, err := p.Create(ctx, []byte("a"))
	require.NoError(t, err)
	_, s2, err := p.Create(ctx, []byte("b"))
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)
}

func TestShutdownRefusesNewOps(t *testing.T) {
	p := newStore(t, newMemory(t))
	p.Shutdown()
	_, _, err := p.Create(context.Background(), []byte("late"))
	assert.True(t, errors.Is(err, domain.ErrStorageFault))
}
