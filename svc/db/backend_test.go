package db

import (
	"context"
	"sync"
	"testing"

	"pastabin/pkg/domain"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend interface {
	Create(ctx context.Context, id domain.PasteID, content []byte, secret domain.Secret) error
	Read(ctx context.Context, id domain.PasteID) ([]byte, error)
	Delete(ctx context.Context, id domain.PasteID, authorize domain.Authorize) error
	Ping(ctx context.Context) error
}

func requireSecret(want domain.Secret) domain.Authorize {
	return func(stored domain.Secret, ok bool) error {
		if ok && stored != want {
			return domain.ErrUnauthorized
		}
		return nil
	}
}

func runBackendSuite(t *testing.T, b backend) {
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, b.Ping(ctx))
	})

	t.Run("round trip", func(t *testing.T) {
		for id, content := range map[domain.PasteID][]byte{
			"rtText01": []byte("hello"),
			"rtEmpty1": {},
			"rtBin001": {0, 1, 2, 254, 255},
		} {
			require.NoError(t, b.Create(ctx, id, content, "s3cr3t!@#"))
			got, err := b.Read(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, content, got)
		}
	})

	t.Run("exclusive create", func(t *testing.T) {
		require.NoError(t, b.Create(ctx, "exclusiv", []byte("first"), "a"))
		err := b.Create(ctx, "exclusiv", []byte("second"), "b")
		assert.True(t, errors.Is(err, domain.ErrSlotTaken), "got %v", err)
		got, err := b.Read(ctx, "exclusiv")
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), got)
		require.NoError(t, b.Delete(ctx, "exclusiv", requireSecret("a")))
	})

	t.Run("concurrent create has one winner", func(t *testing.T) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins, taken := 0, 0
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := b.Create(ctx, "racedId1", []byte("x"), "s")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case errors.Is(err, domain.ErrSlotTaken):
					taken++
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
		assert.Equal(t, 7, taken)
	})

	t.Run("read missing", func(t *testing.T) {
		_, err := b.Read(ctx, "missing1")
		assert.True(t, errors.Is(err, domain.ErrPasteNotFound))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, b.Create(ctx, "deleteMe", []byte("bye"), "right"))

		err := b.Delete(ctx, "deleteMe", requireSecret("wrong"))
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
		_, err = b.Read(ctx, "deleteMe")
		require.NoError(t, err)

		require.NoError(t, b.Delete(ctx, "deleteMe", requireSecret("right")))
		_, err = b.Read(ctx, "deleteMe")
		assert.True(t, errors.Is(err, domain.ErrPasteNotFound))

		err = b.Delete(ctx, "deleteMe", requireSecret("right"))
		assert.True(t, errors.Is(err, domain.ErrPasteNotFound))
	})

	t.Run("authorize sees stored secret", func(t *testing.T) {
		require.NoError(t, b.Create(ctx, "seeSecrt", []byte("x"), "Ab3!_+="))
		var gotSecret domain.Secret
		var gotOK bool
		err := b.Delete(ctx, "seeSecrt", func(stored domain.Secret, ok bool) error {
			gotSecret, gotOK = stored, ok
			return domain.ErrUnauthorized
		})
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
		assert.True(t, gotOK)
		assert.Equal(t, domain.Secret("Ab3!_+="), gotSecret)
	})

	t.Run("no secret is unprotected", func(t *testing.T) {
		require.NoError(t, b.Create(ctx, "noSecret", []byte("old"), ""))
		var gotOK = true
		err := b.Delete(ctx, "noSecret", func(_ domain.Secret, ok bool) error {
			gotOK = ok
			return nil
		})
		require.NoError(t, err)
		assert.False(t, gotOK)
		_, err = b.Read(ctx, "noSecret")
		assert.True(t, errors.Is(err, domain.ErrPasteNotFound))
	})
}
