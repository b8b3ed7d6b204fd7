package svc

import (
	"context"
	"crypto/subtle"
	"sync"
	"sync/atomic"

	"pastabin/metrics"
	"pastabin/pkg/domain"
	"pastabin/svc/util"

	"github.com/pkg/errors"
)

// Backend is the storage collaborator. Create must fail with
// domain.ErrSlotTaken instead of overwriting, and must leave the paste
// either absent or present with its secret. An empty secret stores none.
type Backend interface {
	Create(ctx context.Context, id domain.PasteID, content []byte, secret domain.Secret) error
	Read(ctx context.Context, id domain.PasteID) ([]byte, error)
	Delete(ctx context.Context, id domain.PasteID, authorize domain.Authorize) error
	Ping(ctx context.Context) error
	Close() error
}

type Opts struct {
	IDSize     int
	SecretSize int
	Retries    int
}

func DefaultOpts() Opts {
	return Opts{IDSize: util.IDSize, SecretSize: util.SecretSize, Retries: 3}
}

type Paste struct {
	backend  Backend
	ids      *util.IDCodec
	secrets  *util.SecretGen
	opts     Opts
	shutdown atomic.Bool
	opWg     sync.WaitGroup
}

func NewPaste(b Backend, ids *util.IDCodec, secrets *util.SecretGen, o Opts) *Paste {
	if b == nil || ids == nil || secrets == nil {
		panic("paste service: nil dependency (backend, ids or secrets)")
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	return &Paste{backend: b, ids: ids, secrets: secrets, opts: o}
}

func (p *Paste) begin() error {
	if p.shutdown.Load() {
		return errors.Wrap(domain.ErrStorageFault, "service shutting down")
	}
	p.opWg.Add(1)
	return nil
}

// Shutdown refuses new operations and waits for in-flight ones.
func (p *Paste) Shutdown() {
	p.shutdown.Store(true)
	p.opWg.Wait()
	util.Debug().Msg("paste service shutdown complete")
}

func (p *Paste) Create(ctx context.Context, content []byte) (domain.PasteID, domain.Secret, error) {
	if err := p.begin(); err != nil {
		return "", "", err
	}
	defer p.opWg.Done()
	secret, err := p.secrets.Generate(p.opts.SecretSize)
	if err != nil {
		return "", "", errors.Wrap(err, "gen secret")
	}
	id, err := p.reserve(ctx, content, secret, 0)
	if err != nil {
		return "", "", err
	}
	metrics.PasteCreated.Inc()
	util.Debug().Str("id", id.String()).Int("size", len(content)).Msg("paste created")
	return id, secret, nil
}

// reserve tries a fresh id per attempt, giving up after opts.Retries retries.
func (p *Paste) reserve(ctx context.Context, content []byte, secret domain.Secret, attempt int) (domain.PasteID, error) {
	if attempt > p.opts.Retries {
		metrics.CreateExhausted.Inc()
		util.Error().Int("attempts", attempt).Msg("no free id left after retries")
		return "", domain.ErrStorageExhausted
	}
	id, err := p.ids.Generate(p.opts.IDSize)
	if err != nil {
		return "", errors.Wrap(err, "gen id")
	}
	err = p.backend.Create(ctx, id, content, secret)
	if errors.Is(err, domain.ErrSlotTaken) {
		metrics.IDCollisions.Inc()
		util.Warn().Str("id", id.String()).Int("attempt", attempt+1).Msg("id collision, regenerating")
		return p.reserve(ctx, content, secret, attempt+1)
	}
	if err != nil {
		return "", errors.Wrap(err, "create paste")
	}
	return id, nil
}

func (p *Paste) Read(ctx context.Context, id domain.PasteID) ([]byte, error) {
	if err := p.begin(); err != nil {
		return nil, err
	}
	defer p.opWg.Done()
	if id == "" {
		return nil, domain.ErrPasteNotFound
	}
	content, err := p.backend.Read(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrPasteNotFound) {
			return nil, domain.ErrPasteNotFound
		}
		return nil, errors.Wrap(err, "read paste")
	}
	metrics.PasteRetrieved.Inc()
	return content, nil
}

// Delete removes id when supplied matches its secret. A nil supplied means
// the caller sent no secret, which only succeeds on pastes without one.
func (p *Paste) Delete(ctx context.Context, id domain.PasteID, supplied *domain.Secret) error {
	if err := p.begin(); err != nil {
		return err
	}
	defer p.opWg.Done()
	if id == "" {
		return domain.ErrPasteNotFound
	}
	err := p.backend.Delete(ctx, id, authorize(supplied))
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrPasteNotFound):
		return domain.ErrPasteNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		metrics.DeleteDenied.Inc()
		util.Info().Str("id", id.String()).Bool("supplied", supplied != nil).Msg("delete denied")
		return domain.ErrUnauthorized
	default:
		return errors.Wrap(err, "delete paste")
	}
	metrics.PasteDeleted.Inc()
	util.Info().Str("id", id.String()).Msg("paste deleted")
	return nil
}

func authorize(supplied *domain.Secret) domain.Authorize {
	return func(stored domain.Secret, ok bool) error {
		if !ok {
			return nil
		}
		if supplied == nil {
			return domain.ErrUnauthorized
		}
		if subtle.ConstantTimeCompare([]byte(stored), []byte(*supplied)) != 1 {
			return domain.ErrUnauthorized
		}
		return nil
	}
}
