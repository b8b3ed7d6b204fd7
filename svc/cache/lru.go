package cache

import (
	"context"
	"errors"
	"sync"

	"pastabin/pkg/domain"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is an in-process paste backend. Beyond its capacity the least
// recently used paste is evicted.
type LRU struct {
	c  *lru.Cache[domain.PasteID, slot]
	mu sync.Mutex
}
type slot struct {
	content []byte
	secret  domain.Secret
}

func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		return nil, errors.New("cache size must be positive")
	}
	if size > 1000000 {
		return nil, errors.New("cache size too large")
	}
	c, err := lru.New[domain.PasteID, slot](size)
	if err != nil {
		return nil, err
	}
	return &LRU{c: c}, nil
}
func (l *LRU) Create(ctx context.Context, id domain.PasteID, content []byte, secret domain.Secret) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := slot{content: append([]byte(nil), content...), secret: secret}
	l.mu.Lock()
	defer l.mu.Unlock()
	if found, _ := l.c.ContainsOrAdd(id, s); found {
		return domain.ErrSlotTaken
	}
	return nil
}
func (l *LRU) Read(ctx context.Context, id domain.PasteID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, ok := l.c.Get(id)
	if !ok {
		return nil, domain.ErrPasteNotFound
	}
	return append([]byte(nil), s.content...), nil
}
func (l *LRU) Delete(ctx context.Context, id domain.PasteID, authorize domain.Authorize) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.c.Peek(id)
	if !ok {
		return domain.ErrPasteNotFound
	}
	if err := authorize(s.secret, s.secret != ""); err != nil {
		return err
	}
	l.c.Remove(id)
	return nil
}
func (l *LRU) Len() int {
	return l.c.Len()
}
func (l *LRU) Ping(ctx context.Context) error {
	return ctx.Err()
}
func (l *LRU) Close() error {
	l.c.Purge()
	return nil
}
