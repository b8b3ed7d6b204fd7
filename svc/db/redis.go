package db

import (
	"context"
	"time"

	"pastabin/cfg"
	"pastabin/pkg/domain"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const maxWatchRetries = 5

var createScript = redis.NewScript(`
	if redis.call("EXISTS", KEYS[1]) == 1 then
		return 0
	end
	if ARGV[2] == "" then
		redis.call("HSET", KEYS[1], "content", ARGV[1])
	else
		redis.call("HSET", KEYS[1], "content", ARGV[1], "secret", ARGV[2])
	end
	return 1
`)

type Redis struct {
	client  *redis.Client
	timeout time.Duration
}

func NewRedis(url string, cfg *cfg.Cfg) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	opt.PoolSize = 50
	opt.MinIdleConns = 10
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
	opt.MaxRetries = 3
	opt.MinRetryBackoff = 8 * time.Millisecond
	opt.MaxRetryBackoff = 512 * time.Millisecond
	if cfg.RedisPassword.Value() != "" {
		opt.Password = cfg.RedisPassword.Value()
	}
	timeout := cfg.RedisTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return &Redis{
		client:  client,
		timeout: timeout,
	}, nil
}
func pasteKey(id domain.PasteID) string {
	return "paste:" + id.String()
}
func (r *Redis) Create(ctx context.Context, id domain.PasteID, content []byte, secret domain.Secret) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	created, err := createScript.Run(ctx, r.client, []string{pasteKey(id)}, content, secret.String()).Int()
	if err != nil {
		return errors.Wrap(err, "create lua")
	}
	if created == 0 {
		return domain.ErrSlotTaken
	}
	return nil
}
func (r *Redis) Read(ctx context.Context, id domain.PasteID) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	data, err := r.client.HGet(ctx, pasteKey(id), "content").Bytes()
	if err == redis.Nil {
		return nil, domain.ErrPasteNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get paste")
	}
	return data, nil
}

// Delete watches the key so the DEL only lands if nothing touched the paste
// between the secret check and the transaction.
func (r *Redis) Delete(ctx context.Context, id domain.PasteID, authorize domain.Authorize) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	key := pasteKey(id)
	txf := func(tx *redis.Tx) error {
		vals, err := tx.HMGet(ctx, key, "content", "secret").Result()
		if err != nil {
			return err
		}
		if vals[0] == nil {
			return domain.ErrPasteNotFound
		}
		secret, ok := vals[1].(string)
		if err := authorize(domain.Secret(secret), ok); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}
	for i := 0; i < maxWatchRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err == nil || errors.Is(err, domain.ErrPasteNotFound) || errors.Is(err, domain.ErrUnauthorized) {
			return err
		}
		return errors.Wrap(err, "delete paste")
	}
	return errors.New("delete paste: too much contention")
}
func (r *Redis) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
