package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

const VALKEY_HISTORY_LOCK_PREFIX = "history:lock:"

var unlockScript = valkey.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// ValkeyLocker holds a short lived SET NX lock per dedup key so writers in
// different processes take turns.
type ValkeyLocker struct {
	client  valkey.Client
	ttl     time.Duration
	retries int
	wait    time.Duration
}

func NewValkeyLocker(client valkey.Client, ttl time.Duration) *ValkeyLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &ValkeyLocker{client: client, ttl: ttl, retries: 10, wait: 100 * time.Millisecond}
}

func (l *ValkeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := VALKEY_HISTORY_LOCK_PREFIX + key
	token := uuid.NewString()

	for attempt := 0; attempt < l.retries; attempt++ {
		cmd := l.client.B().Set().Key(lockKey).Value(token).Nx().PxMilliseconds(l.ttl.Milliseconds()).Build()
		err := l.client.Do(ctx, cmd).Error()
		if err == nil {
			return func() { l.unlock(lockKey, token) }, nil
		}
		if !valkey.IsValkeyNil(err) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.wait):
		}
	}

	return nil, ErrLockBusy
}

func (l *ValkeyLocker) unlock(lockKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := unlockScript.Exec(ctx, l.client, []string{lockKey}, []string{token}).Error(); err != nil {
		slog.Warn("[ValkeyLocker] Failed to release lock",
			slog.String("key", lockKey),
			slog.String("error", err.Error()))
	}
}
