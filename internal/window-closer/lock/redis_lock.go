package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/radieske/esports-prediction-poc/internal/market"
)

// só apaga a chave se o token ainda for o nosso
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// RedisLocker implementa market.Locker com SETNX + TTL e unlock condicional em Lua.
type RedisLocker struct {
	r        *redis.Client
	unlockSc *redis.Script
}

func NewRedisLocker(r *redis.Client) *RedisLocker {
	return &RedisLocker{r: r, unlockSc: redis.NewScript(unlockLua)}
}

func Key(name string) string { return "lock:" + name }

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	lk := Key(key)

	ok, err := l.r.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, market.ErrLockHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// contexto próprio: o do chamador pode já ter sido cancelado
			uctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = l.unlockSc.Run(uctx, l.r, []string{lk}, token).Err()
		})
	}, nil
}

var _ market.Locker = (*RedisLocker)(nil)
