package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/esports-prediction-poc/internal/prediction-service/dto"
)

// grava a cotação só se a versão da partida não mudou desde a leitura
const setIfVersionLua = `
local v = redis.call('GET', KEYS[2]) or '0'
if v ~= ARGV[2] then
    return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`

// versões expiram junto com a partida; uma versão perdida só faz o próximo Set ser recusado
const versionTTL = 48 * time.Hour

// OddsCache guarda a cotação de cada partida por um TTL curto.
// Toda mudança de pool invalida a chave e incrementa a versão da partida,
// e Set descarta cotações calculadas antes da última invalidação.
type OddsCache struct {
	r     *redis.Client
	ttl   time.Duration
	setSc *redis.Script
}

func New(r *redis.Client, ttl time.Duration) *OddsCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &OddsCache{r: r, ttl: ttl, setSc: redis.NewScript(setIfVersionLua)}
}

func keyMatch(matchID string) string   { return "odds:match:" + matchID }
func keyVersion(matchID string) string { return "odds:match:" + matchID + ":v" }

func (c *OddsCache) Get(ctx context.Context, matchID string) (*dto.OddsResponse, bool, error) {
	b, err := c.r.Get(ctx, keyMatch(matchID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var out dto.OddsResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, false, err
	}
	return &out, true, nil
}

// Version é lida antes de calcular a cotação e repassada para Set.
func (c *OddsCache) Version(ctx context.Context, matchID string) (int64, error) {
	v, err := c.r.Get(ctx, keyVersion(matchID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}

// Set grava q se a versão ainda for version. Devolve false quando a cotação ficou velha.
func (c *OddsCache) Set(ctx context.Context, q dto.OddsResponse, version int64) (bool, error) {
	b, err := json.Marshal(q)
	if err != nil {
		return false, err
	}
	n, err := c.setSc.Run(ctx, c.r,
		[]string{keyMatch(q.MatchID), keyVersion(q.MatchID)},
		b, strconv.FormatInt(version, 10), c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *OddsCache) Invalidate(ctx context.Context, matchID string) error {
	_, err := c.r.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, keyMatch(matchID))
		p.Incr(ctx, keyVersion(matchID))
		p.Expire(ctx, keyVersion(matchID), versionTTL)
		return nil
	})
	return err
}
