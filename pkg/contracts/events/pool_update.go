package events

import "time"

// PoolUpdate é publicado no canal Redis após cada aposta aceita
// e repassado aos clientes WebSocket inscritos na partida.
type PoolUpdate struct {
	MatchID   string           `json:"match_id"`
	Types     []TypePoolUpdate `json:"types"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type TypePoolUpdate struct {
	Type       string            `json:"type"`
	RewardPool int64             `json:"reward_pool"`
	BetsCount  int64             `json:"bets_count"`
	Closed     bool              `json:"closed"`
	Odds       map[string]string `json:"odds"` // choice -> odd atual
}
