package ws

import "github.com/radieske/esports-prediction-poc/pkg/contracts/events"

// ClientMsg é o que o cliente manda: subscribe | unsubscribe | ping.
// MatchID é obrigatório em subscribe/unsubscribe.
type ClientMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
}

// PoolMsg é enviado a cada atualização de pool da partida assinada.
type PoolMsg struct {
	Type    string            `json:"type"` // "pool_update"
	MatchID string            `json:"matchId"`
	Payload events.PoolUpdate `json:"payload"`
}
