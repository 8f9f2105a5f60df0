package events

// Evento publicado no tópico "bet_placed" depois do commit da aposta.
type BetPlaced struct {
	BetID       string            `json:"bet_id"`
	UserID      string            `json:"user_id"`
	MatchID     string            `json:"match_id"`
	TotalBet    int64             `json:"total_bet"`
	Predictions []PlacedSelection `json:"predictions"`
	TsUnixMs    int64             `json:"ts_unix_ms"`
}

type PlacedSelection struct {
	Type      string `json:"type"`
	Choice    string `json:"choice"`
	BetAmount int64  `json:"bet_amount"`
	Odds      string `json:"odds"` // decimal serializado, ex: "1.85"
}
