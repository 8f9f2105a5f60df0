package events

import "time"

const (
	NotificationMatchStarting    = "match_starting"
	NotificationPredictionResult = "prediction_result"
)

// Notification é o evento publicado no tópico de notificações.
// BetID só é preenchido em prediction_result.
type Notification struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"` // match_starting | prediction_result
	UserID  string    `json:"user_id"`
	MatchID string    `json:"match_id,omitempty"`
	BetID   string    `json:"bet_id,omitempty"`
	Ts      time.Time `json:"ts"`
}
