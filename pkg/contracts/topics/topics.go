package topics

const (
	// Bets
	BetPlaced = "bet_placed"

	// Notificações (match_starting | prediction_result)
	Notifications = "prediction_notifications"

	// DLQs
	NotificationsDLQ = "prediction_notifications_dlq"
)

// Canal Redis Pub/Sub com atualizações de pool por partida
const PoolUpdatesChannel = "pool_updates_broadcast"
