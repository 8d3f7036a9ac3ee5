package events

import "time"

// Notificação best-effort publicada no tópico "notifications".
// Falha de publicação nunca falha a operação que a originou.
type Notification struct {
	UserID  string            `json:"user_id"`
	Type    string            `json:"type"` // "withdrawal_approved" | "withdrawal_rejected" | "prize_credited"
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
	Ts      time.Time         `json:"ts"`
}
