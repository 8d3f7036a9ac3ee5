package topics

const (
	// Pagamentos PIX
	PaymentConfirmed    = "payment_confirmed"
	PaymentConfirmedDLQ = "payment_confirmed_dlq"

	// Notificações (best-effort)
	Notifications = "notifications"

	// Encerramento de concurso
	ContestSettled = "contest_settled"
)
