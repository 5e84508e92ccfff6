// Package mail moves outbound email through a durable RabbitMQ queue so
// that request handlers can dispatch fire-and-forget: a publish failure is
// logged and swallowed, never failing the primary flow.
package mail

// Event types carried on the mail.outbound queue.
const (
	TypePasswordReset = "password_reset"
	TypeBroadcast     = "broadcast"
)

// Event is one unit of outbound mail work. For TypePasswordReset, To and
// Token are set; for TypeBroadcast, Subject, Body and Recipients are set
// and the consumer fans out sequentially.
type Event struct {
	Type       string   `json:"type"`
	To         string   `json:"to,omitempty"`
	Token      string   `json:"token,omitempty"`
	Subject    string   `json:"subject,omitempty"`
	Body       string   `json:"body,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
	QueuedAt   string   `json:"queued_at"`
}
