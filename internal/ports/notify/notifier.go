package notify

import "context"

// Channel es el medio de entrega de una notificación.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Notifier entrega un mensaje a un usuario. Las implementaciones viven en
// adapters/notify; un fallo se loguea y se reintenta en el siguiente barrido,
// nunca bloquea la mutación de dosis.
type Notifier interface {
	Notify(ctx context.Context, userID, message string, ch Channel) error
}
