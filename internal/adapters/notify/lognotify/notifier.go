package lognotify

import (
	"context"

	"medicine-reminders/internal/platform/logger"
	"medicine-reminders/internal/ports/notify"
)

// Notifier escribe las entregas en el log. Sirve para dev sin gateway
// configurado y como colaborador observable en tests.
type Notifier struct {
	log logger.Logger
}

func New(log logger.Logger) *Notifier {
	return &Notifier{log: log}
}

func (n *Notifier) Notify(ctx context.Context, userID, message string, ch notify.Channel) error {
	n.log.Info("notification", map[string]any{
		"user_id": userID,
		"channel": string(ch),
		"message": message,
	})
	return nil
}
