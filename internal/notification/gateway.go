// Package notification turns detected listing changes into durable, delayed
// notifications and delivers them through a messaging gateway.
package notification

import "context"

// Gateway is the outbound messaging capability. The Telegram client
// satisfies it.
type Gateway interface {
	// SendMessage delivers HTML formatted text to a chat.
	SendMessage(ctx context.Context, chatID int64, text string) error
}
