package bot

import (
	"context"

	"github.com/moyoez/batchshare/subscription"
)

// Button is an inline keyboard button. Exactly one of URL and CallbackData is set.
type Button struct {
	Text         string
	URL          string
	CallbackData string
}

// Keyboard is a list of button rows.
type Keyboard [][]Button

// Gateway is everything the dispatcher needs from the chat platform.
type Gateway interface {
	subscription.MembershipChecker

	SendText(ctx context.Context, chatID int64, text string, kb Keyboard) error
	// ForwardToStorage copies a user's message into the storage channel and returns the
	// message id of the copy there.
	ForwardToStorage(ctx context.Context, fromChatID int64, messageID int) (int, error)
	// CopyFromStorage sends the storage channel message remoteRef to chatID.
	CopyFromStorage(ctx context.Context, chatID int64, remoteRef int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	BotUsername() string
}
