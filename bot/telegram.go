package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/moyoez/batchshare/subscription"
	"github.com/moyoez/batchshare/tool"
	"github.com/moyoez/batchshare/types"
)

// Telegram is the Bot API implementation of Gateway. All outgoing calls share one rate
// limiter so bursts (batch delivery) stay under the platform flood limits.
type Telegram struct {
	api           *tgbotapi.BotAPI
	storageChatID int64
	limiter       *rate.Limiter
	pollTimeout   int
}

var _ Gateway = (*Telegram)(nil)

func NewTelegram(token string, storageChatID int64, ratePerSec float64, pollTimeout int) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("bot token is not configured")
	}
	if pollTimeout <= 0 {
		pollTimeout = 60
	}
	client := tool.NewHTTPClient(time.Duration(pollTimeout) * time.Second)
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bot api: %w", err)
	}
	if ratePerSec <= 0 {
		ratePerSec = 25
	}
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	tool.DefaultLogger.Infof("Authorized on account @%s", api.Self.UserName)
	return &Telegram{
		api:           api,
		storageChatID: storageChatID,
		limiter:       rate.NewLimiter(rate.Limit(ratePerSec), burst),
		pollTimeout:   pollTimeout,
	}, nil
}

// Run long-polls for updates and hands each one to handle in its own goroutine until ctx
// is cancelled.
func (t *Telegram) Run(ctx context.Context, handle func(context.Context, *types.Update)) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = t.pollTimeout
	updates := t.api.GetUpdatesChan(cfg)
	defer t.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			u := convertUpdate(upd)
			if u == nil {
				continue
			}
			go handle(ctx, u)
		}
	}
}

func (t *Telegram) BotUsername() string {
	return t.api.Self.UserName
}

func (t *Telegram) SendText(ctx context.Context, chatID int64, text string, kb Keyboard) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if len(kb) > 0 {
		msg.ReplyMarkup = toInlineMarkup(kb)
	}
	_, err := t.api.Send(msg)
	return err
}

func (t *Telegram) ForwardToStorage(ctx context.Context, fromChatID int64, messageID int) (int, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	sent, err := t.api.Send(tgbotapi.NewForward(t.storageChatID, fromChatID, messageID))
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (t *Telegram) CopyFromStorage(ctx context.Context, chatID int64, remoteRef int) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := t.api.CopyMessage(tgbotapi.NewCopyMessage(chatID, t.storageChatID, remoteRef))
	return err
}

func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if callbackID == "" {
		return nil
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := t.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func (t *Telegram) ChatMemberStatus(ctx context.Context, chatID, userID int64) (subscription.MemberStatus, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}
	member, err := t.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		if isNotParticipant(err) {
			return "", subscription.ErrNotParticipant
		}
		return "", err
	}
	return subscription.MemberStatus(member.Status), nil
}

func isNotParticipant(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "user not found") || strings.Contains(msg, "participant")
}

func toInlineMarkup(kb Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.CallbackData))
			}
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// convertUpdate maps a Bot API update to the dispatcher's update type. Updates the bot
// does not handle return nil.
func convertUpdate(upd tgbotapi.Update) *types.Update {
	if cq := upd.CallbackQuery; cq != nil {
		if cq.From == nil {
			return nil
		}
		u := &types.Update{
			Kind:         types.UpdateCallback,
			UserID:       cq.From.ID,
			ChatID:       cq.From.ID,
			Mention:      mention(cq.From),
			CallbackID:   cq.ID,
			CallbackData: cq.Data,
		}
		if cq.Message != nil && cq.Message.Chat != nil {
			u.ChatID = cq.Message.Chat.ID
			u.MessageID = cq.Message.MessageID
			u.Private = cq.Message.Chat.IsPrivate()
		}
		return u
	}

	m := upd.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return nil
	}
	u := &types.Update{
		UserID:    m.From.ID,
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		Private:   m.Chat.IsPrivate(),
		Mention:   mention(m.From),
	}
	switch {
	case m.IsCommand():
		u.Kind = types.UpdateCommand
		u.Command = m.Command()
		u.Args = m.CommandArguments()
	case m.Animation != nil, m.Sticker != nil, m.Voice != nil, m.VideoNote != nil:
		u.Kind = types.UpdateMedia
		u.Media = &types.Media{}
	case m.Document != nil:
		u.Kind = types.UpdateMedia
		u.Media = &types.Media{
			Kind:     types.MediaDocument,
			FileName: m.Document.FileName,
			Size:     int64(m.Document.FileSize),
			MimeType: m.Document.MimeType,
		}
	case m.Video != nil:
		u.Kind = types.UpdateMedia
		u.Media = &types.Media{
			Kind:     types.MediaVideo,
			FileName: m.Video.FileName,
			Size:     int64(m.Video.FileSize),
			MimeType: m.Video.MimeType,
		}
	case m.Audio != nil:
		u.Kind = types.UpdateMedia
		u.Media = &types.Media{
			Kind:     types.MediaAudio,
			FileName: m.Audio.FileName,
			Size:     int64(m.Audio.FileSize),
			MimeType: m.Audio.MimeType,
		}
	case len(m.Photo) > 0:
		// sizes are ordered small to large
		largest := m.Photo[len(m.Photo)-1]
		u.Kind = types.UpdateMedia
		u.Media = &types.Media{
			Kind: types.MediaPhoto,
			Size: int64(largest.FileSize),
		}
	default:
		return nil
	}
	return u
}

func mention(user *tgbotapi.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.UserName
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, user.ID, html.EscapeString(name))
}
