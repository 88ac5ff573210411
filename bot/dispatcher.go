package bot

import (
	"context"
	"runtime/debug"
	"strings"

	"github.com/moyoez/batchshare/metrics"
	"github.com/moyoez/batchshare/notify"
	"github.com/moyoez/batchshare/session"
	"github.com/moyoez/batchshare/storage"
	"github.com/moyoez/batchshare/subscription"
	"github.com/moyoez/batchshare/tool"
	"github.com/moyoez/batchshare/types"
)

const (
	cmdStart       = "start"
	cmdHelp        = "help"
	cmdAbout       = "about"
	cmdBatchUpload = "batch_upload"
	cmdDoneBatch   = "done_batch"
	cmdCancelBatch = "cancel_batch"
)

// Options carries the static texts and the admin allow-list.
type Options struct {
	Admins        []int64
	BotName       string
	Version       string
	ChannelLink   string
	DeveloperLink string
}

// Dispatcher routes inbound updates to the batch session operations and renders every
// outcome as a chat reply.
type Dispatcher struct {
	gateway  Gateway
	sessions *session.Store
	repo     storage.BatchRepository
	gate     *subscription.Gate
	notifier *notify.Notifier
	admins   map[int64]struct{}
	opts     Options
}

func NewDispatcher(gw Gateway, sessions *session.Store, repo storage.BatchRepository,
	gate *subscription.Gate, notifier *notify.Notifier, opts Options) *Dispatcher {
	admins := make(map[int64]struct{}, len(opts.Admins))
	for _, id := range opts.Admins {
		admins[id] = struct{}{}
	}
	return &Dispatcher{
		gateway:  gw,
		sessions: sessions,
		repo:     repo,
		gate:     gate,
		notifier: notifier,
		admins:   admins,
		opts:     opts,
	}
}

func (d *Dispatcher) isAdmin(userID int64) bool {
	_, ok := d.admins[userID]
	return ok
}

// Handle processes one update. It is safe to call from many goroutines at once and never
// panics.
func (d *Dispatcher) Handle(ctx context.Context, u *types.Update) {
	defer func() {
		if r := recover(); r != nil {
			tool.DefaultLogger.Errorf("Panic while handling update from %d: %v\n%s", u.UserID, r, debug.Stack())
		}
	}()

	switch u.Kind {
	case types.UpdateCommand:
		d.handleCommand(ctx, u)
	case types.UpdateMedia:
		d.reply(ctx, u, "add_file", d.AddFile(ctx, u))
	case types.UpdateCallback:
		d.handleCallback(ctx, u)
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, u *types.Update) {
	if !u.Private {
		return
	}
	switch u.Command {
	case cmdBatchUpload:
		d.reply(ctx, u, "start_batch", d.StartBatch(ctx, u))
	case cmdDoneBatch:
		d.reply(ctx, u, "finish_batch", d.FinishBatch(ctx, u))
	case cmdCancelBatch:
		d.reply(ctx, u, "cancel_batch", d.CancelBatch(ctx, u))
	case cmdStart:
		if batchId, ok := tool.ParseBatchPayload(u.Args); ok {
			d.reply(ctx, u, "deliver_batch", d.DeliverBatch(ctx, u, batchId))
			return
		}
		d.reply(ctx, u, "menu", d.ShowMenu(ctx, u, callbackHome))
	case cmdHelp:
		d.reply(ctx, u, "menu", d.ShowMenu(ctx, u, callbackHelp))
	case cmdAbout:
		d.reply(ctx, u, "menu", d.ShowMenu(ctx, u, callbackAbout))
	}
}

func (d *Dispatcher) handleCallback(ctx context.Context, u *types.Update) {
	data := strings.TrimSpace(u.CallbackData)
	var err error
	switch {
	case strings.HasPrefix(data, callbackDeleteBatch):
		err = d.DeleteBatch(ctx, u, strings.TrimPrefix(data, callbackDeleteBatch))
		metrics.Observe("delete_batch", err)
	case data == callbackHome || data == callbackHelp || data == callbackAbout:
		err = d.ShowMenu(ctx, u, data)
		if ackErr := d.gateway.AnswerCallback(ctx, u.CallbackID, ""); ackErr != nil {
			tool.DefaultLogger.Debugf("Failed to answer callback %s: %v", u.CallbackID, ackErr)
		}
	default:
		return
	}
	if err != nil {
		tool.DefaultLogger.Warnf("Callback %q from %d failed: %v", data, u.UserID, err)
		if ackErr := d.gateway.AnswerCallback(ctx, u.CallbackID, textForError(err)); ackErr != nil {
			tool.DefaultLogger.Debugf("Failed to answer callback %s: %v", u.CallbackID, ackErr)
		}
	}
}

// reply turns a handler error into a chat message. Success replies are sent by the
// handlers themselves.
func (d *Dispatcher) reply(ctx context.Context, u *types.Update, event string, err error) {
	metrics.Observe(event, err)
	if err == nil {
		return
	}
	tool.DefaultLogger.Infof("%s for user %d: %v", event, u.UserID, err)
	d.send(ctx, u.ChatID, textForError(err), nil)
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, text string, kb Keyboard) {
	if err := d.gateway.SendText(ctx, chatID, text, dropEmptyURLs(kb)); err != nil {
		tool.DefaultLogger.Errorf("Failed to send message to %d: %v", chatID, err)
	}
}

// ShowMenu renders the home, help or about page behind the subscription gate.
func (d *Dispatcher) ShowMenu(ctx context.Context, u *types.Update, page string) error {
	if res := d.gate.Check(ctx, u.UserID); !res.Allowed {
		d.send(ctx, u.ChatID, textForceSub, forceSubKeyboard(res.JoinActions))
		return nil
	}
	switch page {
	case callbackHelp:
		d.send(ctx, u.ChatID, textHelp, d.helpKeyboard())
	case callbackAbout:
		d.send(ctx, u.ChatID, d.aboutText(), d.aboutKeyboard())
	default:
		d.send(ctx, u.ChatID, d.startText(u.Mention), d.startKeyboard())
	}
	return nil
}
