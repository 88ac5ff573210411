package bot

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/moyoez/batchshare/session"
	"github.com/moyoez/batchshare/storage"
	"github.com/moyoez/batchshare/tool"
	"github.com/moyoez/batchshare/types"
)

// maxSummaryFiles keeps the finish summary under the 4096 character message limit.
const maxSummaryFiles = 50

const (
	textAdminOnly       = "⚠️ This command is only for admins!"
	textSessionConflict = "You already have an active batch upload session. " +
		"Please finish it with /done_batch or cancel it with /cancel_batch first."
	textNoSession      = "No active batch upload session. Start one with /batch_upload"
	textEmptyBatch     = "No files in current batch. Send some files first or cancel with /cancel_batch"
	textExpired        = "⏰ Batch upload session expired (30 minutes timeout).\nStart a new session with /batch_upload"
	textSealed         = "⏳ This batch is being finalized, please wait."
	textUnsupported    = "❌ Unsupported file type"
	textForwardFailed  = "❌ Failed to process file. Your batch is unchanged, please send the file again."
	textPersistFailed  = "❌ Could not save the batch. Your files are kept, try /done_batch again."
	textBatchNotFound  = "❌ Batch not found. The link may be wrong."
	textBatchInactive  = "❌ This batch has been deleted."
	textGenericFailure = "❌ Error occurred. Please try again later."
	textCancelled      = "✅ Batch upload session cancelled."
	textBatchDeleted   = "🗑 Batch deleted."

	textForceSub = "<b>⚠️ Access restricted</b>\n\n" +
		"Please join our channels below to use this bot, then send your link again."
	textHelp = "<b>📜 Help</b>\n\n" +
		"Open a batch link to receive all of its files here.\n\n" +
		"<b>Admin commands</b>\n" +
		"• /batch_upload - Start collecting files into a batch\n" +
		"• /done_batch - Finish and generate link\n" +
		"• /cancel_batch - Cancel current session"
)

func (d *Dispatcher) startText(mention string) string {
	return fmt.Sprintf("<b>👋 Hello %s!</b>\n\nI am <b>%s</b>. Open a batch link to get its files.",
		mention, html.EscapeString(d.opts.BotName))
}

func (d *Dispatcher) aboutText() string {
	return fmt.Sprintf("<b>ℹ️ About</b>\n\n<b>Name:</b> %s\n<b>Version:</b> %s",
		html.EscapeString(d.opts.BotName), html.EscapeString(d.opts.Version))
}

func batchStartedText(ttl time.Duration) string {
	return "🔰 <b>Admin Batch Upload Mode Started!</b>\n\n" +
		"Send me the files you want to include in this batch.\n\n" +
		"Commands:\n" +
		"• /done_batch - Finish and generate link\n" +
		"• /cancel_batch - Cancel current session\n\n" +
		fmt.Sprintf("Note: Session will automatically expire in %d minutes.", int(ttl.Minutes()))
}

func fileAddedText(res session.AddResult) string {
	return fmt.Sprintf("✅ File added to batch!\n\n"+
		"📄 Files in batch: %d\n"+
		"📊 Total size: %s\n\n"+
		"Send more files or use:\n"+
		"• /done_batch - Finish and generate link\n"+
		"• /cancel_batch - Cancel current session",
		res.Count, tool.FormatSize(res.TotalSize))
}

func summaryText(batch *types.Batch, mention string) string {
	var b strings.Builder
	b.WriteString("📦 <b>Admin Batch Upload Complete!</b>\n\n")
	fmt.Fprintf(&b, "🆔 Batch ID: <code>%s</code>\n", batch.BatchID)
	fmt.Fprintf(&b, "📄 Total Files: %d\n", len(batch.Files))
	fmt.Fprintf(&b, "📊 Total Size: %s\n", tool.FormatSize(batch.TotalSize()))
	if mention != "" {
		fmt.Fprintf(&b, "👤 Uploaded by: %s\n", mention)
	}
	fmt.Fprintf(&b, "⏰ Created at: %s UTC\n\n", batch.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	b.WriteString("<b>Files in this batch:</b>\n")
	for idx, f := range batch.Files {
		if idx == maxSummaryFiles {
			fmt.Fprintf(&b, "… and %d more\n", len(batch.Files)-maxSummaryFiles)
			break
		}
		fmt.Fprintf(&b, "%d. %s (%s)\n", idx+1, html.EscapeString(f.DisplayName), f.SizeFormatted)
	}
	return b.String()
}

func deliveredText(batchId string, delivered, total int) string {
	if delivered == total {
		return fmt.Sprintf("✅ Sent all %d files from batch <code>%s</code>.", total, batchId)
	}
	return fmt.Sprintf("⚠️ Sent %d of %d files from batch <code>%s</code>. Some files are no longer available.",
		delivered, total, batchId)
}

// textForError is the only place where failures become user-facing text. Internal error
// details are never included.
func textForError(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return textAdminOnly
	case errors.Is(err, session.ErrSessionConflict):
		return textSessionConflict
	case errors.Is(err, session.ErrNoActiveSession), errors.Is(err, session.ErrSessionClosed):
		return textNoSession
	case errors.Is(err, session.ErrEmptyBatch):
		return textEmptyBatch
	case errors.Is(err, session.ErrSessionExpired):
		return textExpired
	case errors.Is(err, session.ErrSessionSealed):
		return textSealed
	case errors.Is(err, ErrUnsupportedMedia):
		return textUnsupported
	case errors.Is(err, ErrUpstreamForwarding):
		return textForwardFailed
	case errors.Is(err, ErrPersistence):
		return textPersistFailed
	case errors.Is(err, storage.ErrBatchNotFound):
		return textBatchNotFound
	case errors.Is(err, ErrBatchInactive):
		return textBatchInactive
	default:
		return textGenericFailure
	}
}
