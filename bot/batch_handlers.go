package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moyoez/batchshare/metrics"
	"github.com/moyoez/batchshare/session"
	"github.com/moyoez/batchshare/storage"
	"github.com/moyoez/batchshare/tool"
	"github.com/moyoez/batchshare/types"
)

// StartBatch opens a batch session for an admin.
func (d *Dispatcher) StartBatch(ctx context.Context, u *types.Update) error {
	if !d.isAdmin(u.UserID) {
		return ErrPermissionDenied
	}
	sess, err := d.sessions.Start(u.UserID)
	if err != nil {
		return err
	}
	tool.DefaultLogger.Infof("Batch session %s started by %d", sess.BatchID(), u.UserID)
	d.send(ctx, u.ChatID, batchStartedText(sess.Deadline().Sub(sess.CreatedAt())), nil)
	return nil
}

// AddFile archives an incoming media message and appends it to the sender's session.
// Media from non-admins or admins without a session is ignored without a reply.
func (d *Dispatcher) AddFile(ctx context.Context, u *types.Update) error {
	if !u.Private || u.Media == nil || !d.isAdmin(u.UserID) {
		return nil
	}
	sess, err := d.sessions.Get(u.UserID)
	if err != nil {
		return nil
	}
	if sess.IsExpired(d.sessions.Now()) {
		d.expire(sess)
		return session.ErrSessionExpired
	}
	if u.Media.Kind == "" {
		return ErrUnsupportedMedia
	}
	// no archive copy for a file the session would reject anyway
	if sess.Sealed() {
		return session.ErrSessionSealed
	}

	ref, err := d.gateway.ForwardToStorage(ctx, u.ChatID, u.MessageID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamForwarding, err)
	}

	now := d.sessions.Now()
	record := buildFileRecord(u.Media, ref, now)
	res, err := sess.AddFile(record, now)
	if err != nil {
		if errors.Is(err, session.ErrSessionExpired) {
			d.expire(sess)
		}
		return err
	}
	metrics.FilesAdded.Inc()
	metrics.BytesAdded.Add(float64(record.SizeBytes))
	tool.DefaultLogger.Debugf("Batch %s: added %s (%s), %d files", sess.BatchID(), record.DisplayName, record.SizeFormatted, res.Count)
	d.send(ctx, u.ChatID, fileAddedText(res), nil)
	return nil
}

func (d *Dispatcher) expire(sess *session.BatchSession) {
	if d.sessions.Discard(sess) {
		tool.DefaultLogger.Infof("Batch session %s of %d expired", sess.BatchID(), sess.Owner())
	}
}

// buildFileRecord fills in names the platform left out, using the storage message id so
// they stay unique within the batch.
func buildFileRecord(m *types.Media, ref int, now time.Time) types.FileRecord {
	rec := types.FileRecord{
		RemoteRef:     ref,
		DisplayName:   m.FileName,
		SizeBytes:     m.Size,
		SizeFormatted: tool.FormatSize(m.Size),
		MimeType:      m.MimeType,
		MediaKind:     m.Kind,
		ReceivedAt:    now,
	}
	switch m.Kind {
	case types.MediaVideo:
		if rec.DisplayName == "" {
			rec.DisplayName = fmt.Sprintf("video_%d.mp4", ref)
		}
	case types.MediaAudio:
		if rec.DisplayName == "" {
			rec.DisplayName = fmt.Sprintf("audio_%d.mp3", ref)
		}
	case types.MediaPhoto:
		rec.DisplayName = fmt.Sprintf("photo_%d.jpg", ref)
		rec.MimeType = "image/jpeg"
	default:
		if rec.DisplayName == "" {
			rec.DisplayName = fmt.Sprintf("document_%d", ref)
		}
	}
	return rec
}

// FinishBatch persists the admin's session as a batch and replies with the summary and
// share link. If persisting fails the session is kept so the admin can retry.
func (d *Dispatcher) FinishBatch(ctx context.Context, u *types.Update) error {
	if !d.isAdmin(u.UserID) {
		return ErrPermissionDenied
	}
	sess, err := d.sessions.Get(u.UserID)
	if err != nil {
		return err
	}
	if sess.IsExpired(d.sessions.Now()) {
		d.expire(sess)
		return session.ErrSessionExpired
	}
	batch, err := sess.Finalize()
	if err != nil {
		return err
	}
	if err := d.persist(ctx, batch); err != nil {
		sess.Unseal()
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	link := tool.BuildBatchLink(d.gateway.BotUsername(), batch.BatchID)
	d.send(ctx, u.ChatID, summaryText(batch, u.Mention), summaryKeyboard(link, batch.BatchID))
	d.sessions.Discard(sess)

	metrics.BatchesCreated.Inc()
	d.notifier.BatchCreated(batch, link)
	tool.DefaultLogger.Infof("Batch %s created by %d with %d files", batch.BatchID, u.UserID, len(batch.Files))
	return nil
}

// persist writes the batch. A duplicate key for a batch we already wrote (a retry after
// an ambiguous failure) counts as success.
func (d *Dispatcher) persist(ctx context.Context, batch *types.Batch) error {
	err := d.repo.Create(ctx, batch)
	if !errors.Is(err, storage.ErrBatchExists) {
		return err
	}
	stored, getErr := d.repo.GetByID(ctx, batch.BatchID)
	if getErr != nil {
		return err
	}
	if stored.Owner != batch.Owner || len(stored.Files) != len(batch.Files) {
		return err
	}
	return nil
}

// CancelBatch drops the admin's session without storing anything.
func (d *Dispatcher) CancelBatch(ctx context.Context, u *types.Update) error {
	if !d.isAdmin(u.UserID) {
		return ErrPermissionDenied
	}
	sess, err := d.sessions.Get(u.UserID)
	if err != nil {
		return err
	}
	if err := sess.Cancel(); err != nil {
		return err
	}
	d.sessions.Discard(sess)
	tool.DefaultLogger.Infof("Batch session %s cancelled by %d", sess.BatchID(), u.UserID)
	d.send(ctx, u.ChatID, textCancelled, nil)
	return nil
}

// DeleteBatch deactivates a stored batch from the summary's delete button.
func (d *Dispatcher) DeleteBatch(ctx context.Context, u *types.Update, batchId string) error {
	if !d.isAdmin(u.UserID) {
		return ErrPermissionDenied
	}
	if err := d.repo.SetActive(ctx, batchId, false); err != nil {
		return err
	}
	tool.DefaultLogger.Infof("Batch %s deleted by %d", batchId, u.UserID)
	d.notifier.BatchDeleted(batchId, u.UserID)
	if err := d.gateway.AnswerCallback(ctx, u.CallbackID, textBatchDeleted); err != nil {
		tool.DefaultLogger.Debugf("Failed to answer callback %s: %v", u.CallbackID, err)
	}
	return nil
}
