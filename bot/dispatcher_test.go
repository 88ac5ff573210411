package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/batchshare/session"
	"github.com/moyoez/batchshare/subscription"
	"github.com/moyoez/batchshare/types"
)

const mb = 1024 * 1024

func TestBatchUploadEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.Handle(ctx, command(adminID, cmdBatchUpload, ""))
	assert.Contains(t, h.gw.last().Text, "Batch Upload Mode Started")
	assert.Contains(t, h.gw.last().Text, "30 minutes")

	h.d.Handle(ctx, media(adminID, "a.pdf", 10*mb))
	assert.Contains(t, h.gw.last().Text, "Files in batch: 1")
	assert.Contains(t, h.gw.last().Text, "10.00 MB")

	h.d.Handle(ctx, media(adminID, "b.zip", 20*mb))
	assert.Contains(t, h.gw.last().Text, "Files in batch: 2")
	assert.Contains(t, h.gw.last().Text, "30.00 MB")

	sess, err := h.sessions.Get(adminID)
	require.NoError(t, err)
	batchId := sess.BatchID()

	h.d.Handle(ctx, command(adminID, cmdDoneBatch, ""))
	summary := h.gw.last()
	assert.Contains(t, summary.Text, "Total Files: 2")
	assert.Contains(t, summary.Text, "Total Size: 30.00 MB")
	assert.Contains(t, summary.Text, batchId)
	assert.Contains(t, summary.Text, "1. a.pdf (10.00 MB)")
	assert.Contains(t, summary.Text, "2. b.zip (20.00 MB)")
	require.Len(t, summary.KB, 2)
	assert.Equal(t, fmt.Sprintf("https://t.me/%s?start=batch_%s", botName, batchId), summary.KB[0][0].URL)
	assert.Equal(t, callbackDeleteBatch+batchId, summary.KB[1][0].CallbackData)

	_, err = h.sessions.Get(adminID)
	assert.ErrorIs(t, err, session.ErrNoActiveSession)

	stored, err := h.repo.GetByID(ctx, batchId)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.Equal(t, adminID, stored.Owner)
	require.Len(t, stored.Files, 2)
	assert.Equal(t, "a.pdf", stored.Files[0].DisplayName)
	assert.Equal(t, "b.zip", stored.Files[1].DisplayName)
	assert.Equal(t, 501, stored.Files[0].RemoteRef)
}

func TestNonAdminIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, cmd := range []string{cmdBatchUpload, cmdDoneBatch, cmdCancelBatch} {
		h.d.Handle(ctx, command(userID, cmd, ""))
		assert.Equal(t, textAdminOnly, h.gw.last().Text, cmd)
	}
	assert.Equal(t, 0, h.sessions.Len())
	assert.Equal(t, 0, h.repo.callCount())
}

func TestNonAdminMediaIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.d.Handle(context.Background(), media(userID, "x", 1))
	assert.Equal(t, 0, h.gw.count())
}

func TestAdminMediaWithoutSessionIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.d.Handle(context.Background(), media(adminID, "x", 1))
	assert.Equal(t, 0, h.gw.count())
}

func TestGroupCommandsAreIgnored(t *testing.T) {
	h := newHarness(t)
	u := command(adminID, cmdBatchUpload, "")
	u.Private = false
	h.d.Handle(context.Background(), u)
	assert.Equal(t, 0, h.gw.count())
	assert.Equal(t, 0, h.sessions.Len())
}

func TestSecondStartConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.Handle(ctx, command(adminID, cmdBatchUpload, ""))
	h.d.Handle(ctx, media(adminID, "a", 1))
	h.d.Handle(ctx, command(adminID, cmdBatchUpload, ""))

	assert.Equal(t, textSessionConflict, h.gw.last().Text)
	sess, err := h.sessions.Get(adminID)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Len())
}

func TestFinishEmptyBatchKeepsSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.Handle(ctx, command(adminID, cmdBatchUpload, ""))
	h.d.Handle(ctx, command(adminID, cmdDoneBatch, ""))

	assert.Equal(t, textEmptyBatch, h.gw.last().Text)
	assert.Equal(t, 1, h.sessions.Len())
	assert.Equal(t, 0, h.repo.callCount())
}

func TestFinishWithoutSession(t *testing.T) {
	h := newHarness(t)
	h.d.Handle(context.Background(), command(adminID, cmdDoneBatch, ""))
	assert.Equal(t, textNoSession, h.gw.last().Text)
}

func TestPersistenceFailureKeepsSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.Handle(ctx, command(adminID, cmdBatchUpload, ""))
	h.d.Handle(ctx, media(adminID, "a", 5))
	h.repo.createErr = errBoom
	h.d.Handle(ctx, command(adminID, cmdDoneBatch, ""))

	assert.Equal(t, textPersistFailed, h.gw.last().Text)
	sess, err := h.sessions.Get(adminID)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Len())

	// unsealed, so more files and a retry work
	h.d.Handle(ctx, media(adminID, "b", 5))
	assert.Contains(t, h.gw.last().Text, "Files in batch: 2")

	h.repo.createErr = nil
	h.d.Handle(ctx, command(adminID, cmdDoneBatch, ""))
	assert.Contains(t, h.gw.last().Text, "Total Files: 2")
	assert.Equal(t, 0, h.sessions.Len())
}

func TestPersistRetryAfterAmbiguousWrite(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.Handle(ctx, command(adminID, cmdBatchUpload, ""))
	h.d.Handle(ctx, media(adminID, "a", 5))
	sess, err := h.sessions.Get(adminID)
	require.NoError(t, err)

	// the first attempt reached the database even though the caller saw an error
	batch, err := sess.Finalize()
	require.NoError(t, err)
	require.NoError(t, h.repo.Create(ctx, batch))
	sess.Unseal()

	h.d.Handle(ctx, command(adminID, cmdDoneBatch, ""))
	assert.Contains(t, h.gw.last().Text, "Total Files: 1")
	assert.Equal(t, 0, h.sessions.Len())
}

func TestForwardFailureLeavesBatchUnchanged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.Handle(ctx, command(adminID, cmdBatchUpload, ""))
	h.d.Handle(ctx, media(adminID, "a", 5))
	h.gw.forwardErr = errBoom
	h.d.Handle(ctx, media(adminID, "b", 7))

	assert.Equal(t, textForwardFailed, h.gw.last().Text)
	sess, err := h.sessions.Get(adminID)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Len())
	assert.Equal(t, int64(5), sess.TotalSize())
}

func TestUnsupportedMedia(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.Handle(ctx, command(adminID, cmdBatchUpload, ""))
	u := media(adminID, "", 0)
	u.Media.Kind = ""
	h.d.Handle(ctx, u)

	assert.Equal(t, textUnsupported, h.gw.last().Text)
	sess, err := h.sessions.Get(adminID)
	require.NoError(t, err)
	assert.Equal(t, 0, sess.Len())
}

func TestCancelNeverTouchesRepository(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.Handle(ctx, command(adminID, cmdBatchUpload, ""))
	h.d.Handle(ctx, media(adminID, "a", 5))
	h.d.Handle(ctx, command(adminID, cmdCancelBatch, ""))

	assert.Equal(t, textCancelled, h.gw.last().Text)
	assert.Equal(t, 0, h.sessions.Len())
	assert.Equal(t, 0, h.repo.callCount())

	h.d.Handle(ctx, command(adminID, cmdCancelBatch, ""))
	assert.Equal(t, textNoSession, h.gw.last().Text)
}

func TestExpiredSessionOnFileAndFinish(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.Handle(ctx, command(adminID, cmdBatchUpload, ""))
	h.d.Handle(ctx, media(adminID, "a", 5))
	h.clock.Advance(session.TTL + time.Second)

	h.d.Handle(ctx, media(adminID, "b", 5))
	assert.Equal(t, textExpired, h.gw.last().Text)
	assert.Equal(t, 0, h.sessions.Len())

	h.d.Handle(ctx, command(adminID, cmdBatchUpload, ""))
	h.clock.Advance(session.TTL + time.Second)
	h.d.Handle(ctx, command(adminID, cmdDoneBatch, ""))
	assert.Equal(t, textExpired, h.gw.last().Text)
	assert.Equal(t, 0, h.sessions.Len())
	assert.Equal(t, 0, h.repo.callCount())
}

func TestConcurrentStartFromOneAdmin(t *testing.T) {
	h := newHarness(t)
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.d.Handle(context.Background(), command(adminID, cmdBatchUpload, ""))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.sessions.Len())
	conflicts := 0
	for _, m := range h.gw.sent {
		if m.Text == textSessionConflict {
			conflicts++
		}
	}
	assert.Equal(t, 9, conflicts)
}

func TestBuildFileRecordNames(t *testing.T) {
	now := time.Now()
	rec := buildFileRecord(&types.Media{Kind: types.MediaVideo, Size: mb}, 7, now)
	assert.Equal(t, "video_7.mp4", rec.DisplayName)
	assert.Equal(t, "1.00 MB", rec.SizeFormatted)

	rec = buildFileRecord(&types.Media{Kind: types.MediaAudio}, 8, now)
	assert.Equal(t, "audio_8.mp3", rec.DisplayName)

	rec = buildFileRecord(&types.Media{Kind: types.MediaPhoto, FileName: "ignored"}, 9, now)
	assert.Equal(t, "photo_9.jpg", rec.DisplayName)
	assert.Equal(t, "image/jpeg", rec.MimeType)

	rec = buildFileRecord(&types.Media{Kind: types.MediaDocument}, 10, now)
	assert.Equal(t, "document_10", rec.DisplayName)

	rec = buildFileRecord(&types.Media{Kind: types.MediaDocument, FileName: "keep.txt"}, 11, now)
	assert.Equal(t, "keep.txt", rec.DisplayName)
	assert.Equal(t, 11, rec.RemoteRef)
}

func TestSummaryEscapesAndTruncates(t *testing.T) {
	batch := &types.Batch{BatchID: "a1b2c3d4"}
	for i := range maxSummaryFiles + 3 {
		batch.Files = append(batch.Files, types.FileRecord{DisplayName: fmt.Sprintf("<f%d>", i)})
	}
	text := summaryText(batch, "")
	assert.Contains(t, text, "&lt;f0&gt;")
	assert.NotContains(t, text, "<f0>")
	assert.Contains(t, text, "and 3 more")
	assert.Equal(t, maxSummaryFiles, strings.Count(text, "&lt;f"))
}

func TestMenusAreGated(t *testing.T) {
	h := newHarness(t, types.ChannelConfig{ID: fmt.Sprint(mainChan), Link: "https://t.me/main", Name: "Main"})
	ctx := context.Background()

	h.d.Handle(ctx, command(userID, cmdStart, ""))
	assert.Equal(t, textForceSub, h.gw.last().Text)
	require.Len(t, h.gw.last().KB, 1)
	assert.Equal(t, "https://t.me/main", h.gw.last().KB[0][0].URL)

	h.gw.statuses[mainChan] = subscription.StatusMember
	h.d.Handle(ctx, command(userID, cmdStart, ""))
	assert.Contains(t, h.gw.last().Text, "Share Bot")

	h.d.Handle(ctx, command(userID, cmdHelp, ""))
	assert.Equal(t, textHelp, h.gw.last().Text)

	h.d.Handle(ctx, callback(userID, callbackAbout))
	assert.Contains(t, h.gw.last().Text, "1.0.0")
	assert.Contains(t, h.gw.answers, "")
}

func TestMenuKeyboardDropsUnsetLinks(t *testing.T) {
	h := newHarness(t)
	h.d.Handle(context.Background(), command(userID, cmdStart, ""))
	kb := h.gw.last().KB
	require.Len(t, kb, 1)
	assert.Equal(t, callbackHelp, kb[0][0].CallbackData)
}

func TestHandleRecoversFromPanics(t *testing.T) {
	h := newHarness(t)
	u := command(adminID, cmdBatchUpload, "")
	h.d.gateway = nil
	assert.NotPanics(t, func() { h.d.Handle(context.Background(), u) })
}

func TestCancelDuringFinishIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.Handle(ctx, command(adminID, cmdBatchUpload, ""))
	h.d.Handle(ctx, media(adminID, "a", 5))
	sess, err := h.sessions.Get(adminID)
	require.NoError(t, err)

	entered, release := h.repo.blockCreate()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.d.Handle(ctx, command(adminID, cmdDoneBatch, ""))
	}()
	<-entered

	h.d.Handle(ctx, command(adminID, cmdCancelBatch, ""))
	assert.Equal(t, textSealed, h.gw.last().Text)

	h.d.Handle(ctx, command(adminID, cmdBatchUpload, ""))
	assert.Equal(t, textSessionConflict, h.gw.last().Text)

	forwards := h.gw.forwardCount()
	h.d.Handle(ctx, media(adminID, "late", 5))
	assert.Equal(t, textSealed, h.gw.last().Text)
	assert.Equal(t, forwards, h.gw.forwardCount())

	release()
	<-done

	assert.Contains(t, h.gw.last().Text, "Total Files: 1")
	assert.True(t, h.repo.has(sess.BatchID()))
	assert.Equal(t, 0, h.sessions.Len())

	h.d.Handle(ctx, command(adminID, cmdBatchUpload, ""))
	next, err := h.sessions.Get(adminID)
	require.NoError(t, err)
	assert.NotEqual(t, sess.BatchID(), next.BatchID())
}

func TestFinishKeepsSessionStartedWhileSaving(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.Handle(ctx, command(adminID, cmdBatchUpload, ""))
	h.d.Handle(ctx, media(adminID, "a", 5))

	entered, release := h.repo.blockCreate()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.d.Handle(ctx, command(adminID, cmdDoneBatch, ""))
	}()
	<-entered

	// the saving session expires and is dropped, then a new one is started
	h.clock.Advance(session.TTL + time.Second)
	h.d.Handle(ctx, media(adminID, "b", 5))
	assert.Equal(t, textExpired, h.gw.last().Text)
	h.d.Handle(ctx, command(adminID, cmdBatchUpload, ""))
	fresh, err := h.sessions.Get(adminID)
	require.NoError(t, err)

	release()
	<-done

	got, err := h.sessions.Get(adminID)
	require.NoError(t, err)
	assert.Same(t, fresh, got)
}
