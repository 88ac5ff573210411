package bot

import (
	"context"

	"github.com/moyoez/batchshare/metrics"
	"github.com/moyoez/batchshare/tool"
	"github.com/moyoez/batchshare/types"
)

// DeliverBatch sends every file of an active batch to the requesting user, in stored
// order. Users who fail the subscription gate get the join buttons instead.
func (d *Dispatcher) DeliverBatch(ctx context.Context, u *types.Update, batchId string) error {
	if res := d.gate.Check(ctx, u.UserID); !res.Allowed {
		d.send(ctx, u.ChatID, textForceSub, forceSubKeyboard(res.JoinActions))
		return nil
	}
	batch, err := d.repo.GetByID(ctx, batchId)
	if err != nil {
		return err
	}
	if !batch.IsActive {
		return ErrBatchInactive
	}

	delivered := 0
	for _, f := range batch.Files {
		if err := d.gateway.CopyFromStorage(ctx, u.ChatID, f.RemoteRef); err != nil {
			metrics.Deliveries.WithLabelValues("error").Inc()
			tool.DefaultLogger.Warnf("Batch %s: failed to copy %s (ref %d) to %d: %v", batchId, f.DisplayName, f.RemoteRef, u.UserID, err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		metrics.Deliveries.WithLabelValues("ok").Inc()
		delivered++
	}
	tool.DefaultLogger.Infof("Batch %s: delivered %d/%d files to %d", batchId, delivered, len(batch.Files), u.UserID)
	d.send(ctx, u.ChatID, deliveredText(batchId, delivered, len(batch.Files)), nil)
	return nil
}
