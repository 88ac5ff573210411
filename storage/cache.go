package storage

import (
	"context"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/moyoez/batchshare/types"
)

const DefaultCacheTTL = 300 * time.Second

// CachedRepository keeps recently read batches in memory. Deep links are opened in bursts
// after a batch is shared, so reads dominate.
type CachedRepository struct {
	BatchRepository
	batches *ttlworker.Cache[string, *types.Batch]
}

func NewCachedRepository(inner BatchRepository, ttl time.Duration) *CachedRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedRepository{
		BatchRepository: inner,
		batches:         ttlworker.NewCache[string, *types.Batch](ttl),
	}
}

func (c *CachedRepository) Create(ctx context.Context, b *types.Batch) error {
	if err := c.BatchRepository.Create(ctx, b); err != nil {
		return err
	}
	c.batches.Set(b.BatchID, cloneBatch(b))
	return nil
}

func (c *CachedRepository) GetByID(ctx context.Context, batchId string) (*types.Batch, error) {
	if b := c.batches.Get(batchId); b != nil {
		return cloneBatch(b), nil
	}
	b, err := c.BatchRepository.GetByID(ctx, batchId)
	if err != nil {
		return nil, err
	}
	c.batches.Set(batchId, cloneBatch(b))
	return b, nil
}

func (c *CachedRepository) SetActive(ctx context.Context, batchId string, active bool) error {
	err := c.BatchRepository.SetActive(ctx, batchId, active)
	c.batches.Delete(batchId)
	return err
}

func cloneBatch(b *types.Batch) *types.Batch {
	out := *b
	out.Files = append([]types.FileRecord(nil), b.Files...)
	return &out
}
