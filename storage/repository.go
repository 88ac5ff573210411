package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/moyoez/batchshare/types"
)

// BatchRecord is the persisted form of a batch.
type BatchRecord struct {
	BatchID   string    `gorm:"primaryKey;size:32"`
	OwnerID   int64     `gorm:"index;not null"`
	Files     FileList  `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
	IsActive  bool      `gorm:"not null"`
}

func (BatchRecord) TableName() string {
	return "batches"
}

// BatchRepository is the durable store of finalized batches.
type BatchRepository interface {
	Create(ctx context.Context, b *types.Batch) error
	GetByID(ctx context.Context, batchId string) (*types.Batch, error)
	SetActive(ctx context.Context, batchId string, active bool) error
	ListIDs(ctx context.Context) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) BatchRepository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, b *types.Batch) error {
	rec := BatchRecord{
		BatchID:   b.BatchID,
		OwnerID:   b.Owner,
		Files:     FileList(b.Files),
		CreatedAt: b.CreatedAt.UTC(),
		IsActive:  b.IsActive,
	}
	err := r.db.WithContext(ctx).Create(&rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrBatchExists
	}
	return err
}

func (r *repository) GetByID(ctx context.Context, batchId string) (*types.Batch, error) {
	var rec BatchRecord
	err := r.db.WithContext(ctx).Where("batch_id = ?", batchId).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.toBatch(), nil
}

func (r *repository) SetActive(ctx context.Context, batchId string, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&BatchRecord{}).
		Where("batch_id = ?", batchId).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBatchNotFound
	}
	return nil
}

func (r *repository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&BatchRecord{}).Pluck("batch_id", &ids).Error
	return ids, err
}

func (rec *BatchRecord) toBatch() *types.Batch {
	files := make([]types.FileRecord, len(rec.Files))
	copy(files, rec.Files)
	return &types.Batch{
		BatchID:   rec.BatchID,
		Owner:     rec.OwnerID,
		Files:     files,
		CreatedAt: rec.CreatedAt,
		IsActive:  rec.IsActive,
	}
}
