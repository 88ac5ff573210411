package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/batchshare/storage"
	"github.com/moyoez/batchshare/tool"
	"github.com/moyoez/batchshare/types"
)

// BatchController serves stored batches to local tooling.
type BatchController struct {
	repo        storage.BatchRepository
	botUsername func() string
}

func NewBatchController(repo storage.BatchRepository, botUsername func() string) *BatchController {
	return &BatchController{repo: repo, botUsername: botUsername}
}

// BatchResponse is a batch plus its share link.
type BatchResponse struct {
	*types.Batch
	TotalBytes         int64  `json:"total_size"`
	TotalSizeFormatted string `json:"total_size_formatted"`
	Link               string `json:"link"`
}

// lookup loads the batch named by :id and writes the error response itself when it can't.
func (ctrl *BatchController) lookup(c *gin.Context) (*types.Batch, bool) {
	batchId := strings.TrimSpace(c.Param("id"))
	if batchId == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing required parameter: id"))
		return nil, false
	}
	batch, err := ctrl.repo.GetByID(c.Request.Context(), batchId)
	if errors.Is(err, storage.ErrBatchNotFound) {
		c.JSON(http.StatusNotFound, tool.FastReturnError("Batch not found"))
		return nil, false
	}
	if err != nil {
		tool.DefaultLogger.Errorf("Failed to load batch %s: %v", batchId, err)
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to load batch"))
		return nil, false
	}
	if !batch.IsActive {
		c.JSON(http.StatusGone, tool.FastReturnErrorWithData("Batch deleted", map[string]any{"batchId": batchId}))
		return nil, false
	}
	return batch, true
}

// HandleGetBatch returns one batch.
// GET /api/v1/batches/:id
func (ctrl *BatchController) HandleGetBatch(c *gin.Context) {
	batch, ok := ctrl.lookup(c)
	if !ok {
		return
	}
	total := batch.TotalSize()
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(BatchResponse{
		Batch:              batch,
		TotalBytes:         total,
		TotalSizeFormatted: tool.FormatSize(total),
		Link:               tool.BuildBatchLink(ctrl.botUsername(), batch.BatchID),
	}))
}
