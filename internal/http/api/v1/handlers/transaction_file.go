package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/budgetwise/budgetwise-api/internal/http/response"
	"github.com/budgetwise/budgetwise-api/internal/models"
	"github.com/gin-gonic/gin"
)

const (
	msgFileNotFound = "Transaction file not found"
	msgFileFields   = "File name and location are required"
	msgFileSize     = "File size must not be negative"
)

type fileRequest struct {
	TransactionID uint64 `json:"transaction_id"`
	FileName      string `json:"file_name"`
	FileSize      int64  `json:"file_size"`
	MimeType      string `json:"mime_type"`
	Location      string `json:"location"`
}

func (r fileRequest) invalidReason() string {
	if strings.TrimSpace(r.FileName) == "" || strings.TrimSpace(r.Location) == "" {
		return msgFileFields
	}
	if r.FileSize < 0 {
		return msgFileSize
	}
	return ""
}

// AttachFiles records file metadata against transactions. Failed items are
// reported by transaction id.
func (h *TransactionHandler) AttachFiles(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	items, ok := bindBatch[fileRequest](c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	result := newBatchResult()
	for _, item := range items {
		if reason := item.invalidReason(); reason != "" {
			result.Failed = append(result.Failed, BatchFailure{ID: item.TransactionID, Reason: reason})
			continue
		}
		parent, errFind := findByID[models.Transaction](ctx, h.db, item.TransactionID)
		if errFind != nil {
			if !errors.Is(errFind, errNotFound) {
				internalError(c, h.logger, errFind, "load transaction failed")
				return
			}
			result.Failed = append(result.Failed, BatchFailure{ID: item.TransactionID, Reason: msgTransactionNotFound})
			continue
		}
		// A foreign transaction is reported as missing.
		if !h.policy(caller, parent.OwnerID) {
			result.Failed = append(result.Failed, BatchFailure{ID: item.TransactionID, Reason: msgTransactionNotFound})
			continue
		}
		file := models.TransactionFile{
			OwnerID:       parent.OwnerID,
			TransactionID: parent.ID,
			FileName:      strings.TrimSpace(item.FileName),
			FileSize:      item.FileSize,
			MimeType:      strings.TrimSpace(item.MimeType),
			Location:      strings.TrimSpace(item.Location),
		}
		if errCreate := h.db.WithContext(ctx).Create(&file).Error; errCreate != nil {
			h.logger.WithError(errCreate).WithField("transaction_id", parent.ID).Warn("api: attach file failed")
			result.Failed = append(result.Failed, BatchFailure{ID: item.TransactionID, Reason: msgInternal})
			continue
		}
		result.Success = append(result.Success, file)
	}
	respondBatch(c, result)
}

// DetachFiles removes a batch of file records by id.
func (h *TransactionHandler) DetachFiles(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	items, ok := bindBatch[idRequest](c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	result := newBatchResult()
	for _, item := range items {
		file, errFind := findByID[models.TransactionFile](ctx, h.db, item.ID)
		if errFind != nil {
			if !errors.Is(errFind, errNotFound) {
				internalError(c, h.logger, errFind, "load transaction file failed")
				return
			}
			result.Failed = append(result.Failed, BatchFailure{ID: item.ID, Reason: msgFileNotFound})
			continue
		}
		if !h.policy(caller, file.OwnerID) {
			result.Failed = append(result.Failed, BatchFailure{ID: item.ID, Reason: msgFileNotFound})
			continue
		}
		if errDelete := h.db.WithContext(ctx).Delete(&models.TransactionFile{}, file.ID).Error; errDelete != nil {
			h.logger.WithError(errDelete).WithField("id", file.ID).Warn("api: detach file failed")
			result.Failed = append(result.Failed, BatchFailure{ID: item.ID, Reason: msgInternal})
			continue
		}
		result.Success = append(result.Success, file)
	}
	respondBatch(c, result)
}

// ListFiles returns the files of ?transaction_id.
func (h *TransactionHandler) ListFiles(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	transactionID, errParse := strconv.ParseUint(strings.TrimSpace(c.Query("transaction_id")), 10, 64)
	if errParse != nil || transactionID == 0 {
		response.Error(c, http.StatusBadRequest, msgInvalidID)
		return
	}
	ctx := c.Request.Context()
	parent, errFind := findByID[models.Transaction](ctx, h.db, transactionID)
	if errFind != nil {
		lookupFailed(c, h.logger, errFind, msgTransactionNotFound)
		return
	}
	if !h.policy(caller, parent.OwnerID) {
		notPermitted(c)
		return
	}
	files := make([]models.TransactionFile, 0)
	if errList := h.db.WithContext(ctx).
		Where("transaction_id = ?", parent.ID).
		Order("id ASC").
		Find(&files).Error; errList != nil {
		internalError(c, h.logger, errList, "list transaction files failed")
		return
	}
	response.OK(c, files)
}
