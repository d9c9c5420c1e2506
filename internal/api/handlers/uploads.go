package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/internal/repository"
	"github.com/jafarshop/relister/internal/service"
	"github.com/jafarshop/relister/pkg/errors"
)

// Uploader is the part of service.Uploader the handlers call
type Uploader interface {
	Upload(ctx context.Context, req service.UploadRequest) (*service.UploadResult, error)
	Preview(ctx context.Context, req service.UploadRequest) (*service.PreviewResult, error)
}

// UploadRecordResponse is one row of GET /v1/uploads
type UploadRecordResponse struct {
	ID              uuid.UUID        `json:"id"`
	SourceURL       string           `json:"source_url"`
	Title           string           `json:"title"`
	Status          domain.RunStatus `json:"status"`
	Reason          *string          `json:"reason,omitempty"`
	SellerProductID *int64           `json:"seller_product_id,omitempty"`
	FinalPrice      int              `json:"final_price"`
	CategoryCode    *int64           `json:"category_code,omitempty"`
	OptionCount     int              `json:"option_count"`
	Strategy        string           `json:"strategy,omitempty"`
	ApprovalStatus  *string          `json:"approval_status,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// HandleUpload handles POST /v1/uploads. The upload result is always the
// response body; the status code classifies failures.
func HandleUpload(uploader Uploader, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.UploadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}

		res, err := uploader.Upload(c.Request.Context(), req)
		if err != nil {
			logger.Warn("Upload failed",
				zap.String("url", req.URL),
				zap.String("reason", errors.Reason(err)),
				zap.Error(err),
			)
		}
		c.JSON(uploadStatus(err), res)
	}
}

// HandlePreview handles POST /v1/previews
func HandlePreview(uploader Uploader, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.UploadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}

		res, err := uploader.Preview(c.Request.Context(), req)
		if err != nil {
			logger.Warn("Preview failed", zap.String("url", req.URL), zap.Error(err))
		}
		c.JSON(uploadStatus(err), res)
	}
}

// HandleListUploads handles GET /v1/uploads?status=&limit=&offset=
func HandleListUploads(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if repos == nil || repos.Upload == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "upload records are not configured"})
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if limit < 1 || limit > 200 {
			limit = 50
		}
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if offset < 0 {
			offset = 0
		}

		var (
			records []*domain.UploadRecord
			err     error
		)
		if raw := c.Query("status"); raw != "" {
			status := domain.RunStatus(raw)
			if !status.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
				return
			}
			records, err = repos.Upload.ListByStatus(c.Request.Context(), status, limit, offset)
		} else {
			records, err = repos.Upload.ListRecent(c.Request.Context(), limit, offset)
		}
		if err != nil {
			logger.Error("Failed to list uploads", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		out := make([]UploadRecordResponse, 0, len(records))
		for _, r := range records {
			out = append(out, UploadRecordResponse{
				ID:              r.ID,
				SourceURL:       r.SourceURL,
				Title:           r.Title,
				Status:          r.Status,
				Reason:          r.Reason,
				SellerProductID: r.SellerProductID,
				FinalPrice:      r.FinalPrice,
				CategoryCode:    r.CategoryCode,
				OptionCount:     r.OptionCount,
				Strategy:        r.Strategy,
				ApprovalStatus:  r.ApprovalStatus,
				CreatedAt:       r.CreatedAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"uploads": out, "limit": limit, "offset": offset})
	}
}

// uploadStatus maps an upload error to its HTTP status
func uploadStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var conflict *errors.ErrConflict
	if stderrors.As(err, &conflict) {
		return http.StatusConflict
	}
	switch errors.Reason(err) {
	case errors.ReasonIPNotAllowed:
		return http.StatusForbidden
	case errors.ReasonMissingCredentials, errors.ReasonUnsupportedSource, errors.ReasonValidation, errors.ReasonApprovalRejected:
		return http.StatusUnprocessableEntity
	case errors.ReasonSourceUnreachable, errors.ReasonImageUnreachable, errors.ReasonDestinationRejected:
		return http.StatusBadGateway
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
