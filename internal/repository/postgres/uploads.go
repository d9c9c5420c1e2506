package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/pkg/errors"
)

type uploadRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUploadRepository creates a new upload record repository
func NewUploadRepository(db *sql.DB, logger *zap.Logger) *uploadRepository {
	return &uploadRepository{
		db:     db,
		logger: logger,
	}
}

const uploadColumns = `id, source_url, title, status, reason, seller_product_id, final_price,
	category_code, option_count, strategy, approval_status, created_at`

func (r *uploadRepository) Create(ctx context.Context, record *domain.UploadRecord) error {
	query := `
		INSERT INTO upload_records (` + uploadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if !record.Status.IsValid() {
		return fmt.Errorf("invalid upload status %q", record.Status)
	}

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.SourceURL,
		record.Title,
		string(record.Status),
		record.Reason,
		record.SellerProductID,
		record.FinalPrice,
		record.CategoryCode,
		record.OptionCount,
		record.Strategy,
		record.ApprovalStatus,
		record.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create upload record", zap.Error(err))
		return err
	}

	return nil
}

func (r *uploadRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.UploadRecord, error) {
	query := `SELECT ` + uploadColumns + ` FROM upload_records WHERE id = $1`

	record, err := scanUpload(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "upload", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get upload record", zap.Error(err))
		return nil, err
	}
	return record, nil
}

func (r *uploadRepository) ListRecent(ctx context.Context, limit, offset int) ([]*domain.UploadRecord, error) {
	query := `
		SELECT ` + uploadColumns + `
		FROM upload_records
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.list(ctx, query, limit, offset)
}

func (r *uploadRepository) ListByStatus(ctx context.Context, status domain.RunStatus, limit, offset int) ([]*domain.UploadRecord, error) {
	query := `
		SELECT ` + uploadColumns + `
		FROM upload_records
		WHERE status = $3
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.list(ctx, query, limit, offset, string(status))
}

// UpdateApprovalStatus records a later approval check on an existing upload
func (r *uploadRepository) UpdateApprovalStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus, approvalStatus string) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != status && !current.Status.CanTransitionTo(status) {
		return &errors.ErrInvalidStateTransition{From: current.Status, To: status}
	}

	query := `UPDATE upload_records SET status = $2, approval_status = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, string(status), approvalStatus); err != nil {
		r.logger.Error("Failed to update upload approval status", zap.Error(err))
		return err
	}
	return nil
}

func (r *uploadRepository) list(ctx context.Context, query string, args ...any) ([]*domain.UploadRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list upload records", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var records []*domain.UploadRecord
	for rows.Next() {
		record, err := scanUpload(rows)
		if err != nil {
			r.logger.Error("Failed to scan upload record", zap.Error(err))
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(row scanner) (*domain.UploadRecord, error) {
	var (
		record domain.UploadRecord
		status string
	)
	err := row.Scan(
		&record.ID,
		&record.SourceURL,
		&record.Title,
		&status,
		&record.Reason,
		&record.SellerProductID,
		&record.FinalPrice,
		&record.CategoryCode,
		&record.OptionCount,
		&record.Strategy,
		&record.ApprovalStatus,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.Status = domain.RunStatus(status)
	return &record, nil
}
