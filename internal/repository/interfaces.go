package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/jafarshop/relister/internal/domain"
)

// UploadRepository defines upload record data access methods
type UploadRepository interface {
	Create(ctx context.Context, record *domain.UploadRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.UploadRecord, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*domain.UploadRecord, error)
	ListByStatus(ctx context.Context, status domain.RunStatus, limit, offset int) ([]*domain.UploadRecord, error)
	UpdateApprovalStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus, approvalStatus string) error
}

// Repositories aggregates all repositories
type Repositories struct {
	Upload UploadRepository
}
