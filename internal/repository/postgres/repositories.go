package postgres

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/repository"
)

// NewRepositories creates a new set of repositories
func NewRepositories(db *sql.DB, logger *zap.Logger) *repository.Repositories {
	return &repository.Repositories{
		Upload: NewUploadRepository(db, logger),
	}
}
