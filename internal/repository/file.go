package repository

import (
	"context"

	"uploadapi/internal/model"
)

// StoredFileRepository persists accepted uploads. Rows are immutable:
// there is no update operation, and replacement means a new row with a
// new ID.
type StoredFileRepository interface {
	// Create inserts a new stored-file record and returns the stored row.
	Create(ctx context.Context, f *model.StoredFile) (*model.StoredFile, error)

	// FindByID returns a stored file by its ID.
	FindByID(ctx context.Context, id string) (*model.StoredFile, error)

	// List returns a paginated list of stored files and the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.StoredFile], error)
}
