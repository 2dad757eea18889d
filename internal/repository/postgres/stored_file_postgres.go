package postgres

import (
	"context"
	"database/sql"

	"uploadapi/internal/model"
	"uploadapi/internal/repository"
)

// StoredFilePostgres is a PostgreSQL implementation of repository.StoredFileRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type StoredFilePostgres struct {
	db *sql.DB
}

// NewStoredFilePostgres creates a new StoredFilePostgres repository.
func NewStoredFilePostgres(db *sql.DB) *StoredFilePostgres {
	return &StoredFilePostgres{db: db}
}

var _ repository.StoredFileRepository = (*StoredFilePostgres)(nil)

// Create inserts a new stored-file row and returns the stored record.
func (r *StoredFilePostgres) Create(ctx context.Context, f *model.StoredFile) (*model.StoredFile, error) {
	const q = `
		INSERT INTO stored_files (id, secure_name, original_name, size, content_type, storage_path, application_id, scan_status, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
		RETURNING id, secure_name, original_name, size, content_type, storage_path, COALESCE(application_id, ''), scan_status, uploaded_at
	`
	row := r.db.QueryRowContext(ctx, q,
		f.ID,
		f.SecureName,
		f.OriginalName,
		f.Size,
		f.ContentType,
		f.StoragePath,
		f.ApplicationID,
		f.ScanStatus,
		f.UploadedAt,
	)
	var out model.StoredFile
	if err := row.Scan(
		&out.ID,
		&out.SecureName,
		&out.OriginalName,
		&out.Size,
		&out.ContentType,
		&out.StoragePath,
		&out.ApplicationID,
		&out.ScanStatus,
		&out.UploadedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single stored file by its ID.
func (r *StoredFilePostgres) FindByID(ctx context.Context, id string) (*model.StoredFile, error) {
	const q = `
		SELECT id, secure_name, original_name, size, content_type, storage_path, COALESCE(application_id, ''), scan_status, uploaded_at
		FROM stored_files
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)
	var f model.StoredFile
	if err := row.Scan(
		&f.ID,
		&f.SecureName,
		&f.OriginalName,
		&f.Size,
		&f.ContentType,
		&f.StoragePath,
		&f.ApplicationID,
		&f.ScanStatus,
		&f.UploadedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}

// List returns stored files using LIMIT/OFFSET pagination and a total count.
func (r *StoredFilePostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.StoredFile], error) {
	const qCount = `SELECT COUNT(*) FROM stored_files`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT id, secure_name, original_name, size, content_type, storage_path, COALESCE(application_id, ''), scan_status, uploaded_at
		FROM stored_files
		ORDER BY uploaded_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.StoredFile, 0)
	for rows.Next() {
		var f model.StoredFile
		if err := rows.Scan(
			&f.ID,
			&f.SecureName,
			&f.OriginalName,
			&f.Size,
			&f.ContentType,
			&f.StoragePath,
			&f.ApplicationID,
			&f.ScanStatus,
			&f.UploadedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.StoredFile]{
		Items: items,
		Total: total,
	}, nil
}
