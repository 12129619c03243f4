package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
)

type UserDocumentRepository struct {
	db *sql.DB
}

func NewUserDocumentRepository(db *sql.DB) *UserDocumentRepository {
	return &UserDocumentRepository{db: db}
}

func (r *UserDocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082802)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS user_documents (
	doc_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	session_id TEXT NOT NULL DEFAULT '',
	file_name TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	file_size BIGINT NOT NULL DEFAULT 0,
	num_chunks INT NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_user_documents_user_id ON user_documents(user_id);
CREATE INDEX IF NOT EXISTS idx_user_documents_status ON user_documents(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *UserDocumentRepository) Create(ctx context.Context, doc *domain.UserDocument) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO user_documents (
	doc_id, user_id, session_id, file_name, storage_path, file_size, num_chunks, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		doc.ID, doc.UserID, doc.SessionID, doc.FileName, doc.StoragePath, doc.FileSize,
		doc.NumChunks, string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user document: %w", err)
	}
	return nil
}

func (r *UserDocumentRepository) GetByID(ctx context.Context, id string) (*domain.UserDocument, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT doc_id, user_id, session_id, file_name, storage_path, file_size, num_chunks, status, error_message, created_at, updated_at
FROM user_documents
WHERE doc_id = $1
`, id)

	var doc domain.UserDocument
	var status string

	err := row.Scan(
		&doc.ID, &doc.UserID, &doc.SessionID, &doc.FileName, &doc.StoragePath, &doc.FileSize,
		&doc.NumChunks, &status, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get user document", fmt.Errorf("document %s", id))
		}
		return nil, fmt.Errorf("scan user document: %w", err)
	}

	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func (r *UserDocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE user_documents
SET status = $2, error_message = $3, updated_at = $4
WHERE doc_id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update user document status: %w", err)
	}
	return noneAffectedAsNotFound(res, "update user document status", id)
}

func (r *UserDocumentRepository) MarkReady(ctx context.Context, id string, numChunks int) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE user_documents
SET status = $2, num_chunks = $3, error_message = '', updated_at = $4
WHERE doc_id = $1
`, id, string(domain.StatusReady), numChunks, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark user document ready: %w", err)
	}
	return noneAffectedAsNotFound(res, "mark user document ready", id)
}

func (r *UserDocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_documents WHERE doc_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user document: %w", err)
	}
	return noneAffectedAsNotFound(res, "delete user document", id)
}

func noneAffectedAsNotFound(res sql.Result, operation, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("document %s", id))
	}
	return nil
}
