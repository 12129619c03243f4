package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
)

type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL UNIQUE,
	user_id TEXT NOT NULL,
	title TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_sessions_user_id ON chat_sessions(user_id);

CREATE TABLE IF NOT EXISTS messages (
	id BIGSERIAL PRIMARY KEY,
	session_id BIGINT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	search_mode TEXT,
	reranker_used BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id);

CREATE TABLE IF NOT EXISTS message_sources (
	id BIGSERIAL PRIMARY KEY,
	message_id BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	source_text TEXT NOT NULL,
	source_type TEXT,
	dieu_number TEXT,
	khoan_number TEXT,
	file_name TEXT,
	score DOUBLE PRECISION,
	rerank_score DOUBLE PRECISION,
	rank INT
);

CREATE INDEX IF NOT EXISTS idx_message_sources_message_id ON message_sources(message_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// EnsureSession returns the session row for sessionID, creating it first if
// needed. An empty sessionID starts a fresh session with a generated id.
func (r *ChatRepository) EnsureSession(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO chat_sessions (session_id, user_id, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (session_id) DO NOTHING
`, sessionID, userID, now)
	if err != nil {
		return nil, fmt.Errorf("ensure session insert: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
SELECT id, session_id, user_id, COALESCE(title, ''), created_at, updated_at
FROM chat_sessions
WHERE session_id = $1
`, sessionID)

	var session domain.ChatSession
	if err := row.Scan(
		&session.ID,
		&session.SessionID,
		&session.UserID,
		&session.Title,
		&session.CreatedAt,
		&session.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("ensure session select: %w", err)
	}
	return &session, nil
}

func (r *ChatRepository) SetTitleIfEmpty(ctx context.Context, sessionRowID int64, title string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE chat_sessions
SET title = $2, updated_at = $3
WHERE id = $1 AND (title IS NULL OR title = '')
`, sessionRowID, title, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set session title: %w", err)
	}
	return nil
}

func (r *ChatRepository) AppendMessage(ctx context.Context, msg *domain.StoredMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	row := r.db.QueryRowContext(ctx, `
INSERT INTO messages (session_id, role, content, search_mode, reranker_used, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`, msg.SessionRowID, msg.Role, msg.Content, nullableString(msg.SearchMode), msg.RerankerUsed, msg.CreatedAt)

	if err := row.Scan(&msg.ID); err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	_, err := r.db.ExecContext(ctx, `
UPDATE chat_sessions SET updated_at = $2 WHERE id = $1
`, msg.SessionRowID, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (r *ChatRepository) SaveSources(ctx context.Context, messageID int64, sources []domain.Source) error {
	for _, src := range sources {
		_, err := r.db.ExecContext(ctx, `
INSERT INTO message_sources (message_id, source_text, source_type, dieu_number, khoan_number, file_name, score, rerank_score, rank)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, messageID, src.Text, nullableString(src.SourceType), nullableString(src.DieuNumber),
			nullableString(src.KhoanNumber), nullableString(src.FileName), src.Score, src.RerankScore, src.Rank)
		if err != nil {
			return fmt.Errorf("insert message source: %w", err)
		}
	}
	return nil
}

func (r *ChatRepository) ListMessages(ctx context.Context, sessionID string) (*domain.ChatSession, []domain.StoredMessage, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, session_id, user_id, COALESCE(title, ''), created_at, updated_at
FROM chat_sessions
WHERE session_id = $1
`, sessionID)

	var session domain.ChatSession
	if err := row.Scan(
		&session.ID,
		&session.SessionID,
		&session.UserID,
		&session.Title,
		&session.CreatedAt,
		&session.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, domain.WrapError(domain.ErrNotFound, "list messages", fmt.Errorf("session %s", sessionID))
		}
		return nil, nil, fmt.Errorf("select session: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, role, content, COALESCE(search_mode, ''), reranker_used, created_at
FROM messages
WHERE session_id = $1
ORDER BY created_at ASC, id ASC
`, session.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.StoredMessage, 0)
	for rows.Next() {
		var msg domain.StoredMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.SessionRowID,
			&msg.Role,
			&msg.Content,
			&msg.SearchMode,
			&msg.RerankerUsed,
			&msg.CreatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate messages: %w", err)
	}
	return &session, out, nil
}

func (r *ChatRepository) ListSessions(ctx context.Context, userID string, limit int) ([]domain.ChatSession, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, user_id, COALESCE(title, ''), created_at, updated_at
FROM chat_sessions
WHERE user_id = $1
ORDER BY updated_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ChatSession, 0, limit)
	for rows.Next() {
		var session domain.ChatSession
		if err := rows.Scan(
			&session.ID,
			&session.SessionID,
			&session.UserID,
			&session.Title,
			&session.CreatedAt,
			&session.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func (r *ChatRepository) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM chat_sessions WHERE session_id = $1
`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.WrapError(domain.ErrNotFound, "delete session", fmt.Errorf("session %s", sessionID))
	}
	return nil
}

func nullableString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
