package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
)

func newChatRepoWithMock(t *testing.T) (*ChatRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ChatRepository{db: db}, mock, func() { _ = db.Close() }
}

func sessionRows(id int64, sessionID, userID, title string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "session_id", "user_id", "title", "created_at", "updated_at"}).
		AddRow(id, sessionID, userID, title, nowForTest(), nowForTest())
}

func TestEnsureSessionCreatesAndSelects(t *testing.T) {
	repo, mock, done := newChatRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO chat_sessions").
		WithArgs("sess-1", "u-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, session_id, user_id").
		WithArgs("sess-1").
		WillReturnRows(sessionRows(7, "sess-1", "u-1", ""))

	session, err := repo.EnsureSession(context.Background(), "u-1", "sess-1")
	if err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}
	if session.ID != 7 || session.SessionID != "sess-1" || session.UserID != "u-1" {
		t.Errorf("session = %+v", session)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSessionGeneratesIDWhenEmpty(t *testing.T) {
	repo, mock, done := newChatRepoWithMock(t)
	defer done()

	var generated string
	mock.ExpectExec("INSERT INTO chat_sessions").
		WithArgs(sqlmock.AnyArg(), "u-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, session_id, user_id").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "user_id", "title", "created_at", "updated_at"}).
			AddRow(int64(1), "generated", "u-1", "", nowForTest(), nowForTest()))

	session, err := repo.EnsureSession(context.Background(), "u-1", "")
	if err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}
	generated = session.SessionID
	if generated == "" {
		t.Error("expected a generated session id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAppendMessageScansReturnedID(t *testing.T) {
	repo, mock, done := newChatRepoWithMock(t)
	defer done()

	mock.ExpectQuery("INSERT INTO messages").
		WithArgs(int64(7), "user", "câu hỏi", "hybrid", false, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec("UPDATE chat_sessions SET updated_at").
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	msg := &domain.StoredMessage{SessionRowID: 7, Role: "user", Content: "câu hỏi", SearchMode: "hybrid"}
	if err := repo.AppendMessage(context.Background(), msg); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	if msg.ID != 42 {
		t.Errorf("msg.ID = %d, want 42", msg.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAppendMessageNullsEmptySearchMode(t *testing.T) {
	repo, mock, done := newChatRepoWithMock(t)
	defer done()

	mock.ExpectQuery("INSERT INTO messages").
		WithArgs(int64(7), "assistant", "trả lời", nil, true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(43)))
	mock.ExpectExec("UPDATE chat_sessions SET updated_at").
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	msg := &domain.StoredMessage{SessionRowID: 7, Role: "assistant", Content: "trả lời", RerankerUsed: true}
	if err := repo.AppendMessage(context.Background(), msg); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveSourcesInsertsEachRow(t *testing.T) {
	repo, mock, done := newChatRepoWithMock(t)
	defer done()

	score := 0.031
	rerank := 0.92
	sources := []domain.Source{
		{Text: "Điều 5 ...", SourceType: "legal", DieuNumber: "5", KhoanNumber: "1", FileName: "luat.txt", Score: score, RerankScore: &rerank, Rank: 1},
		{Text: "Điều 6 ...", SourceType: "legal", Rank: 2},
	}

	mock.ExpectExec("INSERT INTO message_sources").
		WithArgs(int64(42), "Điều 5 ...", "legal", "5", "1", "luat.txt", 0.031, 0.92, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO message_sources").
		WithArgs(int64(42), "Điều 6 ...", "legal", nil, nil, nil, nil, nil, 2).
		WillReturnResult(sqlmock.NewResult(2, 1))

	if err := repo.SaveSources(context.Background(), 42, sources); err != nil {
		t.Fatalf("SaveSources() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListMessagesUnknownSessionReturnsNotFound(t *testing.T) {
	repo, mock, done := newChatRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, session_id, user_id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, _, err := repo.ListMessages(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListMessagesReturnsOrderedHistory(t *testing.T) {
	repo, mock, done := newChatRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, session_id, user_id").
		WithArgs("sess-1").
		WillReturnRows(sessionRows(7, "sess-1", "u-1", "Nồng độ cồn"))
	mock.ExpectQuery("SELECT id, session_id, role, content").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "role", "content", "search_mode", "reranker_used", "created_at"}).
			AddRow(int64(1), int64(7), "user", "hỏi", "hybrid", false, nowForTest()).
			AddRow(int64(2), int64(7), "assistant", "đáp", "", true, nowForTest()))

	session, messages, err := repo.ListMessages(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if session.Title != "Nồng độ cồn" {
		t.Errorf("title = %q", session.Title)
	}
	if len(messages) != 2 || messages[0].Role != "user" || messages[1].RerankerUsed != true {
		t.Errorf("messages = %+v", messages)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListSessionsHonorsLimit(t *testing.T) {
	repo, mock, done := newChatRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, session_id, user_id").
		WithArgs("u-1", 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "user_id", "title", "created_at", "updated_at"}).
			AddRow(int64(2), "sess-2", "u-1", "b", nowForTest(), nowForTest()).
			AddRow(int64(1), "sess-1", "u-1", "a", nowForTest(), nowForTest()))

	sessions, err := repo.ListSessions(context.Background(), "u-1", 2)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 2 || sessions[0].SessionID != "sess-2" {
		t.Errorf("sessions = %+v", sessions)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteSessionZeroRowsReturnsNotFound(t *testing.T) {
	repo, mock, done := newChatRepoWithMock(t)
	defer done()

	mock.ExpectExec("DELETE FROM chat_sessions").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteSession(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetTitleIfEmptyOnlyTouchesUntitled(t *testing.T) {
	repo, mock, done := newChatRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE chat_sessions").
		WithArgs(int64(7), "Mức phạt nồng độ cồn", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SetTitleIfEmpty(context.Background(), 7, "Mức phạt nồng độ cồn"); err != nil {
		t.Fatalf("SetTitleIfEmpty() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
