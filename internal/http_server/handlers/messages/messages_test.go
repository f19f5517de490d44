package messages_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"board_service/internal/http_server/handlers/messages"
	"board_service/internal/middleware/authn"
	"board_service/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBoard struct {
	messages []models.Message
	listErr  error

	posted  models.Message
	postErr error

	gotAuthor models.Member
	gotText   string
}

func (f *fakeBoard) List(_ context.Context) ([]models.Message, error) {
	return f.messages, f.listErr
}

func (f *fakeBoard) Post(_ context.Context, author models.Member, text string) (models.Message, error) {
	f.gotAuthor = author
	f.gotText = text
	return f.posted, f.postErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestList_EmptyFeed(t *testing.T) {
	board := &fakeBoard{messages: []models.Message{}}
	handler := messages.NewList(testLogger(), board)

	req := httptest.NewRequest(http.MethodGet, "/messages/", nil)
	rr := httptest.NewRecorder()
	handler(rr, req)

	// Listing never requires authentication, even with zero messages.
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestList_ReturnsMessagesInOrder(t *testing.T) {
	createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	board := &fakeBoard{messages: []models.Message{
		{ID: 1, Text: "first", AuthorID: 1, AuthorUsername: "alice", CreatedAt: createdAt},
		{ID: 2, Text: "second", AuthorID: 2, AuthorUsername: "bob", CreatedAt: createdAt.Add(time.Minute)},
	}}
	handler := messages.NewList(testLogger(), board)

	req := httptest.NewRequest(http.MethodGet, "/messages/", nil)
	rr := httptest.NewRecorder()
	handler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[
		{"id": 1, "text": "first", "author_id": 1, "author_username": "alice", "created_at": "2024-05-01T12:00:00Z"},
		{"id": 2, "text": "second", "author_id": 2, "author_username": "bob", "created_at": "2024-05-01T12:01:00Z"}
	]`, rr.Body.String())
}

func TestCreate_Success(t *testing.T) {
	createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	board := &fakeBoard{posted: models.Message{
		ID: 1, Text: "hello", AuthorID: 1, AuthorUsername: "alice", CreatedAt: createdAt,
	}}
	handler := messages.NewCreate(testLogger(), validator.New(), board)

	req := httptest.NewRequest(http.MethodPost, "/messages/", bytes.NewReader([]byte(`{"text": "hello"}`)))
	identity := models.Identity{
		Member: models.Member{ID: 1, Username: "alice"},
		Token:  models.Token{Key: "aaaaaaaaaabbbbbbbbbbccccccccccdddddddddd", MemberID: 1},
	}
	req = req.WithContext(authn.WithIdentity(req.Context(), identity))

	rr := httptest.NewRecorder()
	handler(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t,
		`{"id": 1, "text": "hello", "author_id": 1, "author_username": "alice", "created_at": "2024-05-01T12:00:00Z"}`,
		rr.Body.String(),
	)
	assert.Equal(t, int64(1), board.gotAuthor.ID, "author must be the resolved member")
	assert.Equal(t, "hello", board.gotText)
}

func TestCreate_RequiresIdentity(t *testing.T) {
	board := &fakeBoard{}
	handler := messages.NewCreate(testLogger(), validator.New(), board)

	req := httptest.NewRequest(http.MethodPost, "/messages/", bytes.NewReader([]byte(`{"text": "hello"}`)))
	rr := httptest.NewRecorder()
	handler(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"detail": "Authentication credentials were not provided."}`, rr.Body.String())
	assert.Empty(t, board.gotText, "no message may be created without identity")
}

func TestCreate_MissingText(t *testing.T) {
	handler := messages.NewCreate(testLogger(), validator.New(), &fakeBoard{})

	req := httptest.NewRequest(http.MethodPost, "/messages/", bytes.NewReader([]byte(`{}`)))
	identity := models.Identity{Member: models.Member{ID: 1, Username: "alice"}}
	req = req.WithContext(authn.WithIdentity(req.Context(), identity))

	rr := httptest.NewRecorder()
	handler(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"text": "This field is required."}`, rr.Body.String())
}
