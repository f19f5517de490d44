package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"board_service/internal/storage"
	"board_service/internal/storage/postgres"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*postgres.PostgresRepo, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return postgres.NewWithDB(mock), mock
}

func TestSaveMember_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO members").
		WithArgs("alice", "hashed").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), now))

	m, err := repo.SaveMember(context.Background(), "alice", []byte("hashed"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.ID)
	assert.Equal(t, "alice", m.Username)
	assert.Equal(t, now, m.CreatedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveMember_DuplicateUsername(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery("INSERT INTO members").
		WithArgs("alice", "hashed").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	_, err := repo.SaveMember(context.Background(), "alice", []byte("hashed"))
	require.ErrorIs(t, err, storage.ErrMemberExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberByUsername_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery("SELECT id, username, password_hash, created_at").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.MemberByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, storage.ErrMemberNotFound)
}

func TestSaveToken_KeyCollision(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery("INSERT INTO tokens").
		WithArgs("aaaaaaaaaabbbbbbbbbbccccccccccdddddddddd", int64(1)).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	_, err := repo.SaveToken(context.Background(), "aaaaaaaaaabbbbbbbbbbccccccccccdddddddddd", 1)
	require.ErrorIs(t, err, storage.ErrTokenExists)
}

func TestTokenByKey_ResolvesMember(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()
	key := "aaaaaaaaaabbbbbbbbbbccccccccccdddddddddd"

	rows := pgxmock.NewRows([]string{
		"key", "member_id", "created_at",
		"id", "username", "password_hash", "created_at",
	}).AddRow(key, int64(1), now, int64(1), "alice", []byte("hashed"), now)

	mock.ExpectQuery("SELECT t.key, t.member_id, t.created_at").
		WithArgs(key).
		WillReturnRows(rows)

	identity, err := repo.TokenByKey(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, key, identity.Token.Key)
	assert.Equal(t, "alice", identity.Member.Username)
	assert.Equal(t, int64(1), identity.Member.ID)
}

func TestTokenByKey_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery("SELECT t.key, t.member_id, t.created_at").
		WithArgs("ffffffffffffffffffffffffffffffffffffffff").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.TokenByKey(context.Background(), "ffffffffffffffffffffffffffffffffffffffff")
	require.ErrorIs(t, err, storage.ErrTokenNotFound)
}

func TestDeleteMemberTokens_ReturnsKeys(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := pgxmock.NewRows([]string{"key"}).
		AddRow("aaaaaaaaaabbbbbbbbbbccccccccccdddddddddd").
		AddRow("ffffffffffffffffffffffffffffffffffffffff")

	mock.ExpectQuery("DELETE FROM tokens WHERE member_id").
		WithArgs(int64(1)).
		WillReturnRows(rows)

	keys, err := repo.DeleteMemberTokens(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"aaaaaaaaaabbbbbbbbbbccccccccccdddddddddd",
		"ffffffffffffffffffffffffffffffffffffffff",
	}, keys)
}

func TestDeleteToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec("DELETE FROM tokens WHERE key").
		WithArgs("aaaaaaaaaabbbbbbbbbbccccccccccdddddddddd").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.DeleteToken(context.Background(), "aaaaaaaaaabbbbbbbbbbccccccccccdddddddddd")
	require.NoError(t, err)
}

func TestSaveMessage_AuthorGone(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery("INSERT INTO messages").
		WithArgs(int64(42), "hello").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})

	_, err := repo.SaveMessage(context.Background(), 42, "hello")
	require.ErrorIs(t, err, storage.ErrMemberNotFound)
}

func TestMessages_ScansRowsInOrder(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	base := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "text", "author_id", "username", "created_at"}).
		AddRow(int64(1), "first", int64(1), "alice", base).
		AddRow(int64(2), "second", int64(2), "bob", base.Add(time.Minute))

	mock.ExpectQuery("SELECT msg.id, msg.text, msg.author_id").
		WillReturnRows(rows)

	msgs, err := repo.Messages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "alice", msgs[0].AuthorUsername)
	assert.Equal(t, "second", msgs[1].Text)
}

func TestMessages_EmptyFeedIsNotNil(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery("SELECT msg.id, msg.text, msg.author_id").
		WillReturnRows(pgxmock.NewRows([]string{"id", "text", "author_id", "username", "created_at"}))

	msgs, err := repo.Messages(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestMessages_QueryError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery("SELECT msg.id, msg.text, msg.author_id").
		WillReturnError(errors.New("db down"))

	_, err := repo.Messages(context.Background())
	require.Error(t, err)
}
