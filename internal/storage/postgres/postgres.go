package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"board_service/internal/config"
	"board_service/internal/models"
	"board_service/internal/storage"
	"board_service/internal/storage/postgres/migrations"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// DB is the subset of pgxpool.Pool the repository needs. Tests satisfy
// it with pgxmock.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	if err := runMigrations(ctx, dsn); err != nil {
		return nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool, db: pool}, nil
}

// NewWithDB builds a repository over an existing connection. Used by
// tests.
func NewWithDB(db DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) SaveMember(ctx context.Context, username string, passHash []byte) (models.Member, error) {
	const op = "storage.postgres.SaveMember"

	query := `
		INSERT INTO members (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at;
	`

	m := models.Member{Username: username, PassHash: passHash}

	err := r.db.QueryRow(ctx, query, username, string(passHash)).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return models.Member{}, storage.ErrMemberExists
		}

		return models.Member{}, fmt.Errorf("%s: failed to save member: %w", op, err)
	}

	return m, nil
}

func (r *PostgresRepo) MemberByUsername(ctx context.Context, username string) (models.Member, error) {
	const op = "storage.postgres.MemberByUsername"

	query := `
		SELECT id, username, password_hash, created_at
		FROM members
		WHERE username = $1;
	`

	var m models.Member
	err := r.db.QueryRow(ctx, query, username).Scan(
		&m.ID,
		&m.Username,
		&m.PassHash,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Member{}, storage.ErrMemberNotFound
		}

		return models.Member{}, fmt.Errorf("%s: %w", op, err)
	}

	return m, nil
}

func (r *PostgresRepo) MemberByID(ctx context.Context, id int64) (models.Member, error) {
	const op = "storage.postgres.MemberByID"

	query := `
		SELECT id, username, password_hash, created_at
		FROM members
		WHERE id = $1;
	`

	var m models.Member
	err := r.db.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.Username,
		&m.PassHash,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Member{}, storage.ErrMemberNotFound
		}

		return models.Member{}, fmt.Errorf("%s: %w", op, err)
	}

	return m, nil
}

func (r *PostgresRepo) SaveToken(ctx context.Context, key string, memberID int64) (models.Token, error) {
	const op = "storage.postgres.SaveToken"

	query := `
		INSERT INTO tokens (key, member_id)
		VALUES ($1, $2)
		RETURNING created_at;
	`

	t := models.Token{Key: key, MemberID: memberID}

	err := r.db.QueryRow(ctx, query, key, memberID).Scan(&t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return models.Token{}, storage.ErrTokenExists
			case pgerrcode.ForeignKeyViolation:
				return models.Token{}, storage.ErrMemberNotFound
			}
		}

		return models.Token{}, fmt.Errorf("%s: failed to save token: %w", op, err)
	}

	return t, nil
}

// TokenByKey resolves a bearer token key to the member holding it.
func (r *PostgresRepo) TokenByKey(ctx context.Context, key string) (models.Identity, error) {
	const op = "storage.postgres.TokenByKey"

	query := `
		SELECT t.key, t.member_id, t.created_at,
		       m.id, m.username, m.password_hash, m.created_at
		FROM tokens t
		JOIN members m ON m.id = t.member_id
		WHERE t.key = $1;
	`

	var id models.Identity
	err := r.db.QueryRow(ctx, query, key).Scan(
		&id.Token.Key,
		&id.Token.MemberID,
		&id.Token.CreatedAt,
		&id.Member.ID,
		&id.Member.Username,
		&id.Member.PassHash,
		&id.Member.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Identity{}, storage.ErrTokenNotFound
		}

		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) DeleteToken(ctx context.Context, key string) error {
	const op = "storage.postgres.DeleteToken"

	query := `DELETE FROM tokens WHERE key = $1;`

	if _, err := r.db.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteMemberTokens removes every token held by the member and
// returns the deleted keys so cache entries can be invalidated.
func (r *PostgresRepo) DeleteMemberTokens(ctx context.Context, memberID int64) ([]string, error) {
	const op = "storage.postgres.DeleteMemberTokens"

	query := `DELETE FROM tokens WHERE member_id = $1 RETURNING key;`

	rows, err := r.db.Query(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		keys = append(keys, key)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: %w", op, rows.Err())
	}

	return keys, nil
}

func (r *PostgresRepo) SaveMessage(ctx context.Context, authorID int64, text string) (models.Message, error) {
	const op = "storage.postgres.SaveMessage"

	query := `
		INSERT INTO messages (author_id, text)
		VALUES ($1, $2)
		RETURNING id, created_at;
	`

	msg := models.Message{AuthorID: authorID, Text: text}

	err := r.db.QueryRow(ctx, query, authorID, text).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return models.Message{}, storage.ErrMemberNotFound
		}

		return models.Message{}, fmt.Errorf("%s: failed to save message: %w", op, err)
	}

	return msg, nil
}

// Messages returns every message, oldest first.
func (r *PostgresRepo) Messages(ctx context.Context) ([]models.Message, error) {
	const op = "storage.postgres.Messages"

	query := `
		SELECT msg.id, msg.text, msg.author_id, m.username, msg.created_at
		FROM messages msg
		JOIN members m ON m.id = msg.author_id
		ORDER BY msg.created_at ASC, msg.id ASC;
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	msgs := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(&msg.ID, &msg.Text, &msg.AuthorID, &msg.AuthorUsername, &msg.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		msgs = append(msgs, msg)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: %w", op, rows.Err())
	}

	return msgs, nil
}

func (r *PostgresRepo) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

func runMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

// * dsn формирует конфигурацию базы данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
