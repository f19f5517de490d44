package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	sl "board_service/internal/lib/logger"
	"board_service/internal/models"
	"board_service/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMemberExists       = errors.New("member already exists")
	ErrInvalidToken       = errors.New("invalid token")
)

// tokenKeyBytes is the entropy of a token key: 20 random bytes encoded
// as 40 hex characters.
const tokenKeyBytes = 20

// issueAttempts caps collision retries when inserting a fresh key. At
// 160 bits of entropy a single retry is already unexpected.
const issueAttempts = 3

type Auth struct {
	log         *slog.Logger
	mbrSaver    MemberSaver
	mbrProvider MemberProvider
	tokens      TokenStore
	cache       TokenCache
}

type MemberSaver interface {
	SaveMember(ctx context.Context, username string, passHash []byte) (models.Member, error)
}

type MemberProvider interface {
	MemberByUsername(ctx context.Context, username string) (models.Member, error)
	MemberByID(ctx context.Context, id int64) (models.Member, error)
}

type TokenStore interface {
	SaveToken(ctx context.Context, key string, memberID int64) (models.Token, error)
	TokenByKey(ctx context.Context, key string) (models.Identity, error)
	DeleteToken(ctx context.Context, key string) error
	DeleteMemberTokens(ctx context.Context, memberID int64) ([]string, error)
}

type TokenCache interface {
	Identity(ctx context.Context, key string) (models.Identity, bool, error)
	SaveIdentity(ctx context.Context, identity models.Identity) error
	Invalidate(ctx context.Context, keys ...string) error
}

func New(
	log *slog.Logger,
	memberSaver MemberSaver,
	memberProvider MemberProvider,
	tokenStore TokenStore,
	tokenCache TokenCache,
) *Auth {
	return &Auth{
		log:         log,
		mbrSaver:    memberSaver,
		mbrProvider: memberProvider,
		tokens:      tokenStore,
		cache:       tokenCache,
	}
}

// Register creates a member with a bcrypt-hashed password and issues
// their first token.
func (a *Auth) Register(ctx context.Context, username, password string) (models.Identity, error) {
	const op = "auth.Register"

	log := a.log.With(slog.String("op", op))

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	member, err := a.mbrSaver.SaveMember(ctx, username, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrMemberExists) {
			log.Warn("member already exists", slog.String("username", username))
			return models.Identity{}, fmt.Errorf("%s: %w", op, ErrMemberExists)
		}

		log.Error("failed to save member", sl.Err(err))
		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	token, err := a.issueToken(ctx, member.ID)
	if err != nil {
		log.Error("failed to issue token", sl.Err(err))
		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("member registered", slog.Int64("member_id", member.ID))

	return models.Identity{Member: member, Token: token}, nil
}

// Login verifies credentials, revokes every live token for the member
// and issues a fresh one. Unknown username and wrong password both
// yield ErrInvalidCredentials so the response leaks nothing about
// which one it was.
func (a *Auth) Login(ctx context.Context, username, password string) (models.Identity, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	member, err := a.mbrProvider.MemberByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrMemberNotFound) {
			log.Warn("member not found")
			return models.Identity{}, ErrInvalidCredentials
		}

		log.Error("failed to get member", sl.Err(err))
		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(member.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))
		return models.Identity{}, ErrInvalidCredentials
	}

	// Last login wins: any previously issued token stops working.
	revoked, err := a.tokens.DeleteMemberTokens(ctx, member.ID)
	if err != nil {
		log.Error("failed to revoke previous tokens", sl.Err(err))
		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.cache.Invalidate(ctx, revoked...); err != nil {
		log.Error("failed to invalidate token cache", sl.Err(err))
		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	token, err := a.issueToken(ctx, member.ID)
	if err != nil {
		log.Error("failed to issue token", sl.Err(err))
		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("member logged in", slog.Int64("member_id", member.ID))

	return models.Identity{Member: member, Token: token}, nil
}

// Logout revokes the token the request authenticated with.
func (a *Auth) Logout(ctx context.Context, key string) error {
	const op = "auth.Logout"

	log := a.log.With(slog.String("op", op))

	if err := a.tokens.DeleteToken(ctx, key); err != nil {
		log.Error("failed to delete token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.cache.Invalidate(ctx, key); err != nil {
		log.Error("failed to invalidate token cache", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("member logged out")

	return nil
}

// Authenticate resolves a bearer token key to the member holding it.
// Unknown keys yield ErrInvalidToken.
func (a *Auth) Authenticate(ctx context.Context, key string) (models.Identity, error) {
	const op = "auth.Authenticate"

	log := a.log.With(slog.String("op", op))

	identity, ok, err := a.cache.Identity(ctx, key)
	if err != nil {
		// Cache trouble must not lock members out.
		log.Warn("token cache lookup failed", sl.Err(err))
	}
	if ok {
		return identity, nil
	}

	identity, err = a.tokens.TokenByKey(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			log.Warn("token not found")
			return models.Identity{}, ErrInvalidToken
		}

		log.Error("failed to resolve token", sl.Err(err))
		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.cache.SaveIdentity(ctx, identity); err != nil {
		log.Warn("failed to cache identity", sl.Err(err))
	}

	return identity, nil
}

func (a *Auth) issueToken(ctx context.Context, memberID int64) (models.Token, error) {
	const op = "auth.issueToken"

	for range issueAttempts {
		key, err := newTokenKey()
		if err != nil {
			return models.Token{}, fmt.Errorf("%s: %w", op, err)
		}

		token, err := a.tokens.SaveToken(ctx, key, memberID)
		if err != nil {
			if errors.Is(err, storage.ErrTokenExists) {
				a.log.Warn("token key collision, retrying")
				continue
			}

			return models.Token{}, fmt.Errorf("%s: %w", op, err)
		}

		return token, nil
	}

	return models.Token{}, fmt.Errorf("%s: gave up after %d key collisions", op, issueAttempts)
}

func newTokenKey() (string, error) {
	buf := make([]byte, tokenKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}
