package identity

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/craftplan/craftplan-api/internal/apperr"
	"github.com/craftplan/craftplan-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// LocalProvider implements Provider with bcrypt-hashed credentials in
// the local database and HS256 JWT session tokens.
type LocalProvider struct {
	accounts   repository.AccountRepository
	jwtSecret  []byte
	sessionTTL time.Duration
	logger     zerolog.Logger
}

func NewLocalProvider(accounts repository.AccountRepository, jwtSecret string, sessionTTL time.Duration, logger zerolog.Logger) *LocalProvider {
	return &LocalProvider{
		accounts:   accounts,
		jwtSecret:  []byte(jwtSecret),
		sessionTTL: sessionTTL,
		logger:     logger.With().Str("component", "identity").Logger(),
	}
}

func (p *LocalProvider) VerifyCredentials(email, password string) (Identity, error) {
	email = normalizeEmail(email)

	account, err := p.accounts.GetAccountByEmail(email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Identity{}, apperr.NotAuthenticated("invalid credentials")
		}
		return Identity{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return Identity{}, apperr.NotAuthenticated("invalid credentials")
	}

	return Identity{ID: account.ID, Email: account.Email}, nil
}

func (p *LocalProvider) CreateAccount(email, password string) (Identity, error) {
	email = normalizeEmail(email)
	if email == "" {
		return Identity{}, apperr.Validation(map[string]string{"email": "email is required"})
	}
	if len(password) < minPasswordLength {
		return Identity{}, apperr.Validation(map[string]string{"password": "password must be at least 8 characters"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Identity{}, err
	}

	account, err := p.accounts.CreateAccount(uuid.NewString(), email, string(hash))
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return Identity{}, apperr.Conflict("an account with this email already exists")
		}
		return Identity{}, err
	}

	p.logger.Info().Str("account_id", account.ID).Msg("account created")
	return Identity{ID: account.ID, Email: account.Email}, nil
}

func (p *LocalProvider) DeleteAccount(accountID string) error {
	if err := p.accounts.DeleteAccount(accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	p.logger.Info().Str("account_id", accountID).Msg("account deleted")
	return nil
}

func (p *LocalProvider) IssueSession(identity Identity) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   identity.ID,
		"email": identity.Email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(p.sessionTTL).Unix(),
	})
	return token.SignedString(p.jwtSecret)
}

func (p *LocalProvider) ResolveSession(sessionToken string) (Identity, error) {
	token, err := jwt.Parse(sessionToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return p.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, apperr.NotAuthenticated("invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !claims.VerifyExpiresAt(time.Now().Unix(), true) {
		return Identity{}, apperr.NotAuthenticated("session expired")
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" {
		return Identity{}, apperr.NotAuthenticated("invalid session token")
	}

	return Identity{ID: sub, Email: email}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
