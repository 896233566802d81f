// Package auth handles registration, login, and JWT issuance for parents and
// children.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/kidbank/backend/internal/core"
	"github.com/kidbank/backend/internal/models"
	"github.com/kidbank/backend/internal/pgtx"
)

// ErrDuplicateEmail is returned when registering with an email that already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrInvalidCredentials is returned for a wrong email/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore is the user persistence slice auth needs. Satisfied by
// *repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, tx pgx.Tx, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]*models.User, error)
}

// AccountCreator opens the zero-balance account that backs every new user.
type AccountCreator interface {
	CreateAccount(ctx context.Context, tx pgx.Tx, a *models.Account) error
}

type Service struct {
	db       pgtx.Beginner
	users    UserStore
	accounts AccountCreator
	secret   []byte
	ttl      time.Duration
}

func NewService(db pgtx.Beginner, users UserStore, accounts AccountCreator, secret string) *Service {
	return &Service{db: db, users: users, accounts: accounts, secret: []byte(secret), ttl: 24 * time.Hour}
}

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// RegisterParent creates a parent user together with its zero-balance
// account in one transaction.
func (s *Service) RegisterParent(ctx context.Context, name, email, password string) (*models.User, error) {
	if name == "" || email == "" || len(password) < 6 {
		return nil, core.Validationf("name, email, and a password of at least 6 characters are required")
	}
	return s.createUser(ctx, &models.User{
		ID: uuid.New(), Role: models.RoleParent, Name: name, Email: strings.ToLower(email),
	}, password, models.OwnerParent)
}

// AddChild creates a child user under the parent, with its own account.
func (s *Service) AddChild(ctx context.Context, parentID uuid.UUID, name, email, password string) (*models.User, error) {
	if name == "" || email == "" || len(password) < 6 {
		return nil, core.Validationf("name, email, and a password of at least 6 characters are required")
	}
	parent, err := s.users.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.Role != models.RoleParent {
		return nil, core.Forbiddenf("only parents can add children")
	}
	return s.createUser(ctx, &models.User{
		ID: uuid.New(), Role: models.RoleChild, ParentID: &parentID, Name: name, Email: strings.ToLower(email),
	}, password, models.OwnerChild)
}

func (s *Service) createUser(ctx context.Context, u *models.User, password, ownerKind string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = string(hash)
	err = pgtx.InTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := s.users.Create(ctx, tx, u); err != nil {
			return err
		}
		return s.accounts.CreateAccount(ctx, tx, &models.Account{
			ID: uuid.New(), OwnerID: u.ID, OwnerKind: ownerKind,
		})
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.issueToken(u.ID, u.Role)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Children lists the parent's children.
func (s *Service) Children(ctx context.Context, parentID uuid.UUID) ([]*models.User, error) {
	return s.users.ListChildren(ctx, parentID)
}

func (s *Service) issueToken(userID uuid.UUID, role string) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

// ValidateToken parses a bearer token and returns the subject and role.
func (s *Service) ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, "", errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, c.Role, nil
}
