package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skygear-market/messaging/internal/apperr"
	"github.com/skygear-market/messaging/internal/entity"
	"github.com/skygear-market/messaging/internal/nlog"
	"github.com/skygear-market/messaging/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService is the identity collaborator of the messaging core. The gateway
// and the REST middleware only ever call Verify; Register and Login exist so
// the module can mint the opaque bearer tokens it consumes.
type AuthService interface {
	Register(email, password, firstName, lastName, role string) (*entity.User, error)
	Login(email, password string) (string, *entity.User, error)
	Verify(token string) (*entity.User, error)
}

type jwtAuthService struct {
	users  repository.UserRepository
	secret []byte
	ttl    time.Duration
	logger nlog.Logger
}

func NewAuthService(users repository.UserRepository, secret string, ttl time.Duration, logger nlog.Logger) AuthService {
	return &jwtAuthService{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
	}
}

func (a *jwtAuthService) Logf(format string, v ...any) {
	a.logger.Logf(format, v...)
}

func (a *jwtAuthService) Register(email, password, firstName, lastName, role string) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Invalidf("email and password are required")
	}
	if role == "" {
		role = "buyer"
	}

	if _, err := a.users.GetByEmail(email); err == nil {
		return nil, apperr.Invalidf("email %s is already registered", email)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Persistence(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	u := &entity.User{
		UUID:      id,
		Email:     email,
		Role:      role,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: time.Now(),

		Secret: entity.UserSecret{
			UserUUID: id,
			Hash:     string(hash),
		},
	}
	if err := a.users.Create(u); err != nil {
		return nil, apperr.Persistence(err)
	}

	a.Logf("registered user %s", u.UUID)
	return u, nil
}

func (a *jwtAuthService) Login(email, password string) (string, *entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := a.users.GetForLogin(email)
	if err != nil {
		return "", nil, fmt.Errorf("%w: unknown email", apperr.ErrAuthenticationFailed)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Secret.Hash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("%w: wrong credentials", apperr.ErrAuthenticationFailed)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user-id": u.UUID,
		"iat":     now.Unix(),
		"exp":     now.Add(a.ttl).Unix(),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", nil, err
	}

	a.Logf("user %s logged in", u.UUID)
	return signed, u, nil
}

func (a *jwtAuthService) Verify(tokenStr string) (*entity.User, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", apperr.ErrAuthenticationFailed)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: malformed claims", apperr.ErrAuthenticationFailed)
	}
	userUUID, ok := claims["user-id"].(string)
	if !ok || userUUID == "" {
		return nil, fmt.Errorf("%w: malformed claims", apperr.ErrAuthenticationFailed)
	}

	u, err := a.users.GetByUUID(userUUID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown user", apperr.ErrAuthenticationFailed)
	}
	return u, nil
}
