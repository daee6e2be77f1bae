package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/storefront/internal/domain/models"
	security "github.com/linemk/storefront/internal/jwt-new"
	"github.com/linemk/storefront/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
	tokenTTL time.Duration
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		log:      log,
		userRepo: userRepo,
		tokenTTL: tokenTTL,
	}
}

type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (string, int64, error)
}

// Login authenticates the user, creating the account on first sight (the
// password is hashed with bcrypt, which salts automatically). On success it
// returns a signed JWT plus the user id so the caller can reconcile the
// session replica against the repository.
func (a *AuthService) Login(ctx context.Context, email, password string) (string, int64, error) {
	const op = "auth.Login"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Info("user not found, creating new user")
			passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				logger.Error("failed to hash password", slog.Any("error", err))
				return "", 0, fmt.Errorf("%s: failed to hash password: %w", op, err)
			}
			newUser := &models.User{
				Email:    email,
				PassHash: passHash,
			}
			user, err = a.userRepo.CreateUser(ctx, newUser)
			if err != nil {
				logger.Error("failed to create user", slog.Any("error", err))
				return "", 0, fmt.Errorf("%s: failed to create user: %w", op, err)
			}
		} else {
			logger.Error("failed to get user", slog.Any("error", err))
			return "", 0, fmt.Errorf("%s: failed to get user: %w", op, err)
		}
	} else {
		if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
			logger.Warn("invalid password")
			return "", 0, fmt.Errorf("%s: invalid credentials: %w", op, err)
		}
	}

	// The secret for signing comes from JWT_SECRET inside security.NewToken.
	token, err := security.NewToken(ctx, user, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", 0, fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return token, user.ID, nil
}
