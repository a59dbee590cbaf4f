package service

import (
	"context"
	"errors"
	"strings"

	"github.com/forgo/fete/api/internal/database"
	"github.com/forgo/fete/api/internal/model"
)

// NotificationRepository defines the identity storage push tokens need
type NotificationRepository interface {
	GetByID(ctx context.Context, id string) (*model.Identity, error)
	ReplaceFCMTokens(ctx context.Context, userID string, tokens []string, expectedVersion int) error
}

// NotificationService registers push-notification tokens against identities.
// Delivery is out of scope; only the token set is maintained.
type NotificationService struct {
	repo NotificationRepository
}

// NewNotificationService creates a new notification service
func NewNotificationService(repo NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// AddToken registers a token for the caller. Registering a known token is a no-op.
func (s *NotificationService) AddToken(ctx context.Context, caller *model.Identity, token string) error {
	token, err := validateFCMToken(token)
	if err != nil {
		return err
	}
	return s.mutateTokens(ctx, caller, func(user *model.Identity) []string {
		if user.HasFCMToken(token) {
			return nil
		}
		tokens := make([]string, len(user.FCMTokens), len(user.FCMTokens)+1)
		copy(tokens, user.FCMTokens)
		return append(tokens, token)
	})
}

// RemoveToken unregisters a token for the caller. Unknown tokens are ignored.
func (s *NotificationService) RemoveToken(ctx context.Context, caller *model.Identity, token string) error {
	token, err := validateFCMToken(token)
	if err != nil {
		return err
	}
	return s.mutateTokens(ctx, caller, func(user *model.Identity) []string {
		if !user.HasFCMToken(token) {
			return nil
		}
		tokens := make([]string, 0, len(user.FCMTokens))
		for _, t := range user.FCMTokens {
			if t != token {
				tokens = append(tokens, t)
			}
		}
		return tokens
	})
}

// mutateTokens is a version-checked read-modify-write of the token set.
// fn returns the new set, or nil when nothing changes.
func (s *NotificationService) mutateTokens(ctx context.Context, caller *model.Identity, fn func(*model.Identity) []string) error {
	if caller == nil {
		return ErrNotAuthenticated
	}
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		user, err := s.repo.GetByID(ctx, caller.ID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		tokens := fn(user)
		if tokens == nil {
			return nil
		}

		err = s.repo.ReplaceFCMTokens(ctx, user.ID, tokens, user.Version)
		if errors.Is(err, database.ErrVersionMismatch) {
			continue
		}
		return err
	}
	return ErrUserModifiedTooOften
}

func validateFCMToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrTokenRequired
	}
	if len(token) > model.MaxFCMTokenLen {
		return "", ErrTokenTooLong
	}
	return token, nil
}
