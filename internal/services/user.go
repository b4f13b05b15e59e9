package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventplatform/internal/domain"
)

type userService struct {
	userRepo       domain.UserRepository
	eventRepo      domain.EventRepository
	contextTimeout time.Duration
}

// NewUserService creates a UserService with the given repositories.
func NewUserService(userRepo domain.UserRepository, eventRepo domain.EventRepository, timeout time.Duration) domain.UserService {
	return &userService{
		userRepo:       userRepo,
		eventRepo:      eventRepo,
		contextTimeout: timeout,
	}
}

// GetProfile returns the user together with the full event records behind the
// created-events and joined-events id mirrors.
func (s *userService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	created, err := s.eventRepo.ListByIDs(ctx, user.CreatedEvents)
	if err != nil {
		return nil, fmt.Errorf("list created events: %w", err)
	}
	joined, err := s.eventRepo.ListByIDs(ctx, user.JoinedEvents)
	if err != nil {
		return nil, fmt.Errorf("list joined events: %w", err)
	}
	if created == nil {
		created = []*domain.Event{}
	}
	if joined == nil {
		joined = []*domain.Event{}
	}
	return &domain.Profile{
		User:          user,
		CreatedEvents: created,
		JoinedEvents:  joined,
	}, nil
}
