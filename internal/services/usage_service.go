package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"interior-design-backend/internal/cache"
	"interior-design-backend/internal/models"
	"interior-design-backend/internal/supabase"
)

// UnlimitedRemaining is reported as remaining generations for paid plans.
const UnlimitedRemaining = -1

type SubscriptionStore interface {
	GetSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	CreateFreeSubscription(ctx context.Context, userID string, maxUsage int) (*models.Subscription, error)
	IncrementUsage(ctx context.Context, userID string) (*models.Subscription, bool, error)
}

// UsageService is the only place usage counts change. Clients read the
// status and report each completed generation through UpdateUsage.
type UsageService struct {
	store    SubscriptionStore
	cache    *cache.Cache[models.SubscriptionStatusResponse]
	maxUsage int
	logger   logrus.FieldLogger
}

func NewUsageService(store SubscriptionStore, statusCache *cache.Cache[models.SubscriptionStatusResponse], freePlanMaxUsage int, log logrus.FieldLogger) *UsageService {
	return &UsageService{
		store:    store,
		cache:    statusCache,
		maxUsage: freePlanMaxUsage,
		logger:   log,
	}
}

func (s *UsageService) GetStatus(ctx context.Context, userID string) (*models.SubscriptionStatusResponse, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	if cached, err := s.cache.Get(ctx, userID); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WithError(err).Warn("subscription cache read failed")
	}

	sub, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := statusOf(sub)
	if err := s.cache.Set(ctx, userID, status); err != nil {
		s.logger.WithError(err).Warn("subscription cache write failed")
	}
	return status, nil
}

// UpdateUsage records one generation. Active paid plans are not metered; free
// plans are incremented atomically and rejected with ErrLimitReached at the cap.
func (s *UsageService) UpdateUsage(ctx context.Context, userID string) (*models.UpdateUsageResponse, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	sub, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{"user_id": userID, "plan": sub.Plan})
	if sub.IsPaidActive() {
		log.Debug("paid plan, usage not metered")
		return &models.UpdateUsageResponse{
			Success:    true,
			UsageCount: sub.UsageCount,
			MaxUsage:   sub.MaxUsage,
		}, nil
	}

	updated, ok, err := s.store.IncrementUsage(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Info("usage limit reached")
		return nil, ErrLimitReached
	}

	if err := s.cache.Delete(ctx, userID); err != nil {
		log.WithError(err).Warn("subscription cache invalidation failed")
	}
	log.WithField("usage_count", updated.UsageCount).Info("usage recorded")

	return &models.UpdateUsageResponse{
		Success:      true,
		UsageCount:   updated.UsageCount,
		MaxUsage:     updated.MaxUsage,
		LimitReached: updated.UsageCount >= updated.MaxUsage,
	}, nil
}

// CanGenerate returns ErrLimitReached when the user has no generations left.
// It never changes the counter.
func (s *UsageService) CanGenerate(ctx context.Context, userID string) error {
	status, err := s.GetStatus(ctx, userID)
	if err != nil {
		return err
	}
	if !status.CanGenerate {
		return ErrLimitReached
	}
	return nil
}

// load returns the user's subscription row, creating a free one on first use.
func (s *UsageService) load(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, userID)
	if errors.Is(err, supabase.ErrNotFound) {
		return s.store.CreateFreeSubscription(ctx, userID, s.maxUsage)
	}
	return sub, err
}

func statusOf(sub *models.Subscription) *models.SubscriptionStatusResponse {
	status := &models.SubscriptionStatusResponse{
		IsActive:   sub.IsPaidActive(),
		Plan:       sub.Plan,
		Status:     sub.Status,
		UsageCount: sub.UsageCount,
		MaxUsage:   sub.MaxUsage,
	}
	if sub.CurrentPeriodEnd.Valid {
		end := sub.CurrentPeriodEnd.Time
		status.CurrentPeriodEnd = &end
	}

	if status.IsActive {
		status.Remaining = UnlimitedRemaining
		status.CanGenerate = true
		return status
	}

	status.Remaining = max(sub.MaxUsage-sub.UsageCount, 0)
	status.CanGenerate = status.Remaining > 0
	return status
}

func validateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: userId is required", ErrValidation)
	}
	if _, err := uuid.Parse(userID); err != nil {
		return fmt.Errorf("%w: userId must be a UUID", ErrValidation)
	}
	return nil
}
