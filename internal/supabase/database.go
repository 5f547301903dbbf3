package supabase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"interior-design-backend/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

type DatabaseClient struct {
	db *sqlx.DB
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sqlx.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// NewDatabaseClientFromDB wraps an existing handle.
func NewDatabaseClientFromDB(db *sqlx.DB) *DatabaseClient {
	return &DatabaseClient{db: db}
}

const subscriptionColumns = `id, user_id, plan, status, usage_count, max_usage,
	stripe_customer_id, stripe_subscription_id, current_period_end, created_at, updated_at`

func (d *DatabaseClient) GetSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := d.db.GetContext(ctx, &sub, `
		SELECT `+subscriptionColumns+`
		FROM user_subscriptions
		WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

// CreateFreeSubscription inserts a free plan row, or returns the existing row
// if another request created it first.
func (d *DatabaseClient) CreateFreeSubscription(ctx context.Context, userID string, maxUsage int) (*models.Subscription, error) {
	var sub models.Subscription
	err := d.db.GetContext(ctx, &sub, `
		INSERT INTO user_subscriptions (id, user_id, plan, status, usage_count, max_usage)
		VALUES ($1, $2, 'free', 'active', 0, $3)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING `+subscriptionColumns,
		uuid.NewString(), userID, maxUsage)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	return &sub, nil
}

// IncrementUsage adds one to usage_count unless the cap is reached. The second
// return value is false when the row is already at max_usage.
func (d *DatabaseClient) IncrementUsage(ctx context.Context, userID string) (*models.Subscription, bool, error) {
	var sub models.Subscription
	err := d.db.GetContext(ctx, &sub, `
		UPDATE user_subscriptions
		SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE user_id = $1 AND usage_count < max_usage
		RETURNING `+subscriptionColumns,
		userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to increment usage: %w", err)
	}

	return &sub, true, nil
}

// ActivateSubscription records a completed checkout for the user. A row created
// here starts with freeMaxUsage so a later downgrade has a free allowance.
func (d *DatabaseClient) ActivateSubscription(ctx context.Context, userID, plan, customerID, subscriptionID string, periodEnd *time.Time, freeMaxUsage int) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO user_subscriptions (id, user_id, plan, status, usage_count, max_usage,
			stripe_customer_id, stripe_subscription_id, current_period_end)
		VALUES ($1, $2, $3, 'active', 0, $7, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = 'active',
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			current_period_end = EXCLUDED.current_period_end,
			updated_at = NOW()
	`, uuid.NewString(), userID, plan, nullString(customerID), nullString(subscriptionID), nullTime(periodEnd), freeMaxUsage)
	if err != nil {
		return fmt.Errorf("failed to activate subscription: %w", err)
	}
	return nil
}

// UpdateSubscriptionStatus syncs a Stripe subscription and returns its user id.
func (d *DatabaseClient) UpdateSubscriptionStatus(ctx context.Context, subscriptionID, status string, periodEnd *time.Time) (string, error) {
	var userID string
	err := d.db.GetContext(ctx, &userID, `
		UPDATE user_subscriptions
		SET status = $2, current_period_end = COALESCE($3, current_period_end), updated_at = NOW()
		WHERE stripe_subscription_id = $1
		RETURNING user_id
	`, subscriptionID, status, nullTime(periodEnd))
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to update subscription status: %w", err)
	}
	return userID, nil
}

// DowngradeSubscription moves a cancelled Stripe subscription back to the free
// plan. The usage counter is kept and max_usage is raised to at least
// freeMaxUsage.
func (d *DatabaseClient) DowngradeSubscription(ctx context.Context, subscriptionID string, freeMaxUsage int) (string, error) {
	var userID string
	err := d.db.GetContext(ctx, &userID, `
		UPDATE user_subscriptions
		SET plan = 'free', status = 'active', stripe_subscription_id = NULL,
			current_period_end = NULL, max_usage = GREATEST(max_usage, $2), updated_at = NOW()
		WHERE stripe_subscription_id = $1
		RETURNING user_id
	`, subscriptionID, freeMaxUsage)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to downgrade subscription: %w", err)
	}
	return userID, nil
}

func (d *DatabaseClient) MarkPastDue(ctx context.Context, customerID string) (string, error) {
	var userID string
	err := d.db.GetContext(ctx, &userID, `
		UPDATE user_subscriptions
		SET status = 'past_due', updated_at = NOW()
		WHERE stripe_customer_id = $1
		RETURNING user_id
	`, customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to mark subscription past due: %w", err)
	}
	return userID, nil
}

// SaveProject writes the project, its images and the links between them in
// one transaction. The original image comes first.
func (d *DatabaseClient) SaveProject(ctx context.Context, userID, name string, designOptions json.RawMessage, originalURL string, processedURLs []string) (*models.Project, []models.Image, error) {
	if len(designOptions) == 0 {
		designOptions = json.RawMessage("{}")
	}

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var project models.Project
	err = tx.GetContext(ctx, &project, `
		INSERT INTO projects (id, user_id, name, design_options)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, name, design_options, created_at, updated_at
	`, uuid.NewString(), userID, name, []byte(designOptions))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create project: %w", err)
	}

	urls := append([]string{originalURL}, processedURLs...)
	images := make([]models.Image, 0, len(urls))
	for i, url := range urls {
		kind := models.ImageKindProcessed
		if i == 0 {
			kind = models.ImageKindOriginal
		}

		var img models.Image
		err = tx.GetContext(ctx, &img, `
			INSERT INTO images (id, user_id, url, kind)
			VALUES ($1, $2, $3, $4)
			RETURNING id, user_id, url, kind, created_at
		`, uuid.NewString(), userID, url, kind)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create image: %w", err)
		}

		if _, err = tx.ExecContext(ctx, `
			INSERT INTO project_images (project_id, image_id, position)
			VALUES ($1, $2, $3)
		`, project.ID, img.ID, i); err != nil {
			return nil, nil, fmt.Errorf("failed to link image: %w", err)
		}

		images = append(images, img)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit project: %w", err)
	}

	return &project, images, nil
}

func (d *DatabaseClient) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	projects := []models.Project{}
	err := d.db.SelectContext(ctx, &projects, `
		SELECT id, user_id, name, design_options, created_at, updated_at
		FROM projects
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

func (d *DatabaseClient) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
