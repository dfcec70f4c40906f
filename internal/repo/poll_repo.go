// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Poll model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Ownership scoping is enforced here as a query predicate, never as a
// post-hoc check: the owner-scoped functions filter by id AND user_id in a
// single query, so a poll that exists but belongs to someone else is
// indistinguishable from a poll that does not exist. Callers therefore never
// learn whether a foreign poll id is live.
//
// Error semantics:
//   - When a poll is not found (or not owned, for scoped calls), functions
//     return gorm.ErrRecordNotFound (also exported here as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Georgechisom/alx-polling/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreatePoll inserts a new Poll row owned by userID. The caller supplies the
// id (a UUID) because the share slug is derived from it before insert; an
// empty id gets a fresh UUID. CreatedAt is set to UTC.
//
// On success, it returns the persisted Poll. On failure, it returns a DB error.
func CreatePoll(ctx context.Context, db *gorm.DB, id, userID, question string, options []string, shareSlug string) (*domain.Poll, error) {
	if id == "" {
		id = uuid.NewString()
	}
	p := &domain.Poll{
		ID:        id,
		Question:  question,
		Options:   domain.OptionList(options),
		ShareSlug: shareSlug,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetPoll fetches a single poll by its ID with no owner scoping; poll reads
// are public. Returns ErrNotFound if the record does not exist.
func GetPoll(ctx context.Context, db *gorm.DB, id string) (*domain.Poll, error) {
	var p domain.Poll
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPollBySlug fetches a single poll by its share slug (public read).
// Returns ErrNotFound if no poll carries the slug.
func GetPollBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Poll, error) {
	var p domain.Poll
	err := db.WithContext(ctx).
		Where("share_slug = ?", slug).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPollOwned fetches a single poll by ID scoped to its owner. If the poll
// is missing or belongs to a different user, it returns ErrNotFound; the two
// cases are deliberately indistinguishable.
func GetPollOwned(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Poll, error) {
	var p domain.Poll
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPolls returns all polls belonging to userID, ordered by creation time
// descending (most recent first). It returns an empty slice if the user has
// no polls. On DB error, it returns the error.
func ListPolls(ctx context.Context, db *gorm.DB, userID string) ([]domain.Poll, error) {
	var out []domain.Poll
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountPolls returns the total number of polls owned by userID.
func CountPolls(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Poll{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListPollsPage returns a paginated slice of polls for userID, ordered by
// creation time descending. Use CountPolls to obtain the total for
// pagination metadata.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListPollsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Poll, error) {
	var out []domain.Poll
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdatePoll replaces the question and options of a poll identified by id
// and owned by userID. The owner column is never touched. If no rows are
// affected (poll missing or not owned by userID), it returns ErrNotFound;
// the caller cannot tell which.
func UpdatePoll(ctx context.Context, db *gorm.DB, id, userID, question string, options []string) error {
	res := db.WithContext(ctx).
		Model(&domain.Poll{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"question": question,
			"options":  domain.OptionList(options),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeletePoll removes a poll identified by id and owned by userID. If no rows
// are affected, it returns ErrNotFound (missing and foreign polls merge).
func DeletePoll(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Poll{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PollsStats returns aggregate metadata for a user's polls: the total number
// of rows and the maximum UpdatedAt timestamp among those rows. Used for
// ETag generation on the listing endpoint.
//
// When the user has no polls, the returned count is 0 and maxUpdatedAt is nil.
func PollsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Poll{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
