// Package services – PollService
//
// This file implements the PollService, which manages the lifecycle of polls.
// It sanitizes and validates questions and options, derives share slugs,
// enforces ownership rules via owner-scoped repository calls, and publishes
// revalidation events after successful mutations.
//
// Service-level errors (e.g., ErrPollNotFound, ErrValidation) are returned
// for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Georgechisom/alx-polling/internal/domain"
	"github.com/Georgechisom/alx-polling/internal/notify"
	"github.com/Georgechisom/alx-polling/internal/sanitize"
	"github.com/Georgechisom/alx-polling/internal/token"
	"github.com/Georgechisom/alx-polling/internal/validate"
)

// PollRepo defines the repository contract required by PollService.
// Implementations are responsible for persistence of poll aggregates.
type PollRepo interface {
	// CreatePoll inserts a new poll row with the supplied id and share slug.
	CreatePoll(ctx context.Context, db *gorm.DB, id, userID, question string, options []string, shareSlug string) (*domain.Poll, error)

	// GetPoll fetches a poll by ID with no owner scoping (public read).
	GetPoll(ctx context.Context, db *gorm.DB, id string) (*domain.Poll, error)

	// GetPollBySlug fetches a poll by its share slug (public read).
	GetPollBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Poll, error)

	// GetPollOwned fetches a poll by ID ensuring it belongs to the user.
	GetPollOwned(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Poll, error)

	// CountPolls returns the total number of the user's polls for pagination.
	CountPolls(ctx context.Context, db *gorm.DB, userID string) (int64, error)

	// ListPollsPage returns a page of polls belonging to the user.
	ListPollsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Poll, error)

	// UpdatePoll replaces question and options (only if the poll belongs to the user).
	UpdatePoll(ctx context.Context, db *gorm.DB, id, userID, question string, options []string) error

	// DeletePoll removes a poll (only if it belongs to the user).
	DeletePoll(ctx context.Context, db *gorm.DB, id, userID string) error

	// PollsStats returns row count and latest update time for ETag generation.
	PollsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error)
}

// PollService provides poll-level operations such as creating, listing,
// updating, and deleting polls. It enforces input rules and ownership
// constraints; reads by id or slug are public.
type PollService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the poll repository used by this service.
	Repo PollRepo
	// Events receives a revalidation event after each successful mutation.
	// May be nil, in which case no events are published.
	Events *notify.Broker

	// SlugSecret salts share-slug derivation.
	SlugSecret string
	// StoreTimeout bounds each store call; zero disables the bound.
	StoreTimeout time.Duration
}

// Create validates and stores a new poll owned by userID.
//
// Question and options are cleaned (angle brackets stripped, whitespace
// trimmed) before validation, and options that end up empty are dropped.
// Every violated rule is reported at once via *ValidationError. The share
// slug is derived from the poll id so re-creating a poll never collides.
func (s *PollService) Create(ctx context.Context, userID, question string, options []string) (*domain.Poll, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	question = sanitize.Clean(question)
	cleaned := compactOptions(sanitize.CleanAll(options))

	if err := newValidationError(validate.PollInput(question, cleaned)); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	slug := token.ShareSlug(id, s.SlugSecret)

	cctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()
	p, err := s.Repo.CreatePoll(cctx, s.DB, id, userID, question, cleaned, slug)
	if err != nil {
		return nil, storeErr(ctx, "poll.create", err)
	}

	s.publish(notify.Event{Kind: notify.PollCreated, PollID: p.ID, OwnerID: userID})
	return p, nil
}

// ListPage returns a page of the user's polls (paginated, newest first).
// It applies defaults for invalid page/pageSize and returns the total count.
func (s *PollService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Poll, int64, error) {
	if userID == "" {
		return nil, 0, ErrUnauthenticated
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	cctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	total, err := s.Repo.CountPolls(cctx, s.DB, userID)
	if err != nil {
		return nil, 0, storeErr(ctx, "poll.count", err)
	}
	if total == 0 {
		return []domain.Poll{}, 0, nil
	}

	items, err := s.Repo.ListPollsPage(cctx, s.DB, userID, offset, pageSize)
	if err != nil {
		return nil, 0, storeErr(ctx, "poll.list", err)
	}
	return items, total, nil
}

// GetPublic fetches a poll by id for display. Reads are public: no caller
// identity is consulted. A missing or malformed id yields ErrPollNotFound.
func (s *PollService) GetPublic(ctx context.Context, id string) (*domain.Poll, error) {
	cctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	p, err := s.Repo.GetPoll(cctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPollNotFound
		}
		return nil, storeErr(ctx, "poll.get", err)
	}
	return p, nil
}

// GetShared resolves a share slug to its poll. Unknown slugs yield
// ErrPollNotFound.
func (s *PollService) GetShared(ctx context.Context, slug string) (*domain.Poll, error) {
	cctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	p, err := s.Repo.GetPollBySlug(cctx, s.DB, slug)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPollNotFound
		}
		return nil, storeErr(ctx, "poll.get_slug", err)
	}
	return p, nil
}

// GetForEdit fetches a poll for its owner. A poll that is missing or belongs
// to someone else yields ErrPollNotFound either way, so the caller cannot
// probe which polls exist.
func (s *PollService) GetForEdit(ctx context.Context, userID, id string) (*domain.Poll, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	cctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	p, err := s.Repo.GetPollOwned(cctx, s.DB, id, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPollNotFound
		}
		return nil, storeErr(ctx, "poll.get_owned", err)
	}
	return p, nil
}

// Update replaces the question and options of a poll owned by userID. Input
// is cleaned and validated exactly as in Create. The update is scoped to the
// owner in the query itself; zero affected rows surface as ErrPollNotFound.
func (s *PollService) Update(ctx context.Context, userID, id, question string, options []string) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	question = sanitize.Clean(question)
	cleaned := compactOptions(sanitize.CleanAll(options))

	if err := newValidationError(validate.PollInput(question, cleaned)); err != nil {
		return err
	}

	cctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()
	if err := s.Repo.UpdatePoll(cctx, s.DB, id, userID, question, cleaned); err != nil {
		if isNotFound(err) {
			return ErrPollNotFound
		}
		return storeErr(ctx, "poll.update", err)
	}

	s.publish(notify.Event{Kind: notify.PollUpdated, PollID: id, OwnerID: userID})
	return nil
}

// Delete removes a poll owned by userID. Missing and foreign polls both
// yield ErrPollNotFound.
func (s *PollService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	cctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()
	if err := s.Repo.DeletePoll(cctx, s.DB, id, userID); err != nil {
		if isNotFound(err) {
			return ErrPollNotFound
		}
		return storeErr(ctx, "poll.delete", err)
	}

	s.publish(notify.Event{Kind: notify.PollDeleted, PollID: id, OwnerID: userID})
	return nil
}

// Stats returns the row count and latest update time across the user's
// polls, for ETag generation on the listing endpoint.
func (s *PollService) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	if userID == "" {
		return 0, nil, ErrUnauthenticated
	}

	cctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()
	count, maxTS, err := s.Repo.PollsStats(cctx, s.DB, userID)
	if err != nil {
		return 0, nil, storeErr(ctx, "poll.stats", err)
	}
	return count, maxTS, nil
}

// publish emits ev when a broker is attached.
func (s *PollService) publish(ev notify.Event) {
	if s.Events != nil {
		s.Events.Publish(ev)
	}
}

// compactOptions drops options that are empty after cleaning, preserving the
// order of the survivors.
func compactOptions(options []string) []string {
	out := make([]string, 0, len(options))
	for _, o := range options {
		if strings.TrimSpace(o) != "" {
			out = append(out, o)
		}
	}
	return out
}
