// Package services – VoteService
//
// This file implements the VoteService, which governs how votes are recorded
// against polls. It enforces business rules (poll existence, option range,
// one vote per authenticated user) and persists votes atomically in the
// database. Service-level errors (e.g. ErrPollNotFound, ErrOptionOutOfRange,
// ErrDuplicateVote) are returned for predictable cases so handlers can map
// them to HTTP results consistently.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Georgechisom/alx-polling/internal/notify"
	"github.com/Georgechisom/alx-polling/internal/repo"
)

// VoteService implements the use-cases around voting and tallying.
// It validates the operation (poll existence, option range, uniqueness) and
// persists the vote using the provided GORM handle. The service is
// context-aware and opens its own transaction per submission.
type VoteService struct {
	// DB is the database handle used for all vote operations.
	DB *gorm.DB
	// Events receives a revalidation event after each recorded vote.
	// May be nil, in which case no events are published.
	Events *notify.Broker

	// StoreTimeout bounds each store call; zero disables the bound.
	StoreTimeout time.Duration
}

// Submit records a vote for optionIndex on pollID. userID is empty for
// anonymous voters.
//
// Semantics and validation:
//   - pollID must be non-empty; otherwise a *ValidationError.
//   - pollID must name an existing poll; otherwise ErrPollNotFound. A
//     malformed id is treated exactly like a missing one.
//   - optionIndex must address one of the poll's options; otherwise
//     ErrOptionOutOfRange.
//   - An authenticated user may vote at most once per poll; a second attempt
//     yields ErrDuplicateVote. Anonymous votes are never deduplicated.
//
// Concurrency & atomicity:
//   - The existence check, duplicate check, and insert run inside one
//     transaction. Two racing submissions from the same user both pass the
//     pre-check at worst; the partial unique index on (poll_id, user_id)
//     then rejects the loser, which is mapped to ErrDuplicateVote as well.
func (s *VoteService) Submit(ctx context.Context, userID, pollID string, optionIndex int) error {
	if pollID == "" {
		return &ValidationError{Messages: []string{"poll id is required"}}
	}

	cctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	var ownerID string
	err := s.DB.WithContext(cctx).Transaction(func(tx *gorm.DB) error {
		// 1) Load the poll and verify it exists.
		p, err := repo.GetPoll(cctx, tx, pollID)
		if err != nil {
			if isNotFound(err) {
				return ErrPollNotFound
			}
			return err
		}
		ownerID = p.UserID

		// 2) The index must address a real option.
		if optionIndex < 0 || optionIndex >= len(p.Options) {
			return ErrOptionOutOfRange
		}

		// 3) Friendly duplicate check for authenticated voters.
		var voter *string
		if userID != "" {
			voted, err := repo.HasVoted(cctx, tx, pollID, userID)
			if err != nil {
				return err
			}
			if voted {
				return ErrDuplicateVote
			}
			voter = &userID
		}

		// 4) Insert; the unique index backstops the pre-check under races.
		if _, err := repo.CreateVote(cctx, tx, pollID, optionIndex, voter); err != nil {
			if isDuplicate(err) {
				return ErrDuplicateVote
			}
			return err
		}
		return nil
	})
	if err != nil {
		switch err {
		case ErrPollNotFound, ErrOptionOutOfRange, ErrDuplicateVote:
			return err
		}
		return storeErr(ctx, "vote.submit", err)
	}

	if s.Events != nil {
		s.Events.Publish(notify.Event{Kind: notify.VoteCast, PollID: pollID, OwnerID: ownerID})
	}
	return nil
}

// Tally holds the per-option vote counts for one poll. Counts is indexed by
// option position and always has exactly one entry per option; Total is the
// sum of Counts.
type Tally struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Counts   []int64  `json:"counts"`
	Total    int64    `json:"total"`
}

// Results computes the tally for pollID. Votes whose recorded index no
// longer addresses an option (the poll shrank after they were cast) are
// ignored, so Total always equals the sum of the per-option counts.
func (s *VoteService) Results(ctx context.Context, pollID string) (*Tally, error) {
	cctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	p, err := repo.GetPoll(cctx, s.DB, pollID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPollNotFound
		}
		return nil, storeErr(ctx, "tally.get_poll", err)
	}

	rows, err := repo.CountVotesByOption(cctx, s.DB, pollID)
	if err != nil {
		return nil, storeErr(ctx, "tally.count", err)
	}

	t := &Tally{
		Question: p.Question,
		Options:  p.Options,
		Counts:   make([]int64, len(p.Options)),
	}
	for _, row := range rows {
		if row.OptionIndex < 0 || row.OptionIndex >= len(t.Counts) {
			continue
		}
		t.Counts[row.OptionIndex] = row.Count
		t.Total += row.Count
	}
	return t, nil
}
