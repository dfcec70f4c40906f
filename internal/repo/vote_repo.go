// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Vote model
// and the per-option aggregates used by the tally operation.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Georgechisom/alx-polling/internal/domain"
)

// CreateVote inserts a new Vote row for pollID at optionIndex. userID is nil
// for anonymous votes. The vote ID is a randomly generated UUID and
// CreatedAt is set to UTC.
//
// For authenticated votes, the partial unique index ux_votes_poll_user makes
// a second insert for the same (poll, voter) pair fail with a duplicate-key
// error; callers map that to their duplicate-vote sentinel.
func CreateVote(ctx context.Context, db *gorm.DB, pollID string, optionIndex int, userID *string) (*domain.Vote, error) {
	v := &domain.Vote{
		ID:          uuid.NewString(),
		PollID:      pollID,
		OptionIndex: optionIndex,
		UserID:      userID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

// HasVoted reports whether userID has already voted on pollID. Anonymous
// voters are never "already voted"; pass only authenticated ids here.
func HasVoted(ctx context.Context, db *gorm.DB, pollID, userID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("poll_id = ? AND user_id = ?", pollID, userID).
		Count(&n).Error
	return n > 0, err
}

// OptionCount is one row of a tally: votes recorded for a single option index.
type OptionCount struct {
	OptionIndex int
	Count       int64
}

// CountVotesByOption returns the number of votes per option index for
// pollID, ordered by option index ascending. Indices with no votes are
// absent; the caller fills zeroes and clamps stray indices.
func CountVotesByOption(ctx context.Context, db *gorm.DB, pollID string) ([]OptionCount, error) {
	var out []OptionCount
	err := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Select("option_index, COUNT(*) as count").
		Where("poll_id = ?", pollID).
		Group("option_index").
		Order("option_index asc").
		Scan(&out).Error
	return out, err
}

// CountVotes returns the total number of votes recorded for pollID.
func CountVotes(ctx context.Context, db *gorm.DB, pollID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("poll_id = ?", pollID).
		Count(&n).Error
	return n, err
}
