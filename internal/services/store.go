// Package services – store helpers
//
// Shared plumbing for talking to the persistence layer: per-call timeouts,
// classification of driver errors, and the logging that accompanies replacing
// a raw store error with ErrStoreUnavailable.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/Georgechisom/alx-polling/internal/repo"
)

// storeCtx derives a context bounded by the per-call store timeout. A zero or
// negative timeout disables the bound.
func storeCtx(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// storeErr logs an unexpected store failure and returns ErrStoreUnavailable
// in its place. Sentinel errors the caller is expected to branch on
// (not-found, duplicate key) pass through untouched.
func storeErr(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) || isDuplicate(err) {
		return err
	}
	log.Ctx(ctx).Error().Err(err).Str("op", op).Msg("store operation failed")
	return ErrStoreUnavailable
}

// isNotFound treats repo-level not-found sentinels as "not found" in a
// driver-agnostic way. It also checks gorm.ErrRecordNotFound for safety.
func isNotFound(err error) bool {
	if errors.Is(err, repo.ErrNotFound) {
		return true
	}
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
