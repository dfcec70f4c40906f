// Package validate contains the pure input validators used by the service
// layer. Every function here is total and side-effect free: the same input
// always yields the same result, nothing is trimmed or rewritten in place,
// and no I/O happens. Poll validation reports every violated rule at once so
// the caller can surface a complete list instead of the first failure.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Limits applied by the validators. Lengths are measured in runes so that
// multi-byte input is not penalized.
const (
	MaxQuestionLen = 500
	MaxOptionLen   = 200
	MinOptions     = 2
	MaxOptions     = 10
	MaxEmailLen    = 254
	MinPasswordLen = 8
	MaxPasswordLen = 128
	MaxNameLen     = 100
)

var (
	// emailRE is a deliberately simple local@domain.tld shape check, not an
	// RFC 5322 parser. Deliverability is the mail system's problem.
	emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// nameRE restricts display names to letters, spaces, hyphens, and
	// apostrophes.
	nameRE = regexp.MustCompile(`^[\p{L} '-]+$`)
)

// PollInput validates a poll question and its option labels, returning one
// message per violated rule. An empty slice means the input is acceptable.
//
// Rules:
//   - question is required and must be non-empty after trimming
//   - question must not exceed MaxQuestionLen runes (post-trim)
//   - options must contain between MinOptions and MaxOptions entries
//   - at least MinOptions entries must be non-empty after trimming
//   - each non-empty option must not exceed MaxOptionLen runes
func PollInput(question string, options []string) []string {
	var msgs []string

	q := strings.TrimSpace(question)
	if q == "" {
		msgs = append(msgs, "question is required")
	} else if utf8.RuneCountInString(q) > MaxQuestionLen {
		msgs = append(msgs, fmt.Sprintf("question must be at most %d characters", MaxQuestionLen))
	}

	if len(options) < MinOptions || len(options) > MaxOptions {
		msgs = append(msgs, fmt.Sprintf("polls need between %d and %d options", MinOptions, MaxOptions))
	}

	nonEmpty := 0
	for i, opt := range options {
		t := strings.TrimSpace(opt)
		if t == "" {
			continue
		}
		nonEmpty++
		if utf8.RuneCountInString(t) > MaxOptionLen {
			msgs = append(msgs, fmt.Sprintf("option %d must be at most %d characters", i+1, MaxOptionLen))
		}
	}
	if len(options) >= MinOptions && len(options) <= MaxOptions && nonEmpty < MinOptions {
		msgs = append(msgs, fmt.Sprintf("polls need at least %d non-empty options", MinOptions))
	}

	return msgs
}

// Email checks that an address is present, within length limits, and shaped
// like local@domain.tld.
func Email(email string) error {
	e := strings.TrimSpace(email)
	if e == "" {
		return errors.New("email is required")
	}
	if utf8.RuneCountInString(e) > MaxEmailLen {
		return fmt.Errorf("email must be at most %d characters", MaxEmailLen)
	}
	if !emailRE.MatchString(e) {
		return errors.New("email address is not valid")
	}
	return nil
}

// Password checks that a password is present, within the configured length
// band, and contains at least one letter and one digit.
func Password(password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLen || n > MaxPasswordLen {
		return fmt.Errorf("password must be between %d and %d characters", MinPasswordLen, MaxPasswordLen)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return errors.New("password must contain at least one letter and one digit")
	}
	return nil
}

// Name checks that a display name is present, within length limits, and uses
// only letters, spaces, hyphens, and apostrophes.
func Name(name string) error {
	n := strings.TrimSpace(name)
	if n == "" {
		return errors.New("name is required")
	}
	if utf8.RuneCountInString(n) > MaxNameLen {
		return fmt.Errorf("name must be at most %d characters", MaxNameLen)
	}
	if !nameRE.MatchString(n) {
		return errors.New("name may only contain letters, spaces, hyphens, and apostrophes")
	}
	return nil
}
