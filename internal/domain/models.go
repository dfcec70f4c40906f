// Package domain defines the persistence models for users, sessions, polls,
// and votes. These types are mapped with GORM and form the core data layer
// of the polling application.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// User represents a registered account. The password is stored only as a
// bcrypt hash and is never serialized to JSON.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: unique, normalized to lowercase before storage.
//   - Name: display name shown next to polls the user owns.
//   - PasswordHash: bcrypt hash of the account password.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type User struct {
	ID           string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Email        string         `json:"email"      gorm:"type:varchar(254);not null;uniqueIndex:ux_users_email"`
	Name         string         `json:"name"       gorm:"type:varchar(100);not null"`
	PasswordHash string         `json:"-"          gorm:"type:varchar(72);not null"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Session represents a refresh-token session issued at login. Only the
// SHA-256 hash of the opaque token is stored; the cleartext travels in an
// HTTP-only cookie and is rotated on every refresh.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: owner of the session (indexed).
//   - TokenHash: hex SHA-256 of the refresh token; unique.
//   - ExpiresAt: absolute expiry; expired sessions are rejected.
//   - Revoked: set on logout or rotation so the old token dies immediately.
type Session struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:char(36);not null;index:idx_user_sessions"`
	TokenHash string         `json:"-"          gorm:"type:char(64);not null;uniqueIndex:ux_sessions_token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Revoked   bool           `json:"revoked"    gorm:"not null;default:false"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	// User is the owning account. Sessions are cascade-deleted with it.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "sessions" }

// OptionList is an ordered list of poll option labels persisted as a JSON
// text column. Storing the list inline keeps a poll a single row and makes
// the "2–10 options" invariant a property of one record rather than a join.
type OptionList []string

// Value serializes the option list to JSON for storage.
func (o OptionList) Value() (driver.Value, error) {
	b, err := json.Marshal([]string(o))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan deserializes the option list from its stored JSON form.
func (o *OptionList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*o = nil
		return nil
	case []byte:
		return json.Unmarshal(v, (*[]string)(o))
	case string:
		return json.Unmarshal([]byte(v), (*[]string)(o))
	default:
		return errors.New("domain: unsupported source type for OptionList")
	}
}

// Poll represents a question with an ordered list of selectable options,
// owned by exactly one user. The owner never changes after creation; updates
// may replace the question and options but never user_id.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Question: 1–500 characters after trimming.
//   - Options: 2–10 non-empty entries, each at most 200 characters.
//   - ShareSlug: short HMAC-derived slug used in share links; unique.
//   - UserID: identifier of the poll owner; indexed for listing.
type Poll struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Question  string         `json:"question"   gorm:"type:varchar(500);not null"`
	Options   OptionList     `json:"options"    gorm:"type:text;not null"`
	ShareSlug string         `json:"share_slug" gorm:"type:varchar(16);not null;uniqueIndex:ux_polls_slug"`
	UserID    string         `json:"user_id"    gorm:"type:char(36);not null;index:idx_user_polls"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	// User is the poll owner. Polls are cascade-deleted with the account.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Poll.
func (Poll) TableName() string { return "polls" }

// Vote represents a single selection of one option on one poll. UserID is
// nil for anonymous votes. Authenticated voters are limited to one vote per
// poll by a partial unique index on (poll_id, user_id); anonymous votes sit
// outside the constraint by construction (NULLs compare unequal).
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - PollID: the poll voted on (indexed, required).
//   - OptionIndex: 0-based index into the poll's options.
//   - UserID: voter identity, or nil for anonymous votes.
type Vote struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	PollID      string         `json:"poll_id"      gorm:"type:char(36);not null;index:idx_poll_votes"`
	OptionIndex int            `json:"option_index" gorm:"not null;check:option_index >= 0"`
	UserID      *string        `json:"user_id,omitempty" gorm:"type:char(36)"`
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`

	// Poll is the voted poll. Votes are cascade-deleted with it.
	Poll Poll `json:"-" gorm:"foreignKey:PollID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Vote.
func (Vote) TableName() string { return "votes" }
