// Poll HTTP handlers.
//
// This file exposes REST endpoints for poll resources:
//   - POST   /polls             (create)
//   - GET    /polls             (owner listing, paginated, ETag support)
//   - GET    /polls/{id}        (public read)
//   - GET    /shared/{slug}     (public read via share link)
//   - GET    /polls/{id}/edit   (owner read for the edit form)
//   - PUT    /polls/{id}        (update question and options)
//   - DELETE /polls/{id}        (delete)
//
// Handlers are transport-thin: they validate input shape, call application
// services, and translate results into HTTP responses. All access decisions
// (ownership, anonymity) live in the service layer.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Georgechisom/alx-polling/internal/domain"
	"github.com/Georgechisom/alx-polling/internal/http/middleware"
	"github.com/Georgechisom/alx-polling/internal/services"
	"github.com/Georgechisom/alx-polling/internal/utils"
)

//
// Service contracts (context-aware)
//

// PollService defines poll lifecycle operations consumed by HTTP handlers.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation and timeouts.
type PollService interface {
	// Create validates and stores a new poll owned by userID.
	Create(ctx context.Context, userID, question string, options []string) (*domain.Poll, error)
	// ListPage returns a page of the user's polls and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Poll, int64, error)
	// GetPublic fetches a poll by id without owner scoping.
	GetPublic(ctx context.Context, id string) (*domain.Poll, error)
	// GetShared resolves a share slug to its poll.
	GetShared(ctx context.Context, slug string) (*domain.Poll, error)
	// GetForEdit fetches a poll for its owner.
	GetForEdit(ctx context.Context, userID, id string) (*domain.Poll, error)
	// Update replaces question and options of an owned poll.
	Update(ctx context.Context, userID, id, question string, options []string) error
	// Delete removes an owned poll.
	Delete(ctx context.Context, userID, id string) error
	// Stats returns row count and latest update time for ETag generation.
	Stats(ctx context.Context, userID string) (int64, *time.Time, error)
}

// VoteService defines voting and tallying operations consumed by handlers.
type VoteService interface {
	// Submit records a vote; userID is empty for anonymous voters.
	Submit(ctx context.Context, userID, pollID string, optionIndex int) error
	// Results computes the per-option tally for a poll.
	Results(ctx context.Context, pollID string) (*services.Tally, error)
}

// AccountService defines the identity operations consumed by handlers.
type AccountService interface {
	// Register creates a new account.
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	// Login authenticates and opens a refresh session.
	Login(ctx context.Context, email, password string) (*domain.User, *services.Credentials, error)
	// Logout revokes the session behind a refresh token.
	Logout(ctx context.Context, refreshToken string) error
	// CurrentUser resolves an access token to its user.
	CurrentUser(ctx context.Context, accessToken string) (*domain.User, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for polls, votes, and accounts. It
// depends on abstract service interfaces to keep transport concerns separate
// from business logic.
type Handlers struct {
	pollSvc  PollService
	voteSvc  VoteService
	accounts AccountService
	session  middleware.SessionOptions
}

// New constructs a Handlers instance bound to the given services. The
// session options must match the ones used by the Session middleware so
// login and rotation produce identical cookies.
func New(pollSvc PollService, voteSvc VoteService, accounts AccountService, session middleware.SessionOptions) *Handlers {
	return &Handlers{pollSvc: pollSvc, voteSvc: voteSvc, accounts: accounts, session: session}
}

//
// DTOs
//

// PollRequest is the JSON payload for creating or updating a poll.
type PollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListPollsResponse wraps a page of polls and pagination information.
type ListPollsResponse struct {
	Polls      []domain.Poll `json:"polls"`
	Pagination Pagination    `json:"pagination"`
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	return utils.ClampPage(page, pageSize, maxPageSize)
}

//
// Handlers
//

// CreatePoll creates a poll for the current user and returns the resource.
func (h *Handlers) CreatePoll(c *gin.Context) {
	var req PollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	p, err := h.pollSvc.Create(c.Request.Context(), middleware.UserID(c), req.Question, req.Options)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// ListPolls returns a page of the current user's polls. Supports weak ETag
// revalidation via If-None-Match and may return 304.
func (h *Handlers) ListPolls(c *gin.Context) {
	ctx := c.Request.Context()
	uid := middleware.UserID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort): skip the page fetch when nothing changed.
	if count, maxTS, err := h.pollSvc.Stats(ctx, uid); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"polls:%s:%d:%d"`, uid, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.pollSvc.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		failFromService(c, err)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListPollsResponse{
		Polls: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetPoll returns a single poll by id. Reads are public; a malformed id is
// reported exactly like a missing one.
func (h *Handlers) GetPoll(c *gin.Context) {
	p, err := h.pollSvc.GetPublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// GetSharedPoll resolves a share slug to its poll.
func (h *Handlers) GetSharedPoll(c *gin.Context) {
	p, err := h.pollSvc.GetShared(c.Request.Context(), c.Param("slug"))
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// GetPollForEdit returns a poll for its owner's edit form. Missing and
// foreign polls are indistinguishable in the response.
func (h *Handlers) GetPollForEdit(c *gin.Context) {
	p, err := h.pollSvc.GetForEdit(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// UpdatePoll replaces the question and options of an owned poll.
func (h *Handlers) UpdatePoll(c *gin.Context) {
	var req PollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	if err := h.pollSvc.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Question, req.Options); err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}

// DeletePoll removes an owned poll.
func (h *Handlers) DeletePoll(c *gin.Context) {
	if err := h.pollSvc.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}
