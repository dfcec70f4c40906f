// Vote HTTP handlers.
//
// This file exposes the endpoints for casting votes and reading tallies:
//   - POST /polls/{id}/votes    (submit a vote; anonymous allowed)
//   - GET  /polls/{id}/results  (per-option counts and total)
//
// Voting does not require authentication: anonymous votes are recorded
// without a voter identity and are never deduplicated. Authenticated voters
// get one vote per poll.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Georgechisom/alx-polling/internal/http/middleware"
)

// VoteRequest is the JSON payload for submitting a vote. OptionIndex is a
// pointer so a missing field is distinguishable from a vote for option 0.
type VoteRequest struct {
	OptionIndex *int `json:"option_index"`
}

// SubmitVote records a vote for one option of the poll in the path.
func (h *Handlers) SubmitVote(c *gin.Context) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OptionIndex == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "option_index required")
		return
	}

	err := h.voteSvc.Submit(c.Request.Context(), middleware.UserID(c), c.Param("id"), *req.OptionIndex)
	if err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}

// GetResults returns the tally for the poll in the path: the question, the
// option labels, one count per option, and the total.
func (h *Handlers) GetResults(c *gin.Context) {
	tally, err := h.voteSvc.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, tally)
}
