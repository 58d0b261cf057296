package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EduCore-2025/exam-engine/internal/services"
	"github.com/EduCore-2025/exam-engine/internal/utils"
)

// ContestHandler exposes the contest flow.
type ContestHandler struct {
	BaseHandler
	service          services.ContestService
	leaderboardLimit int
}

func NewContestHandler(service services.ContestService, leaderboardLimit int, logger utils.Logger) *ContestHandler {
	return &ContestHandler{
		BaseHandler:      NewBaseHandler(logger),
		service:          service,
		leaderboardLimit: leaderboardLimit,
	}
}

// Get handles GET /contests/:id
func (h *ContestHandler) Get(c *gin.Context) {
	contestID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	contest, err := h.service.Get(c.Request.Context(), contestID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "contest", contest)
}

// Join handles POST /contests/:id/join
func (h *ContestHandler) Join(c *gin.Context) {
	contestID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}
	id, _ := CurrentIdentity(c)

	participant, err := h.service.Join(c.Request.Context(), contestID, id.UserID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusCreated, "joined", participant)
}

// SubmitAnswer handles POST /contests/:id/submissions
func (h *ContestHandler) SubmitAnswer(c *gin.Context) {
	contestID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}
	id, _ := CurrentIdentity(c)

	var req services.ContestSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	sub, err := h.service.SubmitAnswer(c.Request.Context(), contestID, id.UserID, &req)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusCreated, "submission graded", sub)
}

// GetLeaderboard handles GET /contests/:id/leaderboard
func (h *ContestHandler) GetLeaderboard(c *gin.Context) {
	contestID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	filters := ParseLeaderboardFilters(c, h.leaderboardLimit)
	board, err := h.service.GetLeaderboard(c.Request.Context(), contestID, filters)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "leaderboard", board)
}

// GetResult handles GET /contests/:id/result
func (h *ContestHandler) GetResult(c *gin.Context) {
	contestID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}
	id, _ := CurrentIdentity(c)

	result, err := h.service.GetResult(c.Request.Context(), contestID, id.UserID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "result", result)
}
