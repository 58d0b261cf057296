package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EduCore-2025/exam-engine/internal/services"
	"github.com/EduCore-2025/exam-engine/internal/utils"
)

// SessionHandler exposes the participant-facing exam flow.
type SessionHandler struct {
	BaseHandler
	service          services.SessionService
	leaderboardLimit int
}

func NewSessionHandler(service services.SessionService, leaderboardLimit int, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler:      NewBaseHandler(logger),
		service:          service,
		leaderboardLimit: leaderboardLimit,
	}
}

// Register handles POST /exams/:id/register
func (h *SessionHandler) Register(c *gin.Context) {
	examID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}
	id, _ := CurrentIdentity(c)

	reg, err := h.service.Register(c.Request.Context(), examID, id.UserID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusCreated, "registered", reg)
}

// Start handles POST /exams/:id/sessions
func (h *SessionHandler) Start(c *gin.Context) {
	examID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}
	id, _ := CurrentIdentity(c)

	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.RespondWithError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req.ExamID = examID

	ip := c.ClientIP()
	ua := c.Request.UserAgent()
	if req.IPAddress == nil {
		req.IPAddress = &ip
	}
	if req.UserAgent == nil {
		req.UserAgent = &ua
	}

	session, err := h.service.Start(c.Request.Context(), &req, id.UserID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if session.Resumed {
		status = http.StatusOK
	}
	h.RespondWithSuccess(c, status, "session started", session)
}

// SubmitAnswer handles POST /sessions/:token/answers
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	token := c.Param("token")
	id, _ := CurrentIdentity(c)

	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	resp, err := h.service.SubmitAnswer(c.Request.Context(), token, id.UserID, &req)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "answer recorded", resp)
}

// Finish handles POST /sessions/:token/finish
func (h *SessionHandler) Finish(c *gin.Context) {
	token := c.Param("token")
	id, _ := CurrentIdentity(c)

	var req services.FinishSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.RespondWithError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.service.Finish(c.Request.Context(), token, id.UserID, &req)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "session finished", result)
}

// GetResult handles GET /exams/:id/result
func (h *SessionHandler) GetResult(c *gin.Context) {
	examID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}
	id, _ := CurrentIdentity(c)

	result, err := h.service.GetResult(c.Request.Context(), examID, id.UserID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "result", result)
}

// GetLeaderboard handles GET /exams/:id/leaderboard
func (h *SessionHandler) GetLeaderboard(c *gin.Context) {
	examID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	filters := ParseLeaderboardFilters(c, h.leaderboardLimit)
	board, err := h.service.GetLeaderboard(c.Request.Context(), examID, filters)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "leaderboard", board)
}
