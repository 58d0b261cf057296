package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EduCore-2025/exam-engine/internal/services"
	"github.com/EduCore-2025/exam-engine/internal/utils"
)

// AdminHandler carries the administrative controls: exam and contest creation,
// lifecycle overrides, and results export.
type AdminHandler struct {
	BaseHandler
	exams    services.ExamService
	contests services.ContestService
	export   services.ExportService
}

func NewAdminHandler(
	exams services.ExamService,
	contests services.ContestService,
	export services.ExportService,
	logger utils.Logger,
) *AdminHandler {
	return &AdminHandler{
		BaseHandler: NewBaseHandler(logger),
		exams:       exams,
		contests:    contests,
		export:      export,
	}
}

// CreateExam handles POST /admin/exams
func (h *AdminHandler) CreateExam(c *gin.Context) {
	id, _ := CurrentIdentity(c)

	var req services.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req.CreatedBy = id.UserID

	exam, err := h.exams.Create(c.Request.Context(), &req)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusCreated, "exam created", exam)
}

// ActivateExam handles POST /admin/exams/:id/activate
func (h *AdminHandler) ActivateExam(c *gin.Context) {
	examID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.exams.Activate(c.Request.Context(), examID); err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "exam activated", nil)
}

// CompleteExam handles POST /admin/exams/:id/complete
func (h *AdminHandler) CompleteExam(c *gin.Context) {
	examID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.exams.Complete(c.Request.Context(), examID); err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "exam completed", nil)
}

// CreateContest handles POST /admin/contests
func (h *AdminHandler) CreateContest(c *gin.Context) {
	id, _ := CurrentIdentity(c)

	var req services.CreateContestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req.CreatedBy = id.UserID

	contest, err := h.contests.Create(c.Request.Context(), &req)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusCreated, "contest created", contest)
}

// StartContest handles POST /admin/contests/:id/start
func (h *AdminHandler) StartContest(c *gin.Context) {
	contestID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.contests.Start(c.Request.Context(), contestID); err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "contest started", nil)
}

// EndContest handles POST /admin/contests/:id/end
func (h *AdminHandler) EndContest(c *gin.Context) {
	contestID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.contests.End(c.Request.Context(), contestID); err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "contest ended", nil)
}

// ExportExamResults handles GET /admin/exams/:id/results/export
func (h *AdminHandler) ExportExamResults(c *gin.Context) {
	examID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	data, err := h.export.ExportExamResults(c.Request.Context(), examID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.writeXLSX(c, fmt.Sprintf("exam-%d-results.xlsx", examID), data)
}

// ExportContestResults handles GET /admin/contests/:id/results/export
func (h *AdminHandler) ExportContestResults(c *gin.Context) {
	contestID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	data, err := h.export.ExportContestResults(c.Request.Context(), contestID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.writeXLSX(c, fmt.Sprintf("contest-%d-results.xlsx", contestID), data)
}

func (h *AdminHandler) writeXLSX(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
