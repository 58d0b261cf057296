package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/EduCore-2025/exam-engine/internal/identity"
	"github.com/EduCore-2025/exam-engine/internal/services"
	"github.com/EduCore-2025/exam-engine/internal/utils"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
	contestHandler *ContestHandler
	adminHandler   *AdminHandler
	verifier       identity.Verifier
}

type HandlerConfig struct {
	Sessions         services.SessionService
	Contests         services.ContestService
	Exams            services.ExamService
	Export           services.ExportService
	Verifier         identity.Verifier
	LeaderboardLimit int
	Logger           utils.Logger
}

func NewHandlerManager(cfg HandlerConfig) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(cfg.Sessions, cfg.LeaderboardLimit, cfg.Logger),
		contestHandler: NewContestHandler(cfg.Contests, cfg.LeaderboardLimit, cfg.Logger),
		adminHandler:   NewAdminHandler(cfg.Exams, cfg.Contests, cfg.Export, cfg.Logger),
		verifier:       cfg.Verifier,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "exam-engine",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(AuthMiddleware(hm.verifier))
	{
		exams := v1.Group("/exams")
		{
			exams.POST("/:id/register", hm.sessionHandler.Register)
			exams.POST("/:id/sessions", hm.sessionHandler.Start)
			exams.GET("/:id/result", hm.sessionHandler.GetResult)
			exams.GET("/:id/leaderboard", hm.sessionHandler.GetLeaderboard)
		}

		sessions := v1.Group("/sessions")
		{
			sessions.POST("/:token/answers", hm.sessionHandler.SubmitAnswer)
			sessions.POST("/:token/finish", hm.sessionHandler.Finish)
		}

		contests := v1.Group("/contests")
		{
			contests.GET("/:id", hm.contestHandler.Get)
			contests.POST("/:id/join", hm.contestHandler.Join)
			contests.POST("/:id/submissions", hm.contestHandler.SubmitAnswer)
			contests.GET("/:id/leaderboard", hm.contestHandler.GetLeaderboard)
			contests.GET("/:id/result", hm.contestHandler.GetResult)
		}

		admin := v1.Group("/admin")
		admin.Use(AdminMiddleware())
		{
			admin.POST("/exams", hm.adminHandler.CreateExam)
			admin.POST("/exams/:id/activate", hm.adminHandler.ActivateExam)
			admin.POST("/exams/:id/complete", hm.adminHandler.CompleteExam)
			admin.GET("/exams/:id/results/export", hm.adminHandler.ExportExamResults)

			admin.POST("/contests", hm.adminHandler.CreateContest)
			admin.POST("/contests/:id/start", hm.adminHandler.StartContest)
			admin.POST("/contests/:id/end", hm.adminHandler.EndContest)
			admin.GET("/contests/:id/results/export", hm.adminHandler.ExportContestResults)
		}
	}
}
