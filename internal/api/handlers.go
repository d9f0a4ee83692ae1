package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/atomastery/internal/gems"
	"github.com/abhisek/atomastery/internal/grading"
	"github.com/abhisek/atomastery/internal/mastery"
	"github.com/abhisek/atomastery/internal/structure"
)

// MasteryService is the part of *mastery.Service the API serves.
type MasteryService interface {
	ApplyElementUpdate(ctx context.Context, u mastery.Update) (*mastery.Result, error)
	Record(ctx context.Context, userID, lessonID string) (*mastery.Record, error)
	DueElements(ctx context.Context, userID, lessonID string, now time.Time) ([]mastery.DueElement, error)
	Structure(ctx context.Context, lessonID string) (*structure.Lesson, error)
}

type Grader interface {
	GradeSubmission(ctx context.Context, userID, lessonID string, subs []grading.Submission) (*grading.Result, error)
}

type WalletService interface {
	Wallet(ctx context.Context, userID string) (*gems.Wallet, error)
	History(ctx context.Context, userID string, limit int) ([]gems.GemAward, error)
}

type MasteryHandler struct {
	svc    MasteryService
	grader Grader
	now    func() time.Time
}

func NewMasteryHandler(svc MasteryService, grader Grader) *MasteryHandler {
	return &MasteryHandler{svc: svc, grader: grader, now: time.Now}
}

type updateRequest struct {
	ElementID string `json:"elementId" binding:"required"`
	Score     *int   `json:"score" binding:"required"`
	Reason    string `json:"reason"`
}

// POST /api/users/:userId/lessons/:lessonId/mastery
func (h *MasteryHandler) ApplyUpdate(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	res, err := h.svc.ApplyElementUpdate(c.Request.Context(), mastery.Update{
		UserID:    c.Param("userId"),
		LessonID:  c.Param("lessonId"),
		ElementID: req.ElementID,
		Score:     *req.Score,
		Reason:    req.Reason,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, res)
}

type gradeRequest struct {
	Submissions []grading.Submission `json:"submissions"`
}

// POST /api/users/:userId/lessons/:lessonId/grade
func (h *MasteryHandler) Grade(c *gin.Context) {
	var req gradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	res, err := h.grader.GradeSubmission(c.Request.Context(), c.Param("userId"), c.Param("lessonId"), req.Submissions)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, res)
}

// GET /api/users/:userId/lessons/:lessonId/mastery
func (h *MasteryHandler) GetMastery(c *gin.Context) {
	ctx := c.Request.Context()
	userID, lessonID := c.Param("userId"), c.Param("lessonId")
	now := h.now()

	rec, err := h.svc.Record(ctx, userID, lessonID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	due, err := h.svc.DueElements(ctx, userID, lessonID, now)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	body := gin.H{"record": rec, "due": due}
	lesson, err := h.svc.Structure(ctx, lessonID)
	switch {
	case errors.Is(err, mastery.ErrStructureMissing):
		body["outcome"] = mastery.OutcomeStructureMissing
	case err != nil:
		respondServiceError(c, err)
		return
	default:
		body["elements"] = mastery.Summarize(lesson, rec, now)
	}
	RespondOK(c, body)
}

type WalletHandler struct {
	svc WalletService
}

func NewWalletHandler(svc WalletService) *WalletHandler {
	return &WalletHandler{svc: svc}
}

// GET /api/users/:userId/wallet
func (h *WalletHandler) GetWallet(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("userId")
	w, err := h.svc.Wallet(ctx, userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "persistence_failure", err)
		return
	}
	hist, err := h.svc.History(ctx, userID, 20)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "persistence_failure", err)
		return
	}
	RespondOK(c, gin.H{"wallet": w, "recent": hist})
}

type HealthHandler struct {
	ping func(context.Context) error
}

// NewHealthHandler reports unhealthy when ping fails. ping may be nil.
func NewHealthHandler(ping func(context.Context) error) *HealthHandler {
	return &HealthHandler{ping: ping}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			RespondError(c, http.StatusServiceUnavailable, "unhealthy", err)
			return
		}
	}
	c.String(http.StatusOK, "ok")
}
