package controller

import (
	"bytes"
	"fellowship_backend/internal/service"
	"fellowship_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	AttemptService *service.AttemptService
}

func NewAttemptController(attemptService *service.AttemptService) *AttemptController {
	return &AttemptController{AttemptService: attemptService}
}

// Start godoc
// @Summary Start an attempt
// @Description Questions are returned without answers, in the order and option order chosen for this attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Quiz id"
// @Param body body service.StartAttemptRequest false "Optional question count"
// @Success 201 {object} util.Response{data=service.StartedAttempt}
// @Failure 400 {object} util.Response "No questions or attempt limit reached"
// @Failure 404 {object} util.Response "Quiz not found or inactive"
// @Router /quizzes/{id}/start [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	claims := currentUser(ctx)
	if claims == nil {
		return
	}

	var req service.StartAttemptRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	started, err := c.AttemptService.Start(ctx.Request.Context(), claims.UserID, ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, started)
}

// Submit godoc
// @Summary Submit answers for grading
// @Tags attempts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param attemptId path string true "Attempt id"
// @Param body body service.SubmitAttemptRequest true "Answers"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 400 {object} util.Response "Already submitted or expired"
// @Failure 403 {object} util.Response
// @Router /quizzes/attempts/{attemptId}/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	claims := currentUser(ctx)
	if claims == nil {
		return
	}

	var req service.SubmitAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AttemptService.Submit(ctx.Request.Context(), claims.UserID, ctx.Param("attemptId"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Review godoc
// @Summary Review an attempt
// @Description Available to the attempt owner and to exec/admin users
// @Tags attempts
// @Produce json
// @Security ApiKeyAuth
// @Param attemptId path string true "Attempt id"
// @Success 200 {object} util.Response{data=service.AttemptReview}
// @Failure 403 {object} util.Response
// @Router /quizzes/attempts/{attemptId} [get]
func (c *AttemptController) Review(ctx *gin.Context) {
	claims := currentUser(ctx)
	if claims == nil {
		return
	}

	review, err := c.AttemptService.Review(ctx.Request.Context(), claims.UserID, claims.Role, ctx.Param("attemptId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, review)
}

// ListMine godoc
// @Summary My attempts on a quiz
// @Tags attempts
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Quiz id"
// @Success 200 {object} util.Response{data=[]service.AttemptSummary}
// @Router /quizzes/{id}/attempts/mine [get]
func (c *AttemptController) ListMine(ctx *gin.Context) {
	claims := currentUser(ctx)
	if claims == nil {
		return
	}

	attempts, err := c.AttemptService.ListMine(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}

// Export godoc
// @Summary Export submitted attempts as CSV
// @Tags attempts
// @Produce text/csv
// @Security ApiKeyAuth
// @Param id path string true "Quiz id"
// @Success 200 {file} file "attempts.csv"
// @Router /quizzes/{id}/attempts/export [get]
func (c *AttemptController) Export(ctx *gin.Context) {
	var buf bytes.Buffer
	if err := c.AttemptService.ExportCSV(ctx.Request.Context(), ctx.Param("id"), &buf); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", "attachment; filename=attempts.csv")
	ctx.Data(http.StatusOK, util.MimeCSV, buf.Bytes())
}
