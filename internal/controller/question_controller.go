package controller

import (
	"errors"
	"fellowship_backend/internal/service"
	"fellowship_backend/internal/util"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type QuestionController struct {
	QuestionService *service.QuestionService
	Settings        *service.QuizSettings
}

func NewQuestionController(questionService *service.QuestionService, settings *service.QuizSettings) *QuestionController {
	return &QuestionController{QuestionService: questionService, Settings: settings}
}

// ImportCSV godoc
// @Summary Bulk import questions from CSV
// @Description Every row is validated; with dryRun nothing is written, otherwise all rows are inserted or none
// @Tags questions
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Quiz id"
// @Param csv formData file true "CSV file"
// @Param dryRun query bool false "Validate only"
// @Success 200 {object} util.Response{data=service.ImportResult} "Dry run"
// @Success 201 {object} util.Response{data=service.ImportResult} "Committed"
// @Failure 400 {object} util.Response{data=service.ImportResult} "Row errors"
// @Router /quizzes/{id}/questions/csv [post]
func (c *QuestionController) ImportCSV(ctx *gin.Context) {
	header, err := ctx.FormFile("csv")
	if err != nil {
		util.BadRequest(ctx, "CSV file is required")
		return
	}
	if max := c.Settings.Load().MaxCSVBytes; max > 0 && header.Size > max {
		util.BadRequest(ctx, fmt.Sprintf("CSV file exceeds %d bytes", max))
		return
	}

	file, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	dryRun := util.ParseBool(ctx.Query("dryRun"))
	res, err := c.QuestionService.ImportCSV(ctx.Request.Context(), ctx.Param("id"), file, dryRun)
	switch {
	case errors.Is(err, util.ErrCSVValidation):
		util.ErrorWithData(ctx, http.StatusBadRequest, "Validation errors", res)
	case err != nil:
		respondError(ctx, err)
	case dryRun:
		util.Success(ctx, res)
	default:
		util.Created(ctx, res)
	}
}

// List godoc
// @Summary List a quiz's questions with answers
// @Tags questions
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Quiz id"
// @Success 200 {object} util.Response{data=[]model.Question}
// @Router /quizzes/{id}/questions [get]
func (c *QuestionController) List(ctx *gin.Context) {
	questions, err := c.QuestionService.List(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

// Create godoc
// @Summary Add a single question
// @Tags questions
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Quiz id"
// @Param body body service.QuestionRequest true "Question"
// @Success 201 {object} util.Response{data=model.Question}
// @Router /quizzes/{id}/questions [post]
func (c *QuestionController) Create(ctx *gin.Context) {
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.QuestionService.Create(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, question)
}

// Update godoc
// @Summary Update a question
// @Tags questions
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param questionId path string true "Question id"
// @Param body body service.QuestionRequest true "Question"
// @Success 200 {object} util.Response{data=model.Question}
// @Router /quizzes/questions/{questionId} [put]
func (c *QuestionController) Update(ctx *gin.Context) {
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.QuestionService.Update(ctx.Request.Context(), ctx.Param("questionId"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

// Delete godoc
// @Summary Delete a question
// @Tags questions
// @Produce json
// @Security ApiKeyAuth
// @Param questionId path string true "Question id"
// @Success 200 {object} util.Response
// @Router /quizzes/questions/{questionId} [delete]
func (c *QuestionController) Delete(ctx *gin.Context) {
	id := ctx.Param("questionId")
	if err := c.QuestionService.Delete(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": id})
}

// Reorder godoc
// @Summary Reorder a quiz's questions
// @Tags questions
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Quiz id"
// @Param body body service.ReorderRequest true "Every question id in the new order"
// @Success 200 {object} util.Response
// @Router /quizzes/{id}/questions/reorder [put]
func (c *QuestionController) Reorder(ctx *gin.Context) {
	var req service.ReorderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.QuestionService.Reorder(ctx.Request.Context(), ctx.Param("id"), req); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"reordered": len(req.QuestionIDs)})
}

// UploadImage godoc
// @Summary Attach an image to a question
// @Tags questions
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param questionId path string true "Question id"
// @Param image formData file true "jpeg, png, gif or webp"
// @Success 200 {object} util.Response{data=object}
// @Failure 415 {object} util.Response
// @Router /quizzes/questions/{questionId}/image [post]
func (c *QuestionController) UploadImage(ctx *gin.Context) {
	header, err := ctx.FormFile("image")
	if err != nil {
		util.BadRequest(ctx, "image file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	url, err := c.QuestionService.UploadImage(ctx.Request.Context(), ctx.Param("questionId"), file, header.Size)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"imageUrl": url})
}
