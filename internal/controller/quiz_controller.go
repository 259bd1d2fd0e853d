package controller

import (
	"fellowship_backend/internal/model"
	"fellowship_backend/internal/service"
	"fellowship_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

func listQuery(ctx *gin.Context, all bool) service.QuizListQuery {
	return service.QuizListQuery{
		Query:    ctx.Query("q"),
		CourseID: uint(queryInt(ctx, "course")),
		Page:     queryInt(ctx, "page"),
		Limit:    queryInt(ctx, "limit"),
		All:      all,
	}
}

// List godoc
// @Summary List published quizzes
// @Tags quizzes
// @Produce json
// @Param q query string false "Title contains"
// @Param course query int false "Course id"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /quizzes [get]
func (c *QuizController) List(ctx *gin.Context) {
	page, err := c.QuizService.List(ctx.Request.Context(), listQuery(ctx, false))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, page)
}

// ListAll godoc
// @Summary List all quizzes including drafts
// @Tags quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param q query string false "Title contains"
// @Param course query int false "Course id"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /quizzes/admin/all [get]
func (c *QuizController) ListAll(ctx *gin.Context) {
	page, err := c.QuizService.List(ctx.Request.Context(), listQuery(ctx, true))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, page)
}

// Get godoc
// @Summary Quiz details
// @Description Unpublished quizzes are only visible to exec and admin users
// @Tags quizzes
// @Produce json
// @Param id path string true "Quiz id"
// @Success 200 {object} util.Response{data=service.QuizView}
// @Failure 404 {object} util.Response
// @Router /quizzes/{id} [get]
func (c *QuizController) Get(ctx *gin.Context) {
	role := model.UserRole("")
	if claims := util.GetUserFromContext(ctx); claims != nil {
		role = claims.Role
	}

	view, err := c.QuizService.Get(ctx.Request.Context(), ctx.Param("id"), role)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// Create godoc
// @Summary Create a quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateQuizRequest true "Quiz"
// @Success 201 {object} util.Response{data=model.Quiz}
// @Failure 400 {object} util.Response
// @Router /quizzes [post]
func (c *QuizController) Create(ctx *gin.Context) {
	claims := currentUser(ctx)
	if claims == nil {
		return
	}

	var req service.CreateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.Create(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// Update godoc
// @Summary Update a quiz
// @Description Partial update; omitted fields keep their value
// @Tags quizzes
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Quiz id"
// @Param body body service.UpdateQuizRequest true "Changes"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Router /quizzes/{id} [put]
func (c *QuizController) Update(ctx *gin.Context) {
	var req service.UpdateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.Update(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// ToggleActive godoc
// @Summary Toggle whether a quiz accepts new attempts
// @Tags quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Quiz id"
// @Success 200 {object} util.Response{data=object}
// @Router /quizzes/{id}/active [patch]
func (c *QuizController) ToggleActive(ctx *gin.Context) {
	active, err := c.QuizService.ToggleActive(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"isActive": active})
}

// TogglePublished godoc
// @Summary Toggle quiz visibility
// @Tags quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Quiz id"
// @Success 200 {object} util.Response{data=object}
// @Router /quizzes/{id}/publish [patch]
func (c *QuizController) TogglePublished(ctx *gin.Context) {
	published, err := c.QuizService.TogglePublished(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"published": published})
}

// Delete godoc
// @Summary Delete a quiz
// @Description Questions and attempts are kept
// @Tags quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Quiz id"
// @Success 200 {object} util.Response
// @Router /quizzes/{id} [delete]
func (c *QuizController) Delete(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := c.QuizService.Delete(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": id})
}
