package controller

import (
	"fellowship_backend/internal/service"
	"fellowship_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type LeaderboardController struct {
	LeaderboardService *service.LeaderboardService
}

func NewLeaderboardController(leaderboardService *service.LeaderboardService) *LeaderboardController {
	return &LeaderboardController{LeaderboardService: leaderboardService}
}

// Quiz godoc
// @Summary Per-quiz leaderboard
// @Description Ranked by score, then shorter duration, then earlier submission
// @Tags leaderboard
// @Produce json
// @Param id path string true "Quiz id"
// @Param limit query int false "Entries" default(20)
// @Success 200 {object} util.Response{data=[]service.QuizLeaderboardEntry}
// @Router /quizzes/{id}/leaderboard [get]
func (c *LeaderboardController) Quiz(ctx *gin.Context) {
	entries, err := c.LeaderboardService.ForQuiz(ctx.Request.Context(), ctx.Param("id"), queryInt(ctx, "limit"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// Global godoc
// @Summary Global leaderboard
// @Tags leaderboard
// @Produce json
// @Param limit query int false "Entries" default(50)
// @Success 200 {object} util.Response{data=[]service.GlobalLeaderboardEntry}
// @Router /quizzes/leaderboard/global [get]
func (c *LeaderboardController) Global(ctx *gin.Context) {
	entries, err := c.LeaderboardService.Global(ctx.Request.Context(), queryInt(ctx, "limit"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// User godoc
// @Summary Per-user score breakdown
// @Tags leaderboard
// @Produce json
// @Param userId path int true "User id"
// @Success 200 {object} util.Response{data=service.UserLeaderboardDetail}
// @Failure 404 {object} util.Response
// @Router /quizzes/leaderboard/user/{userId} [get]
func (c *LeaderboardController) User(ctx *gin.Context) {
	userID, err := strconv.ParseUint(ctx.Param("userId"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	detail, err := c.LeaderboardService.ForUser(ctx.Request.Context(), uint(userID))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}
