package controller

import (
	"errors"
	"fellowship_backend/internal/service"
	"fellowship_backend/internal/util"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto the response envelope.
func respondError(ctx *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		util.BadRequest(ctx, verr.Message)

	case errors.Is(err, util.ErrQuizNotFound),
		errors.Is(err, util.ErrQuizUnavailable),
		errors.Is(err, util.ErrQuestionNotFound),
		errors.Is(err, util.ErrAttemptNotFound),
		errors.Is(err, util.ErrUserNotFound),
		errors.Is(err, util.ErrCourseNotFound):
		util.NotFound(ctx, err.Error())

	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrAccountDisabled),
		errors.Is(err, util.ErrInvalidSignupCode):
		util.Error(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, util.ErrInvalidCredentials):
		util.Error(ctx, http.StatusUnauthorized, err.Error())

	case errors.Is(err, util.ErrEmailRegistered),
		errors.Is(err, util.ErrUsernameTaken),
		errors.Is(err, util.ErrCourseCodeTaken):
		util.Conflict(ctx, err.Error())

	case errors.Is(err, util.ErrUnsupportedMediaType):
		util.Error(ctx, http.StatusUnsupportedMediaType, err.Error())

	case errors.Is(err, util.ErrAlreadySubmitted),
		errors.Is(err, util.ErrNoQuestions),
		errors.Is(err, util.ErrAttemptLimitReached),
		errors.Is(err, util.ErrAttemptExpired),
		errors.Is(err, util.ErrInvalidCSV),
		errors.Is(err, util.ErrInvalidReorder):
		util.BadRequest(ctx, err.Error())

	default:
		util.LogInternalError(ctx, err)
	}
}

// currentUser aborts with 401 when the auth middleware left no claims.
func currentUser(ctx *gin.Context) *util.Claims {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
	}
	return user
}

func queryInt(ctx *gin.Context, key string) int {
	v, _ := strconv.Atoi(ctx.Query(key))
	return v
}
