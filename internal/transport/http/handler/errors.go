package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"dental-captcha/internal/app"
	"dental-captcha/internal/transport/http/middleware"
	"dental-captcha/internal/transport/http/response"
)

type errorMapping struct {
	target     error
	httpStatus int
	code       int
}

var errorMappings = []errorMapping{
	{app.ErrInvalidInput, http.StatusBadRequest, response.CodeBadRequest},
	{app.ErrInsufficientInventory, http.StatusNotFound, response.CodeInsufficientInventory},
	{app.ErrSessionNotFound, http.StatusNotFound, response.CodeSessionNotFound},
	{app.ErrSessionNotOwned, http.StatusForbidden, response.CodeSessionNotOwned},
	{app.ErrSessionAlreadyCompleted, http.StatusBadRequest, response.CodeSessionCompleted},
	{app.ErrQuestionNotInSession, http.StatusBadRequest, response.CodeQuestionNotInSession},
	{app.ErrQuestionAlreadyAnswered, http.StatusBadRequest, response.CodeQuestionAnswered},
	{app.ErrImageNotInSession, http.StatusBadRequest, response.CodeImageNotInSession},
	{app.ErrQuestionNotFound, http.StatusNotFound, response.CodeQuestionNotFound},
	{app.ErrAnnotationNotFound, http.StatusNotFound, response.CodeAnnotationNotFound},
	{app.ErrUserNotFound, http.StatusNotFound, response.CodeUserNotFound},
	{app.ErrAlreadyAdmin, http.StatusBadRequest, response.CodeAlreadyAdmin},
	{app.ErrNotAdmin, http.StatusBadRequest, response.CodeNotAdmin},
	{app.ErrCannotDemoteSelf, http.StatusBadRequest, response.CodeCannotDemoteSelf},
}

// writeServiceError maps a service error onto the response envelope. Anything
// that is not a known sentinel is logged and reported as fallback.
func writeServiceError(c *gin.Context, err error, fallback string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			response.Error(c, m.httpStatus, m.code, m.target.Error())
			return
		}
	}
	_ = c.Error(err)
	slog.ErrorContext(c.Request.Context(), fallback, "error", err)
	response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
}

func currentUserID(c *gin.Context) (uint, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return 0, false
	}
	return userID, true
}
