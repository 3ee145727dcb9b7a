package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeOK                 = 0
	CodeBadRequest         = 40000
	CodeUnauthorized       = 40100
	CodeForbidden          = 40300
	CodeNotFound           = 40400
	CodeInternalServer     = 50000
	CodeUsernameExists     = 40001
	CodeEmailExists        = 40002
	CodeInvalidCredentials = 40101

	CodeSessionCompleted      = 40010
	CodeQuestionNotInSession  = 40011
	CodeQuestionAnswered      = 40012
	CodeImageNotInSession     = 40013
	CodeAlreadyAdmin          = 40014
	CodeNotAdmin              = 40015
	CodeCannotDemoteSelf      = 40016
	CodeSessionNotOwned       = 40301
	CodeSessionNotFound       = 40401
	CodeInsufficientInventory = 40402
	CodeQuestionNotFound      = 40403
	CodeAnnotationNotFound    = 40404
	CodeUserNotFound          = 40405
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Code:    CodeOK,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}
