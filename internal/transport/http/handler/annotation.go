package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dental-captcha/internal/app"
	"dental-captcha/internal/transport/http/response"
)

type AnnotationHandler struct {
	annotationService *app.AnnotationService
}

type SubmitAnnotationRequest struct {
	SessionID        uint     `json:"session_id" binding:"required"`
	QuestionID       uint     `json:"question_id" binding:"required"`
	SelectedImageIDs []uint   `json:"selected_image_ids" binding:"required"`
	TimeSpent        *float64 `json:"time_spent"`
}

func NewAnnotationHandler(annotationService *app.AnnotationService) *AnnotationHandler {
	return &AnnotationHandler{annotationService: annotationService}
}

func (h *AnnotationHandler) Submit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req SubmitAnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	view, err := h.annotationService.SubmitAnswer(c.Request.Context(), app.SubmitAnswerInput{
		UserID:           userID,
		SessionID:        req.SessionID,
		QuestionID:       req.QuestionID,
		SelectedImageIDs: req.SelectedImageIDs,
		TimeSpent:        req.TimeSpent,
	})
	if err != nil {
		writeServiceError(c, err, "submit annotation failed")
		return
	}
	response.Created(c, view)
}

func (h *AnnotationHandler) ListMine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	views, err := h.annotationService.ListMyAnnotations(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "list annotations failed")
		return
	}
	response.OK(c, views)
}
