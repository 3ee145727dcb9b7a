package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dental-captcha/internal/app"
	"dental-captcha/internal/transport/http/response"
)

type AdminHandler struct {
	catalog *app.Catalog
	auth    *app.AuthService
	stats   *app.StatsService
}

type ImportImagesRequest struct {
	Images []struct {
		Filename string `json:"filename" binding:"required,max=255"`
		URL      string `json:"image_url" binding:"required,max=1024"`
	} `json:"images" binding:"required,min=1,dive"`
}

type ImportQuestionsRequest struct {
	Questions []struct {
		Text string `json:"question_text" binding:"required"`
		Type string `json:"question_type" binding:"required,max=64"`
	} `json:"questions" binding:"required,min=1,dive"`
}

type AdminUserRequest struct {
	Email string `json:"email" binding:"required,email,max=128"`
}

func NewAdminHandler(catalog *app.Catalog, auth *app.AuthService, stats *app.StatsService) *AdminHandler {
	return &AdminHandler{catalog: catalog, auth: auth, stats: stats}
}

func (h *AdminHandler) ImportImages(c *gin.Context) {
	var req ImportImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	items := make([]app.ImageImport, len(req.Images))
	for i, img := range req.Images {
		items[i] = app.ImageImport{Filename: img.Filename, URL: img.URL}
	}
	result, err := h.catalog.ImportImages(c.Request.Context(), items)
	if err != nil {
		writeServiceError(c, err, "import images failed")
		return
	}
	response.Created(c, result)
}

func (h *AdminHandler) ImportQuestions(c *gin.Context) {
	var req ImportQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	items := make([]app.QuestionImport, len(req.Questions))
	for i, q := range req.Questions {
		items[i] = app.QuestionImport{Text: q.Text, Type: q.Type}
	}
	result, err := h.catalog.ImportQuestions(c.Request.Context(), items)
	if err != nil {
		writeServiceError(c, err, "import questions failed")
		return
	}
	response.Created(c, result)
}

func (h *AdminHandler) DeactivateQuestion(c *gin.Context) {
	questionID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeactivateQuestion(c.Request.Context(), questionID); err != nil {
		writeServiceError(c, err, "deactivate question failed")
		return
	}
	response.OK(c, gin.H{"id": questionID, "active": false})
}

func (h *AdminHandler) ListQuestions(c *gin.Context) {
	questions, err := h.catalog.ListActiveQuestions(c.Request.Context())
	if err != nil {
		writeServiceError(c, err, "list questions failed")
		return
	}
	response.OK(c, questions)
}

func (h *AdminHandler) PromoteUser(c *gin.Context) {
	var req AdminUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	user, err := h.auth.PromoteUser(c.Request.Context(), req.Email)
	if err != nil {
		writeServiceError(c, err, "promote user failed")
		return
	}
	response.OK(c, userPayload(user))
}

func (h *AdminHandler) DemoteUser(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req AdminUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	user, err := h.auth.DemoteUser(c.Request.Context(), actorID, req.Email)
	if err != nil {
		writeServiceError(c, err, "demote user failed")
		return
	}
	response.OK(c, userPayload(user))
}

func (h *AdminHandler) UserReport(c *gin.Context) {
	report, err := h.stats.UserReport(c.Request.Context())
	if err != nil {
		writeServiceError(c, err, "build user report failed")
		return
	}
	response.OK(c, report)
}
