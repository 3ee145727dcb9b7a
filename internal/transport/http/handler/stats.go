package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dental-captcha/internal/app"
	"dental-captcha/internal/transport/http/response"
)

type StatsHandler struct {
	statsService *app.StatsService
}

func NewStatsHandler(statsService *app.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

func (h *StatsHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.statsService.GetStats(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "get stats failed")
		return
	}
	response.OK(c, stats)
}

func (h *StatsHandler) Leaderboard(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.statsService.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		writeServiceError(c, err, "get leaderboard failed")
		return
	}
	response.OK(c, entries)
}
