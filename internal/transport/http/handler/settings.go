package handler

import (
	"github.com/gin-gonic/gin"

	"smartaudit/internal/app"
	"smartaudit/internal/transport/http/response"
)

type SettingsHandler struct {
	settings *app.SettingsService
}

type SaveSettingsRequest struct {
	DeepSeekKey     *string `json:"deepseekKey"`
	DeepSeekBaseURL *string `json:"deepseekBaseUrl"`
	MiniMaxKey      *string `json:"minimaxKey"`
	MiniMaxBaseURL  *string `json:"minimaxBaseUrl"`
}

func NewSettingsHandler(settings *app.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	view, err := h.settings.Get(c.Request.Context())
	if err != nil {
		writeError(c, err, "get settings failed")
		return
	}
	response.OK(c, view)
}

func (h *SettingsHandler) Save(c *gin.Context) {
	var req SaveSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, app.ErrInvalidInput, "invalid request payload")
		return
	}
	view, err := h.settings.Save(c.Request.Context(), app.SaveSettingsInput{
		DeepSeekKey:     req.DeepSeekKey,
		DeepSeekBaseURL: req.DeepSeekBaseURL,
		MiniMaxKey:      req.MiniMaxKey,
		MiniMaxBaseURL:  req.MiniMaxBaseURL,
	})
	if err != nil {
		writeError(c, err, "save settings failed")
		return
	}
	response.OK(c, view)
}
