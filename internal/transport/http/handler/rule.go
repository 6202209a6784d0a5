package handler

import (
	"github.com/gin-gonic/gin"

	"smartaudit/internal/app"
	"smartaudit/internal/transport/http/response"
)

type RuleHandler struct {
	rules          *app.RuleService
	settings       *app.SettingsService
	maxUploadBytes int64
}

type CreateRuleRequest struct {
	Title    string `json:"title" binding:"required,max=256"`
	Content  string `json:"content" binding:"required"`
	Category string `json:"category" binding:"required"`
}

type UpdateRuleRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Category *string `json:"category"`
	Active   *bool   `json:"active"`
}

func NewRuleHandler(rules *app.RuleService, settings *app.SettingsService, maxUploadBytes int64) *RuleHandler {
	return &RuleHandler{rules: rules, settings: settings, maxUploadBytes: maxUploadBytes}
}

func (h *RuleHandler) List(c *gin.Context) {
	rules, err := h.rules.List(c.Request.Context())
	if err != nil {
		writeError(c, err, "list rules failed")
		return
	}
	response.OK(c, rules)
}

func (h *RuleHandler) Create(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, app.ErrInvalidInput, "invalid request payload")
		return
	}
	rule, err := h.rules.Create(c.Request.Context(), app.CreateRuleInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	})
	if err != nil {
		writeError(c, err, "create rule failed")
		return
	}
	response.OK(c, rule)
}

func (h *RuleHandler) Update(c *gin.Context) {
	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, app.ErrInvalidInput, "invalid request payload")
		return
	}
	rule, err := h.rules.Update(c.Request.Context(), c.Param("id"), app.UpdateRuleInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Active:   req.Active,
	})
	if err != nil {
		writeError(c, err, "update rule failed")
		return
	}
	response.OK(c, rule)
}

func (h *RuleHandler) Toggle(c *gin.Context) {
	rule, err := h.rules.Toggle(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "toggle rule failed")
		return
	}
	response.OK(c, rule)
}

func (h *RuleHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.rules.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err, "delete rule failed")
		return
	}
	response.OK(c, gin.H{"deleted_rule_id": id})
}

// Import reads one uploaded file into a new rule classified by the model.
func (h *RuleHandler) Import(c *gin.Context) {
	call, ok := callConfig(c, h.settings)
	if !ok {
		return
	}
	files, err := readUploads(c, h.maxUploadBytes)
	if err != nil {
		writeError(c, err, "read upload failed")
		return
	}
	rule, err := h.rules.Import(c.Request.Context(), app.ImportRuleInput{
		FileName: files[0].Name,
		Data:     files[0].Data,
		Call:     call,
	})
	if err != nil {
		writeError(c, err, "import rule failed")
		return
	}
	response.OK(c, rule)
}
