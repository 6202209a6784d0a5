package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"smartaudit/internal/app"
	"smartaudit/internal/model"
	"smartaudit/internal/transport/http/response"
)

type DistillHandler struct {
	distill        *app.DistillService
	settings       *app.SettingsService
	maxUploadBytes int64
}

type RenameRequest struct {
	Title string `json:"title" binding:"required,max=256"`
}

type ReimagineRequest struct {
	Instruction string `json:"instruction" binding:"required"`
}

func NewDistillHandler(distill *app.DistillService, settings *app.SettingsService, maxUploadBytes int64) *DistillHandler {
	return &DistillHandler{distill: distill, settings: settings, maxUploadBytes: maxUploadBytes}
}

func (h *DistillHandler) List(c *gin.Context) {
	sessions, err := h.distill.List(c.Request.Context())
	if err != nil {
		writeError(c, err, "list analyses failed")
		return
	}
	response.OK(c, sessions)
}

func (h *DistillHandler) Get(c *gin.Context) {
	session, err := h.distill.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "get analysis failed")
		return
	}
	response.OK(c, session)
}

// Run starts a new analysis from a multipart upload. Form fields: type, and
// optional themeName, themeColor and logoUrl.
func (h *DistillHandler) Run(c *gin.Context) {
	call, ok := callConfig(c, h.settings)
	if !ok {
		return
	}
	files, err := readUploads(c, h.maxUploadBytes)
	if err != nil {
		writeError(c, err, "read upload failed")
		return
	}
	docs := make([]model.ReviewDocument, 0, len(files))
	for _, f := range files {
		doc, err := app.NewDocument(f.Name, f.Data)
		if err != nil {
			writeError(c, err, "read document failed")
			return
		}
		docs = append(docs, *doc)
	}

	session, err := h.distill.Run(c.Request.Context(), call, app.RunDistillInput{
		Type:      model.DistillType(c.PostForm("type")),
		Documents: docs,
		Config:    distillConfig(c),
	})
	if err != nil {
		writeError(c, err, "analysis failed")
		return
	}
	response.OK(c, session)
}

// Rerun runs an existing analysis again, in the mode given by ?type=.
func (h *DistillHandler) Rerun(c *gin.Context) {
	call, ok := callConfig(c, h.settings)
	if !ok {
		return
	}
	session, err := h.distill.Run(c.Request.Context(), call, app.RunDistillInput{
		SessionID: c.Param("id"),
		Type:      model.DistillType(c.Query("type")),
	})
	if err != nil {
		writeError(c, err, "analysis failed")
		return
	}
	response.OK(c, session)
}

func (h *DistillHandler) Rename(c *gin.Context) {
	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, app.ErrInvalidInput, "invalid request payload")
		return
	}
	session, err := h.distill.Rename(c.Request.Context(), c.Param("id"), req.Title)
	if err != nil {
		writeError(c, err, "rename analysis failed")
		return
	}
	response.OK(c, session)
}

func (h *DistillHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.distill.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err, "delete analysis failed")
		return
	}
	response.OK(c, gin.H{"deleted_session_id": id})
}

func (h *DistillHandler) Layout(c *gin.Context) {
	layout, err := h.distill.Layout(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "layout failed")
		return
	}
	response.OK(c, layout)
}

// Visual returns the image for ?slide= (0 unless the analysis is a deck).
func (h *DistillHandler) Visual(c *gin.Context) {
	slide, ok := slideParam(c)
	if !ok {
		return
	}
	call, ok := callConfig(c, h.settings)
	if !ok {
		return
	}
	visual, err := h.distill.GenerateVisual(c.Request.Context(), call.Language, c.Param("id"), slide)
	if err != nil {
		writeError(c, err, "visual generation failed")
		return
	}
	response.OK(c, visual)
}

func (h *DistillHandler) Reimagine(c *gin.Context) {
	slide, ok := slideParam(c)
	if !ok {
		return
	}
	var req ReimagineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, app.ErrInvalidInput, "invalid request payload")
		return
	}
	visual, err := h.distill.Reimagine(c.Request.Context(), c.Param("id"), slide, req.Instruction)
	if err != nil {
		writeError(c, err, "reimagine failed")
		return
	}
	response.OK(c, visual)
}

func (h *DistillHandler) SetAdjustments(c *gin.Context) {
	slide, ok := slideParam(c)
	if !ok {
		return
	}
	var patch model.AdjustmentsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeError(c, app.ErrInvalidInput, "invalid request payload")
		return
	}
	adj, err := h.distill.SetAdjustments(c.Request.Context(), c.Param("id"), slide, patch)
	if err != nil {
		writeError(c, err, "save adjustments failed")
		return
	}
	response.OK(c, gin.H{"adjustments": adj, "filter": adj.CSSFilter()})
}

func slideParam(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("slide", "0")
	slide, err := strconv.Atoi(raw)
	if err != nil || slide < 0 {
		writeError(c, app.ErrInvalidInput, "invalid slide")
		return 0, false
	}
	return slide, true
}

func distillConfig(c *gin.Context) *model.DistillConfig {
	cfg := model.DistillConfig{
		LogoURL:    c.PostForm("logoUrl"),
		ThemeColor: c.PostForm("themeColor"),
		ThemeName:  c.PostForm("themeName"),
	}
	if cfg == (model.DistillConfig{}) {
		return nil
	}
	return &cfg
}
