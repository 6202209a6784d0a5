package handler

import (
	"github.com/gin-gonic/gin"

	"smartaudit/internal/app"
	"smartaudit/internal/model"
	"smartaudit/internal/transport/http/response"
)

type ReviewHandler struct {
	reviews        *app.ReviewService
	settings       *app.SettingsService
	maxUploadBytes int64
}

type CreateSessionRequest struct {
	Title string `json:"title" binding:"max=256"`
}

type UpdateDocumentRequest struct {
	Name    *string `json:"name"`
	Content *string `json:"content"`
}

type FocusRequest struct {
	Focus string `json:"focus"`
}

func NewReviewHandler(reviews *app.ReviewService, settings *app.SettingsService, maxUploadBytes int64) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, settings: settings, maxUploadBytes: maxUploadBytes}
}

func (h *ReviewHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		writeError(c, app.ErrInvalidInput, "invalid request payload")
		return
	}
	session, err := h.reviews.Create(c.Request.Context(), req.Title)
	if err != nil {
		writeError(c, err, "create session failed")
		return
	}
	response.OK(c, session)
}

func (h *ReviewHandler) List(c *gin.Context) {
	sessions, err := h.reviews.List(c.Request.Context())
	if err != nil {
		writeError(c, err, "list sessions failed")
		return
	}
	response.OK(c, sessions)
}

func (h *ReviewHandler) Get(c *gin.Context) {
	session, err := h.reviews.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "get session failed")
		return
	}
	response.OK(c, session)
}

// Save replaces the stored session with the body; the path id wins over the body's.
func (h *ReviewHandler) Save(c *gin.Context) {
	var session model.ReviewSession
	if err := c.ShouldBindJSON(&session); err != nil {
		writeError(c, app.ErrInvalidInput, "invalid request payload")
		return
	}
	session.ID = c.Param("id")
	created, err := h.reviews.Save(c.Request.Context(), &session)
	if err != nil {
		writeError(c, err, "save session failed")
		return
	}
	response.OK(c, gin.H{"session": session, "created": created})
}

func (h *ReviewHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.reviews.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err, "delete session failed")
		return
	}
	response.OK(c, gin.H{"deleted_session_id": id})
}

func (h *ReviewHandler) AddDocuments(c *gin.Context) {
	files, err := readUploads(c, h.maxUploadBytes)
	if err != nil {
		writeError(c, err, "read upload failed")
		return
	}
	docs := make([]*model.ReviewDocument, 0, len(files))
	for _, f := range files {
		doc, err := h.reviews.AddDocument(c.Request.Context(), c.Param("id"), f.Name, f.Data)
		if err != nil {
			writeError(c, err, "add document failed")
			return
		}
		docs = append(docs, doc)
	}
	response.OK(c, docs)
}

func (h *ReviewHandler) UpdateDocument(c *gin.Context) {
	var req UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, app.ErrInvalidInput, "invalid request payload")
		return
	}
	doc, err := h.reviews.UpdateDocument(c.Request.Context(), c.Param("id"), c.Param("docID"), app.UpdateDocumentInput{
		Name:    req.Name,
		Content: req.Content,
	})
	if err != nil {
		writeError(c, err, "update document failed")
		return
	}
	response.OK(c, doc)
}

func (h *ReviewHandler) RemoveDocument(c *gin.Context) {
	docID := c.Param("docID")
	if err := h.reviews.RemoveDocument(c.Request.Context(), c.Param("id"), docID); err != nil {
		writeError(c, err, "remove document failed")
		return
	}
	response.OK(c, gin.H{"deleted_document_id": docID})
}

func (h *ReviewHandler) Snapshot(c *gin.Context) {
	version, err := h.reviews.Snapshot(c.Request.Context(), c.Param("id"), c.Param("docID"))
	if err != nil {
		writeError(c, err, "snapshot document failed")
		return
	}
	response.OK(c, version)
}

func (h *ReviewHandler) Revert(c *gin.Context) {
	doc, err := h.reviews.Revert(c.Request.Context(), c.Param("id"), c.Param("docID"), c.Param("versionID"))
	if err != nil {
		writeError(c, err, "revert document failed")
		return
	}
	response.OK(c, doc)
}

func (h *ReviewHandler) Extract(c *gin.Context) {
	call, ok := callConfig(c, h.settings)
	if !ok {
		return
	}
	session, err := h.reviews.Extract(c.Request.Context(), c.Param("id"), call)
	if err != nil {
		writeError(c, err, "extraction failed")
		return
	}
	response.OK(c, session)
}

func (h *ReviewHandler) Summarize(c *gin.Context) {
	focus, ok := bindFocus(c)
	if !ok {
		return
	}
	call, ok := callConfig(c, h.settings)
	if !ok {
		return
	}
	session, err := h.reviews.Summarize(c.Request.Context(), c.Param("id"), call, focus)
	if err != nil {
		writeError(c, err, "summary failed")
		return
	}
	response.OK(c, session)
}

func (h *ReviewHandler) DraftOpinion(c *gin.Context) {
	call, ok := callConfig(c, h.settings)
	if !ok {
		return
	}
	session, err := h.reviews.DraftOpinion(c.Request.Context(), c.Param("id"), call)
	if err != nil {
		writeError(c, err, "opinion failed")
		return
	}
	response.OK(c, session)
}

func (h *ReviewHandler) RunAll(c *gin.Context) {
	focus, ok := bindFocus(c)
	if !ok {
		return
	}
	call, ok := callConfig(c, h.settings)
	if !ok {
		return
	}
	session, err := h.reviews.RunAll(c.Request.Context(), c.Param("id"), call, focus)
	if err != nil {
		writeError(c, err, "review failed")
		return
	}
	response.OK(c, session)
}

// bindFocus reads an optional {"focus": ...} body.
func bindFocus(c *gin.Context) (string, bool) {
	if c.Request.ContentLength == 0 {
		return "", true
	}
	var req FocusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, app.ErrInvalidInput, "invalid request payload")
		return "", false
	}
	return req.Focus, true
}
