package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smartaudit/internal/app"
	"smartaudit/internal/transport/http/response"
)

type ReferenceHandler struct {
	references     *app.ReferenceService
	settings       *app.SettingsService
	maxUploadBytes int64
}

type QueryRequest struct {
	Query string `json:"query" binding:"required"`
}

func NewReferenceHandler(references *app.ReferenceService, settings *app.SettingsService, maxUploadBytes int64) *ReferenceHandler {
	return &ReferenceHandler{references: references, settings: settings, maxUploadBytes: maxUploadBytes}
}

func (h *ReferenceHandler) List(c *gin.Context) {
	refs, err := h.references.List(c.Request.Context())
	if err != nil {
		writeError(c, err, "list references failed")
		return
	}
	response.OK(c, refs)
}

func (h *ReferenceHandler) Toggle(c *gin.Context) {
	ref, err := h.references.Toggle(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "toggle reference failed")
		return
	}
	response.OK(c, ref)
}

func (h *ReferenceHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.references.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err, "delete reference failed")
		return
	}
	response.OK(c, gin.H{"deleted_reference_id": id})
}

// Import runs a bulk import inside the request. Per-file failures are part of the report.
func (h *ReferenceHandler) Import(c *gin.Context) {
	call, ok := callConfig(c, h.settings)
	if !ok {
		return
	}
	files, err := readUploads(c, h.maxUploadBytes)
	if err != nil {
		writeError(c, err, "read upload failed")
		return
	}
	report, err := h.references.Import(c.Request.Context(), call, files)
	if err != nil {
		writeError(c, err, "import references failed")
		return
	}
	response.OK(c, report)
}

// ImportAsync queues the upload for the import worker and answers 202 with the job id.
func (h *ReferenceHandler) ImportAsync(c *gin.Context) {
	files, err := readUploads(c, h.maxUploadBytes)
	if err != nil {
		writeError(c, err, "read upload failed")
		return
	}
	job, err := h.references.Enqueue(c.Request.Context(), c.Query("provider"), c.Query("lang"), files)
	if err != nil {
		writeError(c, err, "queue import failed")
		return
	}
	c.JSON(http.StatusAccepted, response.APIResponse{Code: response.CodeOK, Message: "queued", Data: job})
}

func (h *ReferenceHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, app.ErrInvalidInput, "invalid request payload")
		return
	}
	call, ok := callConfig(c, h.settings)
	if !ok {
		return
	}
	answer, err := h.references.Query(c.Request.Context(), call, req.Query)
	if err != nil {
		writeError(c, err, "knowledge base query failed")
		return
	}
	response.OK(c, answer)
}

// Search filters references with ?q=; terms prefixed with "-" exclude.
func (h *ReferenceHandler) Search(c *gin.Context) {
	refs, err := h.references.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err, "search references failed")
		return
	}
	response.OK(c, refs)
}
