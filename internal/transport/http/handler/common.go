package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"smartaudit/internal/ai"
	"smartaudit/internal/app"
	"smartaudit/internal/pkg/textextract"
	"smartaudit/internal/transport/http/response"
)

var errUploadTooLarge = errors.New("upload too large")

// callConfig reads ?provider= and ?lang= and resolves them against the saved settings.
func callConfig(c *gin.Context, settings *app.SettingsService) (ai.CallConfig, bool) {
	call, err := settings.CallConfig(c.Request.Context(), c.Query("provider"), c.Query("lang"))
	if err != nil {
		writeError(c, err, "resolve provider failed")
		return ai.CallConfig{}, false
	}
	return call, true
}

// readUploads returns every multipart file under "files" and "file".
func readUploads(c *gin.Context, maxBytes int64) ([]app.UploadedFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("%w: missing multipart form", app.ErrInvalidInput)
	}
	headers := append(form.File["files"], form.File["file"]...)
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: no file uploaded", app.ErrInvalidInput)
	}

	files := make([]app.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		if maxBytes > 0 && fh.Size > maxBytes {
			return nil, fmt.Errorf("%w: %s", errUploadTooLarge, fh.Filename)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s failed: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %s failed: %w", fh.Filename, err)
		}
		files = append(files, app.UploadedFile{Name: fh.Filename, Data: data})
	}
	return files, nil
}

// writeError maps service errors onto the response envelope. Anything
// unrecognised is answered with fallback and a 500.
func writeError(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)

	var statusErr *ai.StatusError
	switch {
	case errors.Is(err, errUploadTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeTooLarge, err.Error())
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, textextract.ErrUnsupportedType):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrNoDocuments):
		response.Error(c, http.StatusBadRequest, response.CodeNoDocuments, err.Error())
	case errors.Is(err, app.ErrNoExtractedData):
		response.Error(c, http.StatusBadRequest, response.CodeNoExtractedData, err.Error())
	case errors.Is(err, app.ErrNoVisual):
		response.Error(c, http.StatusBadRequest, response.CodeNoVisual, err.Error())
	case errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
	case errors.Is(err, app.ErrRuleNotFound):
		response.Error(c, http.StatusNotFound, response.CodeRuleNotFound, err.Error())
	case errors.Is(err, app.ErrReferenceNotFound):
		response.Error(c, http.StatusNotFound, response.CodeReferenceNotFound, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	case errors.Is(err, app.ErrVersionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeVersionNotFound, err.Error())
	case errors.Is(err, app.ErrVisualInProgress):
		response.Error(c, http.StatusConflict, response.CodeVisualInProgress, err.Error())
	case errors.Is(err, app.ErrAsyncImportDisabled), errors.Is(err, ai.ErrGeminiNotConfigured):
		response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, err.Error())
	case errors.Is(err, app.ErrImportEnqueue):
		response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, err.Error())
	case errors.As(err, &statusErr), errors.Is(err, ai.ErrEmptyChoices):
		response.Error(c, http.StatusBadGateway, response.CodeUpstream, fallback)
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
