package response

import "github.com/gin-gonic/gin"

const (
	CodeOK                = 0
	CodeBadRequest        = 40000
	CodeNoDocuments       = 40001
	CodeNoExtractedData   = 40002
	CodeNoVisual          = 40003
	CodeUnauthorized      = 40100
	CodeNotFound          = 40400
	CodeSessionNotFound   = 40401
	CodeRuleNotFound      = 40402
	CodeReferenceNotFound = 40403
	CodeDocumentNotFound  = 40404
	CodeVersionNotFound   = 40405
	CodeVisualInProgress  = 40900
	CodeTooLarge          = 41300
	CodeInternalServer    = 50000
	CodeUpstream          = 50200
	CodeUnavailable       = 50300
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}
