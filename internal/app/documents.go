package app

import (
	"bytes"
	"encoding/base64"
	"errors"

	"smartaudit/internal/model"
	"smartaudit/internal/pkg/textextract"
)

// NewDocument parses an upload into a review document. PDFs keep their bytes as
// base64 content next to the extracted text, which is empty when extraction failed.
func NewDocument(fileName string, data []byte) (*model.ReviewDocument, error) {
	f, err := textextract.Extract(fileName, bytes.NewReader(data))
	if err != nil {
		return nil, errors.Join(ErrInvalidInput, err)
	}
	doc := &model.ReviewDocument{
		ID:            model.NewID(),
		Name:          fileName,
		Content:       f.Text,
		ExtractedText: f.Text,
		Type:          model.DocumentType(f.Type),
		MIMEType:      f.MIMEType,
	}
	if f.Type == textextract.TypePDF {
		doc.Content = base64.StdEncoding.EncodeToString(f.Raw)
	}
	return doc, nil
}
