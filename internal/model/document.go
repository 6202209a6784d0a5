package model

import (
	"time"

	"github.com/google/uuid"
)

type DocumentType string

const (
	DocPDF  DocumentType = "pdf"
	DocDOCX DocumentType = "docx"
	DocTXT  DocumentType = "txt"
)

const MIMETypePDF = "application/pdf"

// MissingPDFTextPlaceholder stands in for a PDF whose text could not be extracted
// when the document goes to a text-only provider.
const MissingPDFTextPlaceholder = "[PDF Content: Warning - Text could not be extracted client-side. Output may be inaccurate.]"

// ReviewDocument is an uploaded proposal document. Content is raw text, or base64 for PDFs.
type ReviewDocument struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Content       string            `json:"content"`
	ExtractedText string            `json:"extractedText,omitempty"`
	Type          DocumentType      `json:"type"`
	MIMEType      string            `json:"mimeType"`
	Versions      []DocumentVersion `json:"versions,omitempty"`
}

// DocumentVersion is an immutable snapshot of a document's editable fields.
type DocumentVersion struct {
	ID            string `json:"id"`
	Timestamp     int64  `json:"timestamp"`
	Name          string `json:"name"`
	Content       string `json:"content"`
	ExtractedText string `json:"extractedText,omitempty"`
}

func NewID() string {
	return uuid.NewString()
}

func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// IsInlinePDF reports whether the document is a PDF carried as base64 bytes.
func (d ReviewDocument) IsInlinePDF() bool {
	return d.Type == DocPDF && d.MIMEType == MIMETypePDF
}

// PlainText is what a text-only provider sees for this document.
func (d ReviewDocument) PlainText() string {
	if d.Type != DocPDF {
		return d.Content
	}
	if d.ExtractedText != "" {
		return d.ExtractedText
	}
	return MissingPDFTextPlaceholder
}

// Snapshot prepends a copy of the live fields to the version list and returns it.
func (d *ReviewDocument) Snapshot() DocumentVersion {
	v := DocumentVersion{
		ID:            NewID(),
		Timestamp:     NowMillis(),
		Name:          d.Name,
		Content:       d.Content,
		ExtractedText: d.ExtractedText,
	}
	d.Versions = append([]DocumentVersion{v}, d.Versions...)
	return v
}

// Revert copies a stored version back onto the live document. The version list is untouched.
func (d *ReviewDocument) Revert(versionID string) bool {
	for _, v := range d.Versions {
		if v.ID == versionID {
			d.Name = v.Name
			d.Content = v.Content
			d.ExtractedText = v.ExtractedText
			return true
		}
	}
	return false
}

func (d ReviewDocument) Clone() ReviewDocument {
	out := d
	if d.Versions != nil {
		out.Versions = make([]DocumentVersion, len(d.Versions))
		copy(out.Versions, d.Versions)
	}
	return out
}

func CloneDocuments(docs []ReviewDocument) []ReviewDocument {
	if docs == nil {
		return nil
	}
	out := make([]ReviewDocument, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out
}
