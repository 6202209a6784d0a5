package textextract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	TypePDF  = "pdf"
	TypeDOCX = "docx"
	TypeTXT  = "txt"
)

var ErrUnsupportedType = errors.New("unsupported file type")

// File is an uploaded document after type detection and text extraction.
type File struct {
	Name     string
	Type     string
	MIMEType string
	Raw      []byte
	// Text is empty when the file carried no extractable text.
	Text string
}

// DetectType maps a file name to one of the supported document types.
func DetectType(name string) (string, string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return TypePDF, "application/pdf", nil
	case ".docx":
		return TypeDOCX, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", nil
	case ".txt", ".md", ".csv":
		return TypeTXT, "text/plain", nil
	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(name))
	}
}

// Extract reads r fully and pulls plain text out of it according to its extension.
// PDFs whose text cannot be read return a File with empty Text and no error.
func Extract(name string, r io.Reader) (*File, error) {
	fileType, mimeType, err := DetectType(name)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s failed: %w", name, err)
	}

	f := &File{Name: name, Type: fileType, MIMEType: mimeType, Raw: raw}
	switch fileType {
	case TypePDF:
		text, err := PDFText(raw)
		if err == nil {
			f.Text = text
		}
	case TypeDOCX:
		text, err := DOCXText(raw)
		if err != nil {
			return nil, fmt.Errorf("parse docx %s failed: %w", name, err)
		}
		f.Text = text
	case TypeTXT:
		if !utf8.Valid(raw) {
			return nil, fmt.Errorf("decode %s failed: not valid utf-8", name)
		}
		f.Text = string(raw)
	}
	return f, nil
}

// PDFText extracts plain text from a PDF. Returns empty string and nil error if the PDF has no extractable text.
// The pdf package panics on malformed input; that is reported as an error.
func PDFText(b []byte) (text string, err error) {
	if len(b) == 0 {
		return "", nil
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parse pdf failed: %v", r)
		}
	}()
	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", err
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// DOCXText concatenates the paragraph text of word/document.xml.
func DOCXText(b []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", err
	}
	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", errors.New("word/document.xml not found")
	}
	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var (
		out     strings.Builder
		inText  bool
		decoder = xml.NewDecoder(rc)
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				out.WriteByte('\t')
			case "br":
				out.WriteByte('\n')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				out.Write(el)
			}
		}
	}
	return strings.TrimSpace(out.String()), nil
}
