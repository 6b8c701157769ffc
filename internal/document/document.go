package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Supported MIME types.
const (
	MIMEPDF      = "application/pdf"
	MIMEDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEMarkdown = "text/markdown"
	MIMEText     = "text/plain"
)

var (
	// ErrUnsupportedFormat is returned for MIME types that cannot be parsed.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrParseFailure is returned when a supported file cannot be read.
	ErrParseFailure = errors.New("unable to parse document")
)

// Extensions lists the file patterns of supported documents.
var Extensions = []string{"*.pdf", "*.docx", "*.md", "*.markdown", "*.txt"}

var extensionTypes = map[string]string{
	".pdf":      MIMEPDF,
	".docx":     MIMEDOCX,
	".md":       MIMEMarkdown,
	".markdown": MIMEMarkdown,
	".mdown":    MIMEMarkdown,
	".mkd":      MIMEMarkdown,
	".txt":      MIMEText,
	".text":     MIMEText,
}

// Document is a parsed file. It is immutable once returned by Parse;
// paragraph indices are the identity used by the rest of the program.
type Document struct {
	FileName   string
	MIMEType   string
	Paragraphs []string
}

// Len returns the number of paragraphs.
func (d Document) Len() int {
	return len(d.Paragraphs)
}

// DetectMIMEType returns the MIME type for a file name based on its
// extension, or "" if the extension is not supported.
func DetectMIMEType(name string) string {
	return extensionTypes[strings.ToLower(filepath.Ext(name))]
}

// Supported reports whether the file name has a supported extension.
func Supported(name string) bool {
	return DetectMIMEType(name) != ""
}

// Parse extracts the paragraphs of a document. A document without any
// readable text is a ParseFailure, so callers never see an empty Document.
func Parse(fileName string, data []byte, mimeType string) (Document, error) {
	if mimeType == "" {
		mimeType = DetectMIMEType(fileName)
	}
	// Drop parameters such as "; charset=utf-8".
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	var (
		text string
		err  error
	)
	switch mimeType {
	case MIMEPDF:
		text, err = extractPDF(data)
	case MIMEDOCX:
		text, err = extractDOCX(data)
	case MIMEMarkdown:
		text, err = extractMarkdown(data)
	case MIMEText:
		text = string(data)
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mimeType)
	}
	if err != nil {
		return Document{}, fmt.Errorf("%w: %s: %w", ErrParseFailure, fileName, err)
	}

	paragraphs := SplitParagraphs(text)
	if len(paragraphs) == 0 {
		return Document{}, fmt.Errorf("%w: %s: no readable text", ErrParseFailure, fileName)
	}

	log.Debug("parsed document", "file", fileName, "type", mimeType, "paragraphs", len(paragraphs))

	return Document{
		FileName:   filepath.Base(fileName),
		MIMEType:   mimeType,
		Paragraphs: paragraphs,
	}, nil
}
