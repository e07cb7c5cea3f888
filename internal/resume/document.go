package resume

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxSize is the largest résumé the backend accepts.
const MaxSize = 10 << 20

const (
	TypePDF  = "application/pdf"
	TypeDOC  = "application/msword"
	TypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	TypeText = "text/plain"
)

var allowedTypes = map[string]struct{}{
	TypePDF:  {},
	TypeDOC:  {},
	TypeDOCX: {},
	TypeText: {},
}

// ErrNoDocuments is returned when an upload contains nothing.
var ErrNoDocuments = errors.New("at least one resume is required")

// Document is an in-memory résumé file ready to be uploaded.
type Document struct {
	Name        string
	ContentType string
	Size        int64
	Content     []byte
}

// ValidationError describes why a document was rejected before upload.
type ValidationError struct {
	Name   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("resume %q rejected: %s", e.Name, e.Reason)
}

// New wraps raw bytes into a document, detecting the content type when it is not given.
func New(name, contentType string, content []byte) *Document {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = detect(content)
	}

	return &Document{
		Name:        filepath.Base(name),
		ContentType: contentType,
		Size:        int64(len(content)),
		Content:     content,
	}
}

// Load reads a document from disk. Files over MaxSize are rejected without being read.
func Load(path string) (*Document, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if stat.IsDir() {
		return nil, &ValidationError{Name: filepath.Base(path), Reason: "is a directory"}
	}

	if stat.Size() > MaxSize {
		return nil, &ValidationError{
			Name:   filepath.Base(path),
			Reason: fmt.Sprintf("size %d exceeds the %d bytes limit", stat.Size(), MaxSize),
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading resume %q: %w", path, err)
	}

	return New(path, "", content), nil
}

// LoadAll loads every path, stopping at the first failure.
func LoadAll(paths []string) ([]*Document, error) {
	docs := make([]*Document, 0, len(paths))
	for _, path := range paths {
		doc, err := Load(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// Validate checks the document type and size.
func Validate(doc *Document) error {
	if doc == nil {
		return &ValidationError{Name: "<nil>", Reason: "document is empty"}
	}

	if doc.Size == 0 {
		return &ValidationError{Name: doc.Name, Reason: "file is empty"}
	}

	if doc.Size > MaxSize {
		return &ValidationError{
			Name:   doc.Name,
			Reason: fmt.Sprintf("size %d exceeds the %d bytes limit", doc.Size, MaxSize),
		}
	}

	if !Allowed(doc.ContentType) {
		return &ValidationError{
			Name:   doc.Name,
			Reason: fmt.Sprintf("unsupported type %s (allowed: pdf, doc, docx, txt)", doc.ContentType),
		}
	}

	return nil
}

// ValidateAll validates a batch; an empty batch is an error.
func ValidateAll(docs []*Document) error {
	if len(docs) == 0 {
		return ErrNoDocuments
	}

	for _, doc := range docs {
		if err := Validate(doc); err != nil {
			return err
		}
	}

	return nil
}

// Allowed reports whether the content type (parameters ignored) can be uploaded.
func Allowed(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}

	_, ok := allowedTypes[mediaType]
	return ok
}

// Names returns the file names of the documents, in order.
func Names(docs []*Document) []string {
	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		names = append(names, doc.Name)
	}
	return names
}

func detect(content []byte) string {
	mtype := mimetype.Detect(content)
	// Old .doc files are detected as generic OLE containers.
	for m := mtype; m != nil; m = m.Parent() {
		for allowed := range allowedTypes {
			if m.Is(allowed) {
				return allowed
			}
		}
		if m.Is("application/x-ole-storage") {
			return TypeDOC
		}
	}
	return mtype.String()
}
