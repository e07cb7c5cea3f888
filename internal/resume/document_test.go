package resume

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pdfContent = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")
	pngContent = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
)

func TestNewDetectsContentType(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		expect  string
	}{
		{name: "pdf", content: pdfContent, expect: TypePDF},
		{name: "plain text", content: []byte("Ana Souza\nGo developer\n"), expect: TypeText},
		{name: "png", content: pngContent, expect: "image/png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := New("dir/"+tt.name, "", tt.content)
			assert.Equal(t, tt.expect, doc.ContentType)
			assert.Equal(t, tt.name, doc.Name)
			assert.EqualValues(t, len(tt.content), doc.Size)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr bool
	}{
		{name: "pdf accepted", doc: New("cv.pdf", "", pdfContent)},
		{name: "explicit docx accepted", doc: New("cv.docx", TypeDOCX, []byte("PK"))},
		{name: "content type parameters ignored", doc: New("cv.txt", "text/plain; charset=utf-8", []byte("cv"))},
		{name: "png rejected", doc: New("photo.png", "", pngContent), wantErr: true},
		{name: "empty rejected", doc: New("empty.pdf", TypePDF, nil), wantErr: true},
		{name: "nil rejected", doc: nil, wantErr: true},
		{
			name:    "too large rejected",
			doc:     &Document{Name: "big.pdf", ContentType: TypePDF, Size: MaxSize + 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.doc)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestValidateAll(t *testing.T) {
	require.ErrorIs(t, ValidateAll(nil), ErrNoDocuments)

	err := ValidateAll([]*Document{New("cv.pdf", "", pdfContent), New("photo.png", "", pngContent)})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "photo.png", verr.Name)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "cv.pdf")
	require.NoError(t, os.WriteFile(path, pdfContent, 0o600))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "cv.pdf", doc.Name)
	assert.Equal(t, TypePDF, doc.ContentType)
	assert.True(t, bytes.Equal(pdfContent, doc.Content))

	_, err = Load(filepath.Join(dir, "missing.pdf"))
	require.Error(t, err)

	_, err = Load(dir)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	docs, err := LoadAll([]string{path, path})
	require.NoError(t, err)
	assert.Equal(t, []string{"cv.pdf", "cv.pdf"}, Names(docs))
}
