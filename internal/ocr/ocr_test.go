package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/procurement-leads/internal/config"
)

func TestNewExtractor(t *testing.T) {
	ext, err := NewExtractor(config.OCRConfig{Provider: "local", PdfToTextPath: "/usr/bin/pdftotext"})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, ext)

	ext, err = NewExtractor(config.OCRConfig{})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, ext)

	ext, err = NewExtractor(config.OCRConfig{Provider: "mistral", MistralKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &MistralOCR{}, ext)
}

func TestNewExtractor_Errors(t *testing.T) {
	_, err := NewExtractor(config.OCRConfig{Provider: "mistral"})
	assert.ErrorContains(t, err, "requires ocr.mistral_key")

	_, err = NewExtractor(config.OCRConfig{Provider: "tesseract"})
	assert.ErrorContains(t, err, `unknown provider "tesseract"`)
}

func TestPdfToText_BinPath(t *testing.T) {
	assert.Equal(t, "pdftotext", NewPdfToText("").binPath)
	assert.Equal(t, "/custom/pdftotext", NewPdfToText("/custom/pdftotext").binPath)
}

// fakePdfToText writes a script that checks its arguments and prints the
// input file, standing in for poppler.
func fakePdfToText(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "pdftotext")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestPdfToText_ExtractText(t *testing.T) {
	bin := fakePdfToText(t, `[ "$1" = "-layout" ] || exit 2
[ "$3" = "-" ] || exit 3
cat "$2"
`)
	got, err := NewPdfToText(bin).ExtractText(context.Background(), []byte("ATA DA SESSÃO PÚBLICA"))
	require.NoError(t, err)
	assert.Equal(t, "ATA DA SESSÃO PÚBLICA", got)
}

func TestPdfToText_Failure(t *testing.T) {
	bin := fakePdfToText(t, "echo 'Syntax Error: Couldn'\\''t find trailer dictionary' >&2\nexit 1\n")
	_, err := NewPdfToText(bin).ExtractText(context.Background(), []byte("not a pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailer dictionary")
}

func TestPdfToText_MissingBinary(t *testing.T) {
	_, err := NewPdfToText(filepath.Join(t.TempDir(), "nope")).ExtractText(context.Background(), []byte("%PDF"))
	assert.Error(t, err)
}

func TestMistralOCR_DefaultModel(t *testing.T) {
	m := NewMistralOCR("key", "")
	assert.Equal(t, defaultMistralModel, m.model)
	assert.Equal(t, mistralOCREndpoint, m.endpoint)
}

func TestMistralOCR_ExtractText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req mistralOCRRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "document_url", req.Document.Type)
		assert.True(t, strings.HasPrefix(req.Document.DocumentURL, "data:application/pdf;base64,"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"pages":[{"index":0,"markdown":"Página 1"},{"index":1,"markdown":"Página 2"}]}`))
	}))
	defer srv.Close()

	m := NewMistralOCR("test-key", "")
	m.endpoint = srv.URL

	got, err := m.ExtractText(context.Background(), []byte("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, "Página 1\n\nPágina 2", got)
}

func TestMistralOCR_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Unauthorized"}`))
	}))
	defer srv.Close()

	m := NewMistralOCR("bad", "")
	m.endpoint = srv.URL

	_, err := m.ExtractText(context.Background(), []byte("%PDF"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
