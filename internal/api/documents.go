package api

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mathmate-ai/mathmate/internal/extract"
)

// UploadDocument accepts a PDF/DOCX/TXT file, extracts its text, analyzes
// it with the model, and adds it to the shared knowledge base. The upload
// file itself is removed once the text is extracted.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		Error(w, http.StatusBadRequest, "No file provided")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		Error(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		Error(w, http.StatusBadRequest, "No file selected")
		return
	}
	if !extract.Allowed(header.Filename) {
		Error(w, http.StatusBadRequest, "Unsupported file type")
		return
	}

	// Write to a uniquely named file so concurrent uploads of the same
	// filename cannot clobber each other.
	filename := filepath.Base(header.Filename)
	path := filepath.Join(h.cfg.UploadDir, uuid.NewString()+"_"+filename)
	if err := saveUpload(path, file); err != nil {
		slog.Error("failed to save upload", "filename", filename, "error", err)
		Error(w, http.StatusInternalServerError, "Upload failed")
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			slog.Warn("failed to remove upload file", "path", path, "error", err)
		}
	}()

	content, err := extract.Text(path, filename)
	if err != nil {
		slog.Warn("text extraction failed", "filename", filename, "error", err)
		Error(w, http.StatusBadRequest, "Could not extract text from file")
		return
	}

	doc, err := h.tutor.IngestDocument(r.Context(), filename, content)
	if err != nil {
		slog.Error("document ingestion failed", "filename", filename, "error", err)
		status, msg := providerError(err)
		Error(w, status, "Failed to process document: "+msg)
		return
	}

	slog.Info("document added to knowledge base", "document_id", doc.ID, "filename", filename)

	JSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"document_id": doc.ID,
		"filename":    doc.Filename,
		"analysis":    doc.Analysis,
		"message":     "Document processed successfully!",
	})
}

func saveUpload(path string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
