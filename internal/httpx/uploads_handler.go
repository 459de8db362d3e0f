package httpx

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fornalha/pizzaria-orders/internal/orders"
)

// MaxProofBytes bounds the uploaded artifact. Images only; the proof
// is an opaque artifact, never a verified transaction.
const MaxProofBytes = 5 << 20

type UploadsHandler struct {
	Service *orders.Service
	Dir     string
	Log     *slog.Logger
}

type proofResp struct {
	URL        string `json:"url"`
	UploadedAt string `json:"uploaded_at"`
}

func (h *UploadsHandler) Register(r chi.Router) {
	r.Post("/orders/{id}/proof", h.uploadProof)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.Dir))))
}

func (h *UploadsHandler) uploadProof(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, MaxProofBytes)
	if err := r.ParseMultipartForm(MaxProofBytes); err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large or malformed form"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	ext, err := imageExt(header.Header.Get("Content-Type"), header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	name := fmt.Sprintf("%s-%s%s", orderID, uuid.NewString(), ext)
	dst := filepath.Join(h.Dir, name)
	out, err := os.Create(dst)
	if err != nil {
		h.Log.Error("proof write failed", "path", dst, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		h.Log.Error("proof write failed", "path", dst, "err", err)
		_ = os.Remove(dst)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	proof, err := h.Service.AttachProofOfPayment(r.Context(), orderID, "/uploads/"+name)
	if err != nil {
		_ = os.Remove(dst)
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, proofResp{
		URL:        proof.URL,
		UploadedAt: proof.UploadedAt.UTC().Format(time.RFC3339),
	})
}

func imageExt(contentType, filename string) (string, error) {
	switch contentType {
	case "image/jpeg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/webp":
		return ".webp", nil
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return ".jpg", nil
	case ".png":
		return ".png", nil
	case ".webp":
		return ".webp", nil
	}
	return "", fmt.Errorf("proof of payment must be a jpeg, png, or webp image")
}
