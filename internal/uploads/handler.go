package uploads

import (
	"encoding/json"
	"net/http"

	"github.com/datafirstseo/booking-backend/pkg/logging"
)

// maxUploadBytes caps a single upload at 10 MiB.
const maxUploadBytes = 10 << 20

// Handler exposes the admin upload endpoint.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates an uploads handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Upload accepts one multipart file field named "file".
// POST /api/admin/uploads
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.store.Enabled() {
		jsonError(w, "uploads are not configured", http.StatusServiceUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		jsonError(w, "file exceeds the 10 MiB limit or the form is malformed", http.StatusRequestEntityTooLarge)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key, err := h.store.Put(r.Context(), header.Filename, contentType, file)
	if err != nil {
		h.logger.Error("upload failed", "filename", header.Filename, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}
