// Package contact forwards contact-form submissions to the site owner.
package contact

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/datafirstseo/booking-backend/pkg/logging"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// maxMessageLen keeps contact messages to a sane size.
const maxMessageLen = 5000

// Notifier delivers the forwarded message.
type Notifier interface {
	ContactMessage(name, email, message string)
}

// Handler exposes the contact endpoint.
type Handler struct {
	notifier Notifier
	logger   *logging.Logger
}

// NewHandler creates a contact handler.
func NewHandler(notifier Notifier, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{notifier: notifier, logger: logger}
}

// Request is the contact form payload.
type Request struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Submit validates and forwards a contact message. Delivery is
// asynchronous; the response only acknowledges acceptance.
// POST /api/contact
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(req.Name)
	message := strings.TrimSpace(req.Message)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	switch {
	case name == "":
		jsonError(w, "name is required", http.StatusBadRequest)
		return
	case !emailPattern.MatchString(email):
		jsonError(w, "email is not valid", http.StatusBadRequest)
		return
	case message == "":
		jsonError(w, "message is required", http.StatusBadRequest)
		return
	case len(message) > maxMessageLen:
		jsonError(w, "message is too long", http.StatusBadRequest)
		return
	}

	if h.notifier != nil {
		h.notifier.ContactMessage(name, email, message)
	}
	h.logger.Info("contact message accepted", "email", email)
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "thanks, we'll be in touch"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
