package drive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andresuchdata/dataset-relay/internal/domain"
	"github.com/gorilla/mux"
)

// Browser is the read side of the Drive service used by the HTTP routes.
type Browser interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	FindFolderByPath(ctx context.Context, path string) (string, error)
}

type Handler struct {
	browser         Browser
	defaultFolderID string
}

func NewHandler(browser Browser, defaultFolderID string) *Handler {
	return &Handler{
		browser:         browser,
		defaultFolderID: defaultFolderID,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/drive/files", h.ListFiles).Methods(http.MethodGet)
	router.HandleFunc("/api/drive/folders/resolve", h.ResolveFolder).Methods(http.MethodGet)
}

// Router returns a standalone mux router carrying the Drive routes.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	folderID := query.Get("folderId")
	folderPath := query.Get("path")

	var err error
	if folderPath != "" {
		// Find folder by path
		folderID, err = h.browser.FindFolderByPath(r.Context(), folderPath)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	if folderID == "" {
		folderID = h.defaultFolderID
	}

	files, err := h.browser.ListFiles(r.Context(), folderID)
	if err != nil {
		writeError(w, err)
		return
	}
	if files == nil {
		files = []*File{}
	}

	writeJSON(w, http.StatusOK, files)
}

func (h *Handler) ResolveFolder(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path parameter is required"})
		return
	}

	id, err := h.browser.FindFolderByPath(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"path": path, "id": id})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrNotFound) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
