package http

import (
	"net/http"
	"strconv"

	"github.com/Strob0t/settingsadmin/internal/domain/settings"
)

const settingNotFound = "Settings not found"

// ListSettings handles GET /settings?page=&page_size=
func (h *Handlers) ListSettings(w http.ResponseWriter, r *http.Request) {
	page, ok := queryInt(w, r, "page", 1)
	if !ok {
		return
	}
	pageSize, ok := queryInt(w, r, "page_size", settings.DefaultPageSize)
	if !ok {
		return
	}

	result, err := h.Settings.List(r.Context(), page, pageSize)
	if err != nil {
		writeDomainError(w, err, settingNotFound)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetSetting handles GET /settings/{id}
func (h *Handlers) GetSetting(w http.ResponseWriter, r *http.Request) {
	handleGet(h.Settings.Get, settingNotFound)(w, r)
}

// CreateSetting handles POST /settings
func (h *Handlers) CreateSetting(w http.ResponseWriter, r *http.Request) {
	handleCreate(h.bodyLimit(), h.Settings.Create)(w, r)
}

// UpdateSetting handles PUT /settings/{id}
func (h *Handlers) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	handleUpdate(h.bodyLimit(), h.Settings.Update, settingNotFound)(w, r)
}

// DeleteSetting handles DELETE /settings/{id}
func (h *Handlers) DeleteSetting(w http.ResponseWriter, r *http.Request) {
	handleDelete(h.Settings.Delete, settingNotFound)(w, r)
}

// queryInt parses an optional integer query parameter, writing 422 on garbage.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, name+" must be an integer")
		return 0, false
	}
	return n, true
}
