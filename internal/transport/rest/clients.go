package rest

import (
	"net/http"

	"github.com/samber/mo"

	"turnero/backend/internal/service/clients"
)

func (h *handler) listClients(w http.ResponseWriter, r *http.Request) {
	rows, err := h.clients.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]clientResponse, 0, len(rows))
	for _, c := range rows {
		out = append(out, toClientResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.clients.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientResponse(c))
}

func (h *handler) createClient(w http.ResponseWriter, r *http.Request) {
	var req clientInput
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.clients.Create(r.Context(), clients.Input{Name: req.Name, Phone: req.Phone, Notes: req.Notes})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientResponse(c))
}

func (h *handler) updateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req clientPatch
	if !h.decode(w, r, &req) {
		return
	}

	patch := clients.Patch{
		Name:  optional(req.Name),
		Phone: optional(req.Phone),
	}
	if req.Notes != nil {
		patch.Notes = mo.Some(req.Notes)
	}

	c, err := h.clients.Update(r.Context(), id, patch)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientResponse(c))
}

func (h *handler) deleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.clients.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
