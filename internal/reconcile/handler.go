package reconcile

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	reconciler *Reconciler
}

func NewHandler(reconciler *Reconciler) *Handler {
	return &Handler{reconciler: reconciler}
}

// Routes mounts the maintenance endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/reconcile", h.handleReconcile)
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if err := h.reconciler.Reconcile(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
