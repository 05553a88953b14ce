package handlers

import (
	"log"
	"net/http"

	"github.com/fahry-ali/hadirku-deploy/internal/attendance"
	"github.com/fahry-ali/hadirku-deploy/internal/database"
	"github.com/fahry-ali/hadirku-deploy/internal/web/middleware"
)

// FaceHandler handles face registration and registration status.
type FaceHandler struct {
	controller *attendance.Controller
	embeddings database.EmbeddingReader
}

// NewFaceHandler creates a new face handler.
func NewFaceHandler(controller *attendance.Controller, embeddings database.EmbeddingReader) *FaceHandler {
	return &FaceHandler{
		controller: controller,
		embeddings: embeddings,
	}
}

// Register handles POST /face/register. The frame must contain exactly one
// face; re-registration overwrites the previous embedding.
func (h *FaceHandler) Register(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	frame, err := readFrame(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.controller.RegisterFace(r.Context(), id.ID, id.Name, frame)
	if err != nil {
		log.Printf("face registration failed for identity %d: %v", id.ID, err)
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	if !res.Stored {
		respondRejection(w, res.Reason, "")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"stored":  true,
		"backend": res.Backend,
		"dim":     res.Dim,
	})
}

// Status handles GET /face/status.
func (h *FaceHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	registered, err := h.embeddings.HasEmbedding(r.Context(), id.ID)
	if err != nil {
		log.Printf("face status lookup failed for identity %d: %v", id.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to check face status")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"registered": registered,
	})
}
