package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mergemodels "prosreg/internal/merge/models"
	"prosreg/pkg/domain"
	dErrors "prosreg/pkg/domain-errors"
)

type createReviewRequest struct {
	MasterID     string   `json:"master_id"`
	DuplicateIDs []string `json:"duplicate_ids"`
	Score        float64  `json:"score"`
}

func (h *Handler) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	masterID, duplicateIDs, err := mergeRequest{MasterID: req.MasterID, DuplicateIDs: req.DuplicateIDs}.parse()
	if err != nil {
		writeError(w, err)
		return
	}

	review, err := h.merger.CreateReview(ctx, masterID, duplicateIDs, req.Score)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *Handler) handleListReviews(w http.ResponseWriter, r *http.Request) {
	status := mergemodels.ReviewStatus(r.URL.Query().Get("status"))

	reviews, err := h.merger.ListReviews(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

type decideReviewRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

func (h *Handler) handleDecideReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reviewID, err := domain.ParseReviewID(chi.URLParam(r, "reviewID"))
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid review id"))
		return
	}

	var req decideReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	review, err := h.merger.DecideReview(ctx, reviewID, mergemodels.ReviewStatus(req.Status), req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}
