package httptransport

import (
	"net/http"

	"prosreg/pkg/domain"
	dErrors "prosreg/pkg/domain-errors"
	"prosreg/pkg/requestcontext"
)

func (h *Handler) handleDuplicateCases(w http.ResponseWriter, r *http.Request) {
	groups, err := h.duplicates.FindDuplicateCases(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (h *Handler) handleDuplicateNotices(w http.ResponseWriter, r *http.Request) {
	groups, err := h.duplicates.FindDuplicateNotices(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (h *Handler) handleDuplicateOffenders(w http.ResponseWriter, r *http.Request) {
	groups, err := h.duplicates.FindDuplicateOffenders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

type mergeRequest struct {
	MasterID     string   `json:"master_id"`
	DuplicateIDs []string `json:"duplicate_ids"`
}

// parse validates the raw merge body into typed IDs.
func (req mergeRequest) parse() (domain.OffenderID, []domain.OffenderID, error) {
	masterID, err := domain.ParseOffenderID(req.MasterID)
	if err != nil {
		return domain.OffenderID{}, nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid master_id")
	}
	duplicateIDs := make([]domain.OffenderID, 0, len(req.DuplicateIDs))
	for _, raw := range req.DuplicateIDs {
		id, err := domain.ParseOffenderID(raw)
		if err != nil {
			return domain.OffenderID{}, nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid duplicate id")
		}
		duplicateIDs = append(duplicateIDs, id)
	}
	return masterID, duplicateIDs, nil
}

func (h *Handler) handleMergePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req mergeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	masterID, duplicateIDs, err := req.parse()
	if err != nil {
		writeError(w, err)
		return
	}

	preview, err := h.merger.PreviewMerge(ctx, masterID, duplicateIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *Handler) handleMergeExecute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req mergeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	masterID, duplicateIDs, err := req.parse()
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.merger.ExecuteMerge(ctx, masterID, duplicateIDs)
	if err != nil {
		h.logger.WarnContext(ctx, "merge failed",
			"request_id", requestcontext.RequestID(ctx),
			"master_id", req.MasterID,
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
