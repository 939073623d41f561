package httptransport

import (
	"net/http"

	legislationmodels "prosreg/internal/legislation/models"
	offendermodels "prosreg/internal/offender/models"
	"prosreg/pkg/requestcontext"
)

type resolveOffenderResponse struct {
	OffenderID string `json:"offender_id"`
}

func (h *Handler) handleResolveOffender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var attrs offendermodels.Attributes
	if err := decodeJSON(r, &attrs); err != nil {
		writeError(w, err)
		return
	}

	id, err := h.offenders.ResolveOrCreate(ctx, attrs)
	if err != nil {
		h.logger.WarnContext(ctx, "offender resolution failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveOffenderResponse{OffenderID: id.String()})
}

type resolveLegislationResponse struct {
	LegislationID string `json:"legislation_id"`
}

func (h *Handler) handleResolveLegislation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var ref legislationmodels.Ref
	if err := decodeJSON(r, &ref); err != nil {
		writeError(w, err)
		return
	}

	id, err := h.legislation.ResolveOrCreate(ctx, ref)
	if err != nil {
		h.logger.WarnContext(ctx, "legislation resolution failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveLegislationResponse{LegislationID: id.String()})
}

type resolveLegislationBatchRequest struct {
	Refs []legislationmodels.Ref `json:"refs"`
}

type resolveLegislationBatchResponse struct {
	Resolved map[string]string `json:"resolved"`
}

func (h *Handler) handleResolveLegislationBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resolveLegislationBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resolved, err := h.legislation.ResolveBatch(ctx, req.Refs)
	if err != nil {
		h.logger.WarnContext(ctx, "legislation batch resolution failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}

	response := resolveLegislationBatchResponse{Resolved: make(map[string]string, len(resolved))}
	for title, id := range resolved {
		response.Resolved[title] = id.String()
	}
	writeJSON(w, http.StatusOK, response)
}
