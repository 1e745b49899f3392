// Package cart exposes the cart verification endpoint.
package cart

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pedidos/internal/common"
	"github.com/noah-isme/backend-pedidos/internal/pricing"
)

// Verifier prices a cart. *pricing.Engine satisfies it.
type Verifier interface {
	VerifyCartTotals(ctx context.Context, lines []pricing.CartLine) (pricing.Report, error)
}

// Handler wires the pricing engine to HTTP.
type Handler struct {
	Verifier Verifier
	Logger   zerolog.Logger
}

type verifyRequest struct {
	Items json.RawMessage `json:"items"`
}

// VerifyTotals recomputes the cart total from catalog data and returns the report.
func (h *Handler) VerifyTotals(w http.ResponseWriter, r *http.Request) {
	if h.Verifier == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing engine not configured", nil)
		return
	}
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Request body must contain an array of items.", nil)
		return
	}
	lines, err := pricing.ParseCartLines(req.Items)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	report, err := h.Verifier.VerifyCartTotals(r.Context(), lines)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, report)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.StatusOf(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("cart verification failed")
	}
	common.WriteAppError(w, err)
}
