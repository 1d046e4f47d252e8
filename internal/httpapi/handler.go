// Package httpapi exposes the evaluation pipeline and its governance
// controls over HTTP for the mobile client.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/conjugo/gateway/internal/budget"
	"github.com/conjugo/gateway/internal/evaluator"
	"github.com/conjugo/gateway/internal/guard"
	"github.com/conjugo/gateway/internal/ledger"
	"github.com/conjugo/gateway/internal/provider/registry"
)

type Handler struct {
	eval   *evaluator.Evaluator
	ledger *ledger.Ledger
	budget *budget.Gate
}

func NewHandler(eval *evaluator.Evaluator, l *ledger.Ledger, gate *budget.Gate) *Handler {
	return &Handler{
		eval:   eval,
		ledger: l,
		budget: gate,
	}
}

type evaluateRequest struct {
	Verb     string `json:"verb"`
	Tense    string `json:"tense"`
	Sentence string `json:"sentence"`
}

func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	fb, err := h.eval.Evaluate(r.Context(), userID, req.Verb, req.Tense, req.Sentence)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fb)
}

func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := GetUserID(ctx)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	stats, err := h.ledger.Stats(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":          userID,
		"total_requests":   stats.TotalRequests,
		"total_cost_usd":   stats.TotalCost,
		"daily_cost_usd":   stats.DailyCost,
		"weekly_cost_usd":  stats.WeeklyCost,
		"monthly_cost_usd": stats.MonthlyCost,
		"rate":             h.eval.LimiterStats(userID),
	})
}

func (h *Handler) HandleUsageReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := GetUserID(ctx)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	if err := h.ledger.Reset(ctx, userID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) HandleLimits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := GetUserID(ctx)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	limits, err := h.budget.LimitsFor(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"budget":  limits,
		"rate":    h.eval.LimiterStats(userID),
	})
}

func (h *Handler) HandleSetBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := GetUserID(ctx)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var limits budget.Limits
	if err := json.NewDecoder(r.Body).Decode(&limits); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if limits.Daily.IsNegative() || limits.Weekly.IsNegative() || limits.Monthly.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "budget limits must not be negative"})
		return
	}

	if err := h.budget.SetLimits(ctx, userID, limits); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	effective, err := h.budget.LimitsFor(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"budget":  effective,
	})
}

// writeError maps pipeline errors onto HTTP statuses. Gate denials keep
// their detail so the app can show a countdown or the breached period.
func writeError(w http.ResponseWriter, err error) {
	var rl *evaluator.RateLimitedError
	var be *evaluator.BudgetExceededError
	var pce *evaluator.ProviderCallError

	switch {
	case errors.Is(err, guard.ErrInvalidInput),
		errors.Is(err, guard.ErrTooLong),
		errors.Is(err, evaluator.ErrNotASentence):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})

	case errors.As(err, &rl):
		w.Header().Set("Retry-After", strconv.Itoa(rl.WaitSeconds))
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":       err.Error(),
			"reason":      rl.Reason,
			"retry_after": rl.WaitSeconds,
		})

	case errors.As(err, &be):
		writeJSON(w, http.StatusPaymentRequired, map[string]interface{}{
			"error":        err.Error(),
			"period":       be.Period,
			"current_cost": be.CurrentCost,
			"limit":        be.Limit,
		})

	case errors.Is(err, evaluator.ErrInvalidCredential):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})

	case errors.Is(err, evaluator.ErrNoAPIKey),
		errors.Is(err, registry.ErrUnknownProvider),
		errors.Is(err, gobreaker.ErrOpenState):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})

	case errors.Is(err, evaluator.ErrProviderTimeout):
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": err.Error()})

	case errors.Is(err, evaluator.ErrProviderRateLimited):
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})

	case errors.As(err, &pce):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})

	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
