package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// =============================================================================
// RECURRING TEMPLATE HANDLERS
// =============================================================================
//
//   GET    /api/recurring                 List (?active=true)
//   POST   /api/recurring                 Create
//   GET    /api/recurring/due             Templates due today
//   POST   /api/recurring/run-due         Execute everything due now
//   GET    /api/recurring/runner          Background runner status
//   GET    /api/recurring/{id}            Get
//   PUT    /api/recurring/{id}            Patch
//   DELETE /api/recurring/{id}            Delete (keeps produced transactions)
//   POST   /api/recurring/{id}/execute    Execute now, ignoring the schedule
//   POST   /api/recurring/{id}/skip       Skip the pending occurrence
//   POST   /api/recurring/{id}/active     {"active": bool}

func (h *Handler) ListRecurring(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := queryBool(r, "active")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	templates, err := h.Scheduler.List(r.Context(), activeOnly)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]RecurringDTO, len(templates))
	for i, t := range templates {
		dtos[i] = h.toRecurringDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) DueRecurring(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Scheduler.Due(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]RecurringDTO, len(templates))
	for i, t := range templates {
		dtos[i] = h.toRecurringDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req CreateRecurringRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	t, err := h.Scheduler.Create(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toRecurringDTO(*t))
}

func (h *Handler) GetRecurring(w http.ResponseWriter, r *http.Request) {
	t, err := h.Scheduler.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toRecurringDTO(*t))
}

func (h *Handler) UpdateRecurring(w http.ResponseWriter, r *http.Request) {
	var req UpdateRecurringRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := req.toPatch()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	t, err := h.Scheduler.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toRecurringDTO(*t))
}

func (h *Handler) DeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := h.Scheduler.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExecuteRecurring runs one template now. Execution failures come back as
// 200 with success=false, like a batch entry.
func (h *Handler) ExecuteRecurring(w http.ResponseWriter, r *http.Request) {
	res, err := h.Scheduler.ManualExecute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ExecutionResultDTO{
		TemplateID:    res.TemplateID,
		TransactionID: res.TransactionID,
		Success:       res.Success,
		Error:         res.Error,
	})
}

func (h *Handler) SkipRecurring(w http.ResponseWriter, r *http.Request) {
	t, err := h.Scheduler.Skip(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toRecurringDTO(*t))
}

func (h *Handler) SetRecurringActive(w http.ResponseWriter, r *http.Request) {
	var req SetActiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.Scheduler.SetActive(r.Context(), chi.URLParam(r, "id"), req.Active)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toRecurringDTO(*t))
}

// RunDue executes every due template through the runner.
// POST /api/recurring/run-due
func (h *Handler) RunDue(w http.ResponseWriter, r *http.Request) {
	results, err := h.Runner.RunNow(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExecutionResultDTOs(results))
}

// RunnerStatus reports the background runner's last batch.
// GET /api/recurring/runner
func (h *Handler) RunnerStatus(w http.ResponseWriter, r *http.Request) {
	last, results := h.Runner.LastRun()
	status := RunnerStatusDTO{
		Interval:    h.Runner.Interval.String(),
		LastResults: toExecutionResultDTOs(results),
	}
	if !last.IsZero() {
		status.LastRun = &last
	}
	if next := h.Runner.NextRunTime(); !next.IsZero() {
		status.NextRun = timePtr(next)
	}
	writeJSON(w, http.StatusOK, status)
}

func timePtr(t time.Time) *time.Time { return &t }
