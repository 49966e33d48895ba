package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/gateway"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

// transactionRequest is the wire form of a transaction submission. A
// positive Installments count asks for the submission to be expanded into
// a monthly installment group.
type transactionRequest struct {
	Description  string               `json:"description"`
	Amount       core.Money           `json:"amount"`
	Type         core.TransactionType `json:"type"`
	Category     core.Category        `json:"category"`
	Date         core.Date            `json:"date"`
	DueDate      core.Date            `json:"dueDate"`
	Installments int                  `json:"installments"`
}

type adjustRequest struct {
	Amount core.Money `json:"amount"`
}

type investmentRequest struct {
	Name         string              `json:"name"`
	Type         core.InvestmentType `json:"type"`
	InitialValue core.Money          `json:"initialValue"`
	CurrentValue core.Money          `json:"currentValue"`
	PurchaseDate core.Date           `json:"purchaseDate"`
}

type summaryView struct {
	Year              int        `json:"year"`
	Month             int        `json:"month"`
	MonthlyIncome     core.Money `json:"monthlyIncome"`
	MonthlyExpense    core.Money `json:"monthlyExpense"`
	Balance           core.Money `json:"balance"`
	InvestmentInitial core.Money `json:"investmentInitial"`
	InvestmentCurrent core.Money `json:"investmentCurrent"`
	InvestmentProfit  core.Money `json:"investmentProfit"`
}

type categoryAmountView struct {
	Category core.Category `json:"category"`
	Amount   core.Money    `json:"amount"`
}

// ledgerEntryView is one row of the grouped listing: a standalone
// transaction, or a recurring group collapsed to its representative.
type ledgerEntryView struct {
	Transaction  core.Transaction   `json:"transaction"`
	GroupID      string             `json:"groupId,omitempty"`
	Size         int                `json:"size"`
	Installments []core.Transaction `json:"installments,omitempty"`
}

type dashboardResponse struct {
	Summary        summaryView          `json:"summary"`
	Breakdown      []categoryAmountView `json:"breakdown"`
	Notifications  []core.Transaction   `json:"notifications"`
	RecentActivity []ledgerEntryView    `json:"recentActivity"`
	Investments    []core.Investment    `json:"investments"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	today := core.DayOf(s.now())
	key := "dashboard:" + today.String()
	if payload, ok := s.dashboardCache.Get(key); ok {
		writeCachedJSON(w, payload)
		return
	}

	txs, invs, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	summary := core.Summarize(txs, invs, today)
	resp := dashboardResponse{
		Summary: summaryView{
			Year:              summary.Year,
			Month:             summary.Month,
			MonthlyIncome:     summary.MonthlyIncome,
			MonthlyExpense:    summary.MonthlyExpense,
			Balance:           summary.Balance,
			InvestmentInitial: summary.InvestmentInitial,
			InvestmentCurrent: summary.InvestmentCurrent,
			InvestmentProfit:  summary.InvestmentProfit,
		},
		Breakdown:      breakdownViews(core.CategoryBreakdown(core.MonthExpenses(txs, today))),
		Notifications:  orEmptyTxs(core.Notifications(txs, today)),
		RecentActivity: entryViews(core.RecentActivity(txs, today)),
		Investments:    orEmptyInvs(invs),
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.dashboardCache.Set(key, payload)
	writeCachedJSON(w, payload)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	today := core.DayOf(s.now())
	key := "ledger:" + today.String()
	if payload, ok := s.ledgerCache.Get(key); ok {
		writeCachedJSON(w, payload)
		return
	}

	txs, _, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	payload, err := json.Marshal(entryViews(core.GroupLedger(txs, today)))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ledgerCache.Set(key, payload)
	writeCachedJSON(w, payload)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	// Any positive installment count means the client asked for a recurring
	// plan; counts below two are rejected by the expander.
	if req.Installments > 0 {
		ids, err := s.svc.CreateRecurring(r.Context(), services.RecurringInput{
			Description:  req.Description,
			Amount:       req.Amount,
			Category:     req.Category,
			Date:         req.Date,
			FirstDueDate: req.DueDate,
			Installments: req.Installments,
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.invalidateViews()
		writeJSON(w, http.StatusCreated, map[string]any{"ids": ids})
		return
	}

	id, err := s.svc.CreateTransaction(r.Context(), services.TransactionInput{
		Description: req.Description,
		Amount:      req.Amount,
		Type:        req.Type,
		Category:    req.Category,
		Date:        req.Date,
		DueDate:     req.DueDate,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateViews()
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := s.svc.UpdateTransaction(r.Context(), r.PathValue("id"), services.TransactionInput{
		Description: req.Description,
		Amount:      req.Amount,
		Type:        req.Type,
		Category:    req.Category,
		Date:        req.Date,
		DueDate:     req.DueDate,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateViews()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateViews()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.MarkPaid(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateViews()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdjustAmount(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.svc.AdjustAmount(r.Context(), r.PathValue("id"), req.Amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateViews()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteGroup(r.Context(), r.PathValue("groupID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateViews()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateInvestment(w http.ResponseWriter, r *http.Request) {
	var req investmentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := s.svc.CreateInvestment(r.Context(), services.InvestmentInput{
		Name:         req.Name,
		Type:         req.Type,
		InitialValue: req.InitialValue,
		CurrentValue: req.CurrentValue,
		PurchaseDate: req.PurchaseDate,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateViews()
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleDeleteInvestment(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteInvestment(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateViews()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.svc.Export(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="fintrack-backup.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if err := s.svc.Import(r.Context(), data); err != nil {
		if errors.Is(err, services.ErrInvalidDocument) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.writeError(w, r, err)
		return
	}
	s.invalidateViews()
	w.WriteHeader(http.StatusNoContent)
}

func entryViews(entries []core.Entry) []ledgerEntryView {
	out := make([]ledgerEntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, ledgerEntryView{
			Transaction:  e.Representative,
			GroupID:      e.GroupID,
			Size:         e.Size(),
			Installments: e.Installments,
		})
	}
	return out
}

func breakdownViews(breakdown []core.CategoryAmount) []categoryAmountView {
	out := make([]categoryAmountView, 0, len(breakdown))
	for _, b := range breakdown {
		out = append(out, categoryAmountView{Category: b.Category, Amount: b.Amount})
	}
	return out
}

func orEmptyTxs(txs []core.Transaction) []core.Transaction {
	if txs == nil {
		return []core.Transaction{}
	}
	return txs
}

func orEmptyInvs(invs []core.Investment) []core.Investment {
	if invs == nil {
		return []core.Investment{}
	}
	return invs
}

// decodeBody parses a JSON request body, answering 400 on malformed input.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeCachedJSON(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// validationErrors are the domain rejections answered with 422.
var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrInvalidType,
	core.ErrInvalidCategory,
	core.ErrInvalidStatus,
	core.ErrMissingDate,
	core.ErrMissingDueDate,
	core.ErrNotPayable,
	core.ErrEmptyName,
	core.ErrTooFewInstallments,
	services.ErrNonPositiveDelta,
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		status = http.StatusNotFound
	default:
		for _, ve := range validationErrors {
			if errors.Is(err, ve) {
				status = http.StatusUnprocessableEntity
				break
			}
		}
	}

	if status == http.StatusInternalServerError {
		s.httpLog.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, r.Method,
			applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, ""))
	}
	http.Error(w, err.Error(), status)
}
