package http

import (
	"errors"
	"net/http"
	"time"

	"cashplet/internal/auth"
	"cashplet/internal/core"
	"cashplet/internal/services"
	"cashplet/internal/store"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

type userDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type recordRequest struct {
	Amount    string `json:"amount"`
	Kind      string `json:"kind"`
	Category  string `json:"category"`
	AccountID string `json:"account_id"`
	Note      string `json:"note"`
}

type accountRequest struct {
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

type categoryRequest struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

type accountDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

type categoryDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

type recordDTO struct {
	ID          string    `json:"id"`
	Amount      string    `json:"amount"`
	Kind        string    `json:"kind"`
	Category    string    `json:"category"`
	AccountID   string    `json:"account_id"`
	AccountName string    `json:"account_name"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
}

type ledgerDTO struct {
	Accounts   []accountDTO  `json:"accounts"`
	Categories []categoryDTO `json:"categories"`
	Records    []recordDTO   `json:"records"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := s.auth.SignUp(r.Context(), sanitizeInput(req.Email), req.Password)
	if err != nil {
		var authErr *auth.Error
		if errors.As(err, &authErr) {
			writeError(w, http.StatusBadRequest, authErr.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		Token: sess.Token,
		User:  userDTO{ID: sess.User.ID, Email: sess.User.Email},
	})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := s.auth.SignIn(r.Context(), sanitizeInput(req.Email), req.Password)
	if err != nil {
		var authErr *auth.Error
		if errors.As(err, &authErr) {
			writeError(w, http.StatusUnauthorized, authErr.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, "sign in failed")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Token: sess.Token,
		User:  userDTO{ID: sess.User.ID, Email: sess.User.Email},
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		s.auth.Revoke(token)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request, user auth.User) {
	snap, err := s.coordinatorFor(user.ID).Refresh(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load ledger")
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(snap))
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request, user auth.User) {
	var req recordRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := s.coordinatorFor(user.ID).CreateRecord(r.Context(), recordFromRequest(req, user.ID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save record")
		return
	}
	if snap == nil {
		// Validation guard: incomplete submissions are dropped silently.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(*snap))
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request, user auth.User) {
	var req recordRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := r.PathValue("id")
	snap, err := s.coordinatorFor(user.ID).UpdateRecord(r.Context(), id, recordFromRequest(req, user.ID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update record")
		return
	}
	if snap == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(*snap))
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request, user auth.User) {
	// The interactive confirmation prompt maps to an explicit query flag.
	confirmed := r.URL.Query().Get("confirm") == "true"
	confirm := services.ConfirmFunc(func(string) bool { return confirmed })

	id := r.PathValue("id")
	snap, err := s.coordinatorFor(user.ID).DeleteRecord(r.Context(), user.ID, id, confirm)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete record")
		return
	}
	if snap == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(*snap))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request, user auth.User) {
	var req accountRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := sanitizeInput(req.Name)
	if name == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	account, err := s.store.InsertAccount(r.Context(), core.Account{
		Name:    name,
		Balance: core.ParseOptionalAmount(req.Balance),
		Owner:   user.ID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(account))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request, user auth.User) {
	err := s.store.DeleteAccount(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, user auth.User) {
	var req categoryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := sanitizeInput(req.Name)
	if name == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	kind := core.Kind(req.Kind)
	if req.Kind == "" {
		kind = core.KindExpense
	}
	if !kind.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid category kind")
		return
	}

	category, err := s.store.InsertCategory(r.Context(), core.Category{
		Name:   name,
		Kind:   kind,
		Target: core.ParseOptionalAmount(req.Target),
		Owner:  user.ID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create category")
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(category))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, user auth.User) {
	err := s.store.DeleteCategory(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRangeSummary(w http.ResponseWriter, r *http.Request, user auth.User) {
	dr, err := parseDateRange(r, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	records, err := s.store.ListRecords(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load records")
		return
	}

	totals := core.AggregateRange(records, dr)
	writeJSON(w, http.StatusOK, map[string]any{
		"start":        dr.Start.Format("2006-01-02"),
		"end":          dr.End.Format("2006-01-02"),
		"income":       totals.Income.String(),
		"expense":      totals.Expense.String(),
		"savings_rate": totals.SavingsRate,
	})
}

func (s *Server) handleCategorySpend(w http.ResponseWriter, r *http.Request, user auth.User) {
	records, err := s.store.ListRecords(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load records")
		return
	}

	spend := core.SpendByCategory(records)
	out := make(map[string]string, len(spend))
	for name, amount := range spend {
		out[name] = amount.String()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBudgetGoals(w http.ResponseWriter, r *http.Request, user auth.User) {
	snap, err := s.coordinatorFor(user.ID).Refresh(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load ledger")
		return
	}

	goals := core.BudgetGoals(snap.Categories, core.SpendByCategory(snap.Records))
	out := make([]map[string]any, 0, len(goals))
	for _, g := range goals {
		out = append(out, map[string]any{
			"category":    g.Category,
			"target":      g.Target.String(),
			"spent":       g.Spent.String(),
			"percent":     g.Percent.String(),
			"over_budget": g.OverBudget,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleNetWorth(w http.ResponseWriter, r *http.Request, user auth.User) {
	accounts, err := s.store.ListAccounts(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load accounts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"net_worth": core.NetWorth(accounts).String(),
	})
}

// recordFromRequest builds a record, leaving the amount zero when the
// input does not parse so the coordinator's guard drops it silently.
func recordFromRequest(req recordRequest, owner string) core.Record {
	amount, _ := core.ParseAmount(req.Amount)

	kind := core.Kind(req.Kind)
	if req.Kind == "" {
		kind = core.KindExpense
	}

	return core.Record{
		Amount:    amount,
		Kind:      kind,
		Category:  sanitizeInput(req.Category),
		AccountID: req.AccountID,
		Note:      sanitizeInput(req.Note),
		Owner:     owner,
	}
}

func toLedgerDTO(snap core.LedgerSnapshot) ledgerDTO {
	out := ledgerDTO{
		Accounts:   make([]accountDTO, 0, len(snap.Accounts)),
		Categories: make([]categoryDTO, 0, len(snap.Categories)),
		Records:    make([]recordDTO, 0, len(snap.Records)),
	}
	for _, a := range snap.Accounts {
		out.Accounts = append(out.Accounts, toAccountDTO(a))
	}
	for _, c := range snap.Categories {
		out.Categories = append(out.Categories, toCategoryDTO(c))
	}
	for _, r := range snap.Records {
		out.Records = append(out.Records, recordDTO{
			ID:          r.ID,
			Amount:      r.Amount.String(),
			Kind:        string(r.Kind),
			Category:    r.Category,
			AccountID:   r.AccountID,
			AccountName: snap.AccountLabel(r.AccountID),
			Note:        r.Note,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out
}

func toAccountDTO(a core.Account) accountDTO {
	return accountDTO{ID: a.ID, Name: a.Name, Balance: a.Balance.String()}
}

func toCategoryDTO(c core.Category) categoryDTO {
	return categoryDTO{ID: c.ID, Name: c.Name, Kind: string(c.Kind), Target: c.Target.String()}
}
