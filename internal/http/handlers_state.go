package http

import (
	"net/http"
	"time"

	"cashplet/internal/app"
	"cashplet/internal/auth"
	"cashplet/internal/core"
)

type stateRequest struct {
	View  string `json:"view"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type stateResponse struct {
	View  string `json:"view"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// appSessionFor returns the per-user application session and its state,
// creating both on first access. The KV is namespaced by user id so two
// users never share a persisted view.
func (s *Server) appSessionFor(user auth.User) (app.Session, app.State) {
	kv := userKV{inner: s.kv, prefix: user.ID + ":"}
	sess := app.Session{
		User:        user,
		Coordinator: s.coordinatorFor(user.ID),
		Ledger:      s.store,
		KV:          kv,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.appStates[user.ID]
	if !ok {
		st = app.NewState(kv, time.Now())
		s.appStates[user.ID] = st
	}
	return sess, st
}

func (s *Server) saveAppState(owner string, st app.State) {
	s.mu.Lock()
	s.appStates[owner] = st
	s.mu.Unlock()
}

func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request, user auth.User) {
	_, st := s.appSessionFor(user)
	writeJSON(w, http.StatusOK, toStateResponse(st))
}

func (s *Server) handlePutState(w http.ResponseWriter, r *http.Request, user auth.User) {
	var req stateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, st := s.appSessionFor(user)

	if req.View != "" {
		st = sess.SetView(st, app.View(req.View))
	}
	if req.Start != "" || req.End != "" {
		dr := st.Range
		if req.Start != "" {
			t, err := time.Parse("2006-01-02", req.Start)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid start date, expected YYYY-MM-DD")
				return
			}
			dr.Start = core.DateOf(t)
		}
		if req.End != "" {
			t, err := time.Parse("2006-01-02", req.End)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid end date, expected YYYY-MM-DD")
				return
			}
			dr.End = core.DateOf(t)
		}
		st = sess.SetDateRange(st, dr)
	}

	s.saveAppState(user.ID, st)
	writeJSON(w, http.StatusOK, toStateResponse(st))
}

// handleDashboard loads the ledger through the application session and
// evaluates every dashboard figure over the session's analytics range.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, user auth.User) {
	sess, st := s.appSessionFor(user)

	st, err := sess.Load(r.Context(), st)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load ledger")
		return
	}
	s.saveAppState(user.ID, st)

	totals := st.RangeTotals()
	goals := st.BudgetGoals()
	goalsOut := make([]map[string]any, 0, len(goals))
	for _, g := range goals {
		goalsOut = append(goalsOut, map[string]any{
			"category":    g.Category,
			"target":      g.Target.String(),
			"spent":       g.Spent.String(),
			"percent":     g.Percent.String(),
			"over_budget": g.OverBudget,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"view":         string(st.View),
		"start":        st.Range.Start.Format("2006-01-02"),
		"end":          st.Range.End.Format("2006-01-02"),
		"income":       totals.Income.String(),
		"expense":      totals.Expense.String(),
		"savings_rate": totals.SavingsRate,
		"net_worth":    st.NetWorth().String(),
		"goals":        goalsOut,
		"ledger":       toLedgerDTO(st.Snapshot),
	})
}

func toStateResponse(st app.State) stateResponse {
	return stateResponse{
		View:  string(st.View),
		Start: st.Range.Start.Format("2006-01-02"),
		End:   st.Range.End.Format("2006-01-02"),
	}
}

// userKV namespaces every key with the owning user's id.
type userKV struct {
	inner  app.KV
	prefix string
}

func (kv userKV) Get(key string) (string, bool) { return kv.inner.Get(kv.prefix + key) }
func (kv userKV) Set(key, value string) error   { return kv.inner.Set(kv.prefix+key, value) }
