package http

import (
	"net/http"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/stats"
)

// handleDays lists day groups, newest first. Without year/month every bill is
// included.
func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePeriodParams(r.URL.Query(), stats.Period{})
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	days, err := s.ledger.Days(r.Context(), p)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(days).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePeriodParams(r.URL.Query(), s.ledger.CurrentPeriod())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	summary, err := s.ledger.Summary(r.Context(), p)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(summary).Write(w)
}

func (s *Server) handleCategoryStats(w http.ResponseWriter, r *http.Request) {
	p, typ, err := s.statsParams(r)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	sums, err := s.ledger.CategoryBreakdown(r.Context(), p, typ)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(sums).Write(w)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	p, typ, err := s.statsParams(r)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	series, err := s.ledger.Series(r.Context(), p, typ)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(series).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	typ, err := ParseTypeParam(r.URL.Query(), core.Expense)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(s.ledger.Categories(typ)).Write(w)
}

// statsParams reads the period (default: current month) and the transaction
// type (default: expense).
func (s *Server) statsParams(r *http.Request) (stats.Period, core.TransactionType, error) {
	q := r.URL.Query()
	p, err := ParsePeriodParams(q, s.ledger.CurrentPeriod())
	if err != nil {
		return stats.Period{}, "", err
	}
	typ, err := ParseTypeParam(q, core.Expense)
	if err != nil {
		return stats.Period{}, "", err
	}
	return p, typ, nil
}
