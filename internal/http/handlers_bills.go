package http

import (
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	"ledger/internal/log"
)

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.ledger.List(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(bills).Write(w)
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req BillRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	b, err := req.Bill()
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}

	stored, err := s.ledger.Create(r.Context(), b)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.billsCreated, 1)
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogBillChanged(r.Context(), log.OpCreate, stored.ID, stored.Type.String(), stored.Amount.Cents, stored.Category)

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/bills/"+strconv.FormatInt(stored.ID, 10)).
		Data(stored).
		Write(w)
}

// handleUpdateBill replaces a bill. An unknown id answers 204 like a real
// update so clients need no special case.
func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req BillRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	b, err := req.Bill()
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}
	b.ID = id

	found, err := s.ledger.Update(r.Context(), b)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	if found {
		atomic.AddInt64(&s.appMetrics.billsUpdated, 1)
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogBillChanged(r.Context(), log.OpUpdate, b.ID, b.Type.String(), b.Amount.Cents, b.Category)
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	found, err := s.ledger.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if found {
		atomic.AddInt64(&s.appMetrics.billsDeleted, 1)
		log.FromContext(r.Context()).InfoContext(r.Context(), "Bill deleted",
			log.FieldBillID, id, log.FieldOperation, log.OpDelete)
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleReset wipes and re-seeds the ledger. A missing body counts as an
// unconfirmed request.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := DecodeJSONBody(w, r, &req); err != nil && !errors.Is(err, ErrEmptyBody) {
		writeBodyError(w, r, err)
		return
	}
	seeded, err := s.ledger.Reset(r.Context(), req.Confirm)
	if err != nil {
		writeError(w, r, log.OpReset, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.resets, 1)
	NewJSONResponse().Data(map[string]bool{"reset": true, "seeded": seeded}).Write(w)
}
