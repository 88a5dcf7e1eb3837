package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ShopLedger/internal/auth"
	"ShopLedger/pkg/kit"
)

const maxBodyBytes = 1 << 20

type Server struct {
	Ledger  *Ledger
	Journal *Journal
	Log     *zap.Logger
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := s.Journal.Ping(ctx); err != nil {
		if s.Log != nil {
			s.Log.Warn("readyz failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"tick":          s.Ledger.Tick(),
		"refund_window": s.Ledger.RefundWindow(),
		"products":      len(s.Ledger.Products()),
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		p, err := s.Ledger.ProductByName(name)
		if err != nil {
			s.writeLedgerError(w, r, err)
			return
		}
		kit.WriteJSON(w, http.StatusOK, p)
		return
	}

	kit.WriteJSON(w, http.StatusOK, s.Ledger.Products())
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	p, err := s.Ledger.ProductByID(id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) buyers(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	buyers, err := s.Ledger.ProductBuyers(id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "buyers": buyers})
}

type addReq struct {
	Name     string `json:"name"`
	Quantity uint64 `json:"quantity"`
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req addReq
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := s.Ledger.AddProduct(caller, req.Name, req.Quantity)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, p)
}

type quantityReq struct {
	Quantity uint64 `json:"quantity"`
}

func (s *Server) updateQuantity(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var req quantityReq
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := s.Ledger.UpdateProductQuantity(caller, id, req.Quantity)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) buy(w http.ResponseWriter, r *http.Request) {
	c, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}

	p, err := s.Ledger.BuyProduct(c, id)
	if err != nil {
		if errors.Is(err, ErrZeroQuantity) {
			kit.WriteError(w, r, http.StatusConflict, "out of stock", map[string]any{"id": id})
			return
		}
		s.writeLedgerError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) refund(w http.ResponseWriter, r *http.Request) {
	c, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}

	p, err := s.Ledger.RefundProduct(c, id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) getRefundWindow(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, map[string]uint64{"ticks": s.Ledger.RefundWindow()})
}

type windowReq struct {
	Ticks uint64 `json:"ticks"`
}

func (s *Server) setRefundWindow(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req windowReq
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.Ledger.SetRefundWindow(caller, req.Ticks); err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, map[string]uint64{"ticks": req.Ticks})
}

type transferReq struct {
	NextOwner string `json:"next_owner"`
}

func (s *Server) transferOwner(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req transferReq
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.Ledger.TransferOwnership(caller, Identity(req.NextOwner)); err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	kit.WriteNoContent(w)
}

func callerIdentity(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	c, ok := auth.CallerFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "no caller", nil)
		return "", false
	}
	return Identity(c.ID), true
}

func productID(w http.ResponseWriter, r *http.Request) (ProductID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad product id", map[string]any{"id": raw})
		return 0, false
	}
	return ProductID(id), true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return false
	}
	return true
}

func (s *Server) writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	var ua *UnauthorizedError

	switch {
	case errors.As(err, &ua):
		kit.WriteError(w, r, http.StatusForbidden, "owner only", map[string]any{"caller": string(ua.Caller)})
	case errors.Is(err, ErrProductNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "not found", nil)
	case errors.Is(err, ErrEmptyName), errors.Is(err, ErrZeroQuantity), errors.Is(err, ErrEmptyIdentity):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrAlreadyPurchased), errors.Is(err, ErrNotPurchased), errors.Is(err, ErrRefundExpired):
		kit.WriteError(w, r, http.StatusConflict, err.Error(), nil)
	default:
		if s.Log != nil {
			s.Log.Error("ledger operation failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}
