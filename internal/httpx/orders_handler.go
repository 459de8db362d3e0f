package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/fornalha/pizzaria-orders/internal/metrics"
	"github.com/fornalha/pizzaria-orders/internal/orders"
	"github.com/fornalha/pizzaria-orders/internal/redisx"
	"github.com/fornalha/pizzaria-orders/internal/schedule"
)

type OrdersHandler struct {
	Service *orders.Service
	Redis   *redis.Client
	Metrics *metrics.Metrics
	Eval    *schedule.Evaluator
	Hours   func() schedule.WeekConfig
}

type createOrderResp struct {
	OrderID string `json:"order_id"`
}

type statusUpdateReq struct {
	Status orders.Status `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
	r.Patch("/orders/{id}/status", h.updateStatus)
	r.Delete("/orders/{id}", h.deleteOrder)
	r.Get("/status", h.establishmentStatus)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps the service error taxonomy onto HTTP. Persistence
// detail never reaches the response body.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orders.ErrEstablishmentClosed):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	id, err := h.Service.CreateOrder(r.Context(), in)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.Metrics.OrdersCreated.Inc()
	redisx.SetStatus(r.Context(), h.Redis, id, string(orders.StatusPending))
	writeJSON(w, http.StatusCreated, createOrderResp{OrderID: id})
}

// listOrders is the query interface: ?phone= narrows by the loose
// digit-substring match, no filter is the privileged staff view.
func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	f := orders.Filter{Phone: r.URL.Query().Get("phone")}
	out, err := h.Service.ListOrders(r.Context(), f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getOrderStatus serves the customer tracking poll through the Redis
// cache, falling back to the store on a miss.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s := redisx.GetStatus(r.Context(), h.Redis, id); s != "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": s})
		return
	}
	o, err := h.Service.GetOrder(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	redisx.SetStatus(r.Context(), h.Redis, id, string(o.Status))
	writeJSON(w, http.StatusOK, map[string]string{"status": string(o.Status)})
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.Service.AdvanceStatus(r.Context(), id, req.Status); err != nil {
		writeErr(w, err)
		return
	}
	h.Metrics.StatusChanges.Inc()
	redisx.SetStatus(r.Context(), h.Redis, id, string(req.Status))
	writeJSON(w, http.StatusOK, map[string]string{"order_id": id, "status": string(req.Status)})
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Service.RemoveOrder(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	redisx.DropStatus(r.Context(), h.Redis, id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) establishmentStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Eval.Status(h.Hours(), time.Now()))
}
