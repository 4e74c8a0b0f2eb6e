package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sofiene-feki/skands-server/internal/middleware"
	"github.com/sofiene-feki/skands-server/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StatusRequest represents the order status update payload
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderHandler handles HTTP requests for the order desk
type OrderHandler struct {
	orderService service.OrderService
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, maxBodyBytes int64, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes. createLimit guards the public
// checkout endpoint.
func (h *OrderHandler) RegisterRoutes(r chi.Router, createLimit func(http.Handler) http.Handler) {
	r.With(createLimit).Post("/order/create", h.Create)
	r.Get("/orders", h.List)
	r.Get("/orders/export", h.Export)
	r.Post("/orders/delivery", h.SendToDelivery)
	r.Get("/order/{id}", h.Get)
	r.Delete("/order/{id}", h.Delete)
	r.Put("/order/{id}/status", h.UpdateStatus)
}

// Create handles checkout submissions
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(w, r, h.maxBodyBytes)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	defer f.close()

	req, err := orderRequest(f)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	order, err := h.orderService.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Order created successfully",
		"order":   order,
	})
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	order, err := h.orderService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, nonNil(orders))
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := h.orderService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Order deleted successfully"})
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	var req StatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Order status updated",
		"order":   order,
	})
}

// SendToDelivery forwards a batch of shipments to the logistics provider
func (h *OrderHandler) SendToDelivery(w http.ResponseWriter, r *http.Request) {
	var shipments []json.RawMessage
	if err := decodeJSON(r, &shipments); err != nil {
		writeServiceError(w, h.logger, badRequest("No orders provided"))
		return
	}

	data, err := h.orderService.SendToDelivery(r.Context(), shipments)
	if err != nil {
		if service.IsValidation(err) {
			writeServiceError(w, h.logger, err)
			return
		}
		middleware.RespondWithJSON(w, http.StatusInternalServerError, map[string]string{
			"message": "Failed to send orders to delivery",
			"error":   err.Error(),
		})
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Orders sent to delivery successfully",
		"data":    data,
	})
}

// Export streams every order as a spreadsheet
func (h *OrderHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.orderService.Export(r.Context(), &buf); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("Failed to write order export", zap.Error(err))
	}
}

// orderRequest reads a checkout body. customer and items may arrive as JSON
// or as strings holding JSON; amounts may be numbers or numeric strings.
func orderRequest(f *form) (service.OrderRequest, error) {
	var req service.OrderRequest
	if _, err := f.decode("customer", &req.Customer); err != nil {
		return req, err
	}
	req.Items = f.values["items"]
	if method := f.text("paymentMethod"); method != nil {
		req.PaymentMethod = *method
	}
	for key, dst := range map[string]json.Unmarshaler{
		"shipping": &req.Shipping,
		"subtotal": &req.Subtotal,
		"total":    &req.Total,
	} {
		if v, ok := f.values[key]; ok {
			if err := dst.UnmarshalJSON(v); err != nil {
				return req, badRequest(fmt.Sprintf("%s must be a number", key))
			}
		}
	}
	return req, nil
}
