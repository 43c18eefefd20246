package handlers

import (
	"net/http"
	"strings"
	"time"

	"tableorder-service/internal/middleware"
	"tableorder-service/internal/ordering"
	"tableorder-service/pkg/response"
)

type placeOrderRequest struct {
	Items               []ordering.LineItemInput `json:"items"`
	SpecialInstructions *string                  `json:"specialInstructions"`
}

// OrderCreate places an order for the table and customer of the session.
func (h *Handler) OrderCreate(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetCustomerSession(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Session token required")
		return
	}
	var body placeOrderRequest
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	order, err := h.Orders.PlaceOrder(r.Context(), ordering.PlaceOrderInput{
		RestaurantID:        session.RestaurantID,
		TableID:             session.TableID,
		CustomerID:          session.Customer.ID,
		Items:               body.Items,
		SpecialInstructions: body.SpecialInstructions,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, order)
}

func (h *Handler) OrderDetail(w http.ResponseWriter, r *http.Request) {
	orderID, err := readPathUUID(r, "id")
	if err != nil {
		writeBadRequest(w, "Invalid order ID")
		return
	}
	order, err := h.Orders.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !callerCanSeeTable(r, order.TableID, order.RestaurantID) {
		writeForbidden(w)
		return
	}
	response.Success(w, order)
}

func (h *Handler) OrderListByTable(w http.ResponseWriter, r *http.Request) {
	tableID, err := readPathUUID(r, "tableId")
	if err != nil {
		writeBadRequest(w, "Invalid table ID")
		return
	}
	if session, ok := middleware.GetCustomerSession(r.Context()); ok {
		if session.TableID != tableID {
			writeForbidden(w)
			return
		}
	} else {
		table, err := h.Orders.GetTable(r.Context(), tableID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if !staffOwns(w, r, table.RestaurantID) {
			return
		}
	}

	orders, err := h.Orders.ListTableOrders(r.Context(), tableID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, orders)
}

func (h *Handler) OrderListActive(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := readPathUUID(r, "restaurantId")
	if err != nil {
		writeBadRequest(w, "Invalid restaurant ID")
		return
	}
	if !staffOwns(w, r, restaurantID) {
		return
	}
	orders, err := h.Orders.ListActiveOrders(r.Context(), restaurantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, orders)
}

func parseDateParam(value string, endOfDay bool) (*time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, true
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, true
}

func (h *Handler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := readPathUUID(r, "restaurantId")
	if err != nil {
		writeBadRequest(w, "Invalid restaurant ID")
		return
	}
	if !staffOwns(w, r, restaurantID) {
		return
	}

	query := r.URL.Query()
	filter := ordering.HistoryFilter{
		RestaurantID: restaurantID,
		Page:         queryInt(r, "page", 1),
		Limit:        queryInt(r, "limit", 0),
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, ok := ordering.ParseOrderStatus(raw)
		if !ok {
			writeBadRequest(w, "Invalid order status")
			return
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(query.Get("paymentStatus")); raw != "" {
		status := ordering.PaymentStatus(strings.ToUpper(raw))
		if status != ordering.PaymentPaid && status != ordering.PaymentUnpaid {
			writeBadRequest(w, "Invalid payment status")
			return
		}
		filter.PaymentStatus = &status
	}
	var ok bool
	if filter.From, ok = parseDateParam(query.Get("startDate"), false); !ok {
		writeBadRequest(w, "Invalid startDate")
		return
	}
	if filter.To, ok = parseDateParam(query.Get("endDate"), true); !ok {
		writeBadRequest(w, "Invalid endDate")
		return
	}

	page, err := h.Orders.OrderHistory(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, page)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) OrderUpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := readPathUUID(r, "id")
	if err != nil {
		writeBadRequest(w, "Invalid order ID")
		return
	}
	var body statusRequest
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	current, err := h.Orders.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !staffOwns(w, r, current.RestaurantID) {
		return
	}

	order, err := h.Orders.UpdateOrderStatus(r.Context(), orderID, ordering.OrderStatus(strings.ToUpper(strings.TrimSpace(body.Status))))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, order)
}
