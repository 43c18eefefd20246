package handlers

import (
	"fmt"
	"net/http"

	"tableorder-service/internal/middleware"
	"tableorder-service/internal/ordering"
	"tableorder-service/internal/receipt"
	"tableorder-service/pkg/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type billRequest struct {
	TableID uuid.UUID `json:"tableId"`
}

func (h *Handler) BillGenerate(w http.ResponseWriter, r *http.Request) {
	var body billRequest
	if err := decodeJSON(r, &body); err != nil || body.TableID == uuid.Nil {
		writeBadRequest(w, "Table ID is required")
		return
	}
	table, err := h.Orders.GetTable(r.Context(), body.TableID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !staffOwns(w, r, table.RestaurantID) {
		return
	}
	bill, err := h.Orders.GenerateBill(r.Context(), body.TableID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, bill)
}

func (h *Handler) BillDiscount(w http.ResponseWriter, r *http.Request) {
	var body ordering.DiscountInput
	if err := decodeJSON(r, &body); err != nil || body.OrderID == uuid.Nil || body.Amount == nil {
		writeBadRequest(w, "Order ID and discount amount are required")
		return
	}
	current, err := h.Orders.GetOrder(r.Context(), body.OrderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !staffOwns(w, r, current.RestaurantID) {
		return
	}
	order, err := h.Orders.ApplyDiscount(r.Context(), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, order)
}

type paymentRequest struct {
	OrderID       uuid.UUID `json:"orderId"`
	PaymentMethod string    `json:"paymentMethod"`
}

func (h *Handler) BillPayment(w http.ResponseWriter, r *http.Request) {
	var body paymentRequest
	if err := decodeJSON(r, &body); err != nil || body.OrderID == uuid.Nil {
		writeBadRequest(w, "Order ID and payment method are required")
		return
	}
	method, ok := ordering.ParsePaymentMethod(body.PaymentMethod)
	if !ok {
		writeBadRequest(w, "Invalid payment method")
		return
	}
	current, err := h.Orders.GetOrder(r.Context(), body.OrderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !staffOwns(w, r, current.RestaurantID) {
		return
	}
	result, err := h.Orders.ProcessPayment(r.Context(), body.OrderID, method)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, result)
}

// BillRequest lets a seated customer ask staff for the bill.
func (h *Handler) BillRequest(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetCustomerSession(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Session token required")
		return
	}
	bill, err := h.Orders.RequestBill(r.Context(), session.TableID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, bill)
}

func (h *Handler) BillPDF(w http.ResponseWriter, r *http.Request) {
	tableID, err := readPathUUID(r, "tableId")
	if err != nil {
		writeBadRequest(w, "Invalid table ID")
		return
	}
	table, err := h.Orders.GetTable(r.Context(), tableID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !callerCanSeeTable(r, table.ID, table.RestaurantID) {
		writeForbidden(w)
		return
	}
	bill, err := h.Orders.GenerateBill(r.Context(), tableID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	header, err := receipt.LoadHeader(r.Context(), h.DB, tableID)
	if err != nil {
		h.Logger.Warn("bill header unavailable", zap.String("tableId", tableID.String()), zap.Error(err))
		header = receipt.Header{TableNumber: table.TableNumber}
	}
	body, err := receipt.RenderBill(bill, header)
	if err != nil {
		h.Logger.Error("render bill pdf failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to render bill")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"bill-%s.pdf\"", table.TableNumber))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
