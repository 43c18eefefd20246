package handlers

import (
	"net/http"
	"strings"

	"tableorder-service/internal/ordering"
	"tableorder-service/pkg/response"

	"github.com/google/uuid"
)

type kotCreateRequest struct {
	OrderID uuid.UUID `json:"orderId"`
}

func (h *Handler) KOTCreate(w http.ResponseWriter, r *http.Request) {
	var body kotCreateRequest
	if err := decodeJSON(r, &body); err != nil || body.OrderID == uuid.Nil {
		writeBadRequest(w, "Order ID is required")
		return
	}
	order, err := h.Orders.GetOrder(r.Context(), body.OrderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !staffOwns(w, r, order.RestaurantID) {
		return
	}
	kot, err := h.Orders.GenerateKOT(r.Context(), body.OrderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, kot)
}

func (h *Handler) KOTDetail(w http.ResponseWriter, r *http.Request) {
	kotID, err := readPathUUID(r, "id")
	if err != nil {
		writeBadRequest(w, "Invalid KOT ID")
		return
	}
	kot, err := h.Orders.GetKOT(r.Context(), kotID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !staffOwns(w, r, kot.Order.RestaurantID) {
		return
	}
	response.Success(w, kot)
}

func (h *Handler) KOTListActive(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := readPathUUID(r, "restaurantId")
	if err != nil {
		writeBadRequest(w, "Invalid restaurant ID")
		return
	}
	if !staffOwns(w, r, restaurantID) {
		return
	}
	kots, err := h.Orders.ListActiveKOTs(r.Context(), restaurantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, kots)
}

func (h *Handler) KOTUpdateStatus(w http.ResponseWriter, r *http.Request) {
	kotID, err := readPathUUID(r, "id")
	if err != nil {
		writeBadRequest(w, "Invalid KOT ID")
		return
	}
	var body statusRequest
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	current, err := h.Orders.GetKOT(r.Context(), kotID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !staffOwns(w, r, current.Order.RestaurantID) {
		return
	}

	kot, err := h.Orders.UpdateKOTStatus(r.Context(), kotID, ordering.KOTStatus(strings.ToUpper(strings.TrimSpace(body.Status))))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, kot)
}
