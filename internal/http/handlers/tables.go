package handlers

import (
	"net/http"

	"tableorder-service/internal/middleware"
	"tableorder-service/internal/ordering"
	"tableorder-service/pkg/response"

	"github.com/google/uuid"
)

func (h *Handler) TableList(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := readPathUUID(r, "restaurantId")
	if err != nil {
		writeBadRequest(w, "Invalid restaurant ID")
		return
	}
	if !staffOwns(w, r, restaurantID) {
		return
	}
	tables, err := h.Orders.ListTables(r.Context(), restaurantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, tables)
}

func (h *Handler) TableDetail(w http.ResponseWriter, r *http.Request) {
	tableID, err := readPathUUID(r, "id")
	if err != nil {
		writeBadRequest(w, "Invalid table ID")
		return
	}
	table, err := h.Orders.GetTable(r.Context(), tableID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !staffOwns(w, r, table.RestaurantID) {
		return
	}
	response.Success(w, table)
}

func (h *Handler) TableCreate(w http.ResponseWriter, r *http.Request) {
	var body ordering.CreateTableInput
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	if body.RestaurantID == uuid.Nil {
		if staff, ok := middleware.GetStaff(r.Context()); ok {
			body.RestaurantID = staff.RestaurantID
		}
	}
	if !staffOwns(w, r, body.RestaurantID) {
		return
	}
	table, err := h.Orders.CreateTable(r.Context(), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, table)
}

type tableStatusRequest struct {
	Status        string   `json:"status"`
	CurrentAmount *float64 `json:"currentAmount"`
}

func (h *Handler) TableUpdateStatus(w http.ResponseWriter, r *http.Request) {
	tableID, err := readPathUUID(r, "id")
	if err != nil {
		writeBadRequest(w, "Invalid table ID")
		return
	}
	var body tableStatusRequest
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	status, ok := ordering.ParseTableStatus(body.Status)
	if !ok {
		writeBadRequest(w, "Invalid table status")
		return
	}

	current, err := h.Orders.GetTable(r.Context(), tableID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !staffOwns(w, r, current.RestaurantID) {
		return
	}

	table, err := h.Orders.UpdateTableStatus(r.Context(), tableID, ordering.TableStatusInput{
		Status:        status,
		CurrentAmount: body.CurrentAmount,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, table)
}

func (h *Handler) TableUpdate(w http.ResponseWriter, r *http.Request) {
	tableID, err := readPathUUID(r, "id")
	if err != nil {
		writeBadRequest(w, "Invalid table ID")
		return
	}
	var body ordering.UpdateTableInput
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	current, err := h.Orders.GetTable(r.Context(), tableID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !staffOwns(w, r, current.RestaurantID) {
		return
	}

	table, err := h.Orders.UpdateTable(r.Context(), tableID, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, table)
}

func (h *Handler) TableDelete(w http.ResponseWriter, r *http.Request) {
	tableID, err := readPathUUID(r, "id")
	if err != nil {
		writeBadRequest(w, "Invalid table ID")
		return
	}
	current, err := h.Orders.GetTable(r.Context(), tableID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !staffOwns(w, r, current.RestaurantID) {
		return
	}
	if err := h.Orders.DeleteTable(r.Context(), tableID); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, map[string]string{"message": "Table deleted successfully"})
}
