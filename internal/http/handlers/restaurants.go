package handlers

import (
	"net/http"

	"tableorder-service/pkg/response"
)

// RestaurantDetail is public so the table landing page can show the name.
func (h *Handler) RestaurantDetail(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := readPathUUID(r, "id")
	if err != nil {
		writeBadRequest(w, "Invalid restaurant ID")
		return
	}
	restaurant, err := h.Orders.GetRestaurant(r.Context(), restaurantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, restaurant)
}

func (h *Handler) RestaurantAnalytics(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := readPathUUID(r, "restaurantId")
	if err != nil {
		writeBadRequest(w, "Invalid restaurant ID")
		return
	}
	if !staffOwns(w, r, restaurantID) {
		return
	}
	stats, err := h.Orders.RestaurantStats(r.Context(), restaurantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, stats)
}
