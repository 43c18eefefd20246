package handlers

import (
	"net/http"

	"tableorder-service/internal/ordering"
	"tableorder-service/pkg/response"
)

// MenuList serves the public menu. Optional query filters: dietary, search.
func (h *Handler) MenuList(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := readPathUUID(r, "restaurantId")
	if err != nil {
		writeBadRequest(w, "Invalid restaurant ID")
		return
	}
	query := r.URL.Query()
	categories, err := h.Orders.ListMenu(r.Context(), restaurantID, ordering.MenuFilter{
		Dietary: query.Get("dietary"),
		Search:  query.Get("search"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, categories)
}
