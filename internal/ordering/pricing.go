package ordering

import (
	"fmt"

	"tableorder-service/internal/apperr"

	"github.com/google/uuid"
)

type LineItemInput struct {
	MenuItemID          uuid.UUID   `json:"menuItemId"`
	VariationID         *uuid.UUID  `json:"variationId,omitempty"`
	AddonIDs            []uuid.UUID `json:"addonIds,omitempty"`
	Quantity            int32       `json:"quantity"`
	SpecialInstructions *string     `json:"specialInstructions,omitempty"`
}

type PricedLine struct {
	Input         LineItemInput
	Name          string
	UnitPrice     float64
	ExtendedPrice float64
}

// PriceLineItem resolves a line against a catalog snapshot. The variation
// price replaces the base price; addon prices are added on top.
func PriceLineItem(catalog map[uuid.UUID]MenuItem, line LineItemInput) (PricedLine, error) {
	if line.Quantity < 1 {
		return PricedLine{}, apperr.Validation("Quantity must be at least 1")
	}

	item, ok := catalog[line.MenuItemID]
	if !ok || !item.IsAvailable {
		return PricedLine{}, apperr.NotFound(apperr.CodeMenuItemNotFound, fmt.Sprintf("Menu item %s not found", line.MenuItemID))
	}

	unit := item.Price
	name := item.Name
	if line.VariationID != nil {
		variation, ok := item.variation(*line.VariationID)
		if !ok {
			return PricedLine{}, apperr.Validation(fmt.Sprintf("Variation %s does not belong to %s", *line.VariationID, item.Name))
		}
		unit = variation.Price
		name = item.Name + " (" + variation.Name + ")"
	}

	for _, addonID := range line.AddonIDs {
		addon, ok := item.addon(addonID)
		if !ok {
			return PricedLine{}, apperr.Validation(fmt.Sprintf("Addon %s does not belong to %s", addonID, item.Name))
		}
		unit += addon.Price
	}

	unit = round2(unit)
	return PricedLine{
		Input:         line,
		Name:          name,
		UnitPrice:     unit,
		ExtendedPrice: round2(unit * float64(line.Quantity)),
	}, nil
}

func priceLines(catalog map[uuid.UUID]MenuItem, lines []LineItemInput) ([]PricedLine, float64, error) {
	priced := make([]PricedLine, 0, len(lines))
	var subtotal float64
	for _, line := range lines {
		p, err := PriceLineItem(catalog, line)
		if err != nil {
			return nil, 0, err
		}
		subtotal = round2(subtotal + p.ExtendedPrice)
		priced = append(priced, p)
	}
	return priced, subtotal, nil
}
