package ordering

import (
	"time"

	"github.com/google/uuid"
)

type Dietary string

const (
	DietaryVeg    Dietary = "VEG"
	DietaryNonVeg Dietary = "NON_VEG"
	DietaryEgg    Dietary = "EGG"
	DietaryVegan  Dietary = "VEGAN"
)

type MenuItem struct {
	ID             uuid.UUID   `json:"id"`
	RestaurantID   uuid.UUID   `json:"restaurantId"`
	Category       string      `json:"category"`
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	Price          float64     `json:"price"`
	Dietary        Dietary     `json:"dietaryType"`
	IsCustomizable bool        `json:"isCustomizable"`
	IsAvailable    bool        `json:"isAvailable"`
	Variations     []Variation `json:"variations"`
	Addons         []Addon     `json:"addons"`
}

type Variation struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price float64   `json:"price"`
}

type Addon struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price float64   `json:"price"`
}

func (m MenuItem) variation(id uuid.UUID) (Variation, bool) {
	for _, v := range m.Variations {
		if v.ID == id {
			return v, true
		}
	}
	return Variation{}, false
}

func (m MenuItem) addon(id uuid.UUID) (Addon, bool) {
	for _, a := range m.Addons {
		if a.ID == id {
			return a, true
		}
	}
	return Addon{}, false
}

type TableStatus string

const (
	TableAvailable TableStatus = "AVAILABLE"
	TableOccupied  TableStatus = "OCCUPIED"
	TableReserved  TableStatus = "RESERVED"
	TableCleaning  TableStatus = "CLEANING"
)

type Table struct {
	ID            uuid.UUID   `json:"id"`
	RestaurantID  uuid.UUID   `json:"restaurantId"`
	TableNumber   string      `json:"tableNumber"`
	Capacity      int32       `json:"capacity"`
	Status        TableStatus `json:"status"`
	CurrentAmount float64     `json:"currentAmount"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

type TableDetail struct {
	Table
	Orders []Order `json:"orders"`
}

type OrderStatus string

const (
	OrderPlaced    OrderStatus = "PLACED"
	OrderPreparing OrderStatus = "PREPARING"
	OrderReady     OrderStatus = "READY"
	OrderServed    OrderStatus = "SERVED"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "UNPAID"
	PaymentPaid   PaymentStatus = "PAID"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCard   PaymentMethod = "CARD"
	PaymentUPI    PaymentMethod = "UPI"
	PaymentOnline PaymentMethod = "ONLINE"
)

type Order struct {
	ID                  uuid.UUID      `json:"id"`
	RestaurantID        uuid.UUID      `json:"restaurantId"`
	TableID             uuid.UUID      `json:"tableId"`
	CustomerID          uuid.UUID      `json:"customerId"`
	OrderNumber         string         `json:"orderNumber"`
	Items               []OrderItem    `json:"items"`
	Subtotal            float64        `json:"subtotal"`
	Tax                 float64        `json:"tax"`
	Discount            float64        `json:"discount"`
	DiscountReason      *string        `json:"discountReason,omitempty"`
	Total               float64        `json:"total"`
	Status              OrderStatus    `json:"status"`
	PaymentStatus       PaymentStatus  `json:"paymentStatus"`
	PaymentMethod       *PaymentMethod `json:"paymentMethod,omitempty"`
	PaidAt              *time.Time     `json:"paidAt,omitempty"`
	SpecialInstructions *string        `json:"specialInstructions,omitempty"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

type OrderItem struct {
	ID                  uuid.UUID   `json:"id"`
	OrderID             uuid.UUID   `json:"orderId"`
	MenuItemID          uuid.UUID   `json:"menuItemId"`
	VariationID         *uuid.UUID  `json:"variationId,omitempty"`
	Name                string      `json:"name"`
	UnitPrice           float64     `json:"price"`
	Quantity            int32       `json:"quantity"`
	AddonIDs            []uuid.UUID `json:"addonIds"`
	SpecialInstructions *string     `json:"specialInstructions,omitempty"`
}

type KOTStatus string

const (
	KOTPending   KOTStatus = "PENDING"
	KOTPrinted   KOTStatus = "PRINTED"
	KOTPreparing KOTStatus = "PREPARING"
	KOTReady     KOTStatus = "READY"
	KOTServed    KOTStatus = "SERVED"
)

type KOT struct {
	ID          uuid.UUID  `json:"id"`
	OrderID     uuid.UUID  `json:"orderId"`
	KOTNumber   string     `json:"kotNumber"`
	Status      KOTStatus  `json:"status"`
	PrintedAt   *time.Time `json:"printedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Order       *Order     `json:"order,omitempty"`
}

type Bill struct {
	TableID   uuid.UUID `json:"tableId"`
	Orders    []Order   `json:"orders"`
	Subtotal  float64   `json:"subtotal"`
	Tax       float64   `json:"tax"`
	Discount  float64   `json:"discount"`
	Total     float64   `json:"total"`
	ItemCount int       `json:"itemCount"`
}
