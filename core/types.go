package core

import "time"

// Role identifies the class of an authenticated user.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleAdmin || r == RoleStaff
}

// Identity is the authenticated user record held by the session store.
// Exactly one Identity is active at a time, or none (anonymous).
type Identity struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email,omitempty"`
	Username           string `json:"username,omitempty"`
	Role               Role   `json:"role"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`
	Mobile             string `json:"mobile,omitempty"`
	IsVerified         bool   `json:"isVerified,omitempty"`
}

// Category groups menu entries. The backend may send a category as a bare
// id or as a populated object; after normalization at least ID is set.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Slug      string `json:"slug,omitempty"`
	SortOrder int    `json:"sortOrder,omitempty"`
}

// MenuEntry is a purchasable catalog item mirrored from the backend.
// Instances are produced exclusively by the api package's normalization;
// the client never originates a MenuEntry id.
type MenuEntry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Category    Category `json:"category"`
	Description string   `json:"description,omitempty"`
	Available   bool     `json:"available"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// CartLine is one locally staged (item, quantity) pair prior to checkout.
// Quantity is always >= 1; a line reduced to zero is removed, not kept.
type CartLine struct {
	ItemID   string  `json:"itemId"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	ImageURL string  `json:"imageUrl,omitempty"`
}

// OrderStatus is the lifecycle state of an order. Forward chain:
// placed -> preparing -> ready -> served. Cancellation is only reachable
// from placed. served and cancelled are terminal.
type OrderStatus string

const (
	StatusPlaced    OrderStatus = "placed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusServed    OrderStatus = "served"
	StatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further transition exists from s.
func (s OrderStatus) Terminal() bool {
	return s == StatusServed || s == StatusCancelled
}

// OrderItem is a snapshot of a cart line taken at order placement.
// Snapshots decouple the submitted order from later cart mutation.
type OrderItem struct {
	ItemID string  `json:"menuItem"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Qty    int     `json:"qty"`
}

// Order is a server-confirmed purchase record. Total is the authoritative
// amount as returned by the backend and is never recomputed client-side
// after confirmation.
type Order struct {
	ID          string      `json:"id"`
	StudentID   string      `json:"studentId,omitempty"`
	StudentName string      `json:"studentName,omitempty"`
	Items       []OrderItem `json:"items"`
	Subtotal    float64     `json:"subtotal"`
	Total       float64     `json:"total"`
	Status      OrderStatus `json:"status"`
	Notes       string      `json:"notes,omitempty"`
	PaymentMode string      `json:"paymentMode,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}
