package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/canteenhq/canteen-go/core"
)

// The backend is inconsistent about field names: documents carry "_id" or
// "id", "isAvailable" or "available", "imageUrl" or "image", and a category
// may be a bare id string or a populated object. All variants are resolved
// here, once, at ingestion; everything downstream sees exactly one
// canonical shape and never re-normalizes.

type menuItemWire struct {
	ID          string          `json:"id"`
	MongoID     string          `json:"_id"`
	Name        string          `json:"name"`
	Price       float64         `json:"price"`
	Category    json.RawMessage `json:"category"`
	Description string          `json:"description"`
	ImageURL    string          `json:"imageUrl"`
	Image       string          `json:"image"`
	IsAvailable *bool           `json:"isAvailable"`
	Available   *bool           `json:"available"`
	Tags        []string        `json:"tags"`
}

type categoryWire struct {
	ID        string `json:"id"`
	MongoID   string `json:"_id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	SortOrder int    `json:"sortOrder"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (w categoryWire) normalize() core.Category {
	return core.Category{
		ID:        firstNonEmpty(w.MongoID, w.ID),
		Name:      w.Name,
		Slug:      w.Slug,
		SortOrder: w.SortOrder,
	}
}

func normalizeCategoryRef(raw json.RawMessage) core.Category {
	if len(raw) == 0 {
		return core.Category{}
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return core.Category{ID: id}
	}
	var w categoryWire
	if err := json.Unmarshal(raw, &w); err == nil {
		return w.normalize()
	}
	return core.Category{}
}

func (w menuItemWire) normalize() core.MenuEntry {
	available := true
	if w.IsAvailable != nil {
		available = *w.IsAvailable
	} else if w.Available != nil {
		available = *w.Available
	}
	return core.MenuEntry{
		ID:          firstNonEmpty(w.MongoID, w.ID),
		Name:        w.Name,
		Price:       w.Price,
		Category:    normalizeCategoryRef(w.Category),
		Description: w.Description,
		Available:   available,
		ImageURL:    firstNonEmpty(w.ImageURL, w.Image),
		Tags:        w.Tags,
	}
}

// DecodeMenuEntries converts a raw backend menu list into canonical
// entries. Both the REST fetch path and the push-update path go through
// this function so the two sources cannot drift.
func DecodeMenuEntries(raw json.RawMessage) ([]core.MenuEntry, error) {
	var wire []menuItemWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decoding menu list: %w", err)
	}
	entries := make([]core.MenuEntry, 0, len(wire))
	for _, w := range wire {
		entries = append(entries, w.normalize())
	}
	return entries, nil
}

type identityWire struct {
	ID                 string    `json:"id"`
	MongoID            string    `json:"_id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Username           string    `json:"username"`
	Role               core.Role `json:"role"`
	RegistrationNo     string    `json:"registrationNo"`
	RegistrationNumber string    `json:"registrationNumber"`
	Mobile             string    `json:"mobile"`
	IsVerified         *bool     `json:"isVerified"`
}

func (w identityWire) normalize(defaultRole core.Role) core.Identity {
	role := w.Role
	if !role.Valid() {
		role = defaultRole
	}
	verified := true
	if w.IsVerified != nil {
		verified = *w.IsVerified
	}
	return core.Identity{
		ID:                 firstNonEmpty(w.MongoID, w.ID),
		Name:               w.Name,
		Email:              w.Email,
		Username:           w.Username,
		Role:               role,
		RegistrationNumber: firstNonEmpty(w.RegistrationNumber, w.RegistrationNo),
		Mobile:             w.Mobile,
		IsVerified:         verified,
	}
}

type orderItemWire struct {
	MenuItem string          `json:"menuItem"`
	ItemID   string          `json:"itemId"`
	Name     string          `json:"name"`
	Price    float64         `json:"price"`
	Qty      int             `json:"qty"`
	Quantity int             `json:"quantity"`
}

type orderWire struct {
	ID          string           `json:"id"`
	MongoID     string           `json:"_id"`
	User        string           `json:"user"`
	StudentID   string           `json:"studentId"`
	StudentName string           `json:"studentName"`
	Items       []orderItemWire  `json:"items"`
	Subtotal    float64          `json:"subtotal"`
	Total       float64          `json:"total"`
	Status      core.OrderStatus `json:"status"`
	Notes       string           `json:"notes"`
	PaymentMode string           `json:"paymentMode"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

func (w orderWire) normalize() core.Order {
	items := make([]core.OrderItem, 0, len(w.Items))
	for _, it := range w.Items {
		qty := it.Qty
		if qty == 0 {
			qty = it.Quantity
		}
		items = append(items, core.OrderItem{
			ItemID: firstNonEmpty(it.MenuItem, it.ItemID),
			Name:   it.Name,
			Price:  it.Price,
			Qty:    qty,
		})
	}
	return core.Order{
		ID:          firstNonEmpty(w.MongoID, w.ID),
		StudentID:   firstNonEmpty(w.StudentID, w.User),
		StudentName: w.StudentName,
		Items:       items,
		Subtotal:    w.Subtotal,
		Total:       w.Total,
		Status:      w.Status,
		Notes:       w.Notes,
		PaymentMode: w.PaymentMode,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

func normalizeOrders(wire []orderWire) []core.Order {
	orders := make([]core.Order, 0, len(wire))
	for _, w := range wire {
		orders = append(orders, w.normalize())
	}
	return orders
}
