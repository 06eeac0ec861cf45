package api

import (
	"context"
	"net/http"

	"github.com/canteenhq/canteen-go/core"
)

// MenuItemInput is the admin create payload. Fields are translated to the
// backend's own names (isAvailable, imageUrl) on the wire.
type MenuItemInput struct {
	Name        string
	Description string
	Price       float64
	CategoryID  string
	ImageURL    string
	Available   bool
	Tags        []string
}

// MenuItemUpdate is the admin patch payload; nil fields are omitted so the
// backend only touches what the caller set.
type MenuItemUpdate struct {
	Name        *string
	Description *string
	Price       *float64
	CategoryID  *string
	ImageURL    *string
	Available   *bool
	Tags        []string
}

type menuItemBody struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Category    string   `json:"category,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	IsAvailable *bool    `json:"isAvailable,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Categories fetches the category list used to group the menu.
func (c *Client) Categories(ctx context.Context) ([]core.Category, error) {
	const op = "api.Categories"
	env, err := c.do(ctx, http.MethodGet, "/api/v1/categories", nil, true)
	if err != nil {
		return nil, err
	}
	var wire []categoryWire
	if err := decodeData(op, env, &wire); err != nil {
		return nil, err
	}
	categories := make([]core.Category, 0, len(wire))
	for _, w := range wire {
		categories = append(categories, w.normalize())
	}
	return categories, nil
}

// Menu fetches the full menu in canonical form.
func (c *Client) Menu(ctx context.Context) ([]core.MenuEntry, error) {
	const op = "api.Menu"
	env, err := c.do(ctx, http.MethodGet, "/api/v1/menu", nil, true)
	if err != nil {
		return nil, err
	}
	entries, err := DecodeMenuEntries(env.Data)
	if err != nil {
		return nil, &core.ClientError{
			Op:      op,
			Kind:    "api",
			Message: "Invalid response from server.",
			Err:     core.ErrServer,
		}
	}
	return entries, nil
}

// CreateMenuItem adds a menu item (admin only).
func (c *Client) CreateMenuItem(ctx context.Context, in MenuItemInput) error {
	const op = "api.CreateMenuItem"
	if in.Name == "" || in.Price < 0 {
		return &core.ClientError{
			Op:      op,
			Kind:    "validation",
			Message: "A menu item needs a name and a non-negative price.",
			Err:     core.ErrValidation,
		}
	}
	price := in.Price
	available := in.Available
	body := menuItemBody{
		Name:        in.Name,
		Description: in.Description,
		Price:       &price,
		Category:    in.CategoryID,
		ImageURL:    in.ImageURL,
		IsAvailable: &available,
		Tags:        in.Tags,
	}
	_, err := c.do(ctx, http.MethodPost, "/api/v1/admin/menu", body, true)
	return err
}

// UpdateMenuItem patches a menu item (admin only).
func (c *Client) UpdateMenuItem(ctx context.Context, id string, in MenuItemUpdate) error {
	const op = "api.UpdateMenuItem"
	if id == "" {
		return &core.ClientError{
			Op:      op,
			Kind:    "validation",
			Message: "A menu item id is required.",
			Err:     core.ErrValidation,
		}
	}
	body := menuItemBody{
		Price:       in.Price,
		IsAvailable: in.Available,
		Tags:        in.Tags,
	}
	if in.Name != nil {
		body.Name = *in.Name
	}
	if in.Description != nil {
		body.Description = *in.Description
	}
	if in.CategoryID != nil {
		body.Category = *in.CategoryID
	}
	if in.ImageURL != nil {
		body.ImageURL = *in.ImageURL
	}
	_, err := c.do(ctx, http.MethodPatch, "/api/v1/admin/menu/"+id, body, true)
	return err
}

// DeleteMenuItem removes a menu item (admin only).
func (c *Client) DeleteMenuItem(ctx context.Context, id string) error {
	if id == "" {
		return &core.ClientError{
			Op:      "api.DeleteMenuItem",
			Kind:    "validation",
			Message: "A menu item id is required.",
			Err:     core.ErrValidation,
		}
	}
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/admin/menu/"+id, nil, true)
	return err
}
