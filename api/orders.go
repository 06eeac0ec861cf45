package api

import (
	"context"
	"net/http"

	"github.com/canteenhq/canteen-go/core"
)

type placeOrderBody struct {
	Items []core.OrderItem `json:"items"`
	Notes string           `json:"notes,omitempty"`
}

type statusBody struct {
	Status core.OrderStatus `json:"status"`
}

// MyOrders fetches the authenticated student's orders.
func (c *Client) MyOrders(ctx context.Context) ([]core.Order, error) {
	const op = "api.MyOrders"
	env, err := c.do(ctx, http.MethodGet, "/api/v1/orders", nil, true)
	if err != nil {
		return nil, err
	}
	var wire []orderWire
	if err := decodeData(op, env, &wire); err != nil {
		return nil, err
	}
	return normalizeOrders(wire), nil
}

// AllOrders fetches every current order (admin only).
func (c *Client) AllOrders(ctx context.Context) ([]core.Order, error) {
	const op = "api.AllOrders"
	env, err := c.do(ctx, http.MethodGet, "/api/v1/admin/orders", nil, true)
	if err != nil {
		return nil, err
	}
	var wire []orderWire
	if err := decodeData(op, env, &wire); err != nil {
		return nil, err
	}
	return normalizeOrders(wire), nil
}

// PlaceOrder submits order-item snapshots and returns the confirmed order.
// The returned Total is the settlement amount; callers display it as-is
// and never recompute it from the submitted lines.
func (c *Client) PlaceOrder(ctx context.Context, items []core.OrderItem, notes string) (core.Order, error) {
	const op = "api.PlaceOrder"
	if len(items) == 0 {
		return core.Order{}, &core.ClientError{
			Op:      op,
			Kind:    "validation",
			Message: "Your cart is empty.",
			Err:     core.ErrValidation,
		}
	}
	env, err := c.do(ctx, http.MethodPost, "/api/v1/orders", placeOrderBody{Items: items, Notes: notes}, true)
	if err != nil {
		return core.Order{}, err
	}
	var wire orderWire
	if err := decodeData(op, env, &wire); err != nil {
		return core.Order{}, err
	}
	return wire.normalize(), nil
}

// CancelOrder asks the backend to cancel an order still inside its
// cancellation window. The ledger prechecks the window locally; this call
// is only issued when the precheck passed.
func (c *Client) CancelOrder(ctx context.Context, id string) error {
	if id == "" {
		return &core.ClientError{
			Op:      "api.CancelOrder",
			Kind:    "validation",
			Message: "An order id is required.",
			Err:     core.ErrValidation,
		}
	}
	_, err := c.do(ctx, http.MethodPatch, "/api/v1/orders/"+id+"/cancel", nil, true)
	return err
}

// UpdateOrderStatus moves an order to the given status (admin only). The
// caller supplies the explicit target status, not "next".
func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status core.OrderStatus) error {
	if id == "" {
		return &core.ClientError{
			Op:      "api.UpdateOrderStatus",
			Kind:    "validation",
			Message: "An order id is required.",
			Err:     core.ErrValidation,
		}
	}
	_, err := c.do(ctx, http.MethodPatch, "/api/v1/admin/orders/"+id+"/status", statusBody{Status: status}, true)
	return err
}
