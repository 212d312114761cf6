package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/resto-ai/support-engine/internal/model"
)

// Order is the order snapshot returned by lookup tools.
type Order struct {
	Number      string    `json:"number"`
	Status      string    `json:"status"`
	Platform    string    `json:"platform,omitempty"`
	Branch      string    `json:"branch,omitempty"`
	Items       []string  `json:"items,omitempty"`
	TotalCents  int       `json:"total_cents,omitempty"`
	PlacedAt    time.Time `json:"placed_at"`
	EstimatedAt time.Time `json:"estimated_at,omitempty"`
}

// OrderDirectory looks up orders in the ordering backend.
type OrderDirectory interface {
	LookupOrder(ctx context.Context, orderNumber string) (*Order, error)
}

// TicketCreator opens support tickets.
type TicketCreator interface {
	CreateTicket(ctx context.Context, email, message string) (*model.Ticket, error)
}

// BranchInfo is static per-branch data served by get_branch_info.
type BranchInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Hours   string `json:"hours"`
}

// MenuItem is one entry served by get_menu_items.
type MenuItem struct {
	Name       string   `json:"name"`
	PriceCents int      `json:"price_cents"`
	Category   string   `json:"category"`
	Allergens  []string `json:"allergens,omitempty"`
	Halal      bool     `json:"halal"`
}

// Catalog serves branch and menu reference data.
type Catalog interface {
	Branch(name string) (*BranchInfo, bool)
	MenuItems(category string) []MenuItem
}

// RegisterBuiltins registers the domain tool set against the given
// collaborators. Called once at startup.
func RegisterBuiltins(r *Registry, orders OrderDirectory, tickets TicketCreator, catalog Catalog) {
	r.Register(Tool{
		Name:        "lookup_order",
		Description: "Look up the status and contents of a customer order by its order number.",
		Category:    "orders",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"order_number": {"type": "string", "description": "The order number, digits only"}
			},
			"required": ["order_number"]
		}`),
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				OrderNumber string `json:"order_number"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, err
			}
			order, err := orders.LookupOrder(ctx, in.OrderNumber)
			if err != nil {
				return nil, fmt.Errorf("order %s not found: %w", in.OrderNumber, err)
			}
			return order, nil
		},
	})

	r.Register(Tool{
		Name:        "check_delivery_status",
		Description: "Check the live delivery status and estimated arrival time of an order.",
		Category:    "orders",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"order_number": {"type": "string"}
			},
			"required": ["order_number"]
		}`),
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				OrderNumber string `json:"order_number"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, err
			}
			order, err := orders.LookupOrder(ctx, in.OrderNumber)
			if err != nil {
				return nil, fmt.Errorf("order %s not found: %w", in.OrderNumber, err)
			}
			return map[string]any{
				"order_number": order.Number,
				"status":       order.Status,
				"estimated_at": order.EstimatedAt,
			}, nil
		},
	})

	r.Register(Tool{
		Name:        "get_branch_info",
		Description: "Get address, phone number and opening hours for a restaurant branch.",
		Category:    "reference",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"branch": {"type": "string", "description": "Branch name, e.g. anderlecht"}
			},
			"required": ["branch"]
		}`),
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Branch string `json:"branch"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, err
			}
			info, ok := catalog.Branch(in.Branch)
			if !ok {
				return nil, fmt.Errorf("unknown branch %q", in.Branch)
			}
			return info, nil
		},
	})

	r.Register(Tool{
		Name:        "get_menu_items",
		Description: "List menu items, optionally filtered by category.",
		Category:    "reference",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"category": {"type": "string"}
			}
		}`),
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Category string `json:"category"`
			}
			if len(args) > 0 {
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, err
				}
			}
			return catalog.MenuItems(in.Category), nil
		},
	})

	r.Register(Tool{
		Name:        "create_support_ticket",
		Description: "Open a support ticket so a human agent can follow up by email.",
		Category:    "support",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"email": {"type": "string"},
				"message": {"type": "string"}
			},
			"required": ["email", "message"]
		}`),
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Email   string `json:"email"`
				Message string `json:"message"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, err
			}
			ticket, err := tickets.CreateTicket(ctx, in.Email, in.Message)
			if err != nil {
				return nil, fmt.Errorf("failed to create ticket: %w", err)
			}
			return map[string]string{"ticket_id": ticket.ID, "status": string(ticket.Status)}, nil
		},
	})
}
