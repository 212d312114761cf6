package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resto-ai/support-engine/internal/llm"
	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/logger"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	log, err := logger.NewDevelopment()
	require.NoError(t, err)
	return NewRegistry(log)
}

func echoTool() Tool {
	return Tool{
		Name:        "echo",
		Description: "Echoes the message back.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {"message": {"type": "string"}},
			"required": ["message"]
		}`),
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, err
			}
			return map[string]string{"echo": in.Message}, nil
		},
	}
}

func TestExecuteSuccess(t *testing.T) {
	r := testRegistry(t)
	r.Register(echoTool())

	res := r.Execute(context.Background(), "echo", json.RawMessage(`{"message":"bonjour"}`))

	require.True(t, res.Success)
	assert.Empty(t, res.Error)
	assert.JSONEq(t, `{"echo":"bonjour"}`, string(res.Output))
}

func TestExecuteUnknownTool(t *testing.T) {
	r := testRegistry(t)

	res := r.Execute(context.Background(), "nope", json.RawMessage(`{}`))

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown tool")
}

func TestExecuteRejectsInvalidArgs(t *testing.T) {
	r := testRegistry(t)
	r.Register(echoTool())

	res := r.Execute(context.Background(), "echo", json.RawMessage(`{"message":42}`))

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid arguments")
}

func TestExecuteCapturesHandlerError(t *testing.T) {
	r := testRegistry(t)
	r.Register(Tool{
		Name: "boom",
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			return nil, errors.New("backend unavailable")
		},
	})

	res := r.Execute(context.Background(), "boom", nil)

	assert.False(t, res.Success)
	assert.Equal(t, "backend unavailable", res.Error)
}

func TestExecuteRecoversFromPanic(t *testing.T) {
	r := testRegistry(t)
	r.Register(Tool{
		Name: "panic",
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			panic("nil map write")
		},
	})

	res := r.Execute(context.Background(), "panic", nil)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "panicked")
}

func TestRegisterOverwrites(t *testing.T) {
	r := testRegistry(t)
	r.Register(Tool{Name: "dup", Description: "first"})
	r.Register(Tool{Name: "dup", Description: "second"})

	got := r.Get("dup")
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Description)
	assert.Len(t, r.Names(), 1)
}

func TestDefsFiltersAllowedSubset(t *testing.T) {
	r := testRegistry(t)
	r.Register(echoTool())
	r.Register(Tool{Name: "other"})

	defs := r.Defs([]string{"echo", "missing"})

	require.Len(t, defs, 1)
	assert.Equal(t, "echo", defs[0].Name)

	all := r.Defs(nil)
	assert.Len(t, all, 2)
}

// scriptedClient returns canned responses in order, repeating the last one.
type scriptedClient struct {
	responses []*llm.CompletionResponse
	calls     int
}

func (c *scriptedClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	idx := c.calls
	c.calls++
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	return c.responses[idx], nil
}

func (c *scriptedClient) Name() string     { return "scripted" }
func (c *scriptedClient) Models() []string { return nil }

func toolCallResponse(id, name, args string) *llm.CompletionResponse {
	return &llm.CompletionResponse{
		ToolCalls: []llm.ToolCall{{ID: id, Name: name, Args: json.RawMessage(args)}},
	}
}

func TestOrchestratorSingleToolThenAnswer(t *testing.T) {
	r := testRegistry(t)
	r.Register(echoTool())
	client := &scriptedClient{responses: []*llm.CompletionResponse{
		toolCallResponse("call_1", "echo", `{"message":"salut"}`),
		{Content: "Votre commande arrive."},
	}}
	log, err := logger.NewDevelopment()
	require.NoError(t, err)
	o := NewOrchestrator(r, client, "", 0, log)

	res, err := o.ExecuteWithTools(context.Background(), "où est ma commande ?", "system", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, model.StopReasonEndTurn, res.StopReason)
	assert.Equal(t, "Votre commande arrive.", res.FinalResponse)
	require.Len(t, res.ToolsUsed, 1)
	assert.True(t, res.ToolsUsed[0].Success)
	assert.Equal(t, 2, client.calls)
}

func TestOrchestratorStopsAtIterationCeiling(t *testing.T) {
	r := testRegistry(t)
	r.Register(echoTool())
	// The model never stops asking for tools.
	client := &scriptedClient{responses: []*llm.CompletionResponse{
		toolCallResponse("call_n", "echo", `{"message":"encore"}`),
	}}
	log, err := logger.NewDevelopment()
	require.NoError(t, err)
	o := NewOrchestrator(r, client, "", 3, log)

	res, err := o.ExecuteWithTools(context.Background(), "question", "system", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, model.StopReasonMaxIterations, res.StopReason)
	assert.Len(t, res.ToolsUsed, 3)
	assert.Equal(t, 3, client.calls)
}

func TestOrchestratorFeedsToolErrorBackToModel(t *testing.T) {
	r := testRegistry(t)
	r.Register(Tool{
		Name: "lookup_order",
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			return nil, errors.New("order not found")
		},
	})
	client := &scriptedClient{responses: []*llm.CompletionResponse{
		toolCallResponse("call_1", "lookup_order", `{"order_number":"999"}`),
		{Content: "Je ne trouve pas cette commande, pouvez-vous vérifier le numéro ?"},
	}}
	log, err := logger.NewDevelopment()
	require.NoError(t, err)
	o := NewOrchestrator(r, client, "", 0, log)

	res, err := o.ExecuteWithTools(context.Background(), "commande 999", "system", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, model.StopReasonEndTurn, res.StopReason)
	require.Len(t, res.ToolsUsed, 1)
	assert.False(t, res.ToolsUsed[0].Success)
	assert.Equal(t, "order not found", res.ToolsUsed[0].Error)
}

type fakeOrders struct{ orders map[string]*Order }

func (f *fakeOrders) LookupOrder(ctx context.Context, number string) (*Order, error) {
	o, ok := f.orders[number]
	if !ok {
		return nil, fmt.Errorf("no order %s", number)
	}
	return o, nil
}

type fakeTickets struct{ created int }

func (f *fakeTickets) CreateTicket(ctx context.Context, email, message string) (*model.Ticket, error) {
	f.created++
	return &model.Ticket{ID: "tkt-1", Status: model.TicketOpen}, nil
}

type fakeCatalog struct{}

func (fakeCatalog) Branch(name string) (*BranchInfo, bool) {
	if name == "anderlecht" {
		return &BranchInfo{Name: "Anderlecht", Hours: "11:30-22:00"}, true
	}
	return nil, false
}

func (fakeCatalog) MenuItems(category string) []MenuItem {
	return []MenuItem{{Name: "Tenders x5", Category: "poulet", Halal: true}}
}

func TestBuiltinLookupOrder(t *testing.T) {
	r := testRegistry(t)
	orders := &fakeOrders{orders: map[string]*Order{
		"12345": {Number: "12345", Status: "preparing", PlacedAt: time.Now()},
	}}
	RegisterBuiltins(r, orders, &fakeTickets{}, fakeCatalog{})

	res := r.Execute(context.Background(), "lookup_order", json.RawMessage(`{"order_number":"12345"}`))

	require.True(t, res.Success)
	assert.Contains(t, string(res.Output), `"preparing"`)
}

func TestBuiltinLookupOrderMissingArg(t *testing.T) {
	r := testRegistry(t)
	RegisterBuiltins(r, &fakeOrders{}, &fakeTickets{}, fakeCatalog{})

	res := r.Execute(context.Background(), "lookup_order", json.RawMessage(`{}`))

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid arguments")
}

func TestBuiltinCreateTicket(t *testing.T) {
	r := testRegistry(t)
	tickets := &fakeTickets{}
	RegisterBuiltins(r, &fakeOrders{}, tickets, fakeCatalog{})

	res := r.Execute(context.Background(), "create_support_ticket",
		json.RawMessage(`{"email":"client@example.com","message":"frites manquantes"}`))

	require.True(t, res.Success)
	assert.Equal(t, 1, tickets.created)
	assert.Contains(t, string(res.Output), "tkt-1")
}
