package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu         sync.Mutex
	eventTypes []string
	received   []shared.DomainEvent
	err        error
	panics     bool
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("handler exploded")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

func newTestEvent(eventType, aggType string) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, aggType, uuid.New())
	return &e
}

func TestInMemoryEventBus_PublishSubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	handler := &recordingHandler{eventTypes: []string{"order.created"}}
	bus.Subscribe(handler)

	event := newTestEvent("order.created", "Order")
	require.NoError(t, bus.Publish(ctx, event))

	assert.Equal(t, 1, handler.count())
}

func TestInMemoryEventBus_TypeFiltering(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	orderHandler := &recordingHandler{eventTypes: []string{"order.created"}}
	productHandler := &recordingHandler{eventTypes: []string{"product.low_stock"}}
	bus.Subscribe(orderHandler)
	bus.Subscribe(productHandler)

	require.NoError(t, bus.Publish(ctx, newTestEvent("order.created", "Order")))

	assert.Equal(t, 1, orderHandler.count())
	assert.Equal(t, 0, productHandler.count())
}

func TestInMemoryEventBus_WildcardHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	wildcard := &recordingHandler{}
	bus.Subscribe(wildcard)

	require.NoError(t, bus.Publish(ctx,
		newTestEvent("order.created", "Order"),
		newTestEvent("customer.registered", "Customer"),
	))

	assert.Equal(t, 2, wildcard.count())
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	failing := &recordingHandler{eventTypes: []string{"order.created"}, err: errors.New("boom")}
	healthy := &recordingHandler{eventTypes: []string{"order.created"}}
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(ctx, newTestEvent("order.created", "Order")))

	assert.Equal(t, 1, healthy.count())
}

func TestInMemoryEventBus_HandlerPanicIsRecovered(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	panicking := &recordingHandler{eventTypes: []string{"order.created"}, panics: true}
	healthy := &recordingHandler{eventTypes: []string{"order.created"}}
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NotPanics(t, func() {
		_ = bus.Publish(ctx, newTestEvent("order.created", "Order"))
	})
	assert.Equal(t, 1, healthy.count())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	handler := &recordingHandler{eventTypes: []string{"order.created"}}
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(ctx, newTestEvent("order.created", "Order")))
	assert.Equal(t, 0, handler.count())
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Stop(ctx))
}
