package inventory

import "go.uber.org/zap"

// Event is a notification emitted after a successful mutation. Failed
// operations emit nothing.
type Event interface {
	Kind() string
}

type ProductAdded struct {
	ID       ProductID `json:"id"`
	Name     string    `json:"name"`
	Quantity uint64    `json:"quantity"`
}

type ProductUpdated struct {
	ID       ProductID `json:"id"`
	Name     string    `json:"name"`
	Quantity uint64    `json:"quantity"`
}

type ProductBought struct {
	ID    ProductID `json:"id"`
	Buyer Identity  `json:"buyer"`
}

type ProductRefunded struct {
	ID ProductID `json:"id"`
}

type OwnerChanged struct {
	Previous Identity `json:"previous"`
	Next     Identity `json:"next"`
}

type RefundWindowChanged struct {
	Ticks uint64 `json:"ticks"`
}

func (ProductAdded) Kind() string        { return "product_added" }
func (ProductUpdated) Kind() string      { return "product_updated" }
func (ProductBought) Kind() string       { return "product_bought" }
func (ProductRefunded) Kind() string     { return "product_refunded" }
func (OwnerChanged) Kind() string        { return "owner_changed" }
func (RefundWindowChanged) Kind() string { return "refund_window_changed" }

// Emitter consumes ledger events. Implementations must not block the
// calling operation for long; slow sinks should buffer internally.
type Emitter interface {
	Emit(e Event)
}

// MultiEmitter fans out to every sink in order.
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// LogEmitter writes one structured log line per event.
type LogEmitter struct {
	Log *zap.Logger
}

func (l *LogEmitter) Emit(e Event) {
	if l.Log == nil {
		return
	}
	l.Log.Info("ledger event", zap.String("kind", e.Kind()), zap.Any("event", e))
}
