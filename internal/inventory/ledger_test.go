package inventory_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShopLedger/internal/inventory"
)

const (
	owner = inventory.Identity("owner")
	alice = inventory.Identity("alice")
	bob   = inventory.Identity("bob")
)

type captureEmitter struct {
	events []inventory.Event
}

func (c *captureEmitter) Emit(e inventory.Event) {
	c.events = append(c.events, e)
}

func (c *captureEmitter) kinds() []string {
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Kind())
	}
	return out
}

func newLedger(t *testing.T, window uint64) (*inventory.Ledger, *inventory.ManualClock, *captureEmitter) {
	t.Helper()

	clock := &inventory.ManualClock{}
	sink := &captureEmitter{}
	return inventory.New(owner, window, clock, sink), clock, sink
}

func TestAddProduct_CreateThenUpdateInPlace(t *testing.T) {
	l, _, sink := newLedger(t, 10)

	p, err := l.AddProduct(owner, "Widget", 10)
	require.NoError(t, err)
	assert.Equal(t, inventory.ProductID(0), p.ID)
	assert.Equal(t, uint64(10), p.Quantity)

	byID, err := l.ProductByID(0)
	require.NoError(t, err)
	assert.Equal(t, p, byID)

	byName, err := l.ProductByName("Widget")
	require.NoError(t, err)
	assert.Equal(t, p, byName)

	// Same name again: quantity overwritten, no second id.
	p2, err := l.AddProduct(owner, "Widget", 25)
	require.NoError(t, err)
	assert.Equal(t, inventory.ProductID(0), p2.ID)
	assert.Equal(t, uint64(25), p2.Quantity)
	assert.Len(t, l.Products(), 1)

	assert.Equal(t, []string{"product_added", "product_updated"}, sink.kinds())
}

func TestAddProduct_SequentialIDs(t *testing.T) {
	l, _, _ := newLedger(t, 10)

	for i, name := range []string{"a", "b", "c"} {
		p, err := l.AddProduct(owner, name, 1)
		require.NoError(t, err)
		assert.Equal(t, inventory.ProductID(i), p.ID)
	}
}

func TestAddProduct_Validation(t *testing.T) {
	l, _, sink := newLedger(t, 10)

	_, err := l.AddProduct(owner, "", 5)
	assert.ErrorIs(t, err, inventory.ErrEmptyName)

	_, err = l.AddProduct(owner, "Widget", 0)
	assert.ErrorIs(t, err, inventory.ErrZeroQuantity)

	_, err = l.ProductByName("")
	assert.ErrorIs(t, err, inventory.ErrEmptyName)

	assert.Empty(t, l.Products())
	assert.Empty(t, sink.events)
}

func TestOwnerGate(t *testing.T) {
	l, _, sink := newLedger(t, 10)

	_, err := l.AddProduct(owner, "Widget", 5)
	require.NoError(t, err)
	emitted := len(sink.events)

	calls := map[string]func() error{
		"add": func() error {
			_, err := l.AddProduct(alice, "Gadget", 1)
			return err
		},
		"update": func() error {
			_, err := l.UpdateProductQuantity(alice, 0, 99)
			return err
		},
		"window":   func() error { return l.SetRefundWindow(alice, 1) },
		"transfer": func() error { return l.TransferOwnership(alice, bob) },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			assert.ErrorIs(t, err, inventory.ErrUnauthorized)

			var ua *inventory.UnauthorizedError
			require.ErrorAs(t, err, &ua)
			assert.Equal(t, alice, ua.Caller)
		})
	}

	// Nothing changed, nothing emitted.
	p, err := l.ProductByID(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), p.Quantity)
	assert.Len(t, l.Products(), 1)
	assert.Equal(t, uint64(10), l.RefundWindow())
	assert.Equal(t, owner, l.Owner())
	assert.Len(t, sink.events, emitted)
}

func TestUpdateProductQuantity(t *testing.T) {
	l, _, sink := newLedger(t, 10)

	_, err := l.UpdateProductQuantity(owner, 0, 1)
	assert.ErrorIs(t, err, inventory.ErrProductNotFound)

	_, err = l.AddProduct(owner, "Gadget", 7)
	require.NoError(t, err)

	p, err := l.UpdateProductQuantity(owner, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), p.Quantity)

	assert.Equal(t, []string{"product_added", "product_updated"}, sink.kinds())
}

func TestBuyProduct(t *testing.T) {
	l, _, sink := newLedger(t, 10)

	_, err := l.BuyProduct(alice, 0)
	assert.ErrorIs(t, err, inventory.ErrProductNotFound)

	_, err = l.AddProduct(owner, "Widget", 2)
	require.NoError(t, err)

	p, err := l.BuyProduct(alice, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.Quantity)

	buyers, err := l.ProductBuyers(0)
	require.NoError(t, err)
	assert.Equal(t, []inventory.Identity{alice}, buyers)

	// Same buyer again without a refund.
	_, err = l.BuyProduct(alice, 0)
	assert.ErrorIs(t, err, inventory.ErrAlreadyPurchased)

	p, err = l.ProductByID(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.Quantity)

	// Another buyer takes the last unit.
	_, err = l.BuyProduct(bob, 0)
	require.NoError(t, err)

	_, err = l.BuyProduct(inventory.Identity("carol"), 0)
	assert.ErrorIs(t, err, inventory.ErrZeroQuantity)

	assert.Equal(t, []string{"product_added", "product_bought", "product_bought"}, sink.kinds())
}

func TestRefundProduct_WindowEdges(t *testing.T) {
	const window = 5
	l, clock, _ := newLedger(t, window)

	_, err := l.AddProduct(owner, "Widget", 3)
	require.NoError(t, err)

	_, err = l.RefundProduct(alice, 0)
	assert.ErrorIs(t, err, inventory.ErrNotPurchased)

	_, err = l.BuyProduct(alice, 0)
	require.NoError(t, err)

	// Exactly at the window bound: still refundable.
	clock.Advance(window)
	p, err := l.RefundProduct(alice, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), p.Quantity)

	// After refunding the buyer may purchase again.
	_, err = l.BuyProduct(alice, 0)
	require.NoError(t, err)

	// One past the bound: expired, record and quantity untouched.
	clock.Advance(window + 1)
	_, err = l.RefundProduct(alice, 0)
	assert.ErrorIs(t, err, inventory.ErrRefundExpired)

	p, err = l.ProductByID(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), p.Quantity)

	// Still held, so a second buy still conflicts.
	_, err = l.BuyProduct(alice, 0)
	assert.ErrorIs(t, err, inventory.ErrAlreadyPurchased)
}

func TestRefundProduct_ZeroWindow(t *testing.T) {
	l, clock, _ := newLedger(t, 0)

	_, err := l.AddProduct(owner, "Widget", 1)
	require.NoError(t, err)

	_, err = l.BuyProduct(alice, 0)
	require.NoError(t, err)

	// Same tick: accepted.
	_, err = l.RefundProduct(alice, 0)
	require.NoError(t, err)

	_, err = l.BuyProduct(alice, 0)
	require.NoError(t, err)

	clock.Advance(1)
	_, err = l.RefundProduct(alice, 0)
	assert.ErrorIs(t, err, inventory.ErrRefundExpired)
}

func TestSetRefundWindow(t *testing.T) {
	l, _, sink := newLedger(t, 10)

	require.NoError(t, l.SetRefundWindow(owner, 0))
	assert.Equal(t, uint64(0), l.RefundWindow())

	require.NoError(t, l.SetRefundWindow(owner, 42))
	assert.Equal(t, uint64(42), l.RefundWindow())

	assert.Equal(t, []string{"refund_window_changed", "refund_window_changed"}, sink.kinds())
}

func TestTransferOwnership(t *testing.T) {
	l, _, sink := newLedger(t, 10)

	err := l.TransferOwnership(owner, "")
	assert.ErrorIs(t, err, inventory.ErrEmptyIdentity)

	require.NoError(t, l.TransferOwnership(owner, alice))
	assert.Equal(t, alice, l.Owner())

	// Old owner is locked out, new owner may mutate.
	_, err = l.AddProduct(owner, "Widget", 1)
	assert.ErrorIs(t, err, inventory.ErrUnauthorized)

	_, err = l.AddProduct(alice, "Widget", 1)
	require.NoError(t, err)

	require.Len(t, sink.events, 2)
	assert.Equal(t, inventory.OwnerChanged{Previous: owner, Next: alice}, sink.events[0])
}

func TestBuyerHistory_AppendOnly(t *testing.T) {
	l, _, _ := newLedger(t, 10)

	_, err := l.AddProduct(owner, "Widget", 5)
	require.NoError(t, err)

	_, err = l.BuyProduct(alice, 0)
	require.NoError(t, err)
	_, err = l.RefundProduct(alice, 0)
	require.NoError(t, err)
	_, err = l.BuyProduct(alice, 0)
	require.NoError(t, err)
	_, err = l.BuyProduct(bob, 0)
	require.NoError(t, err)

	buyers, err := l.ProductBuyers(0)
	require.NoError(t, err)
	assert.Equal(t, []inventory.Identity{alice, alice, bob}, buyers)

	_, err = l.ProductBuyers(7)
	assert.ErrorIs(t, err, inventory.ErrProductNotFound)
}

func TestUnknownProductID_FullRange(t *testing.T) {
	l, _, sink := newLedger(t, 10)

	_, err := l.AddProduct(owner, "Widget", 5)
	require.NoError(t, err)
	emitted := len(sink.events)

	// Ids far past the catalog, including ones that do not fit in a
	// signed int, must report not-found rather than index the slice.
	for _, id := range []inventory.ProductID{1, 42, math.MaxInt64, math.MaxUint64} {
		_, err := l.ProductByID(id)
		assert.ErrorIs(t, err, inventory.ErrProductNotFound)

		_, err = l.ProductBuyers(id)
		assert.ErrorIs(t, err, inventory.ErrProductNotFound)

		_, err = l.BuyProduct(alice, id)
		assert.ErrorIs(t, err, inventory.ErrProductNotFound)

		_, err = l.RefundProduct(alice, id)
		assert.ErrorIs(t, err, inventory.ErrProductNotFound)

		_, err = l.UpdateProductQuantity(owner, id, 3)
		assert.ErrorIs(t, err, inventory.ErrProductNotFound)
	}

	// State untouched, nothing emitted.
	p, err := l.ProductByID(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), p.Quantity)
	assert.Len(t, sink.events, emitted)
}

func TestProducts_IncludesSoldOut(t *testing.T) {
	l, _, _ := newLedger(t, 10)

	_, err := l.AddProduct(owner, "Widget", 1)
	require.NoError(t, err)
	_, err = l.AddProduct(owner, "Gadget", 1)
	require.NoError(t, err)

	_, err = l.BuyProduct(alice, 0)
	require.NoError(t, err)

	products := l.Products()
	require.Len(t, products, 2)
	assert.Equal(t, "Widget", products[0].Name)
	assert.Equal(t, uint64(0), products[0].Quantity)
	assert.Equal(t, "Gadget", products[1].Name)
}

func TestEndToEnd_WidgetCycle(t *testing.T) {
	l, _, _ := newLedger(t, 10)

	p, err := l.AddProduct(owner, "Widget", 10)
	require.NoError(t, err)
	require.Equal(t, inventory.ProductID(0), p.ID)
	require.Equal(t, uint64(10), p.Quantity)

	p, err = l.BuyProduct(bob, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(9), p.Quantity)

	buyers, err := l.ProductBuyers(0)
	require.NoError(t, err)
	require.Equal(t, []inventory.Identity{bob}, buyers)

	p, err = l.RefundProduct(bob, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(10), p.Quantity)

	p, err = l.BuyProduct(bob, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(9), p.Quantity)
}

func TestEndToEnd_ForcedSoldOut(t *testing.T) {
	l, _, _ := newLedger(t, 10)

	_, err := l.AddProduct(owner, "Gadget", 1)
	require.NoError(t, err)

	_, err = l.UpdateProductQuantity(owner, 0, 0)
	require.NoError(t, err)

	_, err = l.BuyProduct(bob, 0)
	assert.ErrorIs(t, err, inventory.ErrZeroQuantity)
}

func TestManualClock(t *testing.T) {
	c := &inventory.ManualClock{}
	assert.Equal(t, uint64(0), c.Tick())

	c.Advance(3)
	c.Advance(2)
	assert.Equal(t, uint64(5), c.Tick())
}

func TestIntervalClock(t *testing.T) {
	// A day-long interval stays at tick 0 for the whole test.
	c := inventory.NewIntervalClock(24 * time.Hour)
	assert.Equal(t, uint64(0), c.Tick())

	fast := inventory.NewIntervalClock(time.Nanosecond)
	first := fast.Tick()
	assert.GreaterOrEqual(t, fast.Tick(), first)
}
