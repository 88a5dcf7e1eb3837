// Package inventory implements a single-owner product ledger: the owner
// stocks named products, any caller may hold at most one unit of each
// product, and a purchase may be reversed within a configurable number of
// logical clock ticks.
package inventory

import "sync"

// Identity names a caller. The host decides what it is (a user id here);
// the ledger only compares identities for equality.
type Identity string

// ProductID is assigned sequentially from 0 and never reused.
type ProductID uint64

type Product struct {
	ID       ProductID `json:"id"`
	Name     string    `json:"name"`
	Quantity uint64    `json:"quantity"`
}

type purchaseKey struct {
	product ProductID
	buyer   Identity
}

// Ledger holds the whole shared state: catalog, purchase records, buyer
// history, owner and refund window. Every operation is one atomic state
// transition under the mutex; a failed operation mutates nothing and
// emits nothing.
type Ledger struct {
	mu sync.Mutex

	clock Clock
	emit  Emitter

	owner  Identity
	window uint64

	products  []Product
	nameIndex map[string]ProductID

	// buyers is the append-only purchase history per product. active is
	// the resettable state machine: present while the buyer holds a unit,
	// value is the purchase tick.
	buyers map[ProductID][]Identity
	active map[purchaseKey]uint64
}

type noopEmitter struct{}

func (noopEmitter) Emit(Event) {}

func New(owner Identity, windowTicks uint64, clock Clock, emit Emitter) *Ledger {
	if clock == nil {
		clock = &ManualClock{}
	}
	if emit == nil {
		emit = noopEmitter{}
	}
	return &Ledger{
		clock:     clock,
		emit:      emit,
		owner:     owner,
		window:    windowTicks,
		nameIndex: make(map[string]ProductID),
		buyers:    make(map[ProductID][]Identity),
		active:    make(map[purchaseKey]uint64),
	}
}

func (l *Ledger) requireOwner(caller Identity) error {
	if caller != l.owner {
		return &UnauthorizedError{Caller: caller}
	}
	return nil
}

// AddProduct creates a product under the next sequential id, or, when a
// product with the same name already exists, overwrites its quantity in
// place. Owner only.
func (l *Ledger) AddProduct(caller Identity, name string, quantity uint64) (Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return Product{}, err
	}
	if name == "" {
		return Product{}, ErrEmptyName
	}
	if quantity == 0 {
		return Product{}, ErrZeroQuantity
	}

	if id, ok := l.nameIndex[name]; ok {
		l.products[id].Quantity = quantity
		p := l.products[id]
		l.emit.Emit(ProductUpdated{ID: p.ID, Name: p.Name, Quantity: p.Quantity})
		return p, nil
	}

	p := Product{ID: ProductID(len(l.products)), Name: name, Quantity: quantity}
	l.products = append(l.products, p)
	l.nameIndex[name] = p.ID
	l.emit.Emit(ProductAdded{ID: p.ID, Name: p.Name, Quantity: p.Quantity})
	return p, nil
}

// UpdateProductQuantity force-sets a product's quantity, zero included.
// Owner only.
func (l *Ledger) UpdateProductQuantity(caller Identity, id ProductID, quantity uint64) (Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return Product{}, err
	}
	if uint64(id) >= uint64(len(l.products)) {
		return Product{}, ErrProductNotFound
	}

	l.products[id].Quantity = quantity
	p := l.products[id]
	l.emit.Emit(ProductUpdated{ID: p.ID, Name: p.Name, Quantity: p.Quantity})
	return p, nil
}

// BuyProduct takes one unit for the caller. A caller holds at most one
// unit per product and must refund before buying the same product again.
func (l *Ledger) BuyProduct(caller Identity, id ProductID) (Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if uint64(id) >= uint64(len(l.products)) {
		return Product{}, ErrProductNotFound
	}
	if l.products[id].Quantity == 0 {
		return Product{}, ErrZeroQuantity
	}
	key := purchaseKey{product: id, buyer: caller}
	if _, held := l.active[key]; held {
		return Product{}, ErrAlreadyPurchased
	}

	l.products[id].Quantity--
	l.active[key] = l.clock.Tick()
	l.buyers[id] = append(l.buyers[id], caller)

	p := l.products[id]
	l.emit.Emit(ProductBought{ID: id, Buyer: caller})
	return p, nil
}

// RefundProduct returns the caller's unit. Accepted while no more than
// the refund window's worth of ticks has passed since the purchase; the
// bound is inclusive.
func (l *Ledger) RefundProduct(caller Identity, id ProductID) (Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if uint64(id) >= uint64(len(l.products)) {
		return Product{}, ErrProductNotFound
	}
	key := purchaseKey{product: id, buyer: caller}
	boughtAt, held := l.active[key]
	if !held {
		return Product{}, ErrNotPurchased
	}
	if l.clock.Tick()-boughtAt > l.window {
		return Product{}, ErrRefundExpired
	}

	l.products[id].Quantity++
	delete(l.active, key)

	p := l.products[id]
	l.emit.Emit(ProductRefunded{ID: id})
	return p, nil
}

func (l *Ledger) ProductByID(id ProductID) (Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if uint64(id) >= uint64(len(l.products)) {
		return Product{}, ErrProductNotFound
	}
	return l.products[id], nil
}

func (l *Ledger) ProductByName(name string) (Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if name == "" {
		return Product{}, ErrEmptyName
	}
	id, ok := l.nameIndex[name]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return l.products[id], nil
}

// Products returns every product ever added, ascending by id, sold-out
// ones included.
func (l *Ledger) Products() []Product {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Product, len(l.products))
	copy(out, l.products)
	return out
}

// ProductBuyers returns every identity that ever bought the product, in
// purchase order. Refunds do not remove entries.
func (l *Ledger) ProductBuyers(id ProductID) ([]Identity, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if uint64(id) >= uint64(len(l.products)) {
		return nil, ErrProductNotFound
	}
	out := make([]Identity, len(l.buyers[id]))
	copy(out, l.buyers[id])
	return out, nil
}

// SetRefundWindow overwrites the refund window. Owner only. Zero is
// legal: refunds then succeed only within the purchase tick itself.
func (l *Ledger) SetRefundWindow(caller Identity, ticks uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	l.window = ticks
	l.emit.Emit(RefundWindowChanged{Ticks: ticks})
	return nil
}

func (l *Ledger) RefundWindow() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.window
}

// TransferOwnership hands the owner role to next. Owner only.
func (l *Ledger) TransferOwnership(caller, next Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if next == "" {
		return ErrEmptyIdentity
	}
	prev := l.owner
	l.owner = next
	l.emit.Emit(OwnerChanged{Previous: prev, Next: next})
	return nil
}

func (l *Ledger) Owner() Identity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner
}

// Tick exposes the host clock's current reading.
func (l *Ledger) Tick() uint64 { return l.clock.Tick() }
