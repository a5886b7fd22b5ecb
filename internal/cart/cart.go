// Package cart holds the in-memory cart a terminal builds before checkout.
package cart

import (
	"sync"

	"github.com/angelmondragon/pos-ledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-ledger/pkg/errors"
	"github.com/shopspring/decimal"
)

// MaxQuantity caps the units a single line may hold.
const MaxQuantity = 9999

// Line is one product in the cart. Product is a snapshot taken when the
// product was added; later catalog edits do not reach it.
type Line struct {
	Product  models.Product
	Quantity int
}

// Subtotal returns price x quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is safe for concurrent use. Lines keep insertion order and hold at
// most one entry per product id.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddItem adds qty units of product, merging into an existing line.
// A non-positive qty adds a single unit. The cart is left unchanged when the
// line would exceed MaxQuantity.
func (c *Cart) AddItem(product models.Product, qty int) error {
	if qty <= 0 {
		qty = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(product.ID)
	current := 0
	if i >= 0 {
		current = c.lines[i].Quantity
	}
	if qty > MaxQuantity-current {
		return quantityTooLarge(product.ID)
	}
	if i >= 0 {
		c.lines[i].Quantity = current + qty
		return nil
	}
	c.lines = append(c.lines, Line{Product: product, Quantity: qty})
	return nil
}

// RemoveItem drops the line for productID if present.
func (c *Cart) RemoveItem(productID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(productID)
}

// SetQuantity replaces the quantity of an existing line. qty <= 0 removes it;
// qty above MaxQuantity is rejected.
func (c *Cart) SetQuantity(productID int64, qty int) error {
	if qty > MaxQuantity {
		return quantityTooLarge(productID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if qty <= 0 {
		c.remove(productID)
		return nil
	}
	if i := c.indexOf(productID); i >= 0 {
		c.lines[i].Quantity = qty
	}
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Total sums every line subtotal.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return total(c.lines)
}

// Lines returns a copy of the current lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Snapshot returns the lines and their total read under one lock.
func (c *Cart) Snapshot() ([]Line, decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out, total(out)
}

// Settle hands a copy of the lines to fn while holding the cart lock and
// clears the cart only when fn succeeds. Other cart calls wait until fn returns.
func (c *Cart) Settle(fn func(lines []Line) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]Line, len(c.lines))
	copy(lines, c.lines)
	if err := fn(lines); err != nil {
		return err
	}
	c.lines = nil
	return nil
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

func (c *Cart) indexOf(productID int64) int {
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) remove(productID int64) {
	if i := c.indexOf(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

func quantityTooLarge(productID int64) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-line limit").
		WithDetails(map[string]any{"product_id": productID, "max": MaxQuantity})
}

// total sums price x quantity over lines.
func total(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}
