package cart

import (
	"strconv"
	"sync"
	"time"

	"svarak-backend/internal/catalog"
	"svarak-backend/internal/models"
)

// Line is one row of the working cart. At most one line exists per CartKey.
type Line struct {
	ProductID string  `json:"id"`
	CartKey   string  `json:"cartKey"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	IsReturn  bool    `json:"isReturn"`
	IsAutoCup bool    `json:"isAutoCup"`
}

// clickMarker is the transient button feedback. It carries an explicit
// deadline and is cleared lazily on read instead of by a delayed callback.
type clickMarker struct {
	productID string
	expiresAt time.Time
}

const clickMarkerTTL = 200 * time.Millisecond

// Cart holds the line items of one order being built. Operations never fail:
// out-of-range deltas are clamped and lines at quantity zero are dropped.
type Cart struct {
	mu      sync.Mutex
	lines   []Line
	clicked clickMarker
	now     func() time.Time
}

func New() *Cart {
	return &Cart{now: time.Now}
}

func (c *Cart) find(cartKey string) int {
	for i := range c.lines {
		if c.lines[i].CartKey == cartKey {
			return i
		}
	}
	return -1
}

// AddProduct adds one unit of a product. Beverages drag one auto cup along;
// the standalone cup goes onto its own "extra cup" line with no linkage.
func (c *Cart) AddProduct(p catalog.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clicked = clickMarker{productID: p.ID, expiresAt: c.now().Add(clickMarkerTTL)}

	if p.ID == catalog.CupID {
		if i := c.find(catalog.ExtraCupID); i >= 0 {
			c.lines[i].Quantity++
			return
		}
		c.lines = append(c.lines, Line{
			ProductID: catalog.ExtraCupID,
			CartKey:   catalog.ExtraCupID,
			Name:      catalog.ExtraCup,
			Price:     catalog.CupDeposit,
			Quantity:  1,
		})
		return
	}

	if i := c.find(p.ID); i >= 0 {
		c.lines[i].Quantity++
	} else {
		c.lines = append(c.lines, Line{
			ProductID: p.ID,
			CartKey:   p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  1,
		})
	}

	if i := c.find(catalog.CupID); i >= 0 {
		c.lines[i].Quantity++
	} else {
		c.lines = append(c.lines, Line{
			ProductID: catalog.CupID,
			CartKey:   catalog.CupID,
			Name:      catalog.CupName,
			Price:     catalog.CupDeposit,
			Quantity:  1,
			IsAutoCup: true,
		})
	}
}

// AddReturnLine adds one returned cup at negative deposit price.
func (c *Cart) AddReturnLine() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.find(catalog.ReturnKey); i >= 0 {
		c.lines[i].Quantity++
		return
	}
	c.lines = append(c.lines, Line{
		ProductID: catalog.ReturnID,
		CartKey:   catalog.ReturnKey,
		Name:      catalog.ReturnName,
		Price:     -catalog.CupDeposit,
		Quantity:  1,
		IsReturn:  true,
	})
}

// UpdateQuantity applies delta to the line at cartKey with the linkage rules:
// beverages move their auto cups by the same amount, the auto cup line moves
// every beverage by the realized cup delta, independent lines just clamp.
// Each adjustment floors at zero on its own, so a low-quantity beverage can
// disappear while a higher one is only reduced.
func (c *Cart) UpdateQuantity(cartKey string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.find(cartKey)
	if i < 0 {
		return
	}
	line := c.lines[i]

	switch {
	case line.ProductID == catalog.CupID:
		newQty := max(0, line.Quantity+delta)
		realized := newQty - line.Quantity
		c.lines[i].Quantity = newQty
		if realized != 0 {
			for j := range c.lines {
				if isBeverage(c.lines[j]) {
					c.lines[j].Quantity = max(0, c.lines[j].Quantity+realized)
				}
			}
		}
	case isBeverage(line):
		newQty := max(0, line.Quantity+delta)
		realized := newQty - line.Quantity
		c.lines[i].Quantity = newQty
		if realized != 0 {
			if j := c.find(catalog.CupID); j >= 0 {
				c.lines[j].Quantity = max(0, c.lines[j].Quantity+realized)
			}
		}
	default:
		c.lines[i].Quantity = max(0, line.Quantity+delta)
	}

	c.dropEmpty()
}

func isBeverage(l Line) bool {
	return l.ProductID != catalog.CupID && l.ProductID != catalog.ExtraCupID && l.ProductID != catalog.ReturnID
}

func (c *Cart) dropEmpty() {
	kept := c.lines[:0]
	for _, l := range c.lines {
		if l.Quantity > 0 {
			kept = append(kept, l)
		}
	}
	c.lines = kept
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Lines returns a copy of the current lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// Total sums price×quantity over all lines, rendered with zero decimal
// places. Negative totals keep their leading minus.
func (c *Cart) Total() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sum float64
	for _, l := range c.lines {
		sum += l.Price * float64(l.Quantity)
	}
	return strconv.FormatFloat(sum, 'f', 0, 64)
}

// LoadFromOrder rebuilds the cart from an order's flattened items, collapsing
// them back into quantity-aggregated lines by cart key. Auto-cup linkage is
// not re-derived; the cart holds exactly what the order stored.
func (c *Cart) LoadFromOrder(order models.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	for _, item := range order.Items {
		key := item.CartKey
		if key == "" {
			key = item.ProductID
		}
		if i := c.find(key); i >= 0 {
			c.lines[i].Quantity++
			continue
		}
		c.lines = append(c.lines, Line{
			ProductID: item.ProductID,
			CartKey:   key,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  1,
			IsAutoCup: item.IsAutoCup,
		})
	}
}

// ClickedProduct reports the product id of the most recent AddProduct call
// while the feedback window is open, clearing the marker once it expires.
func (c *Cart) ClickedProduct() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clicked.productID == "" {
		return ""
	}
	if c.now().After(c.clicked.expiresAt) {
		c.clicked = clickMarker{}
		return ""
	}
	return c.clicked.productID
}
