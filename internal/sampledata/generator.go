package sampledata

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

type Product struct {
	ID        int64
	UnitPrice float64
}

type Order struct {
	ID         int64
	CustomerID int64
	ProductID  int64
	Quantity   int
	Status     string
	Channel    string
	Total      float64
	OrderedAt  time.Time
}

// Generator produces a reproducible stream of orders for a fixed seed.
type Generator struct {
	rnd       *rand.Rand
	customers []int64
	products  []Product
	sequence  int64
	window    time.Duration
	now       func() time.Time
}

func NewGenerator(seed int64, customers []int64, products []Product) (*Generator, error) {
	if len(customers) == 0 {
		return nil, fmt.Errorf("at least one customer is required")
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("at least one product is required")
	}
	return &Generator{
		rnd:       rand.New(rand.NewSource(seed)),
		customers: customers,
		products:  products,
		window:    180 * 24 * time.Hour,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// StartAfter makes the next order ID follow id.
func (g *Generator) StartAfter(id int64) {
	g.sequence = id
}

func (g *Generator) NextOrder() Order {
	g.sequence++
	product := g.products[g.rnd.Intn(len(g.products))]
	quantity := g.pickQuantity()
	offset := time.Duration(g.rnd.Int63n(int64(g.window)))

	return Order{
		ID:         g.sequence,
		CustomerID: g.customers[g.rnd.Intn(len(g.customers))],
		ProductID:  product.ID,
		Quantity:   quantity,
		Status:     g.pickStatus(),
		Channel:    pickOne(g.rnd, []string{"web", "mobile", "store", "partner"}),
		Total:      round2(product.UnitPrice * float64(quantity)),
		OrderedAt:  g.now().Add(-offset).Truncate(time.Second),
	}
}

func (g *Generator) pickQuantity() int {
	p := g.rnd.Intn(100)
	switch {
	case p < 70:
		return 1
	case p < 90:
		return 2
	default:
		return 3 + g.rnd.Intn(3)
	}
}

func (g *Generator) pickStatus() string {
	p := g.rnd.Intn(100)
	switch {
	case p < 72:
		return "delivered"
	case p < 85:
		return "shipped"
	case p < 93:
		return "pending"
	case p < 97:
		return "cancelled"
	default:
		return "refunded"
	}
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
