// Package generator synthesises internally consistent customer, product,
// order and order-item tables from a seeded behavior model.
//
// # Determinism
//
// Catalog prices and customer demographics are drawn from one source seeded
// with Config.Seed. Each customer's order history is drawn from its own
// source, seeded with a sub-seed derived from (Config.Seed, customer id).
// The same Config therefore yields identical tables whether histories are
// produced by Stream, by Generate, or by Generate on any number of workers.
package generator

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"ecommerce-analytics/pkg/models"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
)

// History is one customer with the orders synthesised for them.
type History struct {
	Customer  models.Customer
	Archetype string
	Orders    []models.Order
	Items     []models.OrderItem
}

// AddTo counts h into a summary being built from a stream.
func (h History) AddTo(s *models.DatasetSummary) {
	s.Customers++
	s.OrderItems += len(h.Items)
	s.AddOrders(h.Orders)
}

// Generator produces datasets for a fixed Config.
type Generator struct {
	cfg       Config
	products  []models.Product
	customers []models.Customer
}

type orderDraft struct {
	date  time.Time
	ship  time.Time
	items []itemDraft
}

type itemDraft struct {
	product  int // index into products
	quantity int
	discount decimal.Decimal
}

type draftSet struct {
	archetype string
	orders    []orderDraft
}

// idCounter hands out sequential identifiers while histories are assembled.
type idCounter struct {
	order int64
	item  int64
}

// New validates cfg and draws the catalog and the customer table.
func New(cfg Config) (*Generator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rng := newRNG(cfg.Seed)
	g := &Generator{cfg: cfg}
	g.products = buildProducts(rng, cfg)
	g.customers = buildCustomers(rng, cfg)
	return g, nil
}

// Products returns the generated catalog.
func (g *Generator) Products() []models.Product { return g.products }

// Customers returns the generated customer table.
func (g *Generator) Customers() []models.Customer { return g.customers }

// Generate synthesises every customer's history and returns the four tables.
func (g *Generator) Generate(ctx context.Context) (*models.Dataset, error) {
	drafts, err := g.draftAll(ctx)
	if err != nil {
		return nil, err
	}

	ds := &models.Dataset{
		Customers: g.customers,
		Products:  g.products,
	}
	var ids idCounter
	for i, c := range g.customers {
		h := g.assemble(c, drafts[i], &ids)
		ds.Orders = append(ds.Orders, h.Orders...)
		ds.OrderItems = append(ds.OrderItems, h.Items...)
	}
	if g.cfg.Verbose {
		s := ds.Summary()
		log.Printf("[INFO] generated customers=%d products=%d orders=%d items=%d revenue=%s",
			s.Customers, s.Products, s.Orders, s.OrderItems, s.TotalRevenue.StringFixed(2))
	}
	return ds, nil
}

// Stream synthesises customers one at a time and hands each history to fn,
// in customer id order. Only one history is held in memory at a time.
func (g *Generator) Stream(ctx context.Context, fn func(History) error) error {
	bar := g.progress("customers")
	var ids idCounter
	for _, c := range g.customers {
		if err := ctx.Err(); err != nil {
			return err
		}
		h := g.assemble(c, g.draft(c), &ids)
		if err := fn(h); err != nil {
			return fmt.Errorf("customer %d: %w", c.CustomerID, err)
		}
		_ = bar.Add(1)
	}
	return nil
}

func (g *Generator) draftAll(ctx context.Context) ([]draftSet, error) {
	drafts := make([]draftSet, len(g.customers))
	bar := g.progress("customers")

	workers := g.cfg.Workers
	if workers <= 1 {
		for i, c := range g.customers {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			drafts[i] = g.draft(c)
			_ = bar.Add(1)
		}
		return drafts, nil
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				drafts[i] = g.draft(g.customers[i])
				_ = bar.Add(1)
			}
		}()
	}
	var err error
feed:
	for i := range g.customers {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case idx <- i:
		}
	}
	close(idx)
	wg.Wait()
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

// draft synthesises the order history of one customer from its own source.
// It stops early when the next order would fall after the window end.
func (g *Generator) draft(c models.Customer) draftSet {
	cfg := g.cfg
	rng := newRNG(customerSeed(cfg.Seed, c.CustomerID))

	a := pickArchetype(rng, cfg.Archetypes)
	n := between(rng, a.Orders)
	set := draftSet{archetype: a.Name, orders: make([]orderDraft, 0, n)}

	var last time.Time
	for k := 0; k < n; k++ {
		var date time.Time
		if k == 0 {
			date = c.RegistrationDate.AddDate(0, 0, between(rng, cfg.FirstOrderDelayDays))
		} else {
			date = last.AddDate(0, 0, between(rng, cfg.OrderGapDays))
		}
		if date.After(cfg.End) {
			break
		}
		last = date

		od := orderDraft{
			date: date,
			ship: date.AddDate(0, 0, between(rng, cfg.ShipDelayDays)),
		}
		picks := sampleIndexes(rng, len(g.products), between(rng, cfg.ItemsPerOrder))
		od.items = make([]itemDraft, len(picks))
		for i, p := range picks {
			od.items[i] = itemDraft{
				product:  p,
				quantity: between(rng, cfg.Quantity),
				discount: cfg.Discounts[rng.Intn(len(cfg.Discounts))],
			}
		}
		set.orders = append(set.orders, od)
	}
	return set
}

// assemble prices a draft and assigns identifiers.
func (g *Generator) assemble(c models.Customer, set draftSet, ids *idCounter) History {
	h := History{
		Customer:  c,
		Archetype: set.archetype,
		Orders:    make([]models.Order, 0, len(set.orders)),
	}
	for _, od := range set.orders {
		ids.order++
		total := decimal.Zero
		for _, it := range od.items {
			ids.item++
			p := g.products[it.product]
			line := models.LineTotal(p.UnitPrice, it.quantity, it.discount)
			total = total.Add(line)
			h.Items = append(h.Items, models.OrderItem{
				OrderItemID: ids.item,
				OrderID:     ids.order,
				ProductID:   p.ProductID,
				Quantity:    it.quantity,
				UnitPrice:   p.UnitPrice,
				Discount:    it.discount,
				LineTotal:   line,
			})
		}
		h.Orders = append(h.Orders, models.Order{
			OrderID:     ids.order,
			CustomerID:  c.CustomerID,
			OrderDate:   od.date,
			ShipDate:    od.ship,
			TotalAmount: models.RoundCents(total),
			Status:      models.OrderStatusCompleted,
		})
	}
	return h
}

func (g *Generator) progress(description string) *progressbar.ProgressBar {
	if g.cfg.Verbose {
		return progressbar.Default(int64(len(g.customers)), description)
	}
	return progressbar.DefaultSilent(int64(len(g.customers)), description)
}

func buildProducts(rng *rand.Rand, cfg Config) []models.Product {
	minPrice := decimal.RequireFromString("0.01")
	var products []models.Product
	id := int64(1)
	for _, cat := range cfg.Catalog {
		for _, sub := range cat.SubCategories {
			for i := 1; i <= cfg.ModelsPerSubCategory; i++ {
				// the conversion keeps the product from being fused into an FMA
				raw := cat.MinPrice + float64(rng.Float64()*(cat.MaxPrice-cat.MinPrice))
				price := models.RoundCents(decimal.NewFromFloat(raw))
				if price.LessThan(minPrice) {
					price = minPrice
				}
				products = append(products, models.Product{
					ProductID:   id,
					Name:        fmt.Sprintf("%s Model %d", sub, i),
					Category:    cat.Name,
					SubCategory: sub,
					UnitPrice:   price,
				})
				id++
			}
		}
	}
	return products
}

func buildCustomers(rng *rand.Rand, cfg Config) []models.Customer {
	days := cfg.windowDays()
	customers := make([]models.Customer, 0, cfg.Customers)
	for i := 1; i <= cfg.Customers; i++ {
		region := cfg.Regions[rng.Intn(len(cfg.Regions))]
		city := region.Cities[rng.Intn(len(region.Cities))]
		customers = append(customers, models.Customer{
			CustomerID:       int64(i),
			Name:             fmt.Sprintf("Customer_%d", i),
			Email:            fmt.Sprintf("customer%d@email.com", i),
			Country:          region.Country,
			City:             city,
			RegistrationDate: cfg.Start.AddDate(0, 0, rng.Intn(days)),
		})
	}
	return customers
}
