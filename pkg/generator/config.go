package generator

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidConfig is returned by New when the configuration cannot produce
// a consistent dataset.
var ErrInvalidConfig = errors.New("invalid generator config")

// IntRange is an inclusive integer range.
type IntRange struct {
	Min int
	Max int
}

// Category describes one product family of the catalog.
type Category struct {
	Name          string
	SubCategories []string
	MinPrice      float64
	MaxPrice      float64
}

// Region is a country and the cities a customer may live in.
type Region struct {
	Country string
	Cities  []string
}

// Archetype is a purchase behavior. Weight is relative to the other
// archetypes; Orders bounds the number of orders a customer intends to place.
type Archetype struct {
	Name   string
	Weight float64
	Orders IntRange
}

// Config drives one generation run.
type Config struct {
	Customers int
	Start     time.Time // inclusive
	End       time.Time // registrations are < End, orders are <= End
	Seed      int64
	Workers   int // goroutines used by Generate; <= 1 means sequential
	Verbose   bool

	Catalog              []Category
	ModelsPerSubCategory int
	Regions              []Region
	Archetypes           []Archetype

	FirstOrderDelayDays IntRange
	OrderGapDays        IntRange
	ShipDelayDays       IntRange
	ItemsPerOrder       IntRange
	Quantity            IntRange
	Discounts           []decimal.Decimal // drawn uniformly, repeat a value to weight it
}

// DefaultConfig returns the catalog and behavior model of the reference
// dataset: 5000 customers between 2022-01-01 and 2024-11-30, seed 42.
func DefaultConfig() Config {
	return Config{
		Customers: 5000,
		Start:     time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 11, 30, 0, 0, 0, 0, time.UTC),
		Seed:      42,
		Workers:   1,
		Catalog: []Category{
			{Name: "Electronics", SubCategories: []string{"Laptop", "Phone", "Tablet", "Headphones", "Camera", "Smartwatch"}, MinPrice: 50, MaxPrice: 1500},
			{Name: "Clothing", SubCategories: []string{"Shirt", "Pants", "Dress", "Jacket", "Shoes", "Hat"}, MinPrice: 20, MaxPrice: 200},
			{Name: "Home", SubCategories: []string{"Chair", "Table", "Lamp", "Rug", "Cushion", "Mirror"}, MinPrice: 30, MaxPrice: 500},
			{Name: "Books", SubCategories: []string{"Fiction", "Non-Fiction", "Educational", "Comics"}, MinPrice: 10, MaxPrice: 50},
			{Name: "Sports", SubCategories: []string{"Ball", "Racket", "Weights", "Yoga Mat", "Bicycle"}, MinPrice: 15, MaxPrice: 300},
		},
		ModelsPerSubCategory: 7,
		Regions: []Region{
			{Country: "USA", Cities: []string{"New York", "Los Angeles", "Chicago", "Houston"}},
			{Country: "UK", Cities: []string{"London", "Manchester", "Birmingham"}},
			{Country: "Germany", Cities: []string{"Berlin", "Munich", "Hamburg"}},
			{Country: "France", Cities: []string{"Paris", "Lyon", "Marseille"}},
			{Country: "Canada", Cities: []string{"Toronto", "Vancouver", "Montreal"}},
			{Country: "Australia", Cities: []string{"Sydney", "Melbourne", "Brisbane"}},
			{Country: "India", Cities: []string{"Mumbai", "Delhi", "Bangalore", "Hyderabad"}},
			{Country: "Japan", Cities: []string{"Tokyo", "Osaka", "Kyoto"}},
		},
		Archetypes: []Archetype{
			{Name: "champion", Weight: 0.15, Orders: IntRange{Min: 8, Max: 20}},
			{Name: "loyal", Weight: 0.25, Orders: IntRange{Min: 4, Max: 8}},
			{Name: "occasional", Weight: 0.35, Orders: IntRange{Min: 2, Max: 4}},
			{Name: "one_time", Weight: 0.25, Orders: IntRange{Min: 1, Max: 1}},
		},
		FirstOrderDelayDays: IntRange{Min: 0, Max: 7},
		OrderGapDays:        IntRange{Min: 7, Max: 90},
		ShipDelayDays:       IntRange{Min: 1, Max: 5},
		ItemsPerOrder:       IntRange{Min: 1, Max: 5},
		Quantity:            IntRange{Min: 1, Max: 3},
		Discounts: []decimal.Decimal{
			decimal.Zero, decimal.Zero, decimal.Zero,
			decimal.RequireFromString("0.05"),
			decimal.RequireFromString("0.10"),
			decimal.RequireFromString("0.15"),
		},
	}
}

func (c Config) windowDays() int {
	return int(c.End.Sub(c.Start).Hours() / 24)
}

func (c Config) validate() error {
	if c.Customers < 0 {
		return fmt.Errorf("%w: negative customer count %d", ErrInvalidConfig, c.Customers)
	}
	if c.windowDays() <= 0 {
		return fmt.Errorf("%w: end %s must be at least one day after start %s",
			ErrInvalidConfig, c.End.Format("2006-01-02"), c.Start.Format("2006-01-02"))
	}
	if len(c.Catalog) == 0 || c.ModelsPerSubCategory <= 0 {
		return fmt.Errorf("%w: empty catalog", ErrInvalidConfig)
	}
	for _, cat := range c.Catalog {
		if len(cat.SubCategories) == 0 {
			return fmt.Errorf("%w: category %q has no sub-categories", ErrInvalidConfig, cat.Name)
		}
		if cat.MinPrice <= 0 || cat.MaxPrice < cat.MinPrice {
			return fmt.Errorf("%w: category %q price range [%v, %v]", ErrInvalidConfig, cat.Name, cat.MinPrice, cat.MaxPrice)
		}
	}
	if len(c.Regions) == 0 {
		return fmt.Errorf("%w: no regions", ErrInvalidConfig)
	}
	for _, r := range c.Regions {
		if len(r.Cities) == 0 {
			return fmt.Errorf("%w: country %q has no cities", ErrInvalidConfig, r.Country)
		}
	}
	if len(c.Archetypes) == 0 {
		return fmt.Errorf("%w: no archetypes", ErrInvalidConfig)
	}
	total := 0.0
	for _, a := range c.Archetypes {
		if a.Weight < 0 || !a.Orders.valid() || a.Orders.Min < 1 {
			return fmt.Errorf("%w: archetype %q", ErrInvalidConfig, a.Name)
		}
		total += a.Weight
	}
	if total <= 0 {
		return fmt.Errorf("%w: archetype weights sum to zero", ErrInvalidConfig)
	}
	ranges := map[string]IntRange{
		"first order delay": c.FirstOrderDelayDays,
		"order gap":         c.OrderGapDays,
		"ship delay":        c.ShipDelayDays,
		"items per order":   c.ItemsPerOrder,
		"quantity":          c.Quantity,
	}
	for name, r := range ranges {
		if !r.valid() || r.Min < 0 {
			return fmt.Errorf("%w: %s range [%d, %d]", ErrInvalidConfig, name, r.Min, r.Max)
		}
	}
	if c.ItemsPerOrder.Min < 1 || c.Quantity.Min < 1 {
		return fmt.Errorf("%w: orders need at least one item of quantity one", ErrInvalidConfig)
	}
	if c.OrderGapDays.Min < 1 {
		return fmt.Errorf("%w: order gap must be at least one day", ErrInvalidConfig)
	}
	if len(c.Discounts) == 0 {
		return fmt.Errorf("%w: no discounts", ErrInvalidConfig)
	}
	one := decimal.NewFromInt(1)
	for _, d := range c.Discounts {
		if d.IsNegative() || !d.LessThan(one) {
			return fmt.Errorf("%w: discount %s outside [0, 1)", ErrInvalidConfig, d)
		}
	}
	return nil
}

func (r IntRange) valid() bool { return r.Min <= r.Max }
