package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"ecommerce-analytics/pkg/generator"
	"ecommerce-analytics/pkg/models"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
)

// lignes par INSERT multi-lignes
const batchRows = 500

var schema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		customer_id BIGINT PRIMARY KEY,
		customer_name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		country VARCHAR(100) NOT NULL,
		city VARCHAR(100) NOT NULL,
		registration_date DATE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id BIGINT PRIMARY KEY,
		product_name VARCHAR(255) NOT NULL,
		category VARCHAR(100) NOT NULL,
		sub_category VARCHAR(100) NOT NULL,
		unit_price DECIMAL(12,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id BIGINT PRIMARY KEY,
		customer_id BIGINT NOT NULL,
		order_date DATE NOT NULL,
		ship_date DATE NOT NULL,
		total_amount DECIMAL(14,2) NOT NULL,
		order_status VARCHAR(32) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_item_id BIGINT PRIMARY KEY,
		order_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		quantity INT NOT NULL,
		unit_price DECIMAL(12,2) NOT NULL,
		discount DECIMAL(5,4) NOT NULL,
		line_total DECIMAL(14,2) NOT NULL
	)`,
}

// ordre d'insertion ; vidées en sens inverse
var tables = []string{"customers", "products", "orders", "order_items"}

func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, ddl := range schema {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveDataset remplace les tables par ds, en une transaction.
func (s *Store) SaveDataset(ctx context.Context, ds *models.Dataset, verbose bool) error {
	total := len(ds.Customers) + len(ds.Products) + len(ds.Orders) + len(ds.OrderItems)
	return s.replace(ctx, newBar(total, "saving rows", verbose), func(w *tableWriters) error {
		for _, p := range ds.Products {
			if err := w.product(ctx, p); err != nil {
				return err
			}
		}
		for _, c := range ds.Customers {
			if err := w.customer(ctx, c); err != nil {
				return err
			}
		}
		for _, o := range ds.Orders {
			if err := w.order(ctx, o); err != nil {
				return err
			}
		}
		for _, it := range ds.OrderItems {
			if err := w.item(ctx, it); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveGenerated remplace les tables par la sortie de g, client par client
// (jamais toute la table des commandes en mémoire), et renvoie le résumé
// de ce qui a été écrit.
func (s *Store) SaveGenerated(ctx context.Context, g *generator.Generator) (models.DatasetSummary, error) {
	sum := models.DatasetSummary{Products: len(g.Products()), TotalRevenue: decimal.Zero}
	err := s.replace(ctx, nil, func(w *tableWriters) error {
		for _, p := range g.Products() {
			if err := w.product(ctx, p); err != nil {
				return err
			}
		}
		return g.Stream(ctx, func(h generator.History) error {
			if err := w.history(ctx, h); err != nil {
				return err
			}
			h.AddTo(&sum)
			return nil
		})
	})
	if err != nil {
		return models.DatasetSummary{}, err
	}
	return sum, nil
}

func (s *Store) replace(ctx context.Context, bar *progressbar.ProgressBar, fill func(*tableWriters) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+tables[i]); err != nil {
			return fmt.Errorf("clear %s: %w", tables[i], err)
		}
	}

	w := newTableWriters(tx, s.driver, bar)
	if err := fill(w); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := w.flush(ctx); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Printf("[INFO] saved rows customers=%d products=%d orders=%d items=%d",
		w.customers.written, w.products.written, w.orders.written, w.items.written)
	return nil
}

func newBar(n int, description string, verbose bool) *progressbar.ProgressBar {
	if verbose {
		return progressbar.Default(int64(n), description)
	}
	return progressbar.DefaultSilent(int64(n), description)
}

type batch struct {
	tx      *sql.Tx
	driver  string
	table   string
	columns []string
	args    []any
	rows    int
	written int
}

func (b *batch) add(ctx context.Context, values ...any) error {
	b.args = append(b.args, values...)
	b.rows++
	if b.rows == batchRows {
		return b.flush(ctx)
	}
	return nil
}

func (b *batch) flush(ctx context.Context) error {
	if b.rows == 0 {
		return nil
	}
	q := rebind(b.driver, insertSQL(b.table, b.columns, b.rows))
	if _, err := b.tx.ExecContext(ctx, q, b.args...); err != nil {
		return fmt.Errorf("insert %s: %w", b.table, err)
	}
	b.written += b.rows
	b.args = b.args[:0]
	b.rows = 0
	return nil
}

// insertSQL builds "INSERT INTO table (cols) VALUES (?, ...), ..." for rows rows.
func insertSQL(table string, columns []string, rows int) string {
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(") VALUES ")
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(row)
	}
	return b.String()
}

type tableWriters struct {
	customers, products, orders, items *batch
	bar                                *progressbar.ProgressBar
}

func newTableWriters(tx *sql.Tx, driver string, bar *progressbar.ProgressBar) *tableWriters {
	mk := func(table string, columns ...string) *batch {
		return &batch{tx: tx, driver: driver, table: table, columns: columns}
	}
	return &tableWriters{
		customers: mk("customers", "customer_id", "customer_name", "email", "country", "city", "registration_date"),
		products:  mk("products", "product_id", "product_name", "category", "sub_category", "unit_price"),
		orders:    mk("orders", "order_id", "customer_id", "order_date", "ship_date", "total_amount", "order_status"),
		items:     mk("order_items", "order_item_id", "order_id", "product_id", "quantity", "unit_price", "discount", "line_total"),
		bar:       bar,
	}
}

func (w *tableWriters) tick() {
	if w.bar != nil {
		_ = w.bar.Add(1)
	}
}

func (w *tableWriters) customer(ctx context.Context, c models.Customer) error {
	w.tick()
	return w.customers.add(ctx, c.CustomerID, c.Name, c.Email, c.Country, c.City, c.RegistrationDate.Format(models.DateLayout))
}

func (w *tableWriters) product(ctx context.Context, p models.Product) error {
	w.tick()
	return w.products.add(ctx, p.ProductID, p.Name, p.Category, p.SubCategory, p.UnitPrice)
}

func (w *tableWriters) order(ctx context.Context, o models.Order) error {
	w.tick()
	return w.orders.add(ctx, o.OrderID, o.CustomerID,
		o.OrderDate.Format(models.DateLayout), o.ShipDate.Format(models.DateLayout), o.TotalAmount, o.Status)
}

func (w *tableWriters) item(ctx context.Context, it models.OrderItem) error {
	w.tick()
	return w.items.add(ctx, it.OrderItemID, it.OrderID, it.ProductID, it.Quantity, it.UnitPrice, it.Discount, it.LineTotal)
}

func (w *tableWriters) history(ctx context.Context, h generator.History) error {
	if err := w.customer(ctx, h.Customer); err != nil {
		return err
	}
	for _, o := range h.Orders {
		if err := w.order(ctx, o); err != nil {
			return err
		}
	}
	for _, it := range h.Items {
		if err := w.item(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

func (w *tableWriters) flush(ctx context.Context) error {
	for _, b := range []*batch{w.customers, w.products, w.orders, w.items} {
		if err := b.flush(ctx); err != nil {
			return err
		}
	}
	return nil
}
