// Package database lit et écrit les quatre tables sources (MySQL/MariaDB ou PostgreSQL).
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ecommerce-analytics/pkg/models"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

const (
	driverMySQL    = "mysql"
	driverPostgres = "postgres"
)

type Store struct {
	db     *sql.DB
	driver string
	dsn    string
}

// Open accepte mariadb://, mysql://, postgres://, postgresql:// ou un DSN natif go-sql-driver.
func Open(dsn string) (*Store, error) {
	driver := driverFor(dsn)
	native := dsn
	if driver == driverMySQL {
		var err error
		if native, err = toMySQLDSN(dsn); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open(driver, native)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db, driver: driver, dsn: native}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Driver() string { return s.driver }

// Redacted renvoie le DSN sans le mot de passe.
func (s *Store) Redacted() string { return redact(s.driver, s.dsn) }

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func driverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return driverPostgres
	}
	return driverMySQL
}

// toMySQLDSN: mariadb:// ou mysql:// -> DSN go-sql-driver, le reste passe tel quel
func toMySQLDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "mariadb://") && !strings.HasPrefix(dsn, "mysql://") {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	cfg := mysql.NewConfig()
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if cfg.User == "" || cfg.Addr == "" || cfg.DBName == "" {
		return "", fmt.Errorf("incomplete dsn (user/host/db)")
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.InterpolateParams = true
	return cfg.FormatDSN(), nil
}

func redact(driver, dsn string) string {
	if driver == driverPostgres {
		if u, err := url.Parse(dsn); err == nil {
			return u.Redacted()
		}
		return "postgres://***"
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "***"
	}
	if cfg.Passwd != "" {
		cfg.Passwd = "xxxxx"
	}
	return cfg.FormatDSN()
}

// rebind: ? -> $1, $2, ... pour PostgreSQL
func rebind(driver, q string) string {
	if driver != driverPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// Load lit les quatre tables, triées par id.
func (s *Store) Load(ctx context.Context) (*models.Dataset, error) {
	ds := &models.Dataset{}

	err := s.query(ctx, `SELECT customer_id, customer_name, email, country, city, registration_date
		FROM customers ORDER BY customer_id`, func(rows *sql.Rows) error {
		var c models.Customer
		if err := rows.Scan(&c.CustomerID, &c.Name, &c.Email, &c.Country, &c.City, &c.RegistrationDate); err != nil {
			return err
		}
		c.RegistrationDate = dateOnly(c.RegistrationDate)
		ds.Customers = append(ds.Customers, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}

	err = s.query(ctx, `SELECT product_id, product_name, category, sub_category, unit_price
		FROM products ORDER BY product_id`, func(rows *sql.Rows) error {
		var p models.Product
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Category, &p.SubCategory, &p.UnitPrice); err != nil {
			return err
		}
		ds.Products = append(ds.Products, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	err = s.query(ctx, `SELECT order_id, customer_id, order_date, ship_date, total_amount, order_status
		FROM orders ORDER BY order_id`, func(rows *sql.Rows) error {
		var o models.Order
		if err := rows.Scan(&o.OrderID, &o.CustomerID, &o.OrderDate, &o.ShipDate, &o.TotalAmount, &o.Status); err != nil {
			return err
		}
		o.OrderDate, o.ShipDate = dateOnly(o.OrderDate), dateOnly(o.ShipDate)
		ds.Orders = append(ds.Orders, o)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	err = s.query(ctx, `SELECT order_item_id, order_id, product_id, quantity, unit_price, discount, line_total
		FROM order_items ORDER BY order_item_id`, func(rows *sql.Rows) error {
		var it models.OrderItem
		if err := rows.Scan(&it.OrderItemID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Discount, &it.LineTotal); err != nil {
			return err
		}
		ds.OrderItems = append(ds.OrderItems, it)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	return ds, nil
}

func (s *Store) query(ctx context.Context, q string, scan func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, rebind(s.driver, q))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// dateOnly retire l'heure et la zone ajoutées par les drivers aux colonnes DATE
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
