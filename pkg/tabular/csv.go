// Package tabular reads and writes the flat CSV exchange format: one file per
// source table, plus snapshot exports of the derived views.
package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ecommerce-analytics/pkg/models"

	"github.com/shopspring/decimal"
)

// File names of the four source tables inside a data directory.
const (
	CustomersFile  = "customers.csv"
	ProductsFile   = "products.csv"
	OrdersFile     = "orders.csv"
	OrderItemsFile = "order_items.csv"
)

// ErrSourceMissing is returned when a source CSV does not exist.
var ErrSourceMissing = errors.New("source data not found, run `ecommerce-analytics -mode generate` first")

var (
	customerHeader  = []string{"customer_id", "customer_name", "email", "country", "city", "registration_date"}
	productHeader   = []string{"product_id", "product_name", "category", "sub_category", "unit_price"}
	orderHeader     = []string{"order_id", "customer_id", "order_date", "ship_date", "total_amount", "order_status"}
	orderItemHeader = []string{"order_item_id", "order_id", "product_id", "quantity", "unit_price", "discount", "line_total"}
)

// Dir is a data directory usable as a calculator source.
type Dir string

// Load reads the four source tables from the directory.
func (d Dir) Load(ctx context.Context) (*models.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadDataset(string(d))
}

// WriteDataset writes the four source tables into dir, creating it if needed.
func WriteDataset(dir string, ds *models.Dataset) error {
	err := writeCSV(filepath.Join(dir, CustomersFile), customerHeader, len(ds.Customers), func(i int) []string {
		c := ds.Customers[i]
		return []string{itoa(c.CustomerID), c.Name, c.Email, c.Country, c.City, c.RegistrationDate.Format(models.DateLayout)}
	})
	if err != nil {
		return err
	}
	err = writeCSV(filepath.Join(dir, ProductsFile), productHeader, len(ds.Products), func(i int) []string {
		p := ds.Products[i]
		return []string{itoa(p.ProductID), p.Name, p.Category, p.SubCategory, p.UnitPrice.StringFixed(2)}
	})
	if err != nil {
		return err
	}
	err = writeCSV(filepath.Join(dir, OrdersFile), orderHeader, len(ds.Orders), func(i int) []string {
		return orderRow(ds.Orders[i])
	})
	if err != nil {
		return err
	}
	return writeCSV(filepath.Join(dir, OrderItemsFile), orderItemHeader, len(ds.OrderItems), func(i int) []string {
		it := ds.OrderItems[i]
		return []string{
			itoa(it.OrderItemID), itoa(it.OrderID), itoa(it.ProductID), strconv.Itoa(it.Quantity),
			it.UnitPrice.StringFixed(2), it.Discount.String(), it.LineTotal.StringFixed(2),
		}
	})
}

// ReadDataset reads the four source tables from dir. A missing file yields
// an error wrapping ErrSourceMissing.
func ReadDataset(dir string) (*models.Dataset, error) {
	ds := &models.Dataset{}

	err := readCSV(filepath.Join(dir, CustomersFile), customerHeader, func(rec []string) error {
		var c models.Customer
		var err error
		if c.CustomerID, err = parseID(rec[0]); err != nil {
			return err
		}
		c.Name, c.Email, c.Country, c.City = rec[1], rec[2], rec[3], rec[4]
		if c.RegistrationDate, err = parseDate(rec[5]); err != nil {
			return err
		}
		ds.Customers = append(ds.Customers, c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = readCSV(filepath.Join(dir, ProductsFile), productHeader, func(rec []string) error {
		var p models.Product
		var err error
		if p.ProductID, err = parseID(rec[0]); err != nil {
			return err
		}
		p.Name, p.Category, p.SubCategory = rec[1], rec[2], rec[3]
		if p.UnitPrice, err = decimal.NewFromString(rec[4]); err != nil {
			return fmt.Errorf("unit_price: %w", err)
		}
		ds.Products = append(ds.Products, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = readCSV(filepath.Join(dir, OrdersFile), orderHeader, func(rec []string) error {
		var o models.Order
		var err error
		if o.OrderID, err = parseID(rec[0]); err != nil {
			return err
		}
		if o.CustomerID, err = parseID(rec[1]); err != nil {
			return err
		}
		if o.OrderDate, err = parseDate(rec[2]); err != nil {
			return err
		}
		if o.ShipDate, err = parseDate(rec[3]); err != nil {
			return err
		}
		if o.TotalAmount, err = decimal.NewFromString(rec[4]); err != nil {
			return fmt.Errorf("total_amount: %w", err)
		}
		o.Status = rec[5]
		ds.Orders = append(ds.Orders, o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = readCSV(filepath.Join(dir, OrderItemsFile), orderItemHeader, func(rec []string) error {
		var it models.OrderItem
		var err error
		if it.OrderItemID, err = parseID(rec[0]); err != nil {
			return err
		}
		if it.OrderID, err = parseID(rec[1]); err != nil {
			return err
		}
		if it.ProductID, err = parseID(rec[2]); err != nil {
			return err
		}
		if it.Quantity, err = strconv.Atoi(rec[3]); err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
		if it.UnitPrice, err = decimal.NewFromString(rec[4]); err != nil {
			return fmt.Errorf("unit_price: %w", err)
		}
		if it.Discount, err = decimal.NewFromString(rec[5]); err != nil {
			return fmt.Errorf("discount: %w", err)
		}
		if it.LineTotal, err = decimal.NewFromString(rec[6]); err != nil {
			return fmt.Errorf("line_total: %w", err)
		}
		ds.OrderItems = append(ds.OrderItems, it)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func orderRow(o models.Order) []string {
	return []string{
		itoa(o.OrderID), itoa(o.CustomerID),
		o.OrderDate.Format(models.DateLayout), o.ShipDate.Format(models.DateLayout),
		o.TotalAmount.StringFixed(2), o.Status,
	}
}

// writeCSV writes header followed by n rows produced by row.
func writeCSV(path string, header []string, n int, row func(i int) []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// readCSV checks the header of path against want and hands every record to parse.
func readCSV(path string, want []string, parse func(rec []string) error) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSourceMissing, path)
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(want)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", path, err)
	}
	if strings.Join(header, ",") != strings.Join(want, ",") {
		return fmt.Errorf("%s: unexpected columns %v, want %v", path, header, want)
	}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := parse(rec); err != nil {
			return fmt.Errorf("%s line %d: %w", path, line, err)
		}
	}
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id %q: %w", s, err)
	}
	return id, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	return t, nil
}
