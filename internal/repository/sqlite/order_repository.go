package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"grocery-store/internal/domain"
	"grocery-store/internal/repository"
)

const createOrderTables = `
CREATE TABLE IF NOT EXISTS orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_name TEXT NOT NULL,
	user_email TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_user_email ON orders(user_email);
CREATE TABLE IF NOT EXISTS order_lines (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id INTEGER NOT NULL,
	barcode INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	FOREIGN KEY(order_id) REFERENCES orders(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_order_lines_order_id ON order_lines(order_id);
`

// OrderRepository keeps the order history in sqlite. Lines store barcodes
// only and are resolved against the catalog when read, like the flat file.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createOrderTables); err != nil {
		return fmt.Errorf("create order tables: %w", err)
	}
	return nil
}

func (r *OrderRepository) Append(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	res, err := tx.ExecContext(ctx, `
INSERT INTO orders (user_name, user_email, created_at)
VALUES (?, ?, ?)`,
		order.UserName,
		order.UserEmail,
		order.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("order last insert id: %w", err)
	}

	for _, line := range order.Lines {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO order_lines (order_id, barcode, quantity)
VALUES (?, ?, ?)`,
			orderID,
			line.Product.Barcode,
			line.Quantity,
		); err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *OrderRepository) ListByEmail(ctx context.Context, email string, products domain.ProductResolver) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT o.id, o.user_name, o.user_email, o.created_at, l.barcode, l.quantity
FROM orders o
LEFT JOIN order_lines l ON l.order_id = o.id
WHERE o.user_email = ?
ORDER BY o.id ASC, l.id ASC`, email)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var (
		orders []domain.Order
		lastID int64 = -1
	)
	for rows.Next() {
		var (
			id        int64
			name      string
			mail      string
			createdAt string
			barcode   sql.NullInt64
			quantity  sql.NullInt64
		)
		if err := rows.Scan(&id, &name, &mail, &createdAt, &barcode, &quantity); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}

		if id != lastID {
			ts, err := time.Parse(time.RFC3339, createdAt)
			if err != nil {
				return nil, fmt.Errorf("parse order %d time: %w", id, err)
			}
			orders = append(orders, domain.Order{UserName: name, UserEmail: mail, CreatedAt: ts.UTC()})
			lastID = id
		}

		if !barcode.Valid || quantity.Int64 <= 0 {
			continue
		}
		product, ok := products.FindByBarcode(barcode.Int64)
		if !ok {
			continue
		}
		current := &orders[len(orders)-1]
		current.Lines = append(current.Lines, domain.OrderLine{Product: *product, Quantity: int(quantity.Int64)})
	}

	return orders, rows.Err()
}
