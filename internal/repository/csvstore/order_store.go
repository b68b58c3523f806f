package csvstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"grocery-store/internal/domain"
	"grocery-store/internal/repository"
)

// TimeLayout is the timestamp format of order records.
const TimeLayout = time.RFC3339

// OrderStore appends one userName,userEmail,timestamp[,barcode:quantity]*
// line per checkout. Existing lines are never rewritten.
type OrderStore struct {
	path   string
	logger logrus.FieldLogger
}

func NewOrderStore(path string, logger logrus.FieldLogger) repository.OrderRepository {
	return &OrderStore{path: path, logger: orDefault(logger)}
}

func (s *OrderStore) Init(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &repository.StorageError{Op: "mkdir", Path: dir, Err: err}
	}
	return nil
}

func (s *OrderStore) Append(ctx context.Context, order *domain.Order) error {
	if err := checkFields(order.UserName, order.UserEmail); err != nil {
		return fmt.Errorf("encode order: %w", err)
	}

	var b strings.Builder
	b.WriteString(strings.Join([]string{
		order.UserName,
		order.UserEmail,
		order.CreatedAt.UTC().Format(TimeLayout),
	}, Delimiter))
	for _, line := range order.Lines {
		b.WriteString(Delimiter)
		b.WriteString(encodeItem(line.Product.Barcode, line.Quantity))
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return appendLine(s.path, b.String())
}

// ListByEmail returns the orders of email in the order they were placed.
// Items whose barcode is no longer in the catalog are dropped.
func (s *OrderStore) ListByEmail(ctx context.Context, email string, products domain.ProductResolver) ([]domain.Order, error) {
	lines, err := readLines(s.path)
	if err != nil {
		return nil, err
	}

	var orders []domain.Order
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, Delimiter)
		if len(fields) < 3 {
			s.warn(i+1, fmt.Errorf("expected at least 3 fields, got %d", len(fields)), "skip order record")
			continue
		}
		if fields[1] != email {
			continue
		}
		createdAt, err := time.Parse(TimeLayout, strings.TrimSpace(fields[2]))
		if err != nil {
			s.warn(i+1, fmt.Errorf("invalid timestamp %q", fields[2]), "skip order record")
			continue
		}

		order := domain.Order{UserName: fields[0], UserEmail: fields[1], CreatedAt: createdAt.UTC()}
		for _, field := range fields[3:] {
			it, err := decodeItem(field)
			if err != nil {
				s.warn(i+1, err, "skip order item")
				continue
			}
			product, ok := products.FindByBarcode(it.barcode)
			if !ok {
				continue
			}
			order.Lines = append(order.Lines, domain.OrderLine{Product: *product, Quantity: it.quantity})
		}
		orders = append(orders, order)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *OrderStore) warn(line int, err error, msg string) {
	perr := &ParseError{Path: s.path, Line: line, Reason: err.Error()}
	s.logger.WithFields(logrus.Fields{"path": perr.Path, "line": perr.Line}).Warnf("%s: %s", msg, perr.Reason)
}
