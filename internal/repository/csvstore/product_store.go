package csvstore

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"grocery-store/internal/domain"
	"grocery-store/internal/repository"
)

// ProductStore keeps the catalog in a file of id,name,price,barcode lines.
type ProductStore struct {
	path   string
	logger logrus.FieldLogger

	mu      sync.Mutex
	skipped int
}

func NewProductStore(path string, logger logrus.FieldLogger) repository.ProductRepository {
	return &ProductStore{path: path, logger: orDefault(logger)}
}

func (s *ProductStore) Load(ctx context.Context) ([]domain.Product, error) {
	lines, err := readLines(s.path)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(lines))
	skipped := 0
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		product, err := decodeProduct(strings.Split(line, Delimiter))
		if err != nil {
			s.skip(i+1, err)
			skipped++
			continue
		}
		products = append(products, product)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.skipped = skipped
	s.mu.Unlock()
	return products, nil
}

func (s *ProductStore) Skipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

func (s *ProductStore) Save(ctx context.Context, products []domain.Product) error {
	lines := make([]string, 0, len(products))
	for _, p := range products {
		line, err := encodeProduct(p)
		if err != nil {
			return err
		}
		lines = append(lines, line)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeLines(s.path, lines)
}

func (s *ProductStore) skip(line int, err error) {
	perr := &ParseError{Path: s.path, Line: line, Reason: err.Error()}
	s.logger.WithFields(logrus.Fields{"path": perr.Path, "line": perr.Line}).Warnf("skip product record: %s", perr.Reason)
}

func orDefault(logger logrus.FieldLogger) logrus.FieldLogger {
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}
