package csvstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"grocery-store/internal/domain"
	"grocery-store/internal/repository"
)

// UserStore keeps accounts in a file of name,email,credential[,barcode:quantity]*
// lines. Every save rewrites the whole file.
type UserStore struct {
	path   string
	logger logrus.FieldLogger
}

func NewUserStore(path string, logger logrus.FieldLogger) repository.UserRepository {
	return &UserStore{path: path, logger: orDefault(logger)}
}

// Load rebuilds every user and its cart. When an email appears on several
// lines the last one wins but keeps the position of the first.
func (s *UserStore) Load(ctx context.Context, products domain.ProductResolver) ([]*domain.User, error) {
	lines, err := readLines(s.path)
	if err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(lines))
	byEmail := make(map[string]int, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		user, err := s.decode(i+1, strings.Split(line, Delimiter), products)
		if err != nil {
			s.warn(i+1, err, "skip user record")
			continue
		}
		if at, seen := byEmail[user.Email]; seen {
			users[at] = user
			continue
		}
		byEmail[user.Email] = len(users)
		users = append(users, user)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *UserStore) decode(lineNo int, fields []string, products domain.ProductResolver) (*domain.User, error) {
	if len(fields) < 3 {
		return nil, fmt.Errorf("expected at least 3 fields, got %d", len(fields))
	}
	if strings.TrimSpace(fields[1]) == "" {
		return nil, fmt.Errorf("empty email")
	}

	user := domain.NewUser(fields[0], fields[1], fields[2])
	for _, field := range fields[3:] {
		it, err := decodeItem(field)
		if err != nil {
			s.warn(lineNo, err, "skip cart item")
			continue
		}
		product, ok := products.FindByBarcode(it.barcode)
		if !ok {
			s.logger.WithFields(logrus.Fields{"path": s.path, "line": lineNo, "barcode": it.barcode}).
				Debug("drop cart item for unknown barcode")
			continue
		}
		if err := user.Cart.AddLine(product, it.quantity); err != nil {
			s.warn(lineNo, err, "skip cart item")
		}
	}
	return user, nil
}

func (s *UserStore) Save(ctx context.Context, users []*domain.User) error {
	lines := make([]string, 0, len(users))
	for _, user := range users {
		if err := checkFields(user.Name, user.Email, user.Credential); err != nil {
			return fmt.Errorf("encode user %s: %w", user.Email, err)
		}
		var b strings.Builder
		b.WriteString(strings.Join([]string{user.Name, user.Email, user.Credential}, Delimiter))
		for _, line := range user.Cart.Lines() {
			b.WriteString(Delimiter)
			b.WriteString(encodeItem(line.Product.Barcode, line.Quantity))
		}
		lines = append(lines, b.String())
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeLines(s.path, lines)
}

func (s *UserStore) warn(line int, err error, msg string) {
	perr := &ParseError{Path: s.path, Line: line, Reason: err.Error()}
	s.logger.WithFields(logrus.Fields{"path": perr.Path, "line": perr.Line}).Warnf("%s: %s", msg, perr.Reason)
}
