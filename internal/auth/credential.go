package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	SchemeBcrypt    = "bcrypt"
	SchemeRailFence = "railfence"
)

// Hasher turns a plaintext password into the credential stored in the users file.
type Hasher interface {
	Hash(password string) (string, error)
}

// NewHasher returns the hasher for scheme. An empty scheme means bcrypt.
func NewHasher(scheme string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", SchemeBcrypt:
		return BcryptHasher{Cost: bcrypt.DefaultCost}, nil
	case SchemeRailFence:
		return RailFence{Rails: 3}, nil
	}
	return nil, fmt.Errorf("unknown credential scheme %q", scheme)
}

// BcryptHasher stores salted bcrypt hashes.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// RailFence is the zigzag transposition used by users files written before
// bcrypt support. It is reversible obfuscation, not a hash, and only exists
// so those files keep working. Do not select it for new deployments.
type RailFence struct {
	Rails int
}

func (r RailFence) Hash(password string) (string, error) {
	return railFence(password, r.Rails), nil
}

func railFence(text string, rails int) string {
	chars := []rune(text)
	if rails < 2 || len(chars) < 2 {
		return text
	}

	rows := make([][]rune, rails)
	row, step := 0, 1
	for _, ch := range chars {
		rows[row] = append(rows[row], ch)
		if row == 0 {
			step = 1
		} else if row == rails-1 {
			step = -1
		}
		row += step
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range rows {
		b.WriteString(string(r))
	}
	return b.String()
}

// Verify checks password against a stored credential of either scheme.
// Values that parse as bcrypt hashes are only ever checked as bcrypt.
func Verify(stored, password string) bool {
	if _, err := bcrypt.Cost([]byte(stored)); err == nil {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	encoded := railFence(password, 3)
	return subtle.ConstantTimeCompare([]byte(encoded), []byte(stored)) == 1
}
