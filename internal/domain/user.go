package domain

// User is a registered account. Email is the account key; Credential holds
// the stored (hashed or obfuscated) password, never the plaintext.
type User struct {
	Name       string
	Email      string
	Credential string
	Cart       *Cart
}

// NewUser returns a user owning an empty cart.
func NewUser(name, email, credential string) *User {
	return &User{
		Name:       name,
		Email:      email,
		Credential: credential,
		Cart:       NewCart(),
	}
}
