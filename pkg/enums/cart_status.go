package enums

// CartStatus tracks whether a cart is usable. Carts stay active for the life
// of the account; checkout empties them instead of retiring them.
type CartStatus string

const (
	CartStatusActive CartStatus = "active"
)

// String implements fmt.Stringer.
func (c CartStatus) String() string {
	return string(c)
}
