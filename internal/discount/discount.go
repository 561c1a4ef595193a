package discount

// MinSharedAccounts is the smallest group size that earns a discount.
const MinSharedAccounts = 2

// MaxSharedAccounts is the largest group size that still earns a discount.
const MaxSharedAccounts = 4

// Percentage returns the discount earned by a group of accounts sharing
// one email address. Groups of 2 to 4 earn 10% per member; anything else
// earns nothing.
func Percentage(accountCount int) int {
	if accountCount < MinSharedAccounts || accountCount > MaxSharedAccounts {
		return 0
	}
	return accountCount * 10
}
