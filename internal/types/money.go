// README: Common money value object used across modules.
package types

import "fmt"

// Money holds an amount in minor units (cents).
type Money struct {
	Amount   int64
	Currency string
}

// Signed renders the amount with two decimals and an explicit leading
// plus for positive values. Zero renders as plain "0.00".
func (m Money) Signed() string {
	v := float64(m.Amount) / 100.0
	if m.Amount > 0 {
		return fmt.Sprintf("+%.2f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
