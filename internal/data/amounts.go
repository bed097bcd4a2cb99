package data

import (
	"math/big"

	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

var hundred = big.NewInt(100)

// PercentFilled returns floor(filled * 100 / total) bounded to [0, 100].
// Amounts are decimal integer strings of arbitrary size.
func PercentFilled(filled, total string) (int, error) {
	f, ok := new(big.Int).SetString(filled, 10)
	if !ok {
		return 0, errors.From(errors.New("invalid filled amount"), logan.F{"amount": filled})
	}
	t, ok := new(big.Int).SetString(total, 10)
	if !ok {
		return 0, errors.From(errors.New("invalid total amount"), logan.F{"amount": total})
	}
	if t.Sign() <= 0 || f.Sign() <= 0 {
		return 0, nil
	}

	// operands are positive, so Quo truncation is floor
	p := new(big.Int).Mul(f, hundred)
	p.Quo(p, t)
	if p.Cmp(hundred) > 0 {
		return 100, nil
	}
	return int(p.Int64()), nil
}
