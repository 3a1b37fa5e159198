package payments

import (
	"math"

	apperrors "github.com/DianaV2002/nft-evo-tickets/pkg/app_errors"
)

// CheckedMul multiplies two non-negative amounts, failing the operation on
// overflow instead of wrapping.
func CheckedMul(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, apperrors.ErrInvalidInput
	}
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxInt64/b {
		return 0, apperrors.ErrNumericOverflow
	}
	return a * b, nil
}

// CheckedAdd adds two non-negative amounts with the same failure rule.
func CheckedAdd(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, apperrors.ErrInvalidInput
	}
	if a > math.MaxInt64-b {
		return 0, apperrors.ErrNumericOverflow
	}
	return a + b, nil
}

// SplitFee divides price into a platform fee and the seller's share, in
// basis points. The two always sum back to price.
func SplitFee(price, feeBasisPoints int64) (fee, sellerShare int64, err error) {
	gross, err := CheckedMul(price, feeBasisPoints)
	if err != nil {
		return 0, 0, err
	}
	fee = gross / 10000
	return fee, price - fee, nil
}
