package landport

import (
	"crypto/rand"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"github.com/onelandworld/landport-go/chain"
)

// ToBaseUnits converts a human-readable token amount to base units,
// truncating any fraction below one base unit. The conversion stays
// in arbitrary-precision decimals throughout.
func ToBaseUnits(amount decimal.Decimal, decimals uint8) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, validationErrorf("amount must not be negative, got %s", amount.String())
	}
	shifted := amount.Shift(int32(decimals)).Truncate(0)
	return shifted.BigInt(), nil
}

// FromBaseUnits converts a base-unit amount back to a human-readable
// decimal
func FromBaseUnits(amount *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(amount, 0).Shift(-int32(decimals))
}

var saltBound = new(big.Int).Lsh(big.NewInt(1), 256)

// GenerateSalt draws a pseudorandom uint256 order salt
func GenerateSalt() *big.Int {
	salt, err := rand.Int(rand.Reader, saltBound)
	if err != nil {
		panic("failed to read randomness for order salt: " + err.Error())
	}
	return salt
}

// ValidateAndFormatAddress checks an address string and returns its
// checksummed form. The zero address is rejected.
func ValidateAndFormatAddress(addr string) (common.Address, error) {
	if !common.IsHexAddress(addr) {
		return common.Address{}, xerrors.Errorf("%q: %w", addr, ErrInvalidAddress)
	}
	parsed := common.HexToAddress(addr)
	if parsed == NullAddress {
		return common.Address{}, xerrors.Errorf("%q: %w", addr, ErrInvalidAddress)
	}
	return parsed, nil
}

// AssignOrdersToSides pairs a maker order with the taker's freshly
// built matching order, returning the (buy, sell) pair expected by
// the exchange. The matching side is authorized by being the
// transaction sender, so it needs no signature of its own; when
// fulfilling a buy order the sell side carries the buy signature as
// filler.
func AssignOrdersToSides(order *chain.Order, matching *chain.Order) (buy, sell *chain.Order) {
	if order.Side == chain.OrderSideSell {
		sell = order
		buy = matching
	} else {
		buy = order
		sell = matching
		sell.Signature = buy.Signature
	}
	return buy, sell
}
