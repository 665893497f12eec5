package landport

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/onelandworld/landport-go/chain"
)

func TestToBaseUnits(t *testing.T) {
	req := require.New(t)

	amount, err := ToBaseUnits(decimal.RequireFromString("0.01"), 18)
	req.NoError(err)
	req.Zero(amount.Cmp(new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)))

	amount, err = ToBaseUnits(decimal.RequireFromString("1.5"), 6)
	req.NoError(err)
	req.EqualValues(1500000, amount.Int64())

	// Fractions below one base unit truncate
	amount, err = ToBaseUnits(decimal.RequireFromString("0.0000019"), 6)
	req.NoError(err)
	req.EqualValues(1, amount.Int64())

	_, err = ToBaseUnits(decimal.RequireFromString("-1"), 18)
	req.Error(err)
}

func TestFromBaseUnits(t *testing.T) {
	req := require.New(t)

	value := FromBaseUnits(big.NewInt(1500000), 6)
	req.True(value.Equal(decimal.RequireFromString("1.5")))
}

func TestGenerateSalt(t *testing.T) {
	req := require.New(t)

	seen := make(map[string]bool)
	for i := 0; i < 16; i++ {
		salt := GenerateSalt()
		req.True(salt.Sign() >= 0)
		req.True(salt.BitLen() <= 256)
		req.False(seen[salt.String()])
		seen[salt.String()] = true
	}
}

func TestValidateAndFormatAddress(t *testing.T) {
	req := require.New(t)

	addr, err := ValidateAndFormatAddress("0xc778417e063141139fce010982780140aa0cd5ab")
	req.NoError(err)
	req.Equal(common.HexToAddress("0xc778417E063141139Fce010982780140Aa0cD5Ab"), addr)

	_, err = ValidateAndFormatAddress("not-an-address")
	req.ErrorIs(err, ErrInvalidAddress)

	_, err = ValidateAndFormatAddress("0x0000000000000000000000000000000000000000")
	req.ErrorIs(err, ErrInvalidAddress)
}

func TestAssignOrdersToSides(t *testing.T) {
	req := require.New(t)

	makerSig := chain.Signature{V: 27, R: common.HexToHash("0x01"), S: common.HexToHash("0x02")}

	// Taking a listing: the taker's buy side stays unsigned
	sellOrder := &chain.Order{
		UnhashedOrder: chain.UnhashedOrder{Side: chain.OrderSideSell},
		Signature:     makerSig,
	}
	matching := &chain.Order{
		UnhashedOrder: chain.UnhashedOrder{Side: chain.OrderSideBuy},
	}
	buy, sell := AssignOrdersToSides(sellOrder, matching)
	req.Same(sellOrder, sell)
	req.Same(matching, buy)
	req.True(buy.Signature.Empty())
	req.Equal(makerSig, sell.Signature)

	// Accepting an offer: the sell side carries the buy signature as
	// filler
	takerSig := chain.Signature{V: 28, R: common.HexToHash("0x03"), S: common.HexToHash("0x04")}
	buyOrder := &chain.Order{
		UnhashedOrder: chain.UnhashedOrder{Side: chain.OrderSideBuy},
		Signature:     makerSig,
	}
	matching = &chain.Order{
		UnhashedOrder: chain.UnhashedOrder{Side: chain.OrderSideSell},
		Signature:     takerSig,
	}
	buy, sell = AssignOrdersToSides(buyOrder, matching)
	req.Same(buyOrder, buy)
	req.Same(matching, sell)
	req.Equal(makerSig, sell.Signature)
}
