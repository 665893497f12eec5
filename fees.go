package landport

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CollectionFees are the fee settings an asset's collection can carry.
// Basis point fields of -1 mean "not set".
type CollectionFees struct {
	MarketplaceFeeBasisPoints int
	DevFeeBasisPoints         int
	PayoutAddress             common.Address
}

// ComputedFees is the exact split of an order's base price. The three
// amounts always sum to the base price.
type ComputedFees struct {
	Amount                  *big.Int
	MarketplaceFee          *big.Int
	MarketplaceFeeRecipient common.Address
	DevFee                  *big.Int
	DevFeeRecipient         common.Address
}

func feeOf(basePrice *big.Int, basisPoints int) *big.Int {
	fee := new(big.Int).Mul(basePrice, big.NewInt(int64(basisPoints)))
	return fee.Div(fee, big.NewInt(InverseBasisPoint))
}

// ComputeFees splits a base price into the seller's net amount, the
// marketplace fee and the collection's dev fee. Collection overrides
// are clamped to the protocol maxima; without a payout address the
// dev fee is zero regardless of the configured rate.
func ComputeFees(collection CollectionFees, basePrice *big.Int) ComputedFees {
	marketplaceBPS := DefaultMarketplaceFeeBasisPoints
	if collection.MarketplaceFeeBasisPoints >= 0 {
		marketplaceBPS = min(collection.MarketplaceFeeBasisPoints, MaxMarketplaceFeeBasisPoints)
	}

	devBPS := 0
	if collection.DevFeeBasisPoints >= 0 {
		devBPS = min(collection.DevFeeBasisPoints, MaxDevFeeBasisPoints)
	}

	marketplaceFee := feeOf(basePrice, marketplaceBPS)

	devFee := big.NewInt(0)
	if collection.PayoutAddress != NullAddress {
		devFee = feeOf(basePrice, devBPS)
	}

	amount := new(big.Int).Sub(basePrice, marketplaceFee)
	amount.Sub(amount, devFee)

	return ComputedFees{
		Amount:                  amount,
		MarketplaceFee:          marketplaceFee,
		MarketplaceFeeRecipient: DefaultMarketplaceFeeRecipient,
		DevFee:                  devFee,
		DevFeeRecipient:         collection.PayoutAddress,
	}
}

// ValidateSellerFees checks a taker bounty against the protocol cap
func ValidateSellerFees(sellerBountyBasisPoints int) error {
	if sellerBountyBasisPoints > MaxBountyBasisPoints {
		return validationErrorf(
			"seller bounty of %d basis points exceeds the maximum of %d",
			sellerBountyBasisPoints, MaxBountyBasisPoints,
		)
	}
	return nil
}
