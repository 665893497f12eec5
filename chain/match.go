package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AtomicMatchParams is the flattened argument tuple for the
// exchange's atomicMatch_ entrypoint
type AtomicMatchParams struct {
	// Uints interleaves addresses and numbers, sell order first:
	// [registry, maker, staticTarget, maximumFill, listingTime,
	// expirationTime, salt, callTarget] for each side
	Uints           [16]*big.Int
	StaticSelectors [2][4]byte
	SellExtradata   []byte
	SellCalldata    []byte
	BuyExtradata    []byte
	BuyCalldata     []byte
	HowToCalls      [2]uint8
	Metadata        common.Hash
	Signatures      []byte
}

func addressToUint(addr common.Address) *big.Int {
	return new(big.Int).SetBytes(addr.Bytes())
}

// ConstructAtomicMatchParams packs a sell/buy order pair with their
// settlement calls into atomicMatch_ arguments. An unsigned side
// keeps a zero signature; the exchange skips the signature check
// when that side's maker is the transaction sender.
func ConstructAtomicMatchParams(sell *Order, sellCall Call, buy *Order, buyCall Call, metadata common.Hash) (*AtomicMatchParams, error) {
	signatures, err := EncodeSignaturePair(sell.Signature, buy.Signature)
	if err != nil {
		return nil, err
	}

	return &AtomicMatchParams{
		Uints: [16]*big.Int{
			addressToUint(sell.Registry),
			addressToUint(sell.Maker),
			addressToUint(sell.StaticTarget),
			sell.MaximumFill,
			sell.ListingTime,
			sell.ExpirationTime,
			sell.Salt,
			addressToUint(sellCall.Target),
			addressToUint(buy.Registry),
			addressToUint(buy.Maker),
			addressToUint(buy.StaticTarget),
			buy.MaximumFill,
			buy.ListingTime,
			buy.ExpirationTime,
			buy.Salt,
			addressToUint(buyCall.Target),
		},
		StaticSelectors: [2][4]byte{sell.StaticSelector, buy.StaticSelector},
		SellExtradata:   sell.StaticExtradata,
		SellCalldata:    sellCall.Data,
		BuyExtradata:    buy.StaticExtradata,
		BuyCalldata:     buyCall.Data,
		HowToCalls:      [2]uint8{uint8(sellCall.HowToCall), uint8(buyCall.HowToCall)},
		Metadata:        metadata,
		Signatures:      signatures,
	}, nil
}

// Pack encodes the full atomicMatch_ calldata
func (p *AtomicMatchParams) Pack() ([]byte, error) {
	return ExchangeABI.Pack(
		"atomicMatch_",
		p.Uints,
		p.StaticSelectors,
		p.SellExtradata,
		p.SellCalldata,
		p.BuyExtradata,
		p.BuyCalldata,
		p.HowToCalls,
		p.Metadata,
		p.Signatures,
	)
}
