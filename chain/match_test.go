package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestConstructAtomicMatchParams(t *testing.T) {
	req := require.New(t)

	sell, buy := testMatchedOrders()
	firstCall, secondCall, err := CallsForSwapMatch(sell, buy)
	req.NoError(err)

	params, err := ConstructAtomicMatchParams(sell, firstCall, buy, secondCall, common.Hash{})
	req.NoError(err)

	// Sell order occupies the first eight slots, buy the last eight
	req.Zero(params.Uints[0].Cmp(addressToUint(sell.Registry)))
	req.Zero(params.Uints[1].Cmp(addressToUint(sell.Maker)))
	req.Zero(params.Uints[2].Cmp(addressToUint(sell.StaticTarget)))
	req.Zero(params.Uints[3].Cmp(sell.MaximumFill))
	req.Zero(params.Uints[4].Cmp(sell.ListingTime))
	req.Zero(params.Uints[5].Cmp(sell.ExpirationTime))
	req.Zero(params.Uints[6].Cmp(sell.Salt))
	req.Zero(params.Uints[7].Cmp(addressToUint(firstCall.Target)))

	req.Zero(params.Uints[8].Cmp(addressToUint(buy.Registry)))
	req.Zero(params.Uints[9].Cmp(addressToUint(buy.Maker)))
	req.Zero(params.Uints[14].Cmp(buy.Salt))
	req.Zero(params.Uints[15].Cmp(addressToUint(secondCall.Target)))

	req.Equal([2][4]byte{sell.StaticSelector, buy.StaticSelector}, params.StaticSelectors)
	req.Equal(sell.StaticExtradata, params.SellExtradata)
	req.Equal(buy.StaticExtradata, params.BuyExtradata)
	req.Equal(firstCall.Data, params.SellCalldata)
	req.Equal(secondCall.Data, params.BuyCalldata)
	req.Equal([2]uint8{uint8(HowToCallCall), uint8(HowToCallCall)}, params.HowToCalls)

	// Signatures decode back to the per-order encodings
	bytesType, _ := abi.NewType("bytes", "", nil)
	arguments := abi.Arguments{{Type: bytesType}, {Type: bytesType}}
	decoded, err := arguments.Unpack(params.Signatures)
	req.NoError(err)

	sellSig, err := EncodeSignature(sell.Signature)
	req.NoError(err)
	req.Equal(sellSig, decoded[0].([]byte))

	// The unsigned buy side stays a zero triple
	emptySig, err := EncodeSignature(Signature{})
	req.NoError(err)
	req.Equal(emptySig, decoded[1].([]byte))
}

func TestAtomicMatchParamsPack(t *testing.T) {
	req := require.New(t)

	sell, buy := testMatchedOrders()
	firstCall, secondCall, err := CallsForSwapMatchWithFees(sell, buy, common.HexToAddress("0x5E6E0075B9600E74AA0214c6F3b98235922e750A"))
	req.NoError(err)

	params, err := ConstructAtomicMatchParams(sell, firstCall, buy, secondCall, common.Hash{})
	req.NoError(err)
	req.Equal([2]uint8{uint8(HowToCallDelegateCall), uint8(HowToCallDelegateCall)}, params.HowToCalls)

	data, err := params.Pack()
	req.NoError(err)
	req.Equal(ExchangeABI.Methods["atomicMatch_"].ID, data[:4])

	decoded, err := ExchangeABI.Methods["atomicMatch_"].Inputs.Unpack(data[4:])
	req.NoError(err)

	uints := decoded[0].([16]*big.Int)
	req.Zero(uints[0].Cmp(addressToUint(sell.Registry)))
	req.Zero(uints[8].Cmp(addressToUint(buy.Registry)))
	req.Equal(params.SellExtradata, decoded[2].([]byte))
	req.Equal(params.SellCalldata, decoded[3].([]byte))
}
