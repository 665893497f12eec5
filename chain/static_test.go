package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func testStaticCallParams() StaticCallParams {
	return StaticCallParams{
		StaticUtil:   common.HexToAddress("0x5B0832f61b4951963C5A9bB60b209ca4f3BCa8A4"),
		StaticMarket: common.HexToAddress("0x740A993dd3C2232ABC2F2926545FaB2955a20E71"),

		PaymentToken:  common.HexToAddress("0xc778417E063141139Fce010982780140Aa0cD5Ab"),
		TokenContract: common.HexToAddress("0x2222222222222222222222222222222222222222"),
		TokenID:       big.NewInt(42),
		Price:         big.NewInt(1000000),

		Amount:                  big.NewInt(965000),
		MarketplaceFee:          big.NewInt(25000),
		MarketplaceFeeRecipient: common.HexToAddress("0xC73ce0c5e473E68058298D9163296BebAC2b729C"),
		DevFee:                  big.NewInt(10000),
		DevFeeRecipient:         common.HexToAddress("0x5555555555555555555555555555555555555555"),
	}
}

func TestStaticCallForNativeSale(t *testing.T) {
	req := require.New(t)

	p := testStaticCallParams()
	p.PaymentToken = common.Address{}

	call, err := StaticCallFor(OrderSideSell, p)
	req.NoError(err)
	req.Equal(p.StaticUtil, call.Target)
	req.Equal(SelectorAnyAddOne, call.Selector)
	req.Empty(call.Extradata)
}

func TestStaticCallForSwapMirrorsSides(t *testing.T) {
	req := require.New(t)

	p := testStaticCallParams()
	p.MarketplaceFee = big.NewInt(0)
	p.DevFee = big.NewInt(0)
	p.Amount = p.Price

	sellCall, err := StaticCallFor(OrderSideSell, p)
	req.NoError(err)
	req.Equal(p.StaticMarket, sellCall.Target)
	req.Equal(SelectorERC721ForERC20, sellCall.Selector)

	buyCall, err := StaticCallFor(OrderSideBuy, p)
	req.NoError(err)
	req.Equal(p.StaticMarket, buyCall.Target)
	req.Equal(SelectorERC20ForERC721, buyCall.Selector)

	addressPairType, _ := abi.NewType("address[2]", "", nil)
	uintPairType, _ := abi.NewType("uint256[2]", "", nil)
	arguments := abi.Arguments{{Type: addressPairType}, {Type: uintPairType}}

	sellDecoded, err := arguments.Unpack(sellCall.Extradata)
	req.NoError(err)
	req.Equal([2]common.Address{p.TokenContract, p.PaymentToken}, sellDecoded[0].([2]common.Address))

	buyDecoded, err := arguments.Unpack(buyCall.Extradata)
	req.NoError(err)
	req.Equal([2]common.Address{p.PaymentToken, p.TokenContract}, buyDecoded[0].([2]common.Address))

	sellValues := sellDecoded[1].([2]*big.Int)
	req.Zero(sellValues[0].Cmp(p.TokenID))
	req.Zero(sellValues[1].Cmp(p.Price))
	req.Equal(sellDecoded[1], buyDecoded[1])
}

func decodeSequenceBundle(t *testing.T, bundle []byte) ([]common.Address, []*big.Int, [][4]byte, []byte) {
	t.Helper()
	req := require.New(t)

	addressesType, _ := abi.NewType("address[]", "", nil)
	uintsType, _ := abi.NewType("uint256[]", "", nil)
	selectorsType, _ := abi.NewType("bytes4[]", "", nil)
	bytesType, _ := abi.NewType("bytes", "", nil)
	arguments := abi.Arguments{
		{Type: addressesType},
		{Type: uintsType},
		{Type: selectorsType},
		{Type: bytesType},
	}

	decoded, err := arguments.Unpack(bundle)
	req.NoError(err)
	return decoded[0].([]common.Address), decoded[1].([]*big.Int), decoded[2].([][4]byte), decoded[3].([]byte)
}

func TestStaticCallForSwapWithFees(t *testing.T) {
	req := require.New(t)

	p := testStaticCallParams()
	call, err := StaticCallFor(OrderSideSell, p)
	req.NoError(err)
	req.Equal(p.StaticUtil, call.Target)
	req.Equal(SelectorSplit, call.Selector)

	addressPairType, _ := abi.NewType("address[2]", "", nil)
	selectorPairType, _ := abi.NewType("bytes4[2]", "", nil)
	bytesType, _ := abi.NewType("bytes", "", nil)
	arguments := abi.Arguments{
		{Type: addressPairType},
		{Type: selectorPairType},
		{Type: bytesType},
		{Type: bytesType},
	}
	decoded, err := arguments.Unpack(call.Extradata)
	req.NoError(err)

	req.Equal([2]common.Address{p.StaticUtil, p.StaticUtil}, decoded[0].([2]common.Address))
	req.Equal([2][4]byte{SelectorSequenceExact, SelectorSequenceExact}, decoded[1].([2][4]byte))

	// Sell side asserts its own NFT leg first
	nftTargets, nftLengths, nftSelectors, nftParams := decodeSequenceBundle(t, decoded[2].([]byte))
	req.Equal([]common.Address{p.StaticUtil}, nftTargets)
	req.Equal([][4]byte{SelectorTransferERC721Exact}, nftSelectors)
	req.Len(nftLengths, 1)
	req.EqualValues(64, nftLengths[0].Int64())
	req.Len(nftParams, 64)

	// Payment side: net amount, marketplace fee, dev fee
	payTargets, payLengths, paySelectors, payParams := decodeSequenceBundle(t, decoded[3].([]byte))
	req.Equal([]common.Address{p.StaticUtil, p.StaticUtil, p.StaticUtil}, payTargets)
	req.Equal([][4]byte{
		SelectorTransferERC20Exact,
		SelectorTransferERC20ExactTo,
		SelectorTransferERC20ExactTo,
	}, paySelectors)
	req.EqualValues(64, payLengths[0].Int64())
	req.EqualValues(96, payLengths[1].Int64())
	req.EqualValues(96, payLengths[2].Int64())
	req.Len(payParams, 64+96+96)
}

func TestStaticCallForSwapWithFeesSkipsZeroLegs(t *testing.T) {
	req := require.New(t)

	p := testStaticCallParams()
	p.DevFee = big.NewInt(0)
	p.Amount = big.NewInt(975000)

	call, err := StaticCallFor(OrderSideBuy, p)
	req.NoError(err)
	req.Equal(SelectorSplit, call.Selector)

	addressPairType, _ := abi.NewType("address[2]", "", nil)
	selectorPairType, _ := abi.NewType("bytes4[2]", "", nil)
	bytesType, _ := abi.NewType("bytes", "", nil)
	arguments := abi.Arguments{
		{Type: addressPairType},
		{Type: selectorPairType},
		{Type: bytesType},
		{Type: bytesType},
	}
	decoded, err := arguments.Unpack(call.Extradata)
	req.NoError(err)

	// Buy side puts its payment legs first, NFT leg second
	payTargets, _, paySelectors, _ := decodeSequenceBundle(t, decoded[2].([]byte))
	req.Len(payTargets, 2)
	req.Equal([][4]byte{SelectorTransferERC20Exact, SelectorTransferERC20ExactTo}, paySelectors)

	nftTargets, _, nftSelectors, _ := decodeSequenceBundle(t, decoded[3].([]byte))
	req.Len(nftTargets, 1)
	req.Equal([][4]byte{SelectorTransferERC721Exact}, nftSelectors)
}

func TestStaticCallFeeBranchSelection(t *testing.T) {
	req := require.New(t)

	// Zero fees select the plain pairwise predicate
	p := testStaticCallParams()
	p.MarketplaceFee = big.NewInt(0)
	p.DevFee = big.NewInt(0)
	call, err := StaticCallFor(OrderSideSell, p)
	req.NoError(err)
	req.Equal(SelectorERC721ForERC20, call.Selector)

	// A single non-zero fee is enough for the split predicate
	p.DevFee = big.NewInt(1)
	call, err = StaticCallFor(OrderSideSell, p)
	req.NoError(err)
	req.Equal(SelectorSplit, call.Selector)
}
