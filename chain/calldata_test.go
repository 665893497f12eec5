package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func testMatchedOrders() (*Order, *Order) {
	sell := &Order{UnhashedOrder: *testUnhashedOrder()}
	sell.Signature = Signature{V: 27, R: common.HexToHash("0x01"), S: common.HexToHash("0x02")}

	buyUnhashed := *testUnhashedOrder()
	buyUnhashed.Side = OrderSideBuy
	buyUnhashed.Maker = common.HexToAddress("0x6666666666666666666666666666666666666666")
	buyUnhashed.StaticSelector = SelectorERC20ForERC721
	buyUnhashed.Salt = big.NewInt(67890)
	buy := &Order{UnhashedOrder: buyUnhashed}

	sell.Amount = big.NewInt(965000)
	sell.MarketplaceFee = big.NewInt(25000)
	sell.MarketplaceFeeRecipient = common.HexToAddress("0xC73ce0c5e473E68058298D9163296BebAC2b729C")
	sell.DevFee = big.NewInt(10000)
	sell.DevFeeRecipient = common.HexToAddress("0x5555555555555555555555555555555555555555")

	return sell, buy
}

func TestCallsForNativeMatch(t *testing.T) {
	req := require.New(t)

	sell, buy := testMatchedOrders()
	staticUtil := common.HexToAddress("0x5B0832f61b4951963C5A9bB60b209ca4f3BCa8A4")

	firstCall, secondCall, err := CallsForNativeMatch(sell, buy, staticUtil)
	req.NoError(err)

	req.Equal(sell.TokenContract, firstCall.Target)
	req.Equal(HowToCallCall, firstCall.HowToCall)
	req.Equal(ERC721ABI.Methods["transferFrom"].ID, firstCall.Data[:4])

	decoded, err := ERC721ABI.Methods["transferFrom"].Inputs.Unpack(firstCall.Data[4:])
	req.NoError(err)
	req.Equal(sell.Maker, decoded[0].(common.Address))
	req.Equal(buy.Maker, decoded[1].(common.Address))
	req.Zero(decoded[2].(*big.Int).Cmp(sell.TokenID))

	req.Equal(staticUtil, secondCall.Target)
	req.Equal(HowToCallCall, secondCall.HowToCall)
	req.Equal(StaticUtilABI.Methods["test"].ID, secondCall.Data)
}

func TestCallsForSwapMatch(t *testing.T) {
	req := require.New(t)

	sell, buy := testMatchedOrders()
	firstCall, secondCall, err := CallsForSwapMatch(sell, buy)
	req.NoError(err)

	req.Equal(sell.TokenContract, firstCall.Target)
	req.Equal(HowToCallCall, firstCall.HowToCall)

	req.Equal(sell.PaymentToken, secondCall.Target)
	req.Equal(HowToCallCall, secondCall.HowToCall)
	req.Equal(ERC20ABI.Methods["transferFrom"].ID, secondCall.Data[:4])

	decoded, err := ERC20ABI.Methods["transferFrom"].Inputs.Unpack(secondCall.Data[4:])
	req.NoError(err)
	req.Equal(buy.Maker, decoded[0].(common.Address))
	req.Equal(sell.Maker, decoded[1].(common.Address))
	req.Zero(decoded[2].(*big.Int).Cmp(sell.BasePrice))
}

func decodeAtomicize(t *testing.T, data []byte) ([]common.Address, []*big.Int, []*big.Int, []byte) {
	t.Helper()
	req := require.New(t)

	req.Equal(AtomicizerABI.Methods["atomicize"].ID, data[:4])
	decoded, err := AtomicizerABI.Methods["atomicize"].Inputs.Unpack(data[4:])
	req.NoError(err)
	return decoded[0].([]common.Address), decoded[1].([]*big.Int), decoded[2].([]*big.Int), decoded[3].([]byte)
}

func TestCallsForSwapMatchWithFees(t *testing.T) {
	req := require.New(t)

	sell, buy := testMatchedOrders()
	atomicizer := common.HexToAddress("0x5E6E0075B9600E74AA0214c6F3b98235922e750A")

	firstCall, secondCall, err := CallsForSwapMatchWithFees(sell, buy, atomicizer)
	req.NoError(err)

	req.Equal(atomicizer, firstCall.Target)
	req.Equal(HowToCallDelegateCall, firstCall.HowToCall)
	req.Equal(atomicizer, secondCall.Target)
	req.Equal(HowToCallDelegateCall, secondCall.HowToCall)

	nftTargets, nftValues, nftLengths, nftData := decodeAtomicize(t, firstCall.Data)
	req.Equal([]common.Address{sell.TokenContract}, nftTargets)
	req.Zero(nftValues[0].Sign())
	req.EqualValues(len(nftData), nftLengths[0].Int64())

	payTargets, payValues, payLengths, payData := decodeAtomicize(t, secondCall.Data)
	req.Equal([]common.Address{sell.PaymentToken, sell.PaymentToken, sell.PaymentToken}, payTargets)
	for _, v := range payValues {
		req.Zero(v.Sign())
	}

	total := int64(0)
	for _, l := range payLengths {
		total += l.Int64()
	}
	req.EqualValues(len(payData), total)

	// Net amount to the seller rides first
	decoded, err := ERC20ABI.Methods["transferFrom"].Inputs.Unpack(payData[4:payLengths[0].Int64()])
	req.NoError(err)
	req.Equal(sell.Maker, decoded[1].(common.Address))
	req.Zero(decoded[2].(*big.Int).Cmp(sell.Amount))
}

func TestCallsForSwapMatchWithFeesSkipsZeroDevFee(t *testing.T) {
	req := require.New(t)

	sell, buy := testMatchedOrders()
	sell.DevFee = big.NewInt(0)
	sell.Amount = big.NewInt(975000)

	_, secondCall, err := CallsForSwapMatchWithFees(sell, buy, common.HexToAddress("0x5E6E0075B9600E74AA0214c6F3b98235922e750A"))
	req.NoError(err)

	payTargets, _, payLengths, _ := decodeAtomicize(t, secondCall.Data)
	req.Len(payTargets, 2)
	req.Len(payLengths, 2)
}
