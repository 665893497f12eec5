package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/xerrors"
)

// Predicate function signatures on the deployed static contracts
const (
	sigAnyAddOne            = "anyAddOne(bytes,address[7],uint8,uint256[6],bytes)"
	sigERC721ForERC20       = "ERC721ForERC20(bytes,address[7],uint8[2],uint256[6],bytes,bytes)"
	sigERC20ForERC721       = "ERC20ForERC721(bytes,address[7],uint8[2],uint256[6],bytes,bytes)"
	sigSplit                = "split(bytes,address[7],uint8[2],uint256[6],bytes,bytes)"
	sigSequenceExact        = "sequenceExact(bytes,address[7],uint8,uint256[6],bytes)"
	sigTransferERC721Exact  = "transferERC721Exact(bytes,address[7],uint8,uint256[6],bytes)"
	sigTransferERC20Exact   = "transferERC20Exact(bytes,address[7],uint8,uint256[6],bytes)"
	sigTransferERC20ExactTo = "transferERC20ExactTo(bytes,address[7],uint8,uint256[6],bytes)"
)

func selectorOf(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

// Pre-computed predicate selectors
var (
	SelectorAnyAddOne            = selectorOf(sigAnyAddOne)
	SelectorERC721ForERC20       = selectorOf(sigERC721ForERC20)
	SelectorERC20ForERC721       = selectorOf(sigERC20ForERC721)
	SelectorSplit                = selectorOf(sigSplit)
	SelectorSequenceExact        = selectorOf(sigSequenceExact)
	SelectorTransferERC721Exact  = selectorOf(sigTransferERC721Exact)
	SelectorTransferERC20Exact   = selectorOf(sigTransferERC20Exact)
	SelectorTransferERC20ExactTo = selectorOf(sigTransferERC20ExactTo)
)

// StaticCall is the predicate triple embedded in an order
type StaticCall struct {
	Target    common.Address
	Selector  [4]byte
	Extradata []byte
}

// StaticCallParams carries everything the predicate encoder needs
type StaticCallParams struct {
	// StaticUtil is the general-purpose predicate contract, the
	// target for native and fee-split orders
	StaticUtil common.Address
	// StaticMarket is the pairwise swap predicate contract
	StaticMarket common.Address

	PaymentToken  common.Address
	TokenContract common.Address
	TokenID       *big.Int
	Price         *big.Int

	// Fee split of Price; fees of zero select the plain swap predicate
	Amount                  *big.Int
	MarketplaceFee          *big.Int
	MarketplaceFeeRecipient common.Address
	DevFee                  *big.Int
	DevFeeRecipient         common.Address
}

func (p StaticCallParams) withFees() bool {
	return p.MarketplaceFee.Sign() > 0 || p.DevFee.Sign() > 0
}

// StaticCallFor selects and encodes the settlement predicate for one
// side of a trade. A zero payment token yields the native-currency
// predicate, zero fees the plain swap predicate, and anything else
// the fee-splitting sequence predicate.
func StaticCallFor(side OrderSide, p StaticCallParams) (StaticCall, error) {
	if p.PaymentToken == (common.Address{}) {
		return StaticCall{
			Target:    p.StaticUtil,
			Selector:  SelectorAnyAddOne,
			Extradata: []byte{},
		}, nil
	}
	if !p.withFees() {
		return staticCallForSwap(side, p)
	}
	return staticCallForSwapWithFees(side, p)
}

// staticCallForSwap encodes the pairwise ERC721/ERC20 predicate. The
// address pair is ordered (give, get) from the maker's point of view,
// so the two sides mirror each other.
func staticCallForSwap(side OrderSide, p StaticCallParams) (StaticCall, error) {
	addressPairType, _ := abi.NewType("address[2]", "", nil)
	uintPairType, _ := abi.NewType("uint256[2]", "", nil)
	arguments := abi.Arguments{{Type: addressPairType}, {Type: uintPairType}}

	var selector [4]byte
	var pair [2]common.Address
	if side == OrderSideSell {
		selector = SelectorERC721ForERC20
		pair = [2]common.Address{p.TokenContract, p.PaymentToken}
	} else {
		selector = SelectorERC20ForERC721
		pair = [2]common.Address{p.PaymentToken, p.TokenContract}
	}

	extradata, err := arguments.Pack(pair, [2]*big.Int{p.TokenID, p.Price})
	if err != nil {
		return StaticCall{}, xerrors.Errorf("encode swap extradata: %w", err)
	}

	return StaticCall{
		Target:    p.StaticMarket,
		Selector:  selector,
		Extradata: extradata,
	}, nil
}

// staticCallForSwapWithFees encodes the split predicate: one exact
// call sequence per side, the maker's own sequence first. The seller
// side asserts the single NFT transfer; the payment side asserts the
// ERC20 legs, net amount first, then each non-zero fee.
func staticCallForSwapWithFees(side OrderSide, p StaticCallParams) (StaticCall, error) {
	nftBundle, err := transferNFTBundle(p)
	if err != nil {
		return StaticCall{}, err
	}
	paymentBundle, err := transferPaymentBundle(p)
	if err != nil {
		return StaticCall{}, err
	}

	first, second := nftBundle, paymentBundle
	if side == OrderSideBuy {
		first, second = paymentBundle, nftBundle
	}

	addressPairType, _ := abi.NewType("address[2]", "", nil)
	selectorPairType, _ := abi.NewType("bytes4[2]", "", nil)
	bytesType, _ := abi.NewType("bytes", "", nil)
	arguments := abi.Arguments{
		{Type: addressPairType},
		{Type: selectorPairType},
		{Type: bytesType},
		{Type: bytesType},
	}

	extradata, err := arguments.Pack(
		[2]common.Address{p.StaticUtil, p.StaticUtil},
		[2][4]byte{SelectorSequenceExact, SelectorSequenceExact},
		first,
		second,
	)
	if err != nil {
		return StaticCall{}, xerrors.Errorf("encode split extradata: %w", err)
	}

	return StaticCall{
		Target:    p.StaticUtil,
		Selector:  SelectorSplit,
		Extradata: extradata,
	}, nil
}

// sequenceBuilder accumulates the legs of an exact call sequence
type sequenceBuilder struct {
	targets   []common.Address
	lengths   []*big.Int
	selectors [][4]byte
	params    []byte
}

func (b *sequenceBuilder) add(target common.Address, selector [4]byte, params []byte) {
	b.targets = append(b.targets, target)
	b.lengths = append(b.lengths, big.NewInt(int64(len(params))))
	b.selectors = append(b.selectors, selector)
	b.params = append(b.params, params...)
}

// encode packs the sequence as (address[], uint256[], bytes4[], bytes)
// with per-leg parameter byte lengths delimiting the shared buffer
func (b *sequenceBuilder) encode() ([]byte, error) {
	addressSliceType, _ := abi.NewType("address[]", "", nil)
	uintSliceType, _ := abi.NewType("uint256[]", "", nil)
	selectorSliceType, _ := abi.NewType("bytes4[]", "", nil)
	bytesType, _ := abi.NewType("bytes", "", nil)

	arguments := abi.Arguments{
		{Type: addressSliceType},
		{Type: uintSliceType},
		{Type: selectorSliceType},
		{Type: bytesType},
	}
	return arguments.Pack(b.targets, b.lengths, b.selectors, b.params)
}

func packAddressUint(addr common.Address, value *big.Int) ([]byte, error) {
	addressType, _ := abi.NewType("address", "", nil)
	uint256Type, _ := abi.NewType("uint256", "", nil)
	arguments := abi.Arguments{{Type: addressType}, {Type: uint256Type}}
	return arguments.Pack(addr, value)
}

func packAddressUintAddress(addr common.Address, value *big.Int, to common.Address) ([]byte, error) {
	addressType, _ := abi.NewType("address", "", nil)
	uint256Type, _ := abi.NewType("uint256", "", nil)
	arguments := abi.Arguments{{Type: addressType}, {Type: uint256Type}, {Type: addressType}}
	return arguments.Pack(addr, value, to)
}

func transferNFTBundle(p StaticCallParams) ([]byte, error) {
	params, err := packAddressUint(p.TokenContract, p.TokenID)
	if err != nil {
		return nil, xerrors.Errorf("encode nft transfer params: %w", err)
	}

	var b sequenceBuilder
	b.add(p.StaticUtil, SelectorTransferERC721Exact, params)
	return b.encode()
}

func transferPaymentBundle(p StaticCallParams) ([]byte, error) {
	var b sequenceBuilder

	params, err := packAddressUint(p.PaymentToken, p.Amount)
	if err != nil {
		return nil, xerrors.Errorf("encode amount transfer params: %w", err)
	}
	b.add(p.StaticUtil, SelectorTransferERC20Exact, params)

	if p.MarketplaceFee.Sign() > 0 {
		params, err := packAddressUintAddress(p.PaymentToken, p.MarketplaceFee, p.MarketplaceFeeRecipient)
		if err != nil {
			return nil, xerrors.Errorf("encode marketplace fee params: %w", err)
		}
		b.add(p.StaticUtil, SelectorTransferERC20ExactTo, params)
	}

	if p.DevFee.Sign() > 0 {
		params, err := packAddressUintAddress(p.PaymentToken, p.DevFee, p.DevFeeRecipient)
		if err != nil {
			return nil, xerrors.Errorf("encode dev fee params: %w", err)
		}
		b.add(p.StaticUtil, SelectorTransferERC20ExactTo, params)
	}

	return b.encode()
}
