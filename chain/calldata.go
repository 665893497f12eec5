package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/xerrors"
)

// ERC721TransferCalldata encodes erc721.transferFrom(from, to, tokenId)
func ERC721TransferCalldata(from, to common.Address, tokenID *big.Int) ([]byte, error) {
	data, err := ERC721ABI.Pack("transferFrom", from, to, tokenID)
	if err != nil {
		return nil, xerrors.Errorf("encode erc721 transferFrom: %w", err)
	}
	return data, nil
}

// ERC20TransferCalldata encodes erc20.transferFrom(from, to, amount)
func ERC20TransferCalldata(from, to common.Address, amount *big.Int) ([]byte, error) {
	data, err := ERC20ABI.Pack("transferFrom", from, to, amount)
	if err != nil {
		return nil, xerrors.Errorf("encode erc20 transferFrom: %w", err)
	}
	return data, nil
}

// atomicizerBuilder accumulates sub-calls for an atomicize delegatecall
type atomicizerBuilder struct {
	atomicizer common.Address
	targets    []common.Address
	values     []*big.Int
	lengths    []*big.Int
	calldatas  []byte
}

func newAtomicizerBuilder(atomicizer common.Address) *atomicizerBuilder {
	return &atomicizerBuilder{atomicizer: atomicizer}
}

func (b *atomicizerBuilder) add(target common.Address, data []byte) {
	b.targets = append(b.targets, target)
	b.values = append(b.values, big.NewInt(0))
	b.lengths = append(b.lengths, big.NewInt(int64(len(data))))
	b.calldatas = append(b.calldatas, data...)
}

// call encodes the accumulated sub-calls as a single delegatecall to
// the atomicizer
func (b *atomicizerBuilder) call() (Call, error) {
	data, err := AtomicizerABI.Pack("atomicize", b.targets, b.values, b.lengths, b.calldatas)
	if err != nil {
		return Call{}, xerrors.Errorf("encode atomicize: %w", err)
	}
	return Call{
		Target:    b.atomicizer,
		HowToCall: HowToCallDelegateCall,
		Data:      data,
	}, nil
}

// CallsForNativeMatch builds the settlement calls for a sale paid in
// the native currency: the sell side transfers the NFT, the buy side
// performs a no-op predicate probe while the value rides on the
// transaction itself.
func CallsForNativeMatch(sell, buy *Order, staticUtil common.Address) (Call, Call, error) {
	transfer, err := ERC721TransferCalldata(sell.Maker, buy.Maker, sell.TokenID)
	if err != nil {
		return Call{}, Call{}, err
	}
	firstCall := Call{
		Target:    sell.TokenContract,
		HowToCall: HowToCallCall,
		Data:      transfer,
	}

	probe, err := StaticUtilABI.Pack("test")
	if err != nil {
		return Call{}, Call{}, xerrors.Errorf("encode test probe: %w", err)
	}
	secondCall := Call{
		Target:    staticUtil,
		HowToCall: HowToCallCall,
		Data:      probe,
	}

	return firstCall, secondCall, nil
}

// CallsForSwapMatch builds the settlement calls for a fee-less ERC20
// sale: NFT one way, the full base price the other
func CallsForSwapMatch(sell, buy *Order) (Call, Call, error) {
	transfer, err := ERC721TransferCalldata(sell.Maker, buy.Maker, sell.TokenID)
	if err != nil {
		return Call{}, Call{}, err
	}
	firstCall := Call{
		Target:    sell.TokenContract,
		HowToCall: HowToCallCall,
		Data:      transfer,
	}

	payment, err := ERC20TransferCalldata(buy.Maker, sell.Maker, sell.BasePrice)
	if err != nil {
		return Call{}, Call{}, err
	}
	secondCall := Call{
		Target:    sell.PaymentToken,
		HowToCall: HowToCallCall,
		Data:      payment,
	}

	return firstCall, secondCall, nil
}

// CallsForSwapMatchWithFees builds the settlement calls for an ERC20
// sale with a fee split. Both sides go through the atomicizer: the
// sell side bundles the single NFT transfer, the buy side bundles the
// net payment to the seller plus one transfer per non-zero fee.
func CallsForSwapMatchWithFees(sell, buy *Order, atomicizer common.Address) (Call, Call, error) {
	transfer, err := ERC721TransferCalldata(sell.Maker, buy.Maker, sell.TokenID)
	if err != nil {
		return Call{}, Call{}, err
	}
	nftBundle := newAtomicizerBuilder(atomicizer)
	nftBundle.add(sell.TokenContract, transfer)
	firstCall, err := nftBundle.call()
	if err != nil {
		return Call{}, Call{}, err
	}

	paymentBundle := newAtomicizerBuilder(atomicizer)

	net, err := ERC20TransferCalldata(buy.Maker, sell.Maker, sell.Amount)
	if err != nil {
		return Call{}, Call{}, err
	}
	paymentBundle.add(sell.PaymentToken, net)

	if sell.MarketplaceFee.Sign() > 0 {
		fee, err := ERC20TransferCalldata(buy.Maker, sell.MarketplaceFeeRecipient, sell.MarketplaceFee)
		if err != nil {
			return Call{}, Call{}, err
		}
		paymentBundle.add(sell.PaymentToken, fee)
	}

	if sell.DevFee.Sign() > 0 {
		fee, err := ERC20TransferCalldata(buy.Maker, sell.DevFeeRecipient, sell.DevFee)
		if err != nil {
			return Call{}, Call{}, err
		}
		paymentBundle.add(sell.PaymentToken, fee)
	}

	secondCall, err := paymentBundle.call()
	if err != nil {
		return Call{}, Call{}, err
	}

	return firstCall, secondCall, nil
}
