package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"golang.org/x/xerrors"
)

// Signer authorizes orders on behalf of a maker account
type Signer interface {
	// Address returns the account the signer signs for
	Address() common.Address

	// SignOrder produces the maker signature over the order's EIP712
	// digest for the given chain
	SignOrder(ctx context.Context, order *UnhashedOrder, chainID *big.Int) (Signature, error)
}

// PrivateKeySigner signs orders locally with a raw secp256k1 key
type PrivateKeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewPrivateKeySigner creates a signer from a hex-encoded private key
func NewPrivateKeySigner(privateKeyHex string) (*PrivateKeySigner, error) {
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, xerrors.Errorf("parse private key: %w", err)
	}
	return &PrivateKeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the account derived from the private key
func (s *PrivateKeySigner) Address() common.Address {
	return s.address
}

// SignOrder signs the order digest and normalizes v to {27, 28}
func (s *PrivateKeySigner) SignOrder(_ context.Context, order *UnhashedOrder, chainID *big.Int) (Signature, error) {
	hash := order.SignHash(chainID)
	raw, err := crypto.Sign(hash.Bytes(), s.key)
	if err != nil {
		return Signature{}, xerrors.Errorf("sign order: %w", err)
	}
	return ParseSignature(raw)
}

// Key exposes the underlying private key for transaction signing
func (s *PrivateKeySigner) Key() *ecdsa.PrivateKey {
	return s.key
}

// TypedDataSignFunc asks an external wallet to sign EIP712 typed data
// and returns the 65-byte signature
type TypedDataSignFunc func(ctx context.Context, data apitypes.TypedData) ([]byte, error)

// WalletSigner delegates signing to an external wallet, e.g. a
// browser extension or a custodial signing service
type WalletSigner struct {
	address common.Address
	sign    TypedDataSignFunc
}

// NewWalletSigner creates a signer backed by an external wallet
func NewWalletSigner(address common.Address, sign TypedDataSignFunc) *WalletSigner {
	return &WalletSigner{address: address, sign: sign}
}

// Address returns the wallet account
func (s *WalletSigner) Address() common.Address {
	return s.address
}

// SignOrder renders the order as typed data and hands it to the wallet
func (s *WalletSigner) SignOrder(ctx context.Context, order *UnhashedOrder, chainID *big.Int) (Signature, error) {
	raw, err := s.sign(ctx, order.TypedData(chainID))
	if err != nil {
		return Signature{}, xerrors.Errorf("wallet signing: %w", err)
	}
	return ParseSignature(raw)
}
