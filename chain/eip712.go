package chain

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signature parsing errors
var (
	ErrInvalidSignatureLength = errors.New("invalid signature length")
	ErrInvalidRecoveryID      = errors.New("invalid signature recovery id")
)

// EIP712 domain constants fixed by the deployed exchange
const (
	EIP712DomainName    = "Wyvern Exchange"
	EIP712DomainVersion = "3.1"
)

// Pre-computed type hashes using keccak256
var (
	// EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
	EIP712DomainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)",
	))

	// Order(address registry,address maker,address staticTarget,bytes4 staticSelector,bytes staticExtradata,uint256 maximumFill,uint256 listingTime,uint256 expirationTime,uint256 salt)
	OrderTypeHash = crypto.Keccak256Hash([]byte(
		"Order(address registry,address maker,address staticTarget,bytes4 staticSelector,bytes staticExtradata,uint256 maximumFill,uint256 listingTime,uint256 expirationTime,uint256 salt)",
	))
)

// EIP712Domain represents the EIP712 domain separator data
type EIP712Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// NewEIP712Domain creates the exchange signing domain for a chain
func NewEIP712Domain(chainID *big.Int, verifyingContract common.Address) *EIP712Domain {
	return &EIP712Domain{
		Name:              EIP712DomainName,
		Version:           EIP712DomainVersion,
		ChainID:           chainID,
		VerifyingContract: verifyingContract,
	}
}

// Hash computes the EIP712 domain separator hash
func (d *EIP712Domain) Hash() common.Hash {
	// typeHash ++ keccak256(name) ++ keccak256(version) ++ chainId ++ verifyingContract
	nameHash := crypto.Keccak256Hash([]byte(d.Name))
	versionHash := crypto.Keccak256Hash([]byte(d.Version))

	bytes32Type, _ := abi.NewType("bytes32", "", nil)
	uint256Type, _ := abi.NewType("uint256", "", nil)
	addressType, _ := abi.NewType("address", "", nil)

	arguments := abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: bytes32Type}, // nameHash
		{Type: bytes32Type}, // versionHash
		{Type: uint256Type}, // chainId
		{Type: addressType}, // verifyingContract
	}

	encoded, err := arguments.Pack(
		EIP712DomainTypeHash,
		nameHash,
		versionHash,
		d.ChainID,
		d.VerifyingContract,
	)
	if err != nil {
		panic("failed to encode domain separator: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// StructHash computes the EIP712 struct hash of the order. Only the
// nine hashed fields participate; staticExtradata enters as its
// keccak256 digest per the EIP712 rules for dynamic bytes.
func (o *UnhashedOrder) StructHash() common.Hash {
	bytes32Type, _ := abi.NewType("bytes32", "", nil)
	addressType, _ := abi.NewType("address", "", nil)
	bytes4Type, _ := abi.NewType("bytes4", "", nil)
	uint256Type, _ := abi.NewType("uint256", "", nil)

	arguments := abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: addressType}, // registry
		{Type: addressType}, // maker
		{Type: addressType}, // staticTarget
		{Type: bytes4Type},  // staticSelector
		{Type: bytes32Type}, // keccak256(staticExtradata)
		{Type: uint256Type}, // maximumFill
		{Type: uint256Type}, // listingTime
		{Type: uint256Type}, // expirationTime
		{Type: uint256Type}, // salt
	}

	encoded, err := arguments.Pack(
		OrderTypeHash,
		o.Registry,
		o.Maker,
		o.StaticTarget,
		o.StaticSelector,
		crypto.Keccak256Hash(o.StaticExtradata),
		o.MaximumFill,
		o.ListingTime,
		o.ExpirationTime,
		o.Salt,
	)
	if err != nil {
		panic("failed to encode order struct: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// SignHash creates the final EIP712 digest to be signed:
// keccak256("\x19\x01" ++ domainSeparator ++ structHash)
func (o *UnhashedOrder) SignHash(chainID *big.Int) common.Hash {
	domainSeparator := NewEIP712Domain(chainID, o.Exchange).Hash()
	structHash := o.StructHash()

	data := make([]byte, 0, 2+32+32)
	data = append(data, 0x19, 0x01)
	data = append(data, domainSeparator.Bytes()...)
	data = append(data, structHash.Bytes()...)

	return crypto.Keccak256Hash(data)
}

// TypedData renders the order as EIP712 typed data for external
// wallet signers. Hashing it with apitypes yields the same digest as
// SignHash.
func (o *UnhashedOrder) TypedData(chainID *big.Int) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Order": {
				{Name: "registry", Type: "address"},
				{Name: "maker", Type: "address"},
				{Name: "staticTarget", Type: "address"},
				{Name: "staticSelector", Type: "bytes4"},
				{Name: "staticExtradata", Type: "bytes"},
				{Name: "maximumFill", Type: "uint256"},
				{Name: "listingTime", Type: "uint256"},
				{Name: "expirationTime", Type: "uint256"},
				{Name: "salt", Type: "uint256"},
			},
		},
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              EIP712DomainName,
			Version:           EIP712DomainVersion,
			ChainId:           (*math.HexOrDecimal256)(chainID),
			VerifyingContract: o.Exchange.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"registry":        o.Registry.Hex(),
			"maker":           o.Maker.Hex(),
			"staticTarget":    o.StaticTarget.Hex(),
			"staticSelector":  hexutil.Encode(o.StaticSelector[:]),
			"staticExtradata": hexutil.Encode(o.StaticExtradata),
			"maximumFill":     o.MaximumFill.String(),
			"listingTime":     o.ListingTime.String(),
			"expirationTime":  o.ExpirationTime.String(),
			"salt":            o.Salt.String(),
		},
	}
}

// ParseSignature splits a 65-byte signature into its r, s and v parts,
// normalizing v to {27, 28}
func ParseSignature(sig []byte) (Signature, error) {
	if len(sig) != 65 {
		return Signature{}, ErrInvalidSignatureLength
	}

	v := sig[64]
	if v < 27 {
		v += 27
	}
	if v != 27 && v != 28 {
		return Signature{}, ErrInvalidRecoveryID
	}

	return Signature{
		V: v,
		R: common.BytesToHash(sig[0:32]),
		S: common.BytesToHash(sig[32:64]),
	}, nil
}

// EncodeSignature abi-encodes a signature as (uint8 v, bytes32 r,
// bytes32 s), the layout the exchange expects for a single order
func EncodeSignature(sig Signature) ([]byte, error) {
	uint8Type, _ := abi.NewType("uint8", "", nil)
	bytes32Type, _ := abi.NewType("bytes32", "", nil)

	arguments := abi.Arguments{
		{Type: uint8Type},
		{Type: bytes32Type},
		{Type: bytes32Type},
	}
	return arguments.Pack(sig.V, sig.R, sig.S)
}

// EncodeSignaturePair abi-encodes the two per-order signatures as
// (bytes, bytes) for atomicMatch_
func EncodeSignaturePair(first, second Signature) ([]byte, error) {
	firstEncoded, err := EncodeSignature(first)
	if err != nil {
		return nil, err
	}
	secondEncoded, err := EncodeSignature(second)
	if err != nil {
		return nil, err
	}

	bytesType, _ := abi.NewType("bytes", "", nil)
	arguments := abi.Arguments{{Type: bytesType}, {Type: bytesType}}
	return arguments.Pack(firstEncoded, secondEncoded)
}
