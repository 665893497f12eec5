package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// OrderSide represents the side of an order
type OrderSide uint8

const (
	OrderSideBuy OrderSide = iota
	OrderSideSell
)

// Opposite returns the counterparty side
func (s OrderSide) Opposite() OrderSide {
	return (s + 1) % 2
}

// SaleKind represents the pricing model of an order
type SaleKind uint8

const (
	SaleKindFixedPrice SaleKind = iota
	SaleKindDutchAuction
)

// HowToCall is the call kind passed through the proxy on settlement
type HowToCall uint8

const (
	HowToCallCall HowToCall = iota
	HowToCallDelegateCall
)

// Schema identifies the token standard an asset conforms to
type Schema string

const (
	SchemaERC20        Schema = "ERC20"
	SchemaERC721       Schema = "ERC721"
	SchemaERC721Legacy Schema = "ERC721Legacy"
	SchemaERC1155      Schema = "ERC1155"
)

// Asset identifies a token to trade
type Asset struct {
	TokenID       *big.Int
	TokenContract common.Address
	Schema        Schema
	Quantity      *big.Int
}

// AssetRef is the asset entry carried in order metadata
type AssetRef struct {
	ID       string `json:"id,omitempty"`
	Address  string `json:"address"`
	Quantity string `json:"quantity,omitempty"`
}

// Bundle groups several assets sold as one order
type Bundle struct {
	Assets      []AssetRef `json:"assets"`
	Schemas     []Schema   `json:"schemas"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
}

// Metadata carries off-chain order annotations; it is not hashed
type Metadata struct {
	Asset    *AssetRef `json:"asset,omitempty"`
	Schema   Schema    `json:"schema,omitempty"`
	Bundle   *Bundle   `json:"bundle,omitempty"`
	Referrer string    `json:"referrerAddress,omitempty"`
}

// UnhashedOrder is a fully assembled order before hashing and signing
type UnhashedOrder struct {
	Registry       common.Address
	Exchange       common.Address
	Maker          common.Address
	Side           OrderSide
	SaleKind       SaleKind
	Quantity       *big.Int
	MaximumFill    *big.Int
	TokenContract  common.Address
	TokenID        *big.Int
	PaymentToken   common.Address
	BasePrice      *big.Int
	ListingTime    *big.Int
	ExpirationTime *big.Int
	Salt           *big.Int

	StaticTarget    common.Address
	StaticSelector  [4]byte
	StaticExtradata []byte

	// Fee split of BasePrice, fixed at construction time
	Amount                  *big.Int
	MarketplaceFee          *big.Int
	MarketplaceFeeRecipient common.Address
	DevFee                  *big.Int
	DevFeeRecipient         common.Address

	Metadata Metadata
}

// Signature is a parsed 65-byte secp256k1 signature with v in {27, 28}
type Signature struct {
	V uint8
	R common.Hash
	S common.Hash
}

// Empty reports whether the signature has not been set
func (s Signature) Empty() bool {
	return s.V == 0
}

// Order is an UnhashedOrder together with its hash and, once
// authorized, the maker signature
type Order struct {
	UnhashedOrder
	Hash        common.Hash
	Signature   Signature
	CreatedTime *big.Int
}

// Call is one proxied call executed by the exchange on settlement
type Call struct {
	Target    common.Address
	HowToCall HowToCall
	Data      []byte
}

const erc20ABIJSON = `[
	{
		"constant": true,
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "spender", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "transferFrom",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint8"}],
		"type": "function"
	}
]`

const erc721ABIJSON = `[
	{
		"constant": true,
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"name": "ownerOf",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "operator", "type": "address"}
		],
		"name": "isApprovedForAll",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "operator", "type": "address"},
			{"name": "approved", "type": "bool"}
		],
		"name": "setApprovalForAll",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "tokenId", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"name": "getApproved",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "tokenId", "type": "uint256"}
		],
		"name": "transferFrom",
		"outputs": [],
		"type": "function"
	}
]`

const erc1155ABIJSON = `[
	{
		"constant": true,
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "id", "type": "uint256"}
		],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "operator", "type": "address"}
		],
		"name": "isApprovedForAll",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "operator", "type": "address"},
			{"name": "approved", "type": "bool"}
		],
		"name": "setApprovalForAll",
		"outputs": [],
		"type": "function"
	}
]`

const exchangeABIJSON = `[
	{
		"constant": true,
		"inputs": [
			{"name": "registry", "type": "address"},
			{"name": "maker", "type": "address"},
			{"name": "staticTarget", "type": "address"},
			{"name": "staticSelector", "type": "bytes4"},
			{"name": "staticExtradata", "type": "bytes"},
			{"name": "maximumFill", "type": "uint256"},
			{"name": "listingTime", "type": "uint256"},
			{"name": "expirationTime", "type": "uint256"},
			{"name": "salt", "type": "uint256"}
		],
		"name": "validateOrderParameters_",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "hash", "type": "bytes32"},
			{"name": "maker", "type": "address"},
			{"name": "signature", "type": "bytes"}
		],
		"name": "validateOrderAuthorization_",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "uints", "type": "uint256[16]"},
			{"name": "staticSelectors", "type": "bytes4[2]"},
			{"name": "firstExtradata", "type": "bytes"},
			{"name": "firstCalldata", "type": "bytes"},
			{"name": "secondExtradata", "type": "bytes"},
			{"name": "secondCalldata", "type": "bytes"},
			{"name": "howToCalls", "type": "uint8[2]"},
			{"name": "metadata", "type": "bytes32"},
			{"name": "signatures", "type": "bytes"}
		],
		"name": "atomicMatch_",
		"outputs": [],
		"payable": true,
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "hash", "type": "bytes32"},
			{"name": "fill", "type": "uint256"}
		],
		"name": "setOrderFill_",
		"outputs": [],
		"type": "function"
	}
]`

const registryABIJSON = `[
	{
		"constant": true,
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "proxies",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "registerProxyFor",
		"outputs": [{"name": "proxy", "type": "address"}],
		"type": "function"
	}
]`

const atomicizerABIJSON = `[
	{
		"constant": false,
		"inputs": [
			{"name": "addrs", "type": "address[]"},
			{"name": "values", "type": "uint256[]"},
			{"name": "calldataLengths", "type": "uint256[]"},
			{"name": "calldatas", "type": "bytes"}
		],
		"name": "atomicize",
		"outputs": [],
		"type": "function"
	}
]`

const staticUtilABIJSON = `[
	{
		"constant": true,
		"inputs": [],
		"name": "test",
		"outputs": [],
		"type": "function"
	}
]`

const wethABIJSON = `[
	{
		"constant": false,
		"inputs": [],
		"name": "deposit",
		"outputs": [],
		"payable": true,
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [{"name": "wad", "type": "uint256"}],
		"name": "withdraw",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	}
]`

func mustParseABI(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("failed to parse " + name + " ABI: " + err.Error())
	}
	return parsed
}

// Parsed contract ABIs, shared across the package
var (
	ERC20ABI      = mustParseABI("ERC20", erc20ABIJSON)
	ERC721ABI     = mustParseABI("ERC721", erc721ABIJSON)
	ERC1155ABI    = mustParseABI("ERC1155", erc1155ABIJSON)
	ExchangeABI   = mustParseABI("WyvernExchange", exchangeABIJSON)
	RegistryABI   = mustParseABI("WyvernRegistry", registryABIJSON)
	AtomicizerABI = mustParseABI("WyvernAtomicizer", atomicizerABIJSON)
	StaticUtilABI = mustParseABI("WyvernStatic", staticUtilABIJSON)
	WETHABI       = mustParseABI("WETH", wethABIJSON)
)
