package landport

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/onelandworld/landport-go/chain"
)

// Network identifies a supported Ethereum network
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkRinkeby Network = "rinkeby"
)

// SupportedNetworks lists all supported networks
var SupportedNetworks = []Network{NetworkMainnet, NetworkRinkeby}

// ChainIDs maps networks to their chain IDs
var ChainIDs = map[Network]*big.Int{
	NetworkMainnet: big.NewInt(1),
	NetworkRinkeby: big.NewInt(4),
}

// DefaultContractAddresses maps networks to their deployed exchange
// contracts
var DefaultContractAddresses = map[Network]chain.ContractAddresses{
	NetworkRinkeby: {
		Exchange:     common.HexToAddress("0x3D7FA4926b8306714A62eA41fCf241a793AA255a"),
		Registry:     common.HexToAddress("0xa16Cd54E5E111ad32a0e9065F7C85984fE2fE968"),
		StaticUtil:   common.HexToAddress("0x5B0832f61b4951963C5A9bB60b209ca4f3BCa8A4"),
		StaticMarket: common.HexToAddress("0x740A993dd3C2232ABC2F2926545FaB2955a20E71"),
		Atomicizer:   common.HexToAddress("0x5E6E0075B9600E74AA0214c6F3b98235922e750A"),
		WETH:         common.HexToAddress("0xc778417E063141139Fce010982780140Aa0cD5Ab"),
	},
}

// API endpoints per network
const (
	APIBaseMainnet = "https://api.oneland.world"
	APIBaseRinkeby = "https://api-rinkeby.oneland.world"
)

// Order timing rules enforced by the exchange and the orderbook
const (
	MinExpirationMinutes        = 15
	MaxExpirationMonths         = 6
	OrderMatchingLatencySeconds = 60 * 60 * 24 * 7
)

// Fee constants, in basis points of the sale price
const (
	InverseBasisPoint = 10000

	DefaultMarketplaceFeeBasisPoints = 250
	MaxMarketplaceFeeBasisPoints     = 500
	MaxDevFeeBasisPoints             = 1000

	DefaultSellerBountyBasisPoints = 0
	MaxBountyBasisPoints           = DefaultMarketplaceFeeBasisPoints
)

// DefaultMarketplaceFeeRecipient receives the marketplace fee when a
// collection does not override it
var DefaultMarketplaceFeeRecipient = common.HexToAddress("0xC73ce0c5e473E68058298D9163296BebAC2b729C")

// NullAddress is the zero address, used as the native-currency
// payment token sentinel
var NullAddress = common.Address{}

// MaxUint256 is the unlimited ERC20 approval amount
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Retry defaults for chain reads and match validation
const (
	DefaultValidationRetries = 1
	DefaultRetryDelay        = 500 * time.Millisecond
)

// ClientConfig configures a Client
type ClientConfig struct {
	Network Network

	// APIBaseURL overrides the per-network orderbook endpoint
	APIBaseURL string
	APIKey     string

	RPCURL string

	// PrivateKey signs both orders and transactions when no external
	// Signer is supplied. Hex encoded, no 0x prefix.
	PrivateKey string

	// Signer authorizes orders externally, e.g. through a wallet.
	// Optional; overrides PrivateKey for order signing only.
	Signer chain.Signer

	// ContractAddresses overrides the per-network deployment
	ContractAddresses *chain.ContractAddresses

	// HTTPTimeout bounds orderbook API requests
	HTTPTimeout time.Duration

	// ValidationRetries and RetryDelay bound re-attempts of chain
	// reads and match validation
	ValidationRetries int
	RetryDelay        time.Duration
}
