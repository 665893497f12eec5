package landport

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/xerrors"

	"github.com/onelandworld/landport-go/chain"
)

// PaymentToken is a fungible token accepted by the orderbook
type PaymentToken struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	Address  string `json:"address"`
	ImageURL string `json:"imageUrl,omitempty"`
	EthPrice string `json:"ethPrice,omitempty"`
	UsdPrice string `json:"usdPrice,omitempty"`
}

// PaymentTokenQuery filters payment token listings
type PaymentTokenQuery struct {
	Symbol  string
	Address string
}

// Collection is the orderbook's view of an asset collection,
// including its fee settings. Basis point fields are nil when the
// collection has no override.
type Collection struct {
	Name                      string `json:"name,omitempty"`
	Slug                      string `json:"slug,omitempty"`
	Description               string `json:"description,omitempty"`
	ImageURL                  string `json:"imageUrl,omitempty"`
	MarketplaceFeeBasisPoints *int   `json:"marketplaceFeeBasisPoints,omitempty"`
	DevFeeBasisPoints         *int   `json:"devFeeBasisPoints,omitempty"`
	PayoutAddress             string `json:"payoutAddress,omitempty"`
}

// Fees converts the collection's settings to fee computation inputs
func (c *Collection) Fees() CollectionFees {
	fees := CollectionFees{
		MarketplaceFeeBasisPoints: -1,
		DevFeeBasisPoints:         -1,
	}
	if c == nil {
		return fees
	}
	if c.MarketplaceFeeBasisPoints != nil {
		fees.MarketplaceFeeBasisPoints = *c.MarketplaceFeeBasisPoints
	}
	if c.DevFeeBasisPoints != nil {
		fees.DevFeeBasisPoints = *c.DevFeeBasisPoints
	}
	if c.PayoutAddress != "" && common.IsHexAddress(c.PayoutAddress) {
		fees.PayoutAddress = common.HexToAddress(c.PayoutAddress)
	}
	return fees
}

// AssetInfo is the orderbook's annotated view of one asset
type AssetInfo struct {
	TokenID       string       `json:"tokenId"`
	TokenContract string       `json:"tokenAddress"`
	SchemaName    chain.Schema `json:"schemaName"`
	Name          string       `json:"name,omitempty"`
	Description   string       `json:"description,omitempty"`
	Owner         string       `json:"owner,omitempty"`
	Collection    *Collection  `json:"collection,omitempty"`
	IsPresale     bool         `json:"isPresale,omitempty"`
	ImageURL      string       `json:"imageUrl,omitempty"`
}

// AssetQuery identifies one asset
type AssetQuery struct {
	TokenContract string
	TokenID       string
}

// OrderJSON is the orderbook wire format of an order. All numeric
// fields are base-10 strings and all binary fields lowercase hex.
type OrderJSON struct {
	Registry        string `json:"registry"`
	Exchange        string `json:"exchange"`
	Maker           string `json:"maker"`
	StaticTarget    string `json:"staticTarget"`
	StaticSelector  string `json:"staticSelector"`
	StaticExtradata string `json:"staticExtradata"`
	MaximumFill     string `json:"maximumFill"`
	ListingTime     string `json:"listingTime"`
	ExpirationTime  string `json:"expirationTime"`
	Salt            string `json:"salt"`

	TokenAddress string `json:"tokenAddress"`
	TokenID      string `json:"tokenId"`

	Hash         string `json:"hash,omitempty"`
	PaymentToken string `json:"paymentToken"`
	BasePrice    string `json:"basePrice"`

	Side     uint8  `json:"side"`
	SaleKind uint8  `json:"saleKind"`
	Quantity string `json:"quantity"`

	Amount                  string `json:"amount"`
	MarketplaceFee          string `json:"marketplaceFee"`
	MarketplaceFeeRecipient string `json:"marketplaceFeeRecipient"`
	DevFee                  string `json:"devFee"`
	DevFeeRecipient         string `json:"devFeeRecipient"`

	V uint8  `json:"v,omitempty"`
	R string `json:"r,omitempty"`
	S string `json:"s,omitempty"`

	Metadata chain.Metadata `json:"metadata"`

	CreatedTime string `json:"createdTime,omitempty"`
}

func addressToJSON(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// OrderToJSON renders an order in the orderbook wire format
func OrderToJSON(order *chain.Order) *OrderJSON {
	j := &OrderJSON{
		Registry:        addressToJSON(order.Registry),
		Exchange:        addressToJSON(order.Exchange),
		Maker:           addressToJSON(order.Maker),
		StaticTarget:    addressToJSON(order.StaticTarget),
		StaticSelector:  hexutil.Encode(order.StaticSelector[:]),
		StaticExtradata: hexutil.Encode(order.StaticExtradata),
		MaximumFill:     order.MaximumFill.String(),
		ListingTime:     order.ListingTime.String(),
		ExpirationTime:  order.ExpirationTime.String(),
		Salt:            order.Salt.String(),

		TokenAddress: addressToJSON(order.TokenContract),
		TokenID:      order.TokenID.String(),

		PaymentToken: addressToJSON(order.PaymentToken),
		BasePrice:    order.BasePrice.String(),

		Side:     uint8(order.Side),
		SaleKind: uint8(order.SaleKind),
		Quantity: order.Quantity.String(),

		Amount:                  order.Amount.String(),
		MarketplaceFee:          order.MarketplaceFee.String(),
		MarketplaceFeeRecipient: addressToJSON(order.MarketplaceFeeRecipient),
		DevFee:                  order.DevFee.String(),
		DevFeeRecipient:         addressToJSON(order.DevFeeRecipient),

		Metadata: order.Metadata,
	}

	if order.Hash != (common.Hash{}) {
		j.Hash = order.Hash.Hex()
	}
	if !order.Signature.Empty() {
		j.V = order.Signature.V
		j.R = order.Signature.R.Hex()
		j.S = order.Signature.S.Hex()
	}
	if order.CreatedTime != nil {
		j.CreatedTime = order.CreatedTime.String()
	}

	return j
}

func bigFromJSON(field, value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, xerrors.Errorf("order field %s: invalid number %q", field, value)
	}
	return parsed, nil
}

// OrderFromJSON parses an order from the orderbook wire format
func OrderFromJSON(j *OrderJSON) (*chain.Order, error) {
	order := &chain.Order{}

	order.Registry = common.HexToAddress(j.Registry)
	order.Exchange = common.HexToAddress(j.Exchange)
	order.Maker = common.HexToAddress(j.Maker)
	order.StaticTarget = common.HexToAddress(j.StaticTarget)

	selector, err := hexutil.Decode(j.StaticSelector)
	if err != nil || len(selector) != 4 {
		return nil, xerrors.Errorf("order field staticSelector: invalid value %q", j.StaticSelector)
	}
	copy(order.StaticSelector[:], selector)

	order.StaticExtradata, err = hexutil.Decode(j.StaticExtradata)
	if err != nil {
		return nil, xerrors.Errorf("order field staticExtradata: %w", err)
	}

	fields := []struct {
		name  string
		value string
		dst   **big.Int
	}{
		{"maximumFill", j.MaximumFill, &order.MaximumFill},
		{"listingTime", j.ListingTime, &order.ListingTime},
		{"expirationTime", j.ExpirationTime, &order.ExpirationTime},
		{"salt", j.Salt, &order.Salt},
		{"tokenId", j.TokenID, &order.TokenID},
		{"basePrice", j.BasePrice, &order.BasePrice},
		{"quantity", j.Quantity, &order.Quantity},
		{"amount", j.Amount, &order.Amount},
		{"marketplaceFee", j.MarketplaceFee, &order.MarketplaceFee},
		{"devFee", j.DevFee, &order.DevFee},
	}
	for _, f := range fields {
		parsed, err := bigFromJSON(f.name, f.value)
		if err != nil {
			return nil, err
		}
		*f.dst = parsed
	}

	order.TokenContract = common.HexToAddress(j.TokenAddress)
	order.PaymentToken = common.HexToAddress(j.PaymentToken)
	order.Side = chain.OrderSide(j.Side)
	order.SaleKind = chain.SaleKind(j.SaleKind)
	order.MarketplaceFeeRecipient = common.HexToAddress(j.MarketplaceFeeRecipient)
	order.DevFeeRecipient = common.HexToAddress(j.DevFeeRecipient)
	order.Metadata = j.Metadata

	if j.Hash != "" {
		order.Hash = common.HexToHash(j.Hash)
	}
	if j.V != 0 {
		order.Signature = chain.Signature{
			V: j.V,
			R: common.HexToHash(j.R),
			S: common.HexToHash(j.S),
		}
	}
	if j.CreatedTime != "" {
		createdTime, err := bigFromJSON("createdTime", j.CreatedTime)
		if err != nil {
			return nil, err
		}
		order.CreatedTime = createdTime
	}

	return order, nil
}
