package landport

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/onelandworld/landport-go/chain"
)

func testSignedOrder() *chain.Order {
	return &chain.Order{
		UnhashedOrder: chain.UnhashedOrder{
			Registry:        common.HexToAddress("0xa16Cd54E5E111ad32a0e9065F7C85984fE2fE968"),
			Exchange:        common.HexToAddress("0x3D7FA4926b8306714A62eA41fCf241a793AA255a"),
			Maker:           common.HexToAddress("0x1111111111111111111111111111111111111111"),
			Side:            chain.OrderSideSell,
			SaleKind:        chain.SaleKindFixedPrice,
			Quantity:        big.NewInt(1),
			MaximumFill:     big.NewInt(1),
			TokenContract:   common.HexToAddress("0x2222222222222222222222222222222222222222"),
			TokenID:         big.NewInt(42),
			PaymentToken:    common.HexToAddress("0xc778417E063141139Fce010982780140Aa0cD5Ab"),
			BasePrice:       big.NewInt(1000000),
			ListingTime:     big.NewInt(1700000000),
			ExpirationTime:  big.NewInt(1700100000),
			Salt:            big.NewInt(12345),
			StaticTarget:    common.HexToAddress("0x740A993dd3C2232ABC2F2926545FaB2955a20E71"),
			StaticSelector:  chain.SelectorERC721ForERC20,
			StaticExtradata: []byte{0x01, 0x02, 0x03},

			Amount:                  big.NewInt(965000),
			MarketplaceFee:          big.NewInt(25000),
			MarketplaceFeeRecipient: DefaultMarketplaceFeeRecipient,
			DevFee:                  big.NewInt(10000),
			DevFeeRecipient:         common.HexToAddress("0x5555555555555555555555555555555555555555"),

			Metadata: chain.Metadata{
				Asset: &chain.AssetRef{
					ID:      "42",
					Address: "0x2222222222222222222222222222222222222222",
				},
				Schema: chain.SchemaERC721,
			},
		},
		Hash:      common.HexToHash("0xdeadbeef"),
		Signature: chain.Signature{V: 27, R: common.HexToHash("0x01"), S: common.HexToHash("0x02")},
	}
}

func TestOrderToJSON(t *testing.T) {
	req := require.New(t)

	j := OrderToJSON(testSignedOrder())

	// Addresses are lowercase hex, numbers decimal strings
	req.Equal("0xa16cd54e5e111ad32a0e9065f7c85984fe2fe968", j.Registry)
	req.Equal("0x2222222222222222222222222222222222222222", j.TokenAddress)
	req.Equal("42", j.TokenID)
	req.Equal("1000000", j.BasePrice)
	req.Equal("965000", j.Amount)
	req.Equal(uint8(1), j.Side)
	req.Equal("0x010203", j.StaticExtradata)
	req.Equal(uint8(27), j.V)
}

func TestOrderJSONRoundTrip(t *testing.T) {
	req := require.New(t)

	original := testSignedOrder()
	encoded, err := json.Marshal(OrderToJSON(original))
	req.NoError(err)

	var wire OrderJSON
	req.NoError(json.Unmarshal(encoded, &wire))

	decoded, err := OrderFromJSON(&wire)
	req.NoError(err)

	req.Equal(original.Registry, decoded.Registry)
	req.Equal(original.Maker, decoded.Maker)
	req.Equal(original.StaticSelector, decoded.StaticSelector)
	req.Equal(original.StaticExtradata, decoded.StaticExtradata)
	req.Zero(original.Salt.Cmp(decoded.Salt))
	req.Zero(original.BasePrice.Cmp(decoded.BasePrice))
	req.Zero(original.Amount.Cmp(decoded.Amount))
	req.Zero(original.MarketplaceFee.Cmp(decoded.MarketplaceFee))
	req.Equal(original.DevFeeRecipient, decoded.DevFeeRecipient)
	req.Equal(original.Side, decoded.Side)
	req.Equal(original.Signature, decoded.Signature)
	req.Equal(original.Metadata, decoded.Metadata)

	// Signed-order hashes survive the round trip
	req.Equal(original.Hash, decoded.Hash)
	req.Equal(original.StructHash(), decoded.StructHash())
}

func TestOrderFromJSONUnsigned(t *testing.T) {
	req := require.New(t)

	order := testSignedOrder()
	order.Signature = chain.Signature{}
	j := OrderToJSON(order)
	req.Zero(j.V)
	req.Empty(j.R)

	decoded, err := OrderFromJSON(j)
	req.NoError(err)
	req.True(decoded.Signature.Empty())
}

func TestOrderFromJSONRejectsBadFields(t *testing.T) {
	req := require.New(t)

	j := OrderToJSON(testSignedOrder())
	j.StaticSelector = "0x0102"
	_, err := OrderFromJSON(j)
	req.Error(err)

	j = OrderToJSON(testSignedOrder())
	j.BasePrice = "not-a-number"
	_, err = OrderFromJSON(j)
	req.Error(err)
}

func TestCollectionFees(t *testing.T) {
	req := require.New(t)

	var nilCollection *Collection
	fees := nilCollection.Fees()
	req.Equal(-1, fees.MarketplaceFeeBasisPoints)
	req.Equal(-1, fees.DevFeeBasisPoints)
	req.Equal(NullAddress, fees.PayoutAddress)

	marketplaceBPS := 100
	devBPS := 300
	collection := &Collection{
		MarketplaceFeeBasisPoints: &marketplaceBPS,
		DevFeeBasisPoints:         &devBPS,
		PayoutAddress:             "0x5555555555555555555555555555555555555555",
	}
	fees = collection.Fees()
	req.Equal(100, fees.MarketplaceFeeBasisPoints)
	req.Equal(300, fees.DevFeeBasisPoints)
	req.Equal(common.HexToAddress("0x5555555555555555555555555555555555555555"), fees.PayoutAddress)
}
