package landport

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"github.com/onelandworld/landport-go/chain"
	"github.com/onelandworld/landport-go/log"
)

// orderbook is the subset of the OneLand API the client consumes
type orderbook interface {
	GetAsset(ctx context.Context, query AssetQuery) (*AssetInfo, error)
	GetPaymentTokens(ctx context.Context, query PaymentTokenQuery) ([]PaymentToken, error)
	PostOrder(ctx context.Context, order *OrderJSON) (*chain.Order, error)
	PostAssetWhitelist(ctx context.Context, query AssetQuery, email string) error
}

// contractBackend is the subset of on-chain operations the client
// consumes. *chain.ContractCaller implements it; tests substitute
// stubs.
type contractBackend interface {
	Addresses() chain.ContractAddresses
	SignerAddress() common.Address

	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
	ERC20Balance(ctx context.Context, token, account common.Address) (*big.Int, error)
	ERC20Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	ERC721Balance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	ERC1155Balance(ctx context.Context, token, owner common.Address, tokenID *big.Int) (*big.Int, error)
	IsApprovedForAll(ctx context.Context, token, owner, operator common.Address) (bool, error)
	ProxyFor(ctx context.Context, owner common.Address) (common.Address, error)
	ValidateOrderParameters(ctx context.Context, order *chain.UnhashedOrder) (bool, error)
	ValidateOrderAuthorization(ctx context.Context, hash common.Hash, maker common.Address, sig chain.Signature) (bool, error)

	RegisterProxy(ctx context.Context, owner common.Address) (common.Address, error)
	SetApprovalForAll(ctx context.Context, token, operator common.Address) (*types.Transaction, error)
	ApproveERC721(ctx context.Context, token, to common.Address, tokenID *big.Int) (*types.Transaction, error)
	ApproveERC20(ctx context.Context, token, spender common.Address, amount *big.Int) (*types.Transaction, error)
	AtomicMatch(ctx context.Context, params *chain.AtomicMatchParams, value *big.Int) (*types.Transaction, error)
	SetOrderFill(ctx context.Context, hash common.Hash, fill *big.Int) (*types.Transaction, error)
	DepositWETH(ctx context.Context, amount *big.Int) (*types.Transaction, error)
	WithdrawWETH(ctx context.Context, amount *big.Int) (*types.Transaction, error)
}

// Client creates, signs, posts and fulfills exchange orders
type Client struct {
	network   Network
	chainID   *big.Int
	addresses chain.ContractAddresses

	api    orderbook
	caller contractBackend
	signer chain.Signer

	logger     log.Logger
	retries    int
	retryDelay time.Duration

	// injectable for tests
	now   func() time.Time
	sleep func(time.Duration)

	closer interface{ Close() }
}

// NewClient builds a Client from the configuration. A missing private
// key yields a read-only client that can still query balances and
// proxies but cannot create or fulfill orders.
func NewClient(config ClientConfig) (*Client, error) {
	chainID, ok := ChainIDs[config.Network]
	if !ok {
		return nil, xerrors.Errorf("%s: %w", config.Network, ErrUnsupportedNetwork)
	}

	addresses, deployed := DefaultContractAddresses[config.Network]
	if config.ContractAddresses != nil {
		addresses = *config.ContractAddresses
	} else if !deployed {
		return nil, xerrors.Errorf("no contract deployment for %s: %w", config.Network, ErrUnsupportedNetwork)
	}

	apiBase := config.APIBaseURL
	if apiBase == "" {
		switch config.Network {
		case NetworkMainnet:
			apiBase = APIBaseMainnet
		default:
			apiBase = APIBaseRinkeby
		}
	}
	api := NewAPIClient(apiBase, config.APIKey, config.HTTPTimeout)

	caller, err := chain.NewContractCaller(config.RPCURL, config.PrivateKey, chainID, addresses)
	if err != nil {
		return nil, xerrors.Errorf("create contract caller: %w", err)
	}

	signer := config.Signer
	if signer == nil && config.PrivateKey != "" {
		signer, err = chain.NewPrivateKeySigner(config.PrivateKey)
		if err != nil {
			return nil, xerrors.Errorf("create order signer: %w", err)
		}
	}

	retries := config.ValidationRetries
	if retries == 0 {
		retries = DefaultValidationRetries
	}
	retryDelay := config.RetryDelay
	if retryDelay == 0 {
		retryDelay = DefaultRetryDelay
	}

	return &Client{
		network:    config.Network,
		chainID:    chainID,
		addresses:  addresses,
		api:        api,
		caller:     caller,
		signer:     signer,
		logger:     log.Log().WithField("mod", "client"),
		retries:    retries,
		retryDelay: retryDelay,
		now:        time.Now,
		sleep:      time.Sleep,
		closer:     caller,
	}, nil
}

// Close releases the underlying RPC connection
func (c *Client) Close() {
	if c.closer != nil {
		c.closer.Close()
	}
}

// SellOrderParams configures a new listing. Amounts are in the
// payment token's main units, e.g. ETH instead of wei.
type SellOrderParams struct {
	Asset          chain.Asset
	AccountAddress string
	StartAmount    decimal.Decimal

	// EndAmount below StartAmount turns the listing into a declining
	// Dutch auction
	EndAmount *decimal.Decimal

	// ListingTime and ExpirationTime are unix seconds; zero means now
	// (minus a latency allowance) and the default expiration
	ListingTime    int64
	ExpirationTime int64

	// PaymentTokenAddress empty or zero sells for the native currency
	PaymentTokenAddress string

	// WaitForHighestBid hides the listing until the auction ends and
	// the best bid is matched
	WaitForHighestBid          bool
	EnglishAuctionReservePrice *decimal.Decimal
}

// BuyOrderParams configures a new offer. Offers always settle in an
// ERC20 token.
type BuyOrderParams struct {
	Asset               chain.Asset
	AccountAddress      string
	StartAmount         decimal.Decimal
	ExpirationTime      int64
	PaymentTokenAddress string
}

// FulfillOrderParams configures taking an existing order
type FulfillOrderParams struct {
	Order          *chain.Order
	AccountAddress string

	// RecipientAddress defaults to AccountAddress
	RecipientAddress string
}

// CreateSellOrder lists an asset for sale: it assembles the order,
// ensures the maker's proxy and approvals are in place, signs the
// order and posts it to the orderbook.
func (c *Client) CreateSellOrder(ctx context.Context, params SellOrderParams) (*chain.Order, error) {
	order, err := c.makeSellOrder(ctx, params)
	if err != nil {
		return nil, err
	}

	if err := c.sellOrderValidationAndApprovals(ctx, order); err != nil {
		return nil, err
	}

	signed, err := c.hashAndAuthorize(ctx, order)
	if err != nil {
		return nil, err
	}
	return c.validateAndPostOrder(ctx, signed)
}

// CreateBuyOrder places an offer on an asset. Offers must use an
// ERC20 payment token; the native currency cannot be escrowed.
func (c *Client) CreateBuyOrder(ctx context.Context, params BuyOrderParams) (*chain.Order, error) {
	if params.PaymentTokenAddress == "" || strings.EqualFold(params.PaymentTokenAddress, NullAddress.Hex()) {
		return nil, ErrPaymentTokenRequired
	}

	order, err := c.makeBuyOrder(ctx, params)
	if err != nil {
		return nil, err
	}

	if err := c.buyOrderValidationAndApprovals(ctx, order, nil); err != nil {
		return nil, err
	}

	signed, err := c.hashAndAuthorize(ctx, order)
	if err != nil {
		return nil, err
	}
	return c.validateAndPostOrder(ctx, signed)
}

// FulfillOrder takes an existing order: it builds and signs the
// matching counter-order, validates the pair and submits the atomic
// match transaction.
func (c *Client) FulfillOrder(ctx context.Context, params FulfillOrderParams) (*types.Transaction, error) {
	account, err := ValidateAndFormatAddress(params.AccountAddress)
	if err != nil {
		return nil, err
	}
	if params.RecipientAddress != "" {
		if _, err := ValidateAndFormatAddress(params.RecipientAddress); err != nil {
			return nil, err
		}
	}

	proxy, err := c.getProxy(ctx, account)
	if err != nil {
		return nil, err
	}
	c.logger.WithField("proxy", proxy.Hex()).Debug("taker proxy ready")

	matching, err := c.makeMatchingOrder(params.Order, account)
	if err != nil {
		return nil, err
	}

	signedMatching, err := c.hashAndAuthorize(ctx, matching)
	if err != nil {
		return nil, err
	}

	buy, sell := AssignOrdersToSides(params.Order, signedMatching)
	return c.atomicMatch(ctx, buy, sell, account)
}

// CancelOrder cancels an order on-chain by setting its fill to the
// maximum, preventing it from ever being matched
func (c *Client) CancelOrder(ctx context.Context, order *chain.Order) (*types.Transaction, error) {
	hash := order.StructHash()
	return c.caller.SetOrderFill(ctx, hash, order.MaximumFill)
}

// WhitelistAssetBuyer restricts an order to a buyer email on the
// orderbook. Only available for non-fungible assets.
func (c *Client) WhitelistAssetBuyer(ctx context.Context, order *chain.Order, buyerEmail string) error {
	asset := order.Metadata.Asset
	if asset == nil || asset.ID == "" {
		return validationErrorf("whitelisting only available for non-fungible assets")
	}
	return c.api.PostAssetWhitelist(ctx, AssetQuery{
		TokenContract: asset.Address,
		TokenID:       asset.ID,
	}, buyerEmail)
}

// WrapEth deposits native currency into the WETH contract
func (c *Client) WrapEth(ctx context.Context, amountInEth decimal.Decimal) (*types.Transaction, error) {
	decimals, err := c.caller.TokenDecimals(ctx, c.addresses.WETH)
	if err != nil {
		return nil, err
	}
	amount, err := ToBaseUnits(amountInEth, decimals)
	if err != nil {
		return nil, err
	}
	return c.caller.DepositWETH(ctx, amount)
}

// UnwrapWeth withdraws WETH back into native currency
func (c *Client) UnwrapWeth(ctx context.Context, amountInEth decimal.Decimal) (*types.Transaction, error) {
	decimals, err := c.caller.TokenDecimals(ctx, c.addresses.WETH)
	if err != nil {
		return nil, err
	}
	amount, err := ToBaseUnits(amountInEth, decimals)
	if err != nil {
		return nil, err
	}
	return c.caller.WithdrawWETH(ctx, amount)
}

// GetAssetBalance returns an account's balance of any supported asset
func (c *Client) GetAssetBalance(ctx context.Context, account common.Address, asset chain.Asset) (*big.Int, error) {
	return c.assetBalance(ctx, account, asset, c.retries)
}

func (c *Client) assetBalance(ctx context.Context, account common.Address, asset chain.Asset, retries int) (*big.Int, error) {
	switch asset.Schema {
	case chain.SchemaERC20:
		return c.caller.ERC20Balance(ctx, asset.TokenContract, account)
	case chain.SchemaERC721, chain.SchemaERC721Legacy:
		return c.caller.ERC721Balance(ctx, asset.TokenContract, account)
	case chain.SchemaERC1155:
		return c.caller.ERC1155Balance(ctx, asset.TokenContract, account, asset.TokenID)
	}

	if retries <= 0 {
		return nil, &ChainReadError{Op: "asset balance", Err: ErrUnsupportedSchema}
	}
	c.sleep(c.retryDelay)
	return c.assetBalance(ctx, account, asset, retries-1)
}

// getTokenBalance is a fungible-token convenience over GetAssetBalance
func (c *Client) getTokenBalance(ctx context.Context, account, token common.Address) (*big.Int, error) {
	return c.GetAssetBalance(ctx, account, chain.Asset{
		TokenContract: token,
		Schema:        chain.SchemaERC20,
	})
}

// order assembly

func (c *Client) makeSellOrder(ctx context.Context, params SellOrderParams) (*chain.UnhashedOrder, error) {
	account, err := ValidateAndFormatAddress(params.AccountAddress)
	if err != nil {
		return nil, err
	}

	paymentToken := NullAddress
	if params.PaymentTokenAddress != "" {
		paymentToken, err = ValidateAndFormatAddress(params.PaymentTokenAddress)
		if err != nil {
			return nil, err
		}
	}

	quantity := params.Asset.Quantity
	if quantity == nil {
		quantity = big.NewInt(1)
	}

	assetInfo, err := c.api.GetAsset(ctx, AssetQuery{
		TokenContract: strings.ToLower(params.Asset.TokenContract.Hex()),
		TokenID:       params.Asset.TokenID.String(),
	})
	if err != nil {
		return nil, err
	}

	expiration := params.ExpirationTime
	if expiration == 0 {
		expiration = c.defaultExpirationTime()
	}

	saleKind := chain.SaleKindFixedPrice
	if params.EndAmount != nil && !params.EndAmount.Equal(params.StartAmount) {
		saleKind = chain.SaleKindDutchAuction
	}

	basePrice, err := c.priceParameters(ctx, chain.OrderSideSell, paymentToken, expiration,
		params.StartAmount, params.EndAmount, params.WaitForHighestBid, params.EnglishAuctionReservePrice)
	if err != nil {
		return nil, err
	}

	listingTime, expirationTime, err := c.timeParameters(params.ListingTime, expiration, params.WaitForHighestBid, false)
	if err != nil {
		return nil, err
	}

	fees := ComputeFees(assetInfo.Collection.Fees(), basePrice)

	static, err := chain.StaticCallFor(chain.OrderSideSell, c.staticCallParams(paymentToken, params.Asset, basePrice, fees))
	if err != nil {
		return nil, err
	}

	return &chain.UnhashedOrder{
		Registry:       c.addresses.Registry,
		Exchange:       c.addresses.Exchange,
		Maker:          account,
		Side:           chain.OrderSideSell,
		SaleKind:       saleKind,
		Quantity:       quantity,
		MaximumFill:    big.NewInt(1),
		TokenContract:  params.Asset.TokenContract,
		TokenID:        params.Asset.TokenID,
		PaymentToken:   paymentToken,
		BasePrice:      basePrice,
		ListingTime:    listingTime,
		ExpirationTime: expirationTime,
		Salt:           GenerateSalt(),

		StaticTarget:    static.Target,
		StaticSelector:  static.Selector,
		StaticExtradata: static.Extradata,

		Amount:                  fees.Amount,
		MarketplaceFee:          fees.MarketplaceFee,
		MarketplaceFeeRecipient: fees.MarketplaceFeeRecipient,
		DevFee:                  fees.DevFee,
		DevFeeRecipient:         fees.DevFeeRecipient,

		Metadata: assetMetadata(params.Asset, quantity),
	}, nil
}

func (c *Client) makeBuyOrder(ctx context.Context, params BuyOrderParams) (*chain.UnhashedOrder, error) {
	account, err := ValidateAndFormatAddress(params.AccountAddress)
	if err != nil {
		return nil, err
	}
	paymentToken, err := ValidateAndFormatAddress(params.PaymentTokenAddress)
	if err != nil {
		return nil, err
	}

	quantity := params.Asset.Quantity
	if quantity == nil {
		quantity = big.NewInt(1)
	}

	assetInfo, err := c.api.GetAsset(ctx, AssetQuery{
		TokenContract: strings.ToLower(params.Asset.TokenContract.Hex()),
		TokenID:       params.Asset.TokenID.String(),
	})
	if err != nil {
		return nil, err
	}

	expiration := params.ExpirationTime
	if expiration == 0 {
		expiration = c.defaultExpirationTime()
	}

	basePrice, err := c.priceParameters(ctx, chain.OrderSideBuy, paymentToken, expiration,
		params.StartAmount, nil, false, nil)
	if err != nil {
		return nil, err
	}

	listingTime, expirationTime, err := c.timeParameters(0, expiration, false, false)
	if err != nil {
		return nil, err
	}

	fees := ComputeFees(assetInfo.Collection.Fees(), basePrice)

	static, err := chain.StaticCallFor(chain.OrderSideBuy, c.staticCallParams(paymentToken, params.Asset, basePrice, fees))
	if err != nil {
		return nil, err
	}

	return &chain.UnhashedOrder{
		Registry:       c.addresses.Registry,
		Exchange:       c.addresses.Exchange,
		Maker:          account,
		Side:           chain.OrderSideBuy,
		SaleKind:       chain.SaleKindFixedPrice,
		Quantity:       quantity,
		MaximumFill:    big.NewInt(1),
		TokenContract:  params.Asset.TokenContract,
		TokenID:        params.Asset.TokenID,
		PaymentToken:   paymentToken,
		BasePrice:      basePrice,
		ListingTime:    listingTime,
		ExpirationTime: expirationTime,
		Salt:           GenerateSalt(),

		StaticTarget:    static.Target,
		StaticSelector:  static.Selector,
		StaticExtradata: static.Extradata,

		Amount:                  fees.Amount,
		MarketplaceFee:          fees.MarketplaceFee,
		MarketplaceFeeRecipient: fees.MarketplaceFeeRecipient,
		DevFee:                  fees.DevFee,
		DevFeeRecipient:         fees.DevFeeRecipient,

		Metadata: assetMetadata(params.Asset, quantity),
	}, nil
}

// makeMatchingOrder mirrors an existing order onto the opposite side
// so the pair can be matched. The predicate is re-encoded for the new
// side; price, fees and quantities are carried over unchanged.
func (c *Client) makeMatchingOrder(order *chain.Order, account common.Address) (*chain.UnhashedOrder, error) {
	side := order.Side.Opposite()

	static, err := chain.StaticCallFor(side, chain.StaticCallParams{
		StaticUtil:   c.addresses.StaticUtil,
		StaticMarket: c.addresses.StaticMarket,

		PaymentToken:  order.PaymentToken,
		TokenContract: order.TokenContract,
		TokenID:       order.TokenID,
		Price:         order.BasePrice,

		Amount:                  order.Amount,
		MarketplaceFee:          order.MarketplaceFee,
		MarketplaceFeeRecipient: order.MarketplaceFeeRecipient,
		DevFee:                  order.DevFee,
		DevFeeRecipient:         order.DevFeeRecipient,
	})
	if err != nil {
		return nil, err
	}

	listingTime, expirationTime, err := c.timeParameters(0, 0, false, true)
	if err != nil {
		return nil, err
	}

	return &chain.UnhashedOrder{
		Registry:       order.Registry,
		Exchange:       order.Exchange,
		Maker:          account,
		Side:           side,
		SaleKind:       chain.SaleKindFixedPrice,
		Quantity:       order.Quantity,
		MaximumFill:    order.MaximumFill,
		TokenContract:  order.TokenContract,
		TokenID:        order.TokenID,
		PaymentToken:   order.PaymentToken,
		BasePrice:      order.BasePrice,
		ListingTime:    listingTime,
		ExpirationTime: expirationTime,
		Salt:           GenerateSalt(),

		StaticTarget:    static.Target,
		StaticSelector:  static.Selector,
		StaticExtradata: static.Extradata,

		Amount:                  order.Amount,
		MarketplaceFee:          order.MarketplaceFee,
		MarketplaceFeeRecipient: order.MarketplaceFeeRecipient,
		DevFee:                  order.DevFee,
		DevFeeRecipient:         order.DevFeeRecipient,

		Metadata: order.Metadata,
	}, nil
}

func (c *Client) staticCallParams(paymentToken common.Address, asset chain.Asset, basePrice *big.Int, fees ComputedFees) chain.StaticCallParams {
	return chain.StaticCallParams{
		StaticUtil:   c.addresses.StaticUtil,
		StaticMarket: c.addresses.StaticMarket,

		PaymentToken:  paymentToken,
		TokenContract: asset.TokenContract,
		TokenID:       asset.TokenID,
		Price:         basePrice,

		Amount:                  fees.Amount,
		MarketplaceFee:          fees.MarketplaceFee,
		MarketplaceFeeRecipient: fees.MarketplaceFeeRecipient,
		DevFee:                  fees.DevFee,
		DevFeeRecipient:         fees.DevFeeRecipient,
	}
}

// assetMetadata builds the off-chain metadata annotation carried on
// an order
func assetMetadata(asset chain.Asset, quantity *big.Int) chain.Metadata {
	ref := chain.AssetRef{Address: strings.ToLower(asset.TokenContract.Hex())}
	if asset.Schema == chain.SchemaERC20 {
		ref.Quantity = quantity.String()
	} else if asset.TokenID != nil {
		ref.ID = asset.TokenID.String()
	}
	return chain.Metadata{
		Asset:  &ref,
		Schema: asset.Schema,
	}
}

// defaultExpirationTime is applied when no expiration is given
func (c *Client) defaultExpirationTime() int64 {
	return c.now().AddDate(0, 1, 0).Unix()
}

// timeParameters validates and resolves the listing and expiration
// timestamps of a new order. Auction listings waiting for the best
// counter-order list at their expiration and stay open one extra
// matching-latency window so the orderbook can settle them.
func (c *Client) timeParameters(listingTimestamp, expirationTimestamp int64, waitingForBestCounterOrder, isMatchingOrder bool) (listingTime, expirationTime *big.Int, err error) {
	nowSeconds := c.now().Unix()
	maxExpirationTimestamp := c.now().AddDate(0, MaxExpirationMonths, 0).Unix()

	if !isMatchingOrder && expirationTimestamp == 0 {
		return nil, nil, validationErrorf("expiration time cannot be 0")
	}
	if listingTimestamp != 0 && listingTimestamp < nowSeconds {
		return nil, nil, validationErrorf("listing time cannot be in the past")
	}
	if listingTimestamp != 0 && listingTimestamp >= expirationTimestamp {
		return nil, nil, validationErrorf("listing time must be before the expiration time")
	}
	if waitingForBestCounterOrder && listingTimestamp != 0 {
		return nil, nil, validationErrorf("cannot schedule an English auction for the future")
	}
	if expirationTimestamp > maxExpirationTimestamp {
		return nil, nil, validationErrorf("expiration time must not exceed %d months from now", MaxExpirationMonths)
	}

	if waitingForBestCounterOrder {
		listingTimestamp = expirationTimestamp
		// Expire one matching-latency window later so the orderbook
		// can still settle the best bid
		expirationTimestamp += OrderMatchingLatencySeconds

		if !isMatchingOrder && listingTimestamp < nowSeconds+MinExpirationMinutes*60 {
			return nil, nil, validationErrorf("expiration time must be at least %d minutes from now", MinExpirationMinutes)
		}
	} else {
		if listingTimestamp == 0 {
			// Small offset to account for latency
			listingTimestamp = nowSeconds - 100
		}
		if !isMatchingOrder && expirationTimestamp < listingTimestamp+MinExpirationMinutes*60 {
			return nil, nil, validationErrorf("expiration time must be at least %d minutes from the listing date", MinExpirationMinutes)
		}
	}

	return big.NewInt(listingTimestamp), big.NewInt(expirationTimestamp), nil
}

// priceParameters validates the pricing of a new order and converts
// the start amount into payment token base units
func (c *Client) priceParameters(ctx context.Context, side chain.OrderSide, paymentToken common.Address, expirationTime int64,
	startAmount decimal.Decimal, endAmount *decimal.Decimal, waitingForBestCounterOrder bool, reservePrice *decimal.Decimal) (*big.Int, error) {

	isNative := paymentToken == NullAddress

	if startAmount.Sign() <= 0 {
		return nil, validationErrorf("starting price must be a number > 0")
	}

	decimals := uint8(18)
	if !isNative {
		tokens, err := c.api.GetPaymentTokens(ctx, PaymentTokenQuery{
			Address: strings.ToLower(paymentToken.Hex()),
		})
		if err != nil {
			return nil, err
		}
		if len(tokens) == 0 {
			return nil, validationErrorf("no ERC-20 token found for %q", strings.ToLower(paymentToken.Hex()))
		}
		decimals = tokens[0].Decimals
	}

	if isNative && waitingForBestCounterOrder {
		return nil, validationErrorf("English auctions must use wrapped ETH or an ERC-20 token")
	}
	if isNative && side == chain.OrderSideBuy {
		return nil, validationErrorf("offers must use wrapped ETH or an ERC-20 token")
	}

	priceDiff := decimal.Zero
	if endAmount != nil {
		priceDiff = startAmount.Sub(*endAmount)
	}
	if priceDiff.Sign() < 0 {
		return nil, validationErrorf("end price must be less than or equal to the start price")
	}
	if priceDiff.Sign() > 0 && expirationTime == 0 {
		return nil, validationErrorf("expiration time must be set if order will change in price")
	}
	if reservePrice != nil && !waitingForBestCounterOrder {
		return nil, validationErrorf("reserve prices may only be set on English auctions")
	}
	if reservePrice != nil && reservePrice.LessThan(startAmount) {
		return nil, validationErrorf("reserve price must be greater than or equal to the start amount")
	}

	return ToBaseUnits(startAmount, decimals)
}

// signing and posting

func (c *Client) hashAndAuthorize(ctx context.Context, order *chain.UnhashedOrder) (*chain.Order, error) {
	hash := order.StructHash()
	sig, err := c.authorizeOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	return &chain.Order{
		UnhashedOrder: *order,
		Hash:          hash,
		Signature:     sig,
	}, nil
}

func (c *Client) authorizeOrder(ctx context.Context, order *chain.UnhashedOrder) (chain.Signature, error) {
	if c.signer == nil {
		return chain.Signature{}, &AuthorizationError{Message: "no order signer configured"}
	}
	sig, err := c.signer.SignOrder(ctx, order, c.chainID)
	if err != nil {
		return chain.Signature{}, &AuthorizationError{Message: "you declined to authorize the order", Err: err}
	}
	return sig, nil
}

// validateAndPostOrder posts the signed order; validation is called
// server-side
func (c *Client) validateAndPostOrder(ctx context.Context, order *chain.Order) (*chain.Order, error) {
	return c.api.PostOrder(ctx, OrderToJSON(order))
}

// matching

// atomicMatch validates the pair and submits atomicMatch_. The taker
// only re-validates the side it did not build itself; a third-party
// matching service validates both.
func (c *Client) atomicMatch(ctx context.Context, buy, sell *chain.Order, account common.Address) (*types.Transaction, error) {
	shouldValidateBuy := true
	shouldValidateSell := true

	if sell.Maker == account {
		if err := c.sellOrderValidationAndApprovals(ctx, &sell.UnhashedOrder); err != nil {
			return nil, err
		}
		shouldValidateSell = false
	} else if buy.Maker == account {
		if err := c.buyOrderValidationAndApprovals(ctx, &buy.UnhashedOrder, sell); err != nil {
			return nil, err
		}
		shouldValidateBuy = false
	}

	if err := c.validateMatch(ctx, buy, sell, shouldValidateBuy, shouldValidateSell); err != nil {
		return nil, err
	}

	isNative := sell.PaymentToken == NullAddress
	withFees := sell.MarketplaceFee.Sign() > 0 || sell.DevFee.Sign() > 0

	var firstCall, secondCall chain.Call
	var err error
	switch {
	case isNative:
		firstCall, secondCall, err = chain.CallsForNativeMatch(sell, buy, c.addresses.StaticUtil)
	case withFees:
		firstCall, secondCall, err = chain.CallsForSwapMatchWithFees(sell, buy, c.addresses.Atomicizer)
	default:
		firstCall, secondCall, err = chain.CallsForSwapMatch(sell, buy)
	}
	if err != nil {
		return nil, err
	}

	params, err := chain.ConstructAtomicMatchParams(sell, firstCall, buy, secondCall, common.Hash{})
	if err != nil {
		return nil, err
	}

	value := big.NewInt(0)
	if isNative {
		value = sell.BasePrice
	}

	c.logger.WithFields(log.Fields{
		"sell": sell.Hash.Hex(),
		"buy":  buy.Hash.Hex(),
	}).Info("submitting atomic match")

	return c.caller.AtomicMatch(ctx, params, value)
}

// validateMatch checks each requested side's authorization against
// the exchange, retrying once before giving up
func (c *Client) validateMatch(ctx context.Context, buy, sell *chain.Order, shouldValidateBuy, shouldValidateSell bool) error {
	retries := c.retries
	for {
		err := c.validateMatchOnce(ctx, buy, sell, shouldValidateBuy, shouldValidateSell)
		if err == nil {
			return nil
		}
		if retries <= 0 {
			return err
		}
		retries--
		c.logger.WithField("err", err.Error()).Warn("match validation failed, retrying")
		c.sleep(c.retryDelay)
	}
}

func (c *Client) validateMatchOnce(ctx context.Context, buy, sell *chain.Order, shouldValidateBuy, shouldValidateSell bool) error {
	if shouldValidateBuy {
		valid, err := c.validateOrder(ctx, buy)
		if err != nil {
			return err
		}
		if !valid {
			return &MatchValidationError{Side: "buy", Message: "it may have recently been removed"}
		}
	}
	if shouldValidateSell {
		valid, err := c.validateOrder(ctx, sell)
		if err != nil {
			return err
		}
		if !valid {
			return &MatchValidationError{Side: "sell", Message: "it may have recently been removed"}
		}
	}
	return nil
}

func (c *Client) validateOrder(ctx context.Context, order *chain.Order) (bool, error) {
	return c.caller.ValidateOrderAuthorization(ctx, order.Hash, order.Maker, order.Signature)
}

// validation and approvals

func (c *Client) sellOrderValidationAndApprovals(ctx context.Context, order *chain.UnhashedOrder) error {
	var assets []chain.AssetRef
	var schemas []chain.Schema
	switch {
	case order.Metadata.Bundle != nil:
		assets = order.Metadata.Bundle.Assets
		schemas = order.Metadata.Bundle.Schemas
	case order.Metadata.Asset != nil:
		assets = []chain.AssetRef{*order.Metadata.Asset}
		schemas = []chain.Schema{order.Metadata.Schema}
	}

	if err := c.approveAll(ctx, order.Maker, assets, schemas); err != nil {
		return err
	}

	// Fulfilling bids pays fees out of the fungible token, so the
	// seller's proxy needs access to it too
	if order.PaymentToken != NullAddress {
		proxy, err := c.getProxy(ctx, order.Maker)
		if err != nil {
			return err
		}
		if err := c.approveFungibleToken(ctx, order.Maker, order.PaymentToken, proxy, order.Quantity); err != nil {
			return err
		}
	}

	valid, err := c.caller.ValidateOrderParameters(ctx, order)
	if err != nil {
		return err
	}
	if !valid {
		return validationErrorf("failed to validate sell order parameters, make sure you're on the right network")
	}
	return nil
}

func (c *Client) buyOrderValidationAndApprovals(ctx context.Context, order *chain.UnhashedOrder, counterOrder *chain.Order) error {
	if order.PaymentToken != NullAddress {
		balance, err := c.getTokenBalance(ctx, order.Maker, order.PaymentToken)
		if err != nil {
			return err
		}

		minimumAmount := order.BasePrice
		if counterOrder != nil {
			minimumAmount = counterOrder.BasePrice
		}

		if balance.Cmp(minimumAmount) < 0 {
			if order.PaymentToken == c.addresses.WETH {
				return xerrors.Errorf("you may need to wrap Ether: %w", ErrInsufficientBalance)
			}
			return ErrInsufficientBalance
		}

		if err := c.approveFungibleToken(ctx, order.Maker, order.PaymentToken, NullAddress, minimumAmount); err != nil {
			return err
		}
	}

	// Buy orders always validate with a fill budget of one
	check := *order
	check.MaximumFill = big.NewInt(1)
	valid, err := c.caller.ValidateOrderParameters(ctx, &check)
	if err != nil {
		return err
	}
	if !valid {
		return validationErrorf("failed to validate buy order parameters, make sure you're on the right network")
	}
	return nil
}

// getProxy returns the account's registered transfer proxy,
// registering one first when none exists
func (c *Client) getProxy(ctx context.Context, account common.Address) (common.Address, error) {
	proxy, err := c.caller.ProxyFor(ctx, account)
	if err != nil {
		return common.Address{}, err
	}
	if proxy == NullAddress {
		c.logger.WithField("account", account.Hex()).Info("registering transfer proxy")
		proxy, err = c.caller.RegisterProxy(ctx, account)
		if err != nil {
			return common.Address{}, err
		}
	}
	return proxy, nil
}

// approveAll grants the account's proxy access to every asset in the
// order, checking on-chain ownership along the way
func (c *Client) approveAll(ctx context.Context, account common.Address, assets []chain.AssetRef, schemas []chain.Schema) error {
	proxy, err := c.getProxy(ctx, account)
	if err != nil {
		return err
	}

	contractsWithApproveAll := make(map[common.Address]bool)

	for i, ref := range assets {
		var schema chain.Schema
		if i < len(schemas) {
			schema = schemas[i]
		}
		tokenContract := common.HexToAddress(ref.Address)

		owned, err := c.ownsAssetOnChain(ctx, account, proxy, ref, schema)
		if err != nil {
			// Let it through for assets we don't support yet
			owned = true
		}
		if !owned {
			return validationErrorf("you don't own enough to do that (%s%s)", ref.Address, tokenSuffix(ref))
		}

		switch schema {
		case chain.SchemaERC721, chain.SchemaERC721Legacy, chain.SchemaERC1155:
			tokenID, ok := new(big.Int).SetString(ref.ID, 10)
			if !ok {
				return validationErrorf("invalid token id %q", ref.ID)
			}
			if err := c.approveSemiOrNonFungibleToken(ctx, account, proxy, tokenContract, tokenID, contractsWithApproveAll); err != nil {
				return err
			}
		case chain.SchemaERC20:
			if contractsWithApproveAll[tokenContract] {
				continue
			}
			contractsWithApproveAll[tokenContract] = true
			if err := c.approveFungibleToken(ctx, account, tokenContract, proxy, MaxUint256); err != nil {
				return err
			}
		}
	}
	return nil
}

func tokenSuffix(ref chain.AssetRef) string {
	if ref.ID == "" {
		return ""
	}
	return " token " + ref.ID
}

// ownsAssetOnChain checks whether the account, or its proxy, holds
// the asset
func (c *Client) ownsAssetOnChain(ctx context.Context, account, proxy common.Address, ref chain.AssetRef, schema chain.Schema) (bool, error) {
	asset := chain.Asset{
		TokenContract: common.HexToAddress(ref.Address),
		Schema:        schema,
	}
	if ref.ID != "" {
		asset.TokenID, _ = new(big.Int).SetString(ref.ID, 10)
	}

	minAmount := big.NewInt(1)
	if ref.Quantity != "" {
		if q, ok := new(big.Int).SetString(ref.Quantity, 10); ok {
			minAmount = q
		}
	}

	balance, err := c.GetAssetBalance(ctx, account, asset)
	if err != nil {
		return false, err
	}
	if balance.Cmp(minAmount) >= 0 {
		return true, nil
	}

	if proxy != NullAddress {
		proxyBalance, err := c.GetAssetBalance(ctx, proxy, asset)
		if err != nil {
			return false, err
		}
		if proxyBalance.Cmp(minAmount) >= 0 {
			return true, nil
		}
	}
	return false, nil
}

// approveSemiOrNonFungibleToken grants the proxy access to an NFT,
// preferring setApprovalForAll and falling back to a single-token
// approval on contracts that don't support it
func (c *Client) approveSemiOrNonFungibleToken(ctx context.Context, account, proxy, tokenContract common.Address, tokenID *big.Int, skipApproveAllIn map[common.Address]bool) error {
	if proxy == NullAddress {
		return validationErrorf("uninitialized account")
	}

	approved, err := c.caller.IsApprovedForAll(ctx, tokenContract, account, proxy)
	if err != nil {
		return err
	}
	if approved {
		c.logger.Debug("already approved proxy for all tokens")
		return nil
	}

	if skipApproveAllIn[tokenContract] {
		c.logger.Debug("already approving proxy for all tokens in another transaction")
		return nil
	}

	if _, err := c.caller.SetApprovalForAll(ctx, tokenContract, proxy); err == nil {
		skipApproveAllIn[tokenContract] = true
		return nil
	}
	c.logger.WithField("token", tokenContract.Hex()).Warn("contract may not support approve-all, trying single-token approval")

	if _, err := c.caller.ApproveERC721(ctx, tokenContract, proxy, tokenID); err != nil {
		return xerrors.Errorf("couldn't get permission to approve the token for trading: %w", err)
	}
	return nil
}

// approveFungibleToken ensures the proxy holds at least the minimum
// allowance, approving an unlimited amount when it doesn't
func (c *Client) approveFungibleToken(ctx context.Context, account, tokenContract, proxy common.Address, minimumAmount *big.Int) error {
	if proxy == NullAddress {
		var err error
		proxy, err = c.caller.ProxyFor(ctx, account)
		if err != nil {
			return err
		}
	}

	allowance, err := c.caller.ERC20Allowance(ctx, tokenContract, account, proxy)
	if err != nil {
		return err
	}
	if allowance.Cmp(minimumAmount) >= 0 {
		c.logger.Debug("already approved enough currency for trading")
		return nil
	}

	c.logger.WithFields(log.Fields{
		"token":     tokenContract.Hex(),
		"allowance": allowance.String(),
	}).Info("approving currency for trading")

	if _, err := c.caller.ApproveERC20(ctx, tokenContract, proxy, MaxUint256); err != nil {
		return err
	}
	return nil
}
