package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/xerrors"
)

// ErrNoTransactionSigner is returned when a state-changing call is
// attempted on a caller constructed without a private key
var ErrNoTransactionSigner = errors.New("no transaction signer configured")

// ContractAddresses are the deployed exchange-side contracts on one
// network
type ContractAddresses struct {
	Exchange     common.Address
	Registry     common.Address
	StaticUtil   common.Address
	StaticMarket common.Address
	Atomicizer   common.Address
	WETH         common.Address
}

// ContractCaller handles all on-chain reads and transactions
type ContractCaller struct {
	client             *ethclient.Client
	privateKey         *ecdsa.PrivateKey
	chainID            *big.Int
	addresses          ContractAddresses
	receiptTimeout     time.Duration
	tokenDecimalsCache map[common.Address]uint8
}

// NewContractCaller dials the RPC endpoint and prepares a caller. The
// private key is optional; without it only view calls are available.
func NewContractCaller(rpcURL string, privateKeyHex string, chainID *big.Int, addresses ContractAddresses) (*ContractCaller, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, xerrors.Errorf("connect to RPC: %w", err)
	}

	var privateKey *ecdsa.PrivateKey
	if privateKeyHex != "" {
		privateKey, err = crypto.HexToECDSA(privateKeyHex)
		if err != nil {
			return nil, xerrors.Errorf("invalid private key: %w", err)
		}
	}

	return &ContractCaller{
		client:             client,
		privateKey:         privateKey,
		chainID:            chainID,
		addresses:          addresses,
		receiptTimeout:     120 * time.Second,
		tokenDecimalsCache: make(map[common.Address]uint8),
	}, nil
}

// Addresses returns the configured contract addresses
func (cc *ContractCaller) Addresses() ContractAddresses {
	return cc.addresses
}

// SignerAddress returns the transaction signer account, or the zero
// address when the caller is read-only
func (cc *ContractCaller) SignerAddress() common.Address {
	if cc.privateKey == nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(cc.privateKey.PublicKey)
}

func (cc *ContractCaller) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return cc.client.CallContract(ctx, ethereum.CallMsg{
		To:   &to,
		Data: data,
	}, nil)
}

// NativeBalance returns the account's balance in the chain's native
// currency
func (cc *ContractCaller) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := cc.client.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, xerrors.Errorf("get native balance: %w", err)
	}
	return balance, nil
}

// TokenDecimals reads an ERC20 token's decimals, with caching
func (cc *ContractCaller) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	if decimals, ok := cc.tokenDecimalsCache[token]; ok {
		return decimals, nil
	}

	data, err := ERC20ABI.Pack("decimals")
	if err != nil {
		return 0, err
	}
	result, err := cc.call(ctx, token, data)
	if err != nil {
		return 0, xerrors.Errorf("read token decimals: %w", err)
	}

	var decimals uint8
	if err := ERC20ABI.UnpackIntoInterface(&decimals, "decimals", result); err != nil {
		return 0, err
	}

	cc.tokenDecimalsCache[token] = decimals
	return decimals, nil
}

// ERC20Balance returns the ERC20 balance for an account
func (cc *ContractCaller) ERC20Balance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	data, err := ERC20ABI.Pack("balanceOf", account)
	if err != nil {
		return nil, err
	}
	result, err := cc.call(ctx, token, data)
	if err != nil {
		return nil, xerrors.Errorf("read erc20 balance: %w", err)
	}

	var balance *big.Int
	if err := ERC20ABI.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, err
	}
	return balance, nil
}

// ERC20Allowance returns the ERC20 allowance from owner to spender
func (cc *ContractCaller) ERC20Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	data, err := ERC20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	result, err := cc.call(ctx, token, data)
	if err != nil {
		return nil, xerrors.Errorf("read erc20 allowance: %w", err)
	}

	var allowance *big.Int
	if err := ERC20ABI.UnpackIntoInterface(&allowance, "allowance", result); err != nil {
		return nil, err
	}
	return allowance, nil
}

// ERC721Owner returns the current owner of a token
func (cc *ContractCaller) ERC721Owner(ctx context.Context, token common.Address, tokenID *big.Int) (common.Address, error) {
	data, err := ERC721ABI.Pack("ownerOf", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	result, err := cc.call(ctx, token, data)
	if err != nil {
		return common.Address{}, xerrors.Errorf("read erc721 owner: %w", err)
	}

	var owner common.Address
	if err := ERC721ABI.UnpackIntoInterface(&owner, "ownerOf", result); err != nil {
		return common.Address{}, err
	}
	return owner, nil
}

// ERC721Balance returns how many tokens of a collection an account holds
func (cc *ContractCaller) ERC721Balance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	data, err := ERC721ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, err
	}
	result, err := cc.call(ctx, token, data)
	if err != nil {
		return nil, xerrors.Errorf("read erc721 balance: %w", err)
	}

	var balance *big.Int
	if err := ERC721ABI.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, err
	}
	return balance, nil
}

// ERC721GetApproved returns the single-token approval for a token
func (cc *ContractCaller) ERC721GetApproved(ctx context.Context, token common.Address, tokenID *big.Int) (common.Address, error) {
	data, err := ERC721ABI.Pack("getApproved", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	result, err := cc.call(ctx, token, data)
	if err != nil {
		return common.Address{}, xerrors.Errorf("read erc721 approval: %w", err)
	}

	var approved common.Address
	if err := ERC721ABI.UnpackIntoInterface(&approved, "getApproved", result); err != nil {
		return common.Address{}, err
	}
	return approved, nil
}

// ERC1155Balance returns an account's balance of one token id
func (cc *ContractCaller) ERC1155Balance(ctx context.Context, token, owner common.Address, tokenID *big.Int) (*big.Int, error) {
	data, err := ERC1155ABI.Pack("balanceOf", owner, tokenID)
	if err != nil {
		return nil, err
	}
	result, err := cc.call(ctx, token, data)
	if err != nil {
		return nil, xerrors.Errorf("read erc1155 balance: %w", err)
	}

	var balance *big.Int
	if err := ERC1155ABI.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, err
	}
	return balance, nil
}

// IsApprovedForAll checks an operator approval on an ERC721 or
// ERC1155 contract
func (cc *ContractCaller) IsApprovedForAll(ctx context.Context, token, owner, operator common.Address) (bool, error) {
	data, err := ERC721ABI.Pack("isApprovedForAll", owner, operator)
	if err != nil {
		return false, err
	}
	result, err := cc.call(ctx, token, data)
	if err != nil {
		return false, xerrors.Errorf("read operator approval: %w", err)
	}

	var approved bool
	if err := ERC721ABI.UnpackIntoInterface(&approved, "isApprovedForAll", result); err != nil {
		return false, err
	}
	return approved, nil
}

// ProxyFor returns the account's registered transfer proxy, or the
// zero address when none exists
func (cc *ContractCaller) ProxyFor(ctx context.Context, owner common.Address) (common.Address, error) {
	data, err := RegistryABI.Pack("proxies", owner)
	if err != nil {
		return common.Address{}, err
	}
	result, err := cc.call(ctx, cc.addresses.Registry, data)
	if err != nil {
		return common.Address{}, xerrors.Errorf("read registry proxy: %w", err)
	}

	var proxy common.Address
	if err := RegistryABI.UnpackIntoInterface(&proxy, "proxies", result); err != nil {
		return common.Address{}, err
	}
	return proxy, nil
}

// ValidateOrderParameters asks the exchange whether the order's
// parameters are currently valid and fillable
func (cc *ContractCaller) ValidateOrderParameters(ctx context.Context, order *UnhashedOrder) (bool, error) {
	data, err := ExchangeABI.Pack(
		"validateOrderParameters_",
		order.Registry,
		order.Maker,
		order.StaticTarget,
		order.StaticSelector,
		order.StaticExtradata,
		order.MaximumFill,
		order.ListingTime,
		order.ExpirationTime,
		order.Salt,
	)
	if err != nil {
		return false, err
	}
	result, err := cc.call(ctx, cc.addresses.Exchange, data)
	if err != nil {
		return false, xerrors.Errorf("validate order parameters: %w", err)
	}

	var valid bool
	if err := ExchangeABI.UnpackIntoInterface(&valid, "validateOrderParameters_", result); err != nil {
		return false, err
	}
	return valid, nil
}

// ValidateOrderAuthorization asks the exchange whether the signature
// authorizes the order hash for the maker
func (cc *ContractCaller) ValidateOrderAuthorization(ctx context.Context, hash common.Hash, maker common.Address, sig Signature) (bool, error) {
	encodedSig, err := EncodeSignature(sig)
	if err != nil {
		return false, err
	}
	data, err := ExchangeABI.Pack("validateOrderAuthorization_", hash, maker, encodedSig)
	if err != nil {
		return false, err
	}
	result, err := cc.call(ctx, cc.addresses.Exchange, data)
	if err != nil {
		return false, xerrors.Errorf("validate order authorization: %w", err)
	}

	var valid bool
	if err := ExchangeABI.UnpackIntoInterface(&valid, "validateOrderAuthorization_", result); err != nil {
		return false, err
	}
	return valid, nil
}

// RegisterProxy registers a transfer proxy for the account and
// returns its address once mined
func (cc *ContractCaller) RegisterProxy(ctx context.Context, owner common.Address) (common.Address, error) {
	data, err := RegistryABI.Pack("registerProxyFor", owner)
	if err != nil {
		return common.Address{}, err
	}
	if _, err := cc.transact(ctx, cc.addresses.Registry, big.NewInt(0), 500000, data); err != nil {
		return common.Address{}, xerrors.Errorf("register proxy: %w", err)
	}
	return cc.ProxyFor(ctx, owner)
}

// SetApprovalForAll grants an operator approval on an ERC721 or
// ERC1155 contract
func (cc *ContractCaller) SetApprovalForAll(ctx context.Context, token, operator common.Address) (*types.Transaction, error) {
	data, err := ERC721ABI.Pack("setApprovalForAll", operator, true)
	if err != nil {
		return nil, err
	}
	tx, err := cc.transact(ctx, token, big.NewInt(0), 150000, data)
	if err != nil {
		return nil, xerrors.Errorf("set approval for all: %w", err)
	}
	return tx, nil
}

// ApproveERC721 grants a single-token approval
func (cc *ContractCaller) ApproveERC721(ctx context.Context, token, to common.Address, tokenID *big.Int) (*types.Transaction, error) {
	data, err := ERC721ABI.Pack("approve", to, tokenID)
	if err != nil {
		return nil, err
	}
	tx, err := cc.transact(ctx, token, big.NewInt(0), 150000, data)
	if err != nil {
		return nil, xerrors.Errorf("approve erc721: %w", err)
	}
	return tx, nil
}

// ApproveERC20 grants an ERC20 allowance
func (cc *ContractCaller) ApproveERC20(ctx context.Context, token, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	data, err := ERC20ABI.Pack("approve", spender, amount)
	if err != nil {
		return nil, err
	}
	tx, err := cc.transact(ctx, token, big.NewInt(0), 100000, data)
	if err != nil {
		return nil, xerrors.Errorf("approve erc20: %w", err)
	}
	return tx, nil
}

// AtomicMatch submits the matched order pair to the exchange. The
// transaction carries value when the sale is settled in the native
// currency.
func (cc *ContractCaller) AtomicMatch(ctx context.Context, params *AtomicMatchParams, value *big.Int) (*types.Transaction, error) {
	data, err := params.Pack()
	if err != nil {
		return nil, err
	}
	tx, err := cc.transact(ctx, cc.addresses.Exchange, value, 1000000, data)
	if err != nil {
		return nil, xerrors.Errorf("atomic match: %w", err)
	}
	return tx, nil
}

// SetOrderFill sets an order's fill on the exchange. Setting it to
// the order's maximum fill cancels the order permanently.
func (cc *ContractCaller) SetOrderFill(ctx context.Context, hash common.Hash, fill *big.Int) (*types.Transaction, error) {
	data, err := ExchangeABI.Pack("setOrderFill_", hash, fill)
	if err != nil {
		return nil, err
	}
	tx, err := cc.transact(ctx, cc.addresses.Exchange, big.NewInt(0), 100000, data)
	if err != nil {
		return nil, xerrors.Errorf("set order fill: %w", err)
	}
	return tx, nil
}

// DepositWETH wraps native currency into WETH
func (cc *ContractCaller) DepositWETH(ctx context.Context, amount *big.Int) (*types.Transaction, error) {
	data, err := WETHABI.Pack("deposit")
	if err != nil {
		return nil, err
	}
	tx, err := cc.transact(ctx, cc.addresses.WETH, amount, 100000, data)
	if err != nil {
		return nil, xerrors.Errorf("deposit weth: %w", err)
	}
	return tx, nil
}

// WithdrawWETH unwraps WETH back into native currency
func (cc *ContractCaller) WithdrawWETH(ctx context.Context, amount *big.Int) (*types.Transaction, error) {
	data, err := WETHABI.Pack("withdraw", amount)
	if err != nil {
		return nil, err
	}
	tx, err := cc.transact(ctx, cc.addresses.WETH, big.NewInt(0), 100000, data)
	if err != nil {
		return nil, xerrors.Errorf("withdraw weth: %w", err)
	}
	return tx, nil
}

// transact signs, sends and waits for a state-changing call
func (cc *ContractCaller) transact(ctx context.Context, to common.Address, value *big.Int, gasLimit uint64, data []byte) (*types.Transaction, error) {
	if cc.privateKey == nil {
		return nil, ErrNoTransactionSigner
	}

	nonce, err := cc.client.PendingNonceAt(ctx, cc.SignerAddress())
	if err != nil {
		return nil, xerrors.Errorf("get nonce: %w", err)
	}

	gasPrice, err := cc.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, xerrors.Errorf("get gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(cc.chainID), cc.privateKey)
	if err != nil {
		return nil, xerrors.Errorf("sign transaction: %w", err)
	}

	if err := cc.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, xerrors.Errorf("send transaction: %w", err)
	}

	receipt, err := cc.waitForReceipt(ctx, signedTx.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, xerrors.Errorf("transaction reverted: %s", signedTx.Hash().Hex())
	}

	return signedTx, nil
}

// waitForReceipt polls for a transaction receipt with timeout
func (cc *ContractCaller) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, cc.receiptTimeout)
	defer cancel()

	for {
		receipt, err := cc.client.TransactionReceipt(timeoutCtx, txHash)
		if err == nil {
			return receipt, nil
		}

		select {
		case <-timeoutCtx.Done():
			return nil, xerrors.Errorf("timeout waiting for transaction receipt: %s", txHash.Hex())
		default:
			time.Sleep(2 * time.Second)
		}
	}
}

// Close closes the underlying RPC client
func (cc *ContractCaller) Close() {
	if cc.client != nil {
		cc.client.Close()
	}
}
