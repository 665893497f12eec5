// Example usage of the OneLand SDK Go
package main

import (
	"context"
	"fmt"
	stdlog "log"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	landport "github.com/onelandworld/landport-go"
	"github.com/onelandworld/landport-go/chain"
)

func main() {
	// Environment variables override the placeholders below;
	// see .env.example
	_ = godotenv.Load()

	config := landport.ClientConfig{
		Network:    landport.NetworkRinkeby,
		APIKey:     os.Getenv("LANDPORT_API_KEY"),
		RPCURL:     os.Getenv("LANDPORT_RPC_URL"),
		PrivateKey: os.Getenv("LANDPORT_PRIVATE_KEY"),
	}

	client, err := landport.NewClient(config)
	if err != nil {
		stdlog.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	account := os.Getenv("LANDPORT_ACCOUNT_ADDRESS")
	tokenContract := common.HexToAddress(os.Getenv("LANDPORT_TOKEN_ADDRESS"))
	weth := landport.DefaultContractAddresses[landport.NetworkRinkeby].WETH.Hex()

	// Example: wrap some Ether so it can be used in offers
	fmt.Println("Wrapping 0.1 ETH...")
	if _, err := client.WrapEth(ctx, decimal.RequireFromString("0.1")); err != nil {
		stdlog.Printf("Failed to wrap ETH: %v", err)
	}

	// Example: list an ERC721 token for 0.5 WETH, expiring in a day
	fmt.Println("Creating sell order...")
	sellOrder, err := client.CreateSellOrder(ctx, landport.SellOrderParams{
		Asset: chain.Asset{
			TokenID:       big.NewInt(1),
			TokenContract: tokenContract,
			Schema:        chain.SchemaERC721,
		},
		AccountAddress:      account,
		StartAmount:         decimal.RequireFromString("0.5"),
		ExpirationTime:      time.Now().Add(24 * time.Hour).Unix(),
		PaymentTokenAddress: weth,
	})
	if err != nil {
		stdlog.Printf("Failed to create sell order: %v", err)
	} else {
		fmt.Printf("Sell order posted: %s\n", sellOrder.Hash.Hex())
	}

	// Example: place a 0.4 WETH offer on the same token
	fmt.Println("Creating buy order...")
	buyOrder, err := client.CreateBuyOrder(ctx, landport.BuyOrderParams{
		Asset: chain.Asset{
			TokenID:       big.NewInt(1),
			TokenContract: tokenContract,
			Schema:        chain.SchemaERC721,
		},
		AccountAddress:      account,
		StartAmount:         decimal.RequireFromString("0.4"),
		PaymentTokenAddress: weth,
	})
	if err != nil {
		stdlog.Printf("Failed to create buy order: %v", err)
	} else {
		fmt.Printf("Buy order posted: %s\n", buyOrder.Hash.Hex())
	}

	// Example: take the listing
	if sellOrder != nil {
		fmt.Println("Fulfilling sell order...")
		tx, err := client.FulfillOrder(ctx, landport.FulfillOrderParams{
			Order:          sellOrder,
			AccountAddress: account,
		})
		if err != nil {
			stdlog.Printf("Failed to fulfill order: %v", err)
		} else {
			fmt.Printf("Match transaction: %s\n", tx.Hash().Hex())
		}
	}
}
