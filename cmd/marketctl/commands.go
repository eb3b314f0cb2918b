package main

import (
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"strconv"

	nftmarketplace "emporium/contexts/trading/nft-marketplace"
	postgresadapter "emporium/contexts/trading/nft-marketplace/adapters/postgres"
	"emporium/contexts/trading/nft-marketplace/domain/entities"
	markethttp "emporium/contexts/trading/nft-marketplace/transport/http"
	"emporium/internal/app/bootstrap"
	"emporium/internal/platform/db"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// Fixed identities for dev-seed. Nothing is signed with them.
var (
	devOwner    = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	devOperator = common.HexToAddress("0x00000000000000000000000000000000000000f2")
	devHolder   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	devBuyer    = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func client(c *cli.Context) *apiClient {
	return newAPIClient(c.String("api"), c.Int("retries"))
}

func showListing(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: marketctl listing <collection> <token_id>", 2)
	}
	var resp markethttp.ListingResponse
	path := "/v1/marketplace/listings/" + url.PathEscape(c.Args().Get(0)) + "/" + url.PathEscape(c.Args().Get(1))
	if err := client(c).get(c.Context, path, nil, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func showListings(c *cli.Context) error {
	query := pageQuery(c, "collection", "lister")
	var resp markethttp.ListListingsResponse
	if err := client(c).get(c.Context, "/v1/marketplace/listings", query, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func showSales(c *cli.Context) error {
	query := pageQuery(c, "collection", "seller", "buyer")
	var resp markethttp.ListSalesResponse
	if err := client(c).get(c.Context, "/v1/marketplace/sales", query, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func showFees(c *cli.Context) error {
	var resp markethttp.FeeLedgerResponse
	if err := client(c).get(c.Context, "/v1/marketplace/fees", nil, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func withdrawFees(c *cli.Context) error {
	caller := c.String("caller")
	if caller == "" {
		return cli.Exit("withdraw needs --caller set to the marketplace owner", 2)
	}
	var resp markethttp.WithdrawFeesResponse
	err := client(c).post(c.Context, "/v1/marketplace/fees/withdraw", caller, nil, &resp)
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Body.Code == "nothing_to_withdraw" {
		zap.L().Info("no fees accrued since the last withdrawal")
		return nil
	}
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func migrate(c *cli.Context) error {
	pg, err := db.Connect(c.String("dsn"), db.Options{}, zap.L())
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := postgresadapter.Migrate(c.Context, pg.DB); err != nil {
		return err
	}
	zap.L().Info("schema migrated",
		zap.String("event", "marketctl_schema_migrated"),
		zap.String("module", "cmd/marketctl"),
		zap.String("layer", "cli"),
	)
	return nil
}

type devSeedReport struct {
	Collection string                          `json:"collection"`
	Holder     string                          `json:"holder"`
	TokenIDs   []string                        `json:"token_ids"`
	Listing    markethttp.ListingResponse      `json:"listing"`
	Sale       markethttp.BuyItemResponse      `json:"sale"`
	Withdrawal markethttp.WithdrawFeesResponse `json:"withdrawal"`
}

func devSeed(c *cli.Context) error {
	tokens := c.Uint64("tokens")
	if tokens == 0 {
		return cli.Exit("--tokens must be at least 1", 2)
	}
	market, err := entities.NewMarketplace(devOwner, devOperator, entities.DefaultFeeDivisor)
	if err != nil {
		return err
	}
	module := nftmarketplace.NewInMemoryModule(market, zap.L())
	seeded, err := bootstrap.SeedDevCollection(module.Registry, devOperator, devHolder, tokens)
	if err != nil {
		return err
	}

	report := devSeedReport{
		Collection: seeded.Collection.Hex(),
		Holder:     devHolder.Hex(),
	}
	for i := range seeded.TokenIDs {
		report.TokenIDs = append(report.TokenIDs, seeded.TokenIDs[i].Dec())
	}

	ctx := c.Context
	price := c.String("price")
	report.Listing, err = module.Handler.ListItemHandler(ctx, devHolder.Hex(), "", markethttp.ListItemRequest{
		Collection: seeded.Collection.Hex(),
		TokenID:    report.TokenIDs[0],
		Price:      price,
	})
	if err != nil {
		return err
	}
	report.Sale, err = module.Handler.BuyItemHandler(
		ctx,
		devBuyer.Hex(),
		"",
		seeded.Collection.Hex(),
		report.TokenIDs[0],
		markethttp.BuyItemRequest{PaidAmount: price},
	)
	if err != nil {
		return err
	}
	report.Withdrawal, err = module.Handler.WithdrawFeesHandler(ctx, devOwner.Hex())
	if err != nil {
		return err
	}
	return printJSON(report)
}

func pageQuery(c *cli.Context, filters ...string) url.Values {
	query := url.Values{}
	for _, name := range filters {
		if value := c.String(name); value != "" {
			query.Set(name, value)
		}
	}
	if cursor := c.String("cursor"); cursor != "" {
		query.Set("cursor", cursor)
	}
	if limit := c.Int("limit"); limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	return query
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
