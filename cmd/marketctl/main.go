package main

import (
	"os"

	"emporium/internal/platform/logging"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	if _, err := logging.New(logging.Config{Service: "nft-marketplace", Process: "marketctl"}); err != nil {
		panic(err)
	}

	app := &cli.App{
		Name:  "marketctl",
		Usage: "inspect and operate the NFT marketplace",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Value: "http://localhost:8080", EnvVars: []string{"MARKETCTL_API"}, Usage: "marketplace API base URL"},
			&cli.StringFlag{Name: "caller", EnvVars: []string{"MARKETCTL_CALLER"}, Usage: "address sent as X-Caller-Address"},
			&cli.IntFlag{Name: "retries", Value: 3, Usage: "retries for connection errors and 5xx responses"},
		},
		Commands: []*cli.Command{
			{
				Name:      "listing",
				Usage:     "show one listing",
				ArgsUsage: "<collection> <token_id>",
				Action:    showListing,
			},
			{
				Name:   "listings",
				Usage:  "page through active listings",
				Action: showListings,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "collection", Usage: "filter by collection address"},
					&cli.StringFlag{Name: "lister", Usage: "filter by lister address"},
					&cli.StringFlag{Name: "cursor", Usage: "cursor from a previous page"},
					&cli.IntFlag{Name: "limit", Value: 50, Usage: "page size (max 100)"},
				},
			},
			{
				Name:   "sales",
				Usage:  "page through settled sales",
				Action: showSales,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "collection", Usage: "filter by collection address"},
					&cli.StringFlag{Name: "seller", Usage: "filter by seller address"},
					&cli.StringFlag{Name: "buyer", Usage: "filter by buyer address"},
					&cli.StringFlag{Name: "cursor", Usage: "cursor from a previous page"},
					&cli.IntFlag{Name: "limit", Value: 50, Usage: "page size (max 100)"},
				},
			},
			{
				Name:   "fees",
				Usage:  "show the accrued fee ledger",
				Action: showFees,
			},
			{
				Name:   "withdraw",
				Usage:  "withdraw accrued fees to the owner (--caller must be the owner)",
				Action: withdrawFees,
			},
			{
				Name:   "migrate",
				Usage:  "create or update the postgres schema",
				Action: migrate,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dsn", EnvVars: []string{"POSTGRES_DSN"}, Required: true, Usage: "postgres DSN"},
				},
			},
			{
				Name:   "dev-seed",
				Usage:  "seed a throwaway in-memory marketplace and run one list, buy and withdraw cycle",
				Action: devSeed,
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "tokens", Value: 3, Usage: "tokens to mint to the holder"},
					&cli.StringFlag{Name: "price", Value: "1000000000000000000", Usage: "listing price in wei"},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		zap.L().With(zap.Error(err)).Fatal("marketctl failed")
	}
}
