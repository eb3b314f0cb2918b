package bootstrap

import (
	"fmt"

	"emporium/contexts/trading/nft-marketplace/adapters/memory"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

const (
	DevCollectionName   = "Bob"
	DevCollectionSymbol = "BOBS"
)

type SeededCollection struct {
	Collection common.Address
	TokenIDs   []uint256.Int
}

// SeedDevCollection deploys the mock "Bob"/"BOBS" collection on the memory
// registry, mints tokens to holder with ids from 0 and approves operator for
// all of them. The collection address is the one a first contract deployment
// by holder would get.
func SeedDevCollection(
	registry *memory.Registry,
	operator common.Address,
	holder common.Address,
	tokens uint64,
) (SeededCollection, error) {
	collection := crypto.CreateAddress(holder, 0)
	if err := registry.DeployCollection(collection, DevCollectionName, DevCollectionSymbol); err != nil {
		return SeededCollection{}, fmt.Errorf("deploy dev collection: %w", err)
	}
	minted, err := registry.Mint(collection, holder, tokens)
	if err != nil {
		return SeededCollection{}, fmt.Errorf("mint dev tokens: %w", err)
	}
	if err := registry.SetApprovalForAll(collection, holder, operator, true); err != nil {
		return SeededCollection{}, fmt.Errorf("approve dev operator: %w", err)
	}
	return SeededCollection{Collection: collection, TokenIDs: minted}, nil
}
