package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestRegistryMintApproveAndTransfer(t *testing.T) {
	operator := common.HexToAddress("0x00000000000000000000000000000000000000ee")
	registry := NewRegistry(operator)

	if err := registry.DeployCollection(testCollection, "Bob", "BOBS"); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if err := registry.DeployCollection(testCollection, "Bob", "BOBS"); !errors.Is(err, ErrCollectionExists) {
		t.Fatalf("expected collection exists, got %v", err)
	}
	name, symbol, err := registry.CollectionInfo(testCollection)
	if err != nil || name != "Bob" || symbol != "BOBS" {
		t.Fatalf("collection info: %q %q %v", name, symbol, err)
	}

	minted, err := registry.Mint(testCollection, testLister, 2)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if len(minted) != 2 || minted[0].Uint64() != 0 || minted[1].Uint64() != 1 {
		t.Fatalf("unexpected token ids: %v", minted)
	}

	ctx := context.Background()
	holder, err := registry.OwnerOf(ctx, testCollection, uint256.NewInt(1))
	if err != nil || holder != testLister {
		t.Fatalf("owner of minted token: %s %v", holder.Hex(), err)
	}
	holder, err = registry.OwnerOf(ctx, testCollection, uint256.NewInt(42))
	if err != nil || holder != (common.Address{}) {
		t.Fatalf("expected zero owner for unminted token, got %s %v", holder.Hex(), err)
	}

	err = registry.TransferFrom(ctx, testCollection, testLister, testBuyer, uint256.NewInt(0))
	if !errors.Is(err, ErrTransferNotApproved) {
		t.Fatalf("expected not approved, got %v", err)
	}
	if err := registry.SetApprovalForAll(testCollection, testLister, operator, true); err != nil {
		t.Fatalf("approve: %v", err)
	}
	approved, err := registry.IsApprovedForAll(ctx, testCollection, testLister, operator)
	if err != nil || !approved {
		t.Fatalf("expected approval, got %v %v", approved, err)
	}
	if err := registry.TransferFrom(ctx, testCollection, testBuyer, testLister, uint256.NewInt(0)); !errors.Is(err, ErrTransferFromNonOwner) {
		t.Fatalf("expected non-owner rejection, got %v", err)
	}
	if err := registry.TransferFrom(ctx, testCollection, testLister, testBuyer, uint256.NewInt(0)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	holder, _ = registry.OwnerOf(ctx, testCollection, uint256.NewInt(0))
	if holder != testBuyer {
		t.Fatalf("expected buyer to hold token, got %s", holder.Hex())
	}

	unknown := common.HexToAddress("0x00000000000000000000000000000000000000c9")
	if _, err := registry.OwnerOf(ctx, unknown, uint256.NewInt(0)); !errors.Is(err, ErrUnknownCollection) {
		t.Fatalf("expected unknown collection, got %v", err)
	}
}
