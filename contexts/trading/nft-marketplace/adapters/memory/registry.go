package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrUnknownCollection    = errors.New("unknown collection")
	ErrCollectionExists     = errors.New("collection already deployed")
	ErrTransferFromNonOwner = errors.New("transfer from incorrect owner")
	ErrTransferNotApproved  = errors.New("transfer caller is not owner nor approved")
)

// Registry is an in-memory ERC721 ledger covering the calls the marketplace
// makes. Transfers are made by operator, the identity the marketplace holds
// on the registry, and require an operator approval from the token owner.
type Registry struct {
	mu          sync.RWMutex
	operator    common.Address
	collections map[common.Address]*collection
}

type collection struct {
	name      string
	symbol    string
	nextID    uint64
	owners    map[uint256.Int]common.Address
	approvals map[common.Address]map[common.Address]bool
}

func NewRegistry(operator common.Address) *Registry {
	return &Registry{
		operator:    operator,
		collections: make(map[common.Address]*collection),
	}
}

func (r *Registry) DeployCollection(address common.Address, name string, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.collections[address]; exists {
		return ErrCollectionExists
	}
	r.collections[address] = &collection{
		name:      name,
		symbol:    symbol,
		owners:    make(map[uint256.Int]common.Address),
		approvals: make(map[common.Address]map[common.Address]bool),
	}
	return nil
}

// Mint assigns count new tokens to to, with ids continuing from the last
// minted id (the first token of a collection is id 0).
func (r *Registry) Mint(address common.Address, to common.Address, count uint64) ([]uint256.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.collections[address]
	if !ok {
		return nil, ErrUnknownCollection
	}
	minted := make([]uint256.Int, 0, count)
	for i := uint64(0); i < count; i++ {
		id := *uint256.NewInt(c.nextID)
		c.owners[id] = to
		c.nextID++
		minted = append(minted, id)
	}
	return minted, nil
}

func (r *Registry) SetApprovalForAll(address common.Address, owner common.Address, operator common.Address, approved bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.collections[address]
	if !ok {
		return ErrUnknownCollection
	}
	operators, ok := c.approvals[owner]
	if !ok {
		operators = make(map[common.Address]bool)
		c.approvals[owner] = operators
	}
	operators[operator] = approved
	return nil
}

// Transfer moves a token directly on behalf of its owner, outside of the
// marketplace.
func (r *Registry) Transfer(address common.Address, from common.Address, to common.Address, tokenID *uint256.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.collections[address]
	if !ok {
		return ErrUnknownCollection
	}
	if c.owners[*tokenID] != from {
		return ErrTransferFromNonOwner
	}
	c.owners[*tokenID] = to
	return nil
}

func (r *Registry) CollectionInfo(address common.Address) (string, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collections[address]
	if !ok {
		return "", "", ErrUnknownCollection
	}
	return c.name, c.symbol, nil
}

// OwnerOf reports the zero address for ids that were never minted.
func (r *Registry) OwnerOf(_ context.Context, address common.Address, tokenID *uint256.Int) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collections[address]
	if !ok {
		return common.Address{}, ErrUnknownCollection
	}
	return c.owners[*tokenID], nil
}

func (r *Registry) IsApprovedForAll(_ context.Context, address common.Address, owner common.Address, operator common.Address) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collections[address]
	if !ok {
		return false, ErrUnknownCollection
	}
	return c.approvals[owner][operator], nil
}

func (r *Registry) TransferFrom(
	_ context.Context,
	address common.Address,
	from common.Address,
	to common.Address,
	tokenID *uint256.Int,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.collections[address]
	if !ok {
		return ErrUnknownCollection
	}
	if c.owners[*tokenID] != from {
		return ErrTransferFromNonOwner
	}
	if from != r.operator && !c.approvals[from][r.operator] {
		return ErrTransferNotApproved
	}
	c.owners[*tokenID] = to
	return nil
}
