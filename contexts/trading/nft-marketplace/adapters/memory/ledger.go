package memory

import (
	"context"
	"sync"

	"emporium/contexts/trading/nft-marketplace/domain/entities"
	domainerrors "emporium/contexts/trading/nft-marketplace/domain/errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Ledger is an in-memory payment rail: payouts credit recipient balances and
// can be reversed by id.
type Ledger struct {
	mu       sync.Mutex
	balances map[common.Address]uint256.Int
	payouts  map[string]entities.Payout
}

func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[common.Address]uint256.Int),
		payouts:  make(map[string]entities.Payout),
	}
}

func (l *Ledger) Pay(_ context.Context, payout entities.Payout) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if payout.Recipient == (common.Address{}) || payout.Amount.IsZero() {
		return domainerrors.ErrInvalidRequest
	}
	if _, exists := l.payouts[payout.PayoutID]; exists {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	balance := l.balances[payout.Recipient]
	if _, overflow := balance.AddOverflow(&balance, &payout.Amount); overflow {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	l.balances[payout.Recipient] = balance
	l.payouts[payout.PayoutID] = payout
	return nil
}

func (l *Ledger) Reverse(_ context.Context, payoutID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	payout, ok := l.payouts[payoutID]
	if !ok {
		return domainerrors.ErrPayoutNotFound
	}
	balance := l.balances[payout.Recipient]
	if balance.Lt(&payout.Amount) {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	balance.Sub(&balance, &payout.Amount)
	l.balances[payout.Recipient] = balance
	delete(l.payouts, payoutID)
	return nil
}

func (l *Ledger) BalanceOf(account common.Address) uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

func (l *Ledger) Payouts() []entities.Payout {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]entities.Payout, 0, len(l.payouts))
	for _, payout := range l.payouts {
		out = append(out, payout)
	}
	return out
}
