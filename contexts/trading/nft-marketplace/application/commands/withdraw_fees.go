package commands

import (
	"context"
	"errors"

	application "emporium/contexts/trading/nft-marketplace/application"
	"emporium/contexts/trading/nft-marketplace/domain/entities"
	"emporium/contexts/trading/nft-marketplace/domain/services"
	"emporium/contexts/trading/nft-marketplace/ports"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

type WithdrawAdminFeesCommand struct {
	Caller common.Address
}

type WithdrawAdminFeesResult struct {
	Amount   uint256.Int
	PayoutID string
}

type WithdrawAdminFeesUseCase struct {
	Market      entities.Marketplace
	Fees        ports.FeeLedgerRepository
	Payments    ports.Payments
	Locker      ports.KeyLocker
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *zap.Logger
}

// Execute drains the fee ledger to zero and pays the drained amount to the
// marketplace owner. A failed payout credits the amount back.
func (u WithdrawAdminFeesUseCase) Execute(ctx context.Context, cmd WithdrawAdminFeesCommand) (WithdrawAdminFeesResult, error) {
	logger := application.ResolveLogger(u.Logger)

	unlock, err := acquire(ctx, u.Locker, application.FeeLockKey)
	if err != nil {
		return WithdrawAdminFeesResult{}, err
	}
	defer unlock()

	ledger, err := u.Fees.GetFeeLedger(ctx)
	if err != nil {
		return WithdrawAdminFeesResult{}, err
	}
	if err := services.EvaluateWithdrawal(u.Market, cmd.Caller, ledger); err != nil {
		logger.Warn("withdraw admin fees rejected",
			application.LogFields("withdraw_fees_rejected", "application",
				zap.String("caller", cmd.Caller.Hex()),
				zap.Error(err),
			)...,
		)
		return WithdrawAdminFeesResult{}, err
	}

	now := resolveNow(u.Clock)
	payoutID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return WithdrawAdminFeesResult{}, err
	}
	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return WithdrawAdminFeesResult{}, err
	}

	amount, err := u.Fees.DrainFeesWithOutbox(ctx, now, func(amount uint256.Int) (ports.EventEnvelope, error) {
		return application.NewFeeEnvelope(eventID, application.EventFeesWithdrawn, now, map[string]string{
			"owner":     u.Market.Owner.Hex(),
			"amount":    amount.Dec(),
			"payout_id": payoutID,
		})
	})
	if err != nil {
		logger.Error("withdraw admin fees failed on write transaction",
			application.LogFields("withdraw_fees_write_failed", "application",
				zap.Error(err),
			)...,
		)
		return WithdrawAdminFeesResult{}, err
	}

	payout := entities.Payout{
		PayoutID:  payoutID,
		Recipient: u.Market.Owner,
		Amount:    amount,
		Reason:    entities.PayoutReasonAdminFees,
		Reference: eventID,
		CreatedAt: now,
	}
	if err := u.Payments.Pay(ctx, payout); err != nil {
		logger.Error("withdraw admin fees payout failed",
			application.LogFields("withdraw_fees_payout_failed", "application",
				zap.String("payout_id", payoutID),
				zap.String("amount", amount.Dec()),
				zap.Error(err),
			)...,
		)
		return WithdrawAdminFeesResult{}, u.restore(ctx, amount, payoutID, err)
	}

	logger.Info("admin fees withdrawn",
		application.LogFields("nft_marketplace_fees_withdrawn", "application",
			zap.String("payout_id", payoutID),
			zap.String("owner", u.Market.Owner.Hex()),
			zap.String("amount", amount.Dec()),
		)...,
	)
	return WithdrawAdminFeesResult{Amount: amount, PayoutID: payoutID}, nil
}

func (u WithdrawAdminFeesUseCase) restore(ctx context.Context, amount uint256.Int, payoutID string, cause error) error {
	now := resolveNow(u.Clock)
	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return errors.Join(cause, err)
	}
	event, err := application.NewFeeEnvelope(eventID, application.EventFeesRestored, now, map[string]string{
		"owner":     u.Market.Owner.Hex(),
		"amount":    amount.Dec(),
		"payout_id": payoutID,
	})
	if err != nil {
		return errors.Join(cause, err)
	}
	if err := u.Fees.RestoreFees(ctx, amount, now, event); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}
