package evmadapter

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	application "emporium/contexts/trading/nft-marketplace/application"
	domainerrors "emporium/contexts/trading/nft-marketplace/domain/errors"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

var ErrTransferReverted = errors.New("transferFrom reverted")

// Backend is what the registry needs from a chain connection. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

type Config struct {
	RPCURL      string
	ChainID     int64
	OperatorKey string
	RetryMax    int
	MineTimeout time.Duration
}

// Registry talks to ERC721 contracts over JSON-RPC. Reads are eth_calls;
// transferFrom is sent as a transaction signed by the marketplace operator
// key and waited on until mined.
type Registry struct {
	backend     Backend
	abi         abi.ABI
	transactor  *bind.TransactOpts
	operator    common.Address
	mineTimeout time.Duration
	closer      func()
	logger      *zap.Logger
}

// Dial connects to cfg.RPCURL through a retrying HTTP transport.
func Dial(ctx context.Context, cfg Config, logger *zap.Logger) (*Registry, error) {
	logger = application.ResolveLogger(logger)
	if strings.TrimSpace(cfg.RPCURL) == "" {
		return nil, fmt.Errorf("evm registry: rpc url is required")
	}

	retry := retryablehttp.NewClient()
	if cfg.RetryMax > 0 {
		retry.RetryMax = cfg.RetryMax
	}
	retry.Logger = retryLogger{logger: logger.Sugar()}

	rpcClient, err := rpc.DialOptions(ctx, cfg.RPCURL, rpc.WithHTTPClient(retry.StandardClient()))
	if err != nil {
		return nil, fmt.Errorf("evm registry: dial %s: %w", cfg.RPCURL, err)
	}
	client := ethclient.NewClient(rpcClient)

	registry, err := NewRegistry(client, cfg, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	registry.closer = client.Close
	return registry, nil
}

func NewRegistry(backend Backend, cfg Config, logger *zap.Logger) (*Registry, error) {
	parsed, err := abi.JSON(strings.NewReader(erc721ABI))
	if err != nil {
		return nil, err
	}
	key, err := parseOperatorKey(cfg.OperatorKey)
	if err != nil {
		return nil, err
	}
	transactor, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
	if err != nil {
		return nil, fmt.Errorf("evm registry: transactor: %w", err)
	}
	mineTimeout := cfg.MineTimeout
	if mineTimeout <= 0 {
		mineTimeout = 2 * time.Minute
	}
	return &Registry{
		backend:     backend,
		abi:         parsed,
		transactor:  transactor,
		operator:    crypto.PubkeyToAddress(key.PublicKey),
		mineTimeout: mineTimeout,
		logger:      application.ResolveLogger(logger),
	}, nil
}

// Operator is the address that must be approved by listers.
func (r *Registry) Operator() common.Address {
	return r.operator
}

func (r *Registry) Close() {
	if r.closer != nil {
		r.closer()
	}
}

func (r *Registry) OwnerOf(ctx context.Context, collection common.Address, tokenID *uint256.Int) (common.Address, error) {
	var out []interface{}
	if err := r.contract(collection).Call(&bind.CallOpts{Context: ctx}, &out, "ownerOf", tokenID.ToBig()); err != nil {
		return common.Address{}, err
	}
	if len(out) != 1 {
		return common.Address{}, fmt.Errorf("ownerOf: unexpected output arity %d", len(out))
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (r *Registry) IsApprovedForAll(
	ctx context.Context,
	collection common.Address,
	owner common.Address,
	operator common.Address,
) (bool, error) {
	var out []interface{}
	if err := r.contract(collection).Call(&bind.CallOpts{Context: ctx}, &out, "isApprovedForAll", owner, operator); err != nil {
		return false, err
	}
	if len(out) != 1 {
		return false, fmt.Errorf("isApprovedForAll: unexpected output arity %d", len(out))
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (r *Registry) TransferFrom(
	ctx context.Context,
	collection common.Address,
	from common.Address,
	to common.Address,
	tokenID *uint256.Int,
) error {
	opts := *r.transactor
	opts.Context = ctx

	tx, err := r.contract(collection).Transact(&opts, "transferFrom", from, to, tokenID.ToBig())
	if err != nil {
		return err
	}
	r.logger.Info("transferFrom submitted",
		application.LogFields("nft_marketplace_transfer_submitted", "adapter",
			zap.String("collection", collection.Hex()),
			zap.String("token_id", tokenID.Dec()),
			zap.String("tx_hash", tx.Hash().Hex()),
		)...,
	)

	mineCtx, cancel := context.WithTimeout(ctx, r.mineTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(mineCtx, r.backend, tx)
	if err != nil {
		// The transaction is already in the pool and may still be mined.
		return fmt.Errorf("%w: tx %s: %v", domainerrors.ErrTransferPending, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: tx %s", ErrTransferReverted, tx.Hash().Hex())
	}
	return nil
}

func (r *Registry) contract(collection common.Address) *bind.BoundContract {
	return bind.NewBoundContract(collection, r.abi, r.backend, r.backend, r.backend)
}

func parseOperatorKey(raw string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil {
		return nil, fmt.Errorf("evm registry: operator key: %w", err)
	}
	return key, nil
}

// retryLogger adapts zap to retryablehttp's leveled logger.
type retryLogger struct {
	logger *zap.SugaredLogger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, keysAndValues...)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warnw(msg, keysAndValues...)
}
