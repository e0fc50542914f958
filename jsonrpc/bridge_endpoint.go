package jsonrpc

import (
	"math/big"

	"github.com/0xPolygon/interop-edge/bridge"
	"github.com/0xPolygon/interop-edge/types"
)

// bridgeStore is the lifecycle side of the network
type bridgeStore interface {
	SubmitDeposit(req *bridge.DepositRequest) (types.Hash, error)
	SubmitWithdrawal(req *bridge.WithdrawalRequest) (types.Hash, error)
	SubmitTransfer(req *bridge.TransferRequest) (types.Hash, error)
	GetStatus(handle types.Hash) (*bridge.Operation, error)
	Operations() ([]*bridge.Operation, error)
	ClaimFailedDeposit(handle types.Hash) (*bridge.ClaimResult, error)
	// Fund credits an account, on L1 when chainID is zero
	Fund(chainID uint64, addr types.Address, amount *big.Int) error
	// BalanceOf reads a balance, on L1 when chainID is zero
	BalanceOf(chainID uint64, addr types.Address) (*big.Int, error)
}

// JSONRPCStore defines all the methods required by all the JSON RPC endpoints
type JSONRPCStore interface {
	interopStore
	bridgeStore
}

// Bridge is the bridge jsonrpc endpoint
type Bridge struct {
	store bridgeStore
}

// Deposit submits a deposit from L1 and returns its handle
func (b *Bridge) Deposit(req *bridge.DepositRequest) (interface{}, error) {
	if req == nil {
		return nil, errMissingParam
	}

	return b.store.SubmitDeposit(req)
}

// Withdraw submits a withdrawal to L1 and returns its handle
func (b *Bridge) Withdraw(req *bridge.WithdrawalRequest) (interface{}, error) {
	if req == nil {
		return nil, errMissingParam
	}

	return b.store.SubmitWithdrawal(req)
}

// Transfer submits a transfer between two chains and returns its handle
func (b *Bridge) Transfer(req *bridge.TransferRequest) (interface{}, error) {
	if req == nil {
		return nil, errMissingParam
	}

	return b.store.SubmitTransfer(req)
}

// GetOperation returns the current state of an operation
func (b *Bridge) GetOperation(handle types.Hash) (interface{}, error) {
	return b.store.GetStatus(handle)
}

// ListOperations returns every known operation
func (b *Bridge) ListOperations() (interface{}, error) {
	return b.store.Operations()
}

// ClaimFailedDeposit refunds a deposit that failed on L2
func (b *Bridge) ClaimFailedDeposit(handle types.Hash) (interface{}, error) {
	return b.store.ClaimFailedDeposit(handle)
}

// Fund credits an account of L1 (chain 0) or of an L2 chain
func (b *Bridge) Fund(chainID argUint64, addr types.Address, amount *argBig) (interface{}, error) {
	if amount == nil {
		return nil, errMissingParam
	}

	if err := b.store.Fund(uint64(chainID), addr, (*big.Int)(amount)); err != nil {
		return nil, err
	}

	return true, nil
}

// GetBalance returns the balance of an account of L1 (chain 0) or of an L2 chain
func (b *Bridge) GetBalance(chainID argUint64, addr types.Address) (interface{}, error) {
	return b.store.BalanceOf(uint64(chainID), addr)
}
