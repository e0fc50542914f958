package devnet

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/0xPolygon/interop-edge/bridge"
	"github.com/0xPolygon/interop-edge/interop"
	"github.com/0xPolygon/interop-edge/proof"
	"github.com/0xPolygon/interop-edge/types"
)

// ErrUnknownChain is returned for chain ids that are not part of the network
var ErrUnknownChain = errors.New("unknown chain")

func (n *Network) mustChain(chainID uint64) (*Chain, error) {
	chain, ok := n.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}

	return chain, nil
}

// GetInclusionProof assembles the inclusion proof of a message emitted by chainID
func (n *Network) GetInclusionProof(chainID uint64, ref proof.Ref) (proof.Result, error) {
	chain, err := n.mustChain(chainID)
	if err != nil {
		return proof.Result{}, err
	}

	return chain.assembler.GetInclusionProof(ref), nil
}

// VerifyProof checks a direct proof against the chain roots executed on L1 and an interop
// proof against the interop root store of destination
func (n *Network) VerifyProof(p *proof.InclusionProof, destination uint64) error {
	if p.Kind == proof.Direct {
		return proof.VerifyDirect(p, n.L1)
	}

	chain, err := n.mustChain(destination)
	if err != nil {
		return err
	}

	return proof.VerifyInterop(p, chain.store)
}

// GetChainRoot returns the chain root of chainID at a batch height
func (n *Network) GetChainRoot(chainID, height uint64) (types.Hash, error) {
	chain, err := n.mustChain(chainID)
	if err != nil {
		return types.ZeroHash, err
	}

	return chain.tracker.GetChainRootAt(height)
}

// GetInteropRoot returns the interop root of key delivered to destination
func (n *Network) GetInteropRoot(destination uint64, key types.InteropRootKey) (types.Hash, error) {
	chain, err := n.mustChain(destination)
	if err != nil {
		return types.ZeroHash, err
	}

	return chain.store.Get(key), nil
}

// GetHalted returns the sources whose roots are held back on destination after a conflict
func (n *Network) GetHalted(destination uint64) (map[uint64]interop.Halt, error) {
	chain, err := n.mustChain(destination)
	if err != nil {
		return nil, err
	}

	return chain.syncer.Halted(), nil
}

// Resume lifts the halt of source on destination
func (n *Network) Resume(destination, source uint64) error {
	chain, err := n.mustChain(destination)
	if err != nil {
		return err
	}

	return chain.syncer.Resume(source)
}

// ResumeChain lifts the settlement layer halt of a chain after a chain root conflict and
// publishes the chain roots held back meanwhile. The root accepted first stays.
func (n *Network) ResumeChain(chainID uint64) error {
	chain, err := n.mustChain(chainID)
	if err != nil {
		return err
	}

	n.Settlement.Resume(chainID)

	return chain.PublishPending()
}

// SubmitDeposit implements the bridge api on top of the coordinator
func (n *Network) SubmitDeposit(req *bridge.DepositRequest) (types.Hash, error) {
	return n.Coordinator.SubmitDeposit(req)
}

func (n *Network) SubmitWithdrawal(req *bridge.WithdrawalRequest) (types.Hash, error) {
	return n.Coordinator.SubmitWithdrawal(req)
}

func (n *Network) SubmitTransfer(req *bridge.TransferRequest) (types.Hash, error) {
	return n.Coordinator.SubmitTransfer(req)
}

// GetStatus advances the operation as far as the network allows and returns it
func (n *Network) GetStatus(handle types.Hash) (*bridge.Operation, error) {
	return n.Coordinator.Poll(handle)
}

func (n *Network) Operations() ([]*bridge.Operation, error) {
	return n.Coordinator.Operations()
}

func (n *Network) ClaimFailedDeposit(handle types.Hash) (*bridge.ClaimResult, error) {
	return n.Coordinator.ClaimFailedDeposit(handle)
}

// Fund mints on L1 when chainID is zero, on an L2 chain otherwise
func (n *Network) Fund(chainID uint64, addr types.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", bridge.ErrMalformedRequest)
	}

	if chainID == 0 {
		n.L1.Mint(addr, amount)

		return nil
	}

	chain, err := n.mustChain(chainID)
	if err != nil {
		return err
	}

	chain.Mint(addr, amount)

	return nil
}

// BalanceOf reads a balance of L1 when chainID is zero, of an L2 chain otherwise
func (n *Network) BalanceOf(chainID uint64, addr types.Address) (*big.Int, error) {
	if chainID == 0 {
		return n.L1.BalanceOf(addr), nil
	}

	chain, err := n.mustChain(chainID)
	if err != nil {
		return nil, err
	}

	return chain.BalanceOf(addr), nil
}
