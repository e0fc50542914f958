package server

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/0xPolygon/interop-edge/bridge"
	"github.com/0xPolygon/interop-edge/devnet"
	"github.com/0xPolygon/interop-edge/types"
)

const maxInFlight = 16

var (
	trafficAccount = types.StringToAddress("0x7a11c")
	trafficFunds   = big.NewInt(1_000_000)
	trafficAmount  = big.NewInt(10)
)

// traffic keeps the network busy with a round robin of bridging operations
// and follows each of them to its final state
type traffic struct {
	logger  hclog.Logger
	network *devnet.Network
	config  *Traffic
	round   int
}

func newTraffic(network *devnet.Network, config *Traffic, logger hclog.Logger) *traffic {
	return &traffic{
		logger:  logger.Named("traffic"),
		network: network,
		config:  config,
	}
}

func (t *traffic) run(ctx context.Context) error {
	t.network.L1.Mint(trafficAccount, trafficFunds)

	for _, chain := range t.network.Chains() {
		chain.Mint(trafficAccount, trafficFunds)
	}

	g := &errgroup.Group{}
	g.SetLimit(maxInFlight)

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// followers return as soon as the context is done
			_ = g.Wait()

			return nil
		case <-ticker.C:
		}

		handle, target, err := t.submit()
		if err != nil {
			t.logger.Warn("failed to submit operation", "err", err)

			continue
		}

		if !g.TryGo(func() error {
			t.follow(ctx, handle, target)

			return nil
		}) {
			t.logger.Debug("too many operations in flight, not following", "handle", handle)
		}
	}
}

// submit sends the next operation of the round and returns its handle and final state
func (t *traffic) submit() (types.Hash, bridge.State, error) {
	chains := t.network.Chains()
	if len(chains) == 0 {
		return types.ZeroHash, "", errors.New("no chains")
	}

	t.round++

	source := chains[t.round%len(chains)].ChainID()
	destination := chains[(t.round+1)%len(chains)].ChainID()

	var (
		handle types.Hash
		err    error
	)

	switch t.round % 4 {
	case 0:
		handle, err = t.network.Coordinator.SubmitDeposit(&bridge.DepositRequest{
			ChainID: source, Sender: trafficAccount, Receiver: trafficAccount, Amount: trafficAmount,
		})

		return handle, bridge.StateFinalized, err
	case 1:
		handle, err = t.network.Coordinator.SubmitWithdrawal(&bridge.WithdrawalRequest{
			ChainID: source, Sender: trafficAccount, Receiver: trafficAccount, Amount: trafficAmount,
		})

		return handle, bridge.StateL1Finalized, err
	case 2:
		if source == destination {
			return types.ZeroHash, "", errors.New("transfers need two chains")
		}

		handle, err = t.network.Coordinator.SubmitTransfer(&bridge.TransferRequest{
			SourceChainID: source, DestinationChainID: destination,
			Sender: trafficAccount, Receiver: trafficAccount, Amount: trafficAmount,
		})

		return handle, bridge.StateExecuted, err
	default:
		handle, err = t.network.Coordinator.SubmitDeposit(&bridge.DepositRequest{
			ChainID: source, Sender: trafficAccount, Receiver: trafficAccount, Amount: trafficAmount, FailOnL2: true,
		})

		return handle, bridge.StateClaimed, err
	}
}

func (t *traffic) follow(ctx context.Context, handle types.Hash, target bridge.State) {
	op, err := t.network.Coordinator.WaitFor(ctx, handle, t.config.Policy, target, bridge.StateAwaitingClaim)
	if err != nil {
		t.logger.Warn("operation did not complete", "handle", handle, "err", err)

		return
	}

	if op.State == bridge.StateAwaitingClaim {
		res, err := t.network.Coordinator.ClaimFailedDeposit(handle)
		if err != nil {
			t.logger.Warn("failed to claim deposit", "handle", handle, "err", err)

			return
		}

		op = res.Deposit
	}

	t.logger.Info("operation completed", "kind", op.Kind, "handle", handle, "state", op.State)
}
