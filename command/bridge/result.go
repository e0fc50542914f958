package bridge

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/0xPolygon/interop-edge/bridge"
	"github.com/0xPolygon/interop-edge/command/helper"
	"github.com/0xPolygon/interop-edge/types"
)

type submitResult struct {
	Kind   string     `json:"kind"`
	Handle types.Hash `json:"handle"`
}

func (r *submitResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString(fmt.Sprintf("\n[BRIDGE %s]\n", strings.ToUpper(r.Kind)))
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Handle|%s", r.Handle),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}

type operationResult struct {
	*bridge.Operation
}

func (r *operationResult) GetOutput() string {
	var buffer bytes.Buffer

	op := r.Operation

	vals := []string{
		fmt.Sprintf("Handle|%s", op.Handle),
		fmt.Sprintf("Kind|%s", op.Kind),
		fmt.Sprintf("State|%s", op.State),
		fmt.Sprintf("Sender|%s", op.Sender),
		fmt.Sprintf("Receiver|%s", op.Receiver),
		fmt.Sprintf("Amount|%s", op.Amount),
		fmt.Sprintf("Source chain|%d", op.SourceChainID),
		fmt.Sprintf("Destination chain|%d", op.DestinationChainID),
	}

	if op.BatchNumber != nil {
		vals = append(vals, fmt.Sprintf("Batch|%d", *op.BatchNumber))
	}

	if len(op.History) > 0 {
		history := make([]string, len(op.History))
		for i, state := range op.History {
			history[i] = string(state)
		}

		vals = append(vals, fmt.Sprintf("History|%s", strings.Join(history, " -> ")))
	}

	buffer.WriteString("\n[BRIDGE OPERATION]\n")
	buffer.WriteString(helper.FormatKV(vals))
	buffer.WriteString("\n")

	return buffer.String()
}

type operationsResult []*bridge.Operation

func (r operationsResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[BRIDGE OPERATIONS]\n")

	if len(r) == 0 {
		buffer.WriteString("No operations\n")

		return buffer.String()
	}

	rows := make([]string, 0, len(r)+1)
	rows = append(rows, "Handle|Kind|State|Amount")

	for _, op := range r {
		rows = append(rows, fmt.Sprintf("%s|%s|%s|%s", op.Handle, op.Kind, op.State, op.Amount))
	}

	buffer.WriteString(helper.FormatList(rows))
	buffer.WriteString("\n")

	return buffer.String()
}

type claimResult struct {
	bridge.ClaimResult
}

func (r *claimResult) GetOutput() string {
	var buffer bytes.Buffer

	vals := []string{
		fmt.Sprintf("Deposit|%s", r.Deposit.Handle),
		fmt.Sprintf("Deposit state|%s", r.Deposit.State),
		fmt.Sprintf("Refunded|%s", r.Refunded),
	}

	if r.Claim != nil {
		vals = append(vals, fmt.Sprintf("Claim|%s", r.Claim.Handle))
	}

	buffer.WriteString("\n[FAILED DEPOSIT CLAIM]\n")
	buffer.WriteString(helper.FormatKV(vals))
	buffer.WriteString("\n")

	return buffer.String()
}

type balanceResult struct {
	ChainID uint64        `json:"chainId"`
	Address types.Address `json:"address"`
	Amount  *big.Int      `json:"funded,omitempty"`
	Balance *big.Int      `json:"balance,omitempty"`
}

func (r *balanceResult) GetOutput() string {
	var buffer bytes.Buffer

	vals := []string{
		fmt.Sprintf("Chain|%d", r.ChainID),
		fmt.Sprintf("Address|%s", r.Address),
	}

	if r.Amount != nil {
		vals = append(vals, fmt.Sprintf("Funded|%s", r.Amount))
	}

	if r.Balance != nil {
		vals = append(vals, fmt.Sprintf("Balance|%s", r.Balance))
	}

	buffer.WriteString("\n[BALANCE]\n")
	buffer.WriteString(helper.FormatKV(vals))
	buffer.WriteString("\n")

	return buffer.String()
}
