package proof

import (
	"bytes"
	"fmt"

	"github.com/0xPolygon/interop-edge/command/helper"
	"github.com/0xPolygon/interop-edge/jsonrpc"
)

type getResult struct {
	jsonrpc.ProofResponse
	Path string `json:"path,omitempty"`
}

func (r *getResult) GetOutput() string {
	var buffer bytes.Buffer

	vals := []string{fmt.Sprintf("Status|%s", r.Status)}

	if r.Error != "" {
		vals = append(vals, fmt.Sprintf("Reason|%s", r.Error))
	}

	if p := r.Proof; p != nil {
		vals = append(vals,
			fmt.Sprintf("Kind|%s", p.Kind),
			fmt.Sprintf("Chain|%d", p.ChainID),
			fmt.Sprintf("Batch|%d", p.BatchNumber),
			fmt.Sprintf("Message index|%d", p.MessageIndex),
			fmt.Sprintf("Siblings|%d", len(p.Siblings)),
		)
	}

	if r.Path != "" {
		vals = append(vals, fmt.Sprintf("Written to|%s", r.Path))
	}

	buffer.WriteString("\n[INCLUSION PROOF]\n")
	buffer.WriteString(helper.FormatKV(vals))
	buffer.WriteString("\n")

	return buffer.String()
}

type verifyResult struct {
	jsonrpc.VerifyResponse
	Kind string `json:"kind"`
}

func (r *verifyResult) GetOutput() string {
	var buffer bytes.Buffer

	vals := []string{
		fmt.Sprintf("Kind|%s", r.Kind),
		fmt.Sprintf("Valid|%t", r.Valid),
		fmt.Sprintf("Computed root|%s", r.Root),
	}

	if r.Error != "" {
		vals = append(vals, fmt.Sprintf("Reason|%s", r.Error))
	}

	buffer.WriteString("\n[PROOF VERIFICATION]\n")
	buffer.WriteString(helper.FormatKV(vals))
	buffer.WriteString("\n")

	return buffer.String()
}
