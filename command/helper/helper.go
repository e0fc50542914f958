package helper

import (
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"
	"github.com/umbracle/ethgo/jsonrpc"

	"github.com/0xPolygon/interop-edge/command"
	"github.com/0xPolygon/interop-edge/types"
)

var errInvalidAmount = errors.New("invalid amount")

// HandleSignals is a helper method for handling signals sent to the console
// Like stop, error, etc.
func HandleSignals(
	closeFn func(),
	outputter command.OutputFormatter,
) error {
	signalCh := make(chan os.Signal, 4)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-signalCh

	closeMessage := fmt.Sprintf("\n[SIGNAL] Caught signal: %v\n", sig)
	closeMessage += "Gracefully shutting down client...\n"

	outputter.WriteCommandResult(
		&ClientCloseResult{
			Message: closeMessage,
		},
	)

	// Call the node close callback
	gracefulCh := make(chan struct{})

	go func() {
		if closeFn != nil {
			closeFn()
		}

		close(gracefulCh)
	}()

	select {
	case <-signalCh:
		return errors.New("shutdown by signal channel")
	case <-time.After(5 * time.Second):
		return errors.New("shutdown by timeout")
	case <-gracefulCh:
		return nil
	}
}

type ClientCloseResult struct {
	Message string `json:"message"`
}

func (r *ClientCloseResult) GetOutput() string {
	return r.Message
}

// FormatList formats a list, using a specific blank value replacement
func FormatList(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"

	return columnize.Format(in, columnConf)
}

// FormatKV formats key value pairs:
//
// Key = Value
//
// Key = <none>
func FormatKV(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"
	columnConf.Glue = " = "

	return columnize.Format(in, columnConf)
}

// ResolveAddr resolves the passed in TCP address
func ResolveAddr(raw string) (*net.TCPAddr, error) {
	addr, err := net.ResolveTCPAddr("tcp", raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse addr '%s': %w", raw, err)
	}

	if addr.IP == nil {
		addr.IP = net.ParseIP("127.0.0.1")
	}

	return addr, nil
}

// ParseAmount parses a decimal or 0x prefixed hex amount
func ParseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 0)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %q", errInvalidAmount, raw)
	}

	return amount, nil
}

// ParseAddress parses a hex encoded address, rejecting anything that is not 20 bytes long
func ParseAddress(raw string) (types.Address, error) {
	var addr types.Address

	trimmed := strings.TrimPrefix(raw, "0x")
	if len(trimmed) != 2*types.AddressLength {
		return addr, fmt.Errorf("invalid address %q", raw)
	}

	if err := addr.UnmarshalText([]byte(raw)); err != nil {
		return addr, err
	}

	return addr, nil
}

// ParseHash parses a hex encoded 32 byte hash
func ParseHash(raw string) (types.Hash, error) {
	var hash types.Hash

	trimmed := strings.TrimPrefix(raw, "0x")
	if len(trimmed) != 2*types.HashLength {
		return hash, fmt.Errorf("invalid hash %q", raw)
	}

	if err := hash.UnmarshalText([]byte(raw)); err != nil {
		return hash, err
	}

	return hash, nil
}

// RegisterJSONOutputFlag registers the --json output setting for all child commands
func RegisterJSONOutputFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool(
		command.JSONOutputFlag,
		false,
		"get all outputs in json format (default false)",
	)
}

// RegisterJSONRPCFlag registers the JSON-RPC address flag for all child commands
func RegisterJSONRPCFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().String(
		command.JSONRPCFlag,
		command.DefaultJSONRPCAddress,
		"the JSON-RPC interface of the interop node",
	)
}

// GetJSONRPCAddress extracts the set JSON-RPC address
func GetJSONRPCAddress(cmd *cobra.Command) string {
	return cmd.Flag(command.JSONRPCFlag).Value.String()
}

// GetJSONRPCClient returns a client of the node serving the JSON-RPC interface set on the command
func GetJSONRPCClient(cmd *cobra.Command) (*jsonrpc.Client, error) {
	addr := GetJSONRPCAddress(cmd)
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}

	client, err := jsonrpc.NewClient(addr)
	if err != nil {
		return nil, fmt.Errorf("could not create JSON RPC client: %w", err)
	}

	return client, nil
}
