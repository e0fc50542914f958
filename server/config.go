package server

import (
	"net"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/interop-edge/devnet"
	"github.com/0xPolygon/interop-edge/poll"
)

const DefaultJSONRPCPort int = 8545

// Storage engines
const (
	StorageBoltDB  = "boltdb"
	StorageLevelDB = "leveldb"
	StorageMemory  = "memory"
)

// Config is used to parametrize the interop node
type Config struct {
	Network *devnet.Config

	JSONRPC   *JSONRPC
	Telemetry *Telemetry

	DataDir       string
	StorageEngine string

	LogLevel      hclog.Level
	JSONLogFormat bool
	LogFilePath   string

	// Traffic enables the generator of bridging operations
	Traffic *Traffic
}

// Telemetry holds the config details for metric services
type Telemetry struct {
	PrometheusAddr *net.TCPAddr
}

// JSONRPC holds the config details for the JSON-RPC server
type JSONRPC struct {
	JSONRPCAddr              *net.TCPAddr
	AccessControlAllowOrigin []string
	BatchLengthLimit         uint64
}

// Traffic holds the config details for the traffic generator
type Traffic struct {
	Interval time.Duration
	// Policy bounds how long the generator waits for each operation
	Policy poll.Policy
}
