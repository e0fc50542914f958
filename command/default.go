package command

import (
	"fmt"

	"github.com/0xPolygon/interop-edge/server"
)

const (
	JSONOutputFlag = "json"
	JSONRPCFlag    = "jsonrpc"
	LogLevelFlag   = "log-level"
)

// DefaultJSONRPCAddress is the address of a node started with the default configuration
var DefaultJSONRPCAddress = fmt.Sprintf("http://127.0.0.1:%d", server.DefaultJSONRPCPort)
