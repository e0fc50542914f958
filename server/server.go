package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/0xPolygon/interop-edge/devnet"
	"github.com/0xPolygon/interop-edge/jsonrpc"
)

const shutdownTimeout = 5 * time.Second

// Server is the interop node: an in-process network of L1, settlement layer and L2 chains
// exposed over JSON-RPC
type Server struct {
	logger  hclog.Logger
	config  *Config
	network *devnet.Network

	jsonrpcServer    *jsonrpc.JSONRPC
	prometheusServer *http.Server

	cancel context.CancelFunc
	done   chan error
}

// newFileLogger returns logger instance that writes all logs to a specified file.
// If log file can't be created, it returns an error
func newFileLogger(config *Config) (hclog.Logger, error) {
	logFileWriter, err := os.OpenFile(config.LogFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("could not create or open log file, %w", err)
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       "interop-edge",
		Level:      config.LogLevel,
		Output:     logFileWriter,
		JSONFormat: config.JSONLogFormat,
	}), nil
}

// newCLILogger returns minimal logger instance that sends all logs to standard output
func newCLILogger(config *Config) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       "interop-edge",
		Level:      config.LogLevel,
		JSONFormat: config.JSONLogFormat,
	})
}

// newLoggerFromConfig creates a new logger which logs to a specified file.
// If log file is not set it outputs to standard output ( console ).
// If log file is specified, and it can't be created the server command will error out
func newLoggerFromConfig(config *Config) (hclog.Logger, error) {
	if config.LogFilePath != "" {
		fileLoggerInstance, err := newFileLogger(config)
		if err != nil {
			return nil, err
		}

		return fileLoggerInstance, nil
	}

	return newCLILogger(config), nil
}

// NewServer creates a new interop node, using the passed in configuration
func NewServer(config *Config) (*Server, error) {
	logger, err := newLoggerFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("could not setup new logger instance, %w", err)
	}

	return newServer(config, logger)
}

func newServer(config *Config, logger hclog.Logger) (*Server, error) {
	s := &Server{
		logger: logger.Named("server"),
		config: config,
	}

	s.logger.Info("Data dir", "path", config.DataDir, "engine", config.StorageEngine)

	if err := s.setupTelemetry(); err != nil {
		return nil, err
	}

	open, err := newStorageFactory(config.StorageEngine, config.DataDir, logger)
	if err != nil {
		return nil, err
	}

	if s.network, err = devnet.NewNetwork(config.Network, open, logger); err != nil {
		return nil, fmt.Errorf("failed to start the network: %w", err)
	}

	if config.Telemetry != nil && config.Telemetry.PrometheusAddr != nil {
		s.prometheusServer = s.startPrometheusServer()
	}

	if s.jsonrpcServer, err = jsonrpc.NewJSONRPC(logger, &jsonrpc.Config{
		Store:                    s.network,
		Addr:                     config.JSONRPC.JSONRPCAddr,
		AccessControlAllowOrigin: config.JSONRPC.AccessControlAllowOrigin,
		BatchLengthLimit:         config.JSONRPC.BatchLengthLimit,
		Metrics:                  s.prometheusServer == nil,
	}); err != nil {
		return nil, multierror.Append(err, s.network.Close())
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan error, 1)

	go func() {
		s.done <- s.run(ctx)
	}()

	return s, nil
}

func (s *Server) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.network.Run(ctx)
	})

	if s.config.Traffic != nil {
		g.Go(func() error {
			return newTraffic(s.network, s.config.Traffic, s.logger).run(ctx)
		})
	}

	return g.Wait()
}

// Network returns the network run by the server
func (s *Server) Network() *devnet.Network {
	return s.network
}

// JSONRPC returns the jsonrpc server
func (s *Server) JSONRPC() *jsonrpc.JSONRPC {
	return s.jsonrpcServer
}

// Done receives the error of the background processes once they stopped
func (s *Server) Done() <-chan error {
	return s.done
}

// Close stops the background processes, the http servers and closes the storages
func (s *Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.cancel()

	select {
	case err := <-s.done:
		if err != nil {
			s.logger.Error("network stopped with error", "err", err)
		}
	case <-ctx.Done():
		s.logger.Error("network did not stop in time")
	}

	if err := s.jsonrpcServer.Close(ctx); err != nil {
		s.logger.Error("failed to close jsonrpc server", "err", err)
	}

	if s.prometheusServer != nil {
		if err := s.prometheusServer.Shutdown(ctx); err != nil {
			s.logger.Error("Prometheus server shutdown error", "err", err)
		}
	}

	if err := s.network.Close(); err != nil {
		s.logger.Error("failed to close storages", "err", err)
	}
}
