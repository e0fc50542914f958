package jsonrpc

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// JSONRPC is an API backend
type JSONRPC struct {
	logger     hclog.Logger
	config     *Config
	dispatcher dispatcher
	server     *http.Server
	listener   net.Listener
}

type dispatcher interface {
	Handle(reqBody []byte) ([]byte, error)
}

// Config is the configuration of the jsonrpc server
type Config struct {
	Store                    JSONRPCStore
	Addr                     *net.TCPAddr
	AccessControlAllowOrigin []string
	BatchLengthLimit         uint64
	// Metrics serves the prometheus registry on /metrics when set
	Metrics bool
}

// NewJSONRPC returns the JSONRPC http server
func NewJSONRPC(logger hclog.Logger, config *Config) (*JSONRPC, error) {
	d, err := newDispatcher(
		logger,
		config.Store,
		&dispatcherParams{
			jsonRPCBatchLengthLimit: config.BatchLengthLimit,
		})
	if err != nil {
		return nil, err
	}

	srv := &JSONRPC{
		logger:     logger.Named("jsonrpc"),
		config:     config,
		dispatcher: d,
	}

	// start http server
	if err := srv.setupHTTP(); err != nil {
		return nil, err
	}

	return srv, nil
}

func (j *JSONRPC) setupHTTP() error {
	lis, err := net.Listen("tcp", j.config.Addr.String())
	if err != nil {
		return err
	}

	j.listener = lis
	j.logger.Info("http server started", "addr", lis.Addr().String())

	mux := http.NewServeMux()

	// The middleware factory returns a handler, so we need to wrap the handler function properly.
	jsonRPCHandler := http.HandlerFunc(j.handle)
	mux.Handle("/", middlewareFactory(j.config)(jsonRPCHandler))

	if j.config.Metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	j.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
	}

	go func() {
		if err := j.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			j.logger.Error("closed http connection", "err", err)
		}
	}()

	return nil
}

// Addr returns the address the server listens on
func (j *JSONRPC) Addr() net.Addr {
	return j.listener.Addr()
}

// Close stops the http server
func (j *JSONRPC) Close(ctx context.Context) error {
	return j.server.Shutdown(ctx)
}

// The middlewareFactory builds a middleware which enables CORS using the provided config.
func middlewareFactory(config *Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			for _, allowedOrigin := range config.AccessControlAllowOrigin {
				if allowedOrigin == "*" {
					w.Header().Set("Access-Control-Allow-Origin", "*")

					break
				}

				if allowedOrigin == origin {
					w.Header().Set("Access-Control-Allow-Origin", origin)

					break
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (j *JSONRPC) handle(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set(
		"Access-Control-Allow-Headers",
		"Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization",
	)

	switch req.Method {
	case http.MethodOptions:
		return
	case http.MethodGet:
		_, _ = w.Write([]byte("Interop Edge JSON-RPC"))

		return
	case http.MethodPost:
	default:
		_, _ = w.Write([]byte("method " + req.Method + " not allowed"))

		return
	}

	data, err := io.ReadAll(req.Body)
	if err != nil {
		_, _ = w.Write([]byte(err.Error()))

		return
	}

	// log request
	j.logger.Debug("handle", "request", string(data))

	resp, err := j.dispatcher.Handle(data)
	if err != nil {
		_, _ = w.Write([]byte(err.Error()))
	} else {
		_, _ = w.Write(resp)
	}

	j.logger.Debug("handle", "response", string(resp))
}
