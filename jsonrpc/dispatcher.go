package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"
	"unicode"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/interop-edge/poll"
)

const jsonRPCMetric = "json_rpc"

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// method is an endpoint function bound to its service
type method struct {
	service reflect.Value
	fn      reflect.Value
	args    []reflect.Type
	// a trailing pointer argument may be left out by the caller
	optionalTail bool
}

// Dispatcher handles all json rpc requests by delegating
// the execution flow to the corresponding service
type Dispatcher struct {
	logger  hclog.Logger
	methods map[string]*method

	params *dispatcherParams
}

type dispatcherParams struct {
	jsonRPCBatchLengthLimit uint64
}

func (dp dispatcherParams) isExceedingBatchLengthLimit(value uint64) bool {
	return dp.jsonRPCBatchLengthLimit != 0 && value > dp.jsonRPCBatchLengthLimit
}

func newDispatcher(
	logger hclog.Logger,
	store JSONRPCStore,
	params *dispatcherParams,
) (*Dispatcher, error) {
	d := &Dispatcher{
		logger:  logger.Named("dispatcher"),
		methods: map[string]*method{},
		params:  params,
	}

	if err := d.registerService("interop", &Interop{store}); err != nil {
		return nil, err
	}

	if err := d.registerService("bridge", &Bridge{store}); err != nil {
		return nil, err
	}

	return d, nil
}

// registerService exposes every exported method of service as <namespace>_<method>.
// Endpoint methods return a result and an error.
func (d *Dispatcher) registerService(namespace string, service interface{}) error {
	sv := reflect.ValueOf(service)
	st := sv.Type()

	for i := 0; i < st.NumMethod(); i++ {
		m := st.Method(i)
		ft := m.Func.Type()

		if ft.NumOut() != 2 || !ft.Out(1).Implements(errorType) {
			return fmt.Errorf("jsonrpc: %s_%s must return a result and an error", namespace, m.Name)
		}

		// the first input is the receiver
		args := make([]reflect.Type, ft.NumIn()-1)
		for j := range args {
			args[j] = ft.In(j + 1)
		}

		d.methods[namespace+"_"+lowerCaseFirst(m.Name)] = &method{
			service:      sv,
			fn:           m.Func,
			args:         args,
			optionalTail: len(args) > 0 && args[len(args)-1].Kind() == reflect.Ptr,
		}
	}

	return nil
}

// formatID accepts the ids JSON-RPC 2.0 allows: strings and integers
func formatID(id interface{}) (interface{}, Error) {
	switch t := id.(type) {
	case nil, string:
		return t, nil
	case float64:
		if t != math.Trunc(t) {
			return "", NewInvalidRequestError("Invalid json request")
		}

		return int(t), nil
	}

	return "", NewInvalidRequestError("Invalid json request")
}

// Handle decodes a single or a batch request and returns the encoded response
func (d *Dispatcher) Handle(reqBody []byte) ([]byte, error) {
	body := bytes.TrimLeft(reqBody, " \t\r\n")
	if len(body) == 0 || body[0] != '[' {
		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			return invalidJSONResponse().Bytes()
		}

		return d.handleSingle(req).Bytes()
	}

	var requests BatchRequest
	if err := json.Unmarshal(body, &requests); err != nil {
		return invalidJSONResponse().Bytes()
	}

	if d.params.isExceedingBatchLengthLimit(uint64(len(requests))) {
		return NewRPCResponse(nil, "2.0", nil, NewInvalidRequestError("Batch request length too long")).Bytes()
	}

	responses := make([]Response, len(requests))
	for i, req := range requests {
		responses[i] = d.handleSingle(req)
	}

	respBytes, err := json.Marshal(responses)
	if err != nil {
		return NewRPCResponse(nil, "2.0", nil, NewInternalError("Internal error")).Bytes()
	}

	return respBytes, nil
}

func invalidJSONResponse() Response {
	return NewRPCResponse(nil, "2.0", nil, NewInvalidRequestError("Invalid json request"))
}

func (d *Dispatcher) handleSingle(req Request) Response {
	id, err := formatID(req.ID)
	if err != nil {
		return NewRPCResponse(nil, "2.0", nil, err)
	}

	if req.Method == "" {
		return NewRPCResponse(id, "2.0", nil, NewInvalidRequestError("Invalid json request"))
	}

	resp, err := d.handleReq(req)

	return NewRPCResponse(id, "2.0", resp, err)
}

func (d *Dispatcher) handleReq(req Request) ([]byte, Error) {
	d.logger.Debug("request", "method", req.Method, "id", req.ID)

	m, ok := d.methods[req.Method]
	if !ok {
		return nil, NewMethodNotFoundError(req.Method)
	}

	in, perr := m.decodeArgs(req.Params)
	if perr != nil {
		return nil, perr
	}

	start := time.Now().UTC()
	out := m.fn.Call(in)
	metrics.SetGauge([]string{jsonRPCMetric, req.Method + "_time"}, float32(time.Now().UTC().Sub(start).Seconds()))

	if err, _ := out[1].Interface().(error); err != nil {
		metrics.IncrCounter([]string{jsonRPCMetric, req.Method + "_errors"}, 1)
		d.logger.Warn("failed to dispatch", "method", req.Method, "err", err)

		if poll.IsRetryable(err) {
			return nil, NewNotReadyError(err.Error())
		}

		return nil, NewInvalidRequestError(err.Error())
	}

	res := out[0].Interface()
	if res == nil {
		return nil, nil
	}

	data, err := json.Marshal(res)
	if err != nil {
		d.logger.Warn("failed to encode result", "method", req.Method, "err", err)

		return nil, NewInternalError("Internal error")
	}

	return data, nil
}

// decodeArgs decodes the positional params into the arguments of the method, receiver first.
// Arguments missing at the end keep their zero value.
func (m *method) decodeArgs(params json.RawMessage) ([]reflect.Value, Error) {
	in := make([]reflect.Value, len(m.args)+1)
	in[0] = m.service

	// the decoder fills the values behind the pointers in place
	targets := make([]interface{}, len(m.args))

	for i, typ := range m.args {
		val := reflect.New(typ)
		targets[i] = val.Interface()
		in[i+1] = val.Elem()
	}

	switch {
	case len(m.args) == 0:
	case len(params) == 0:
		if len(m.args) > 1 || !m.optionalTail {
			return nil, NewInvalidParamsError("Invalid Params")
		}
	default:
		if err := json.Unmarshal(params, &targets); err != nil {
			return nil, NewInvalidParamsError("Invalid Params")
		}
	}

	return in, nil
}

func lowerCaseFirst(str string) string {
	for i, v := range str {
		return string(unicode.ToLower(v)) + str[i+1:]
	}

	return ""
}
