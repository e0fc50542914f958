package jsonrpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/0xPolygon/interop-edge/helper/hex"
)

// Request is a jsonrpc request
type Request struct {
	ID     interface{}     `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// BatchRequest is a list of jsonrpc requests
type BatchRequest []Request

// Response is a jsonrpc response
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ObjectError    `json:"error,omitempty"`
}

// Bytes returns the json encoding of the response
func (r Response) Bytes() ([]byte, error) {
	return json.Marshal(r)
}

// ObjectError is a jsonrpc error
type ObjectError struct {
	// Code is the error code
	Code int `json:"code"`
	// Message is the error message
	Message string `json:"message"`
	// Data is the optional payload
	Data interface{} `json:"data,omitempty"`
}

// Error implements error interface
func (e *ObjectError) Error() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf("jsonrpc.internal marshal error: %v", err)
	}

	return string(data)
}

// NewRPCResponse is used to create a custom response
func NewRPCResponse(id interface{}, jsonrpcver string, reply []byte, err Error) Response {
	response := Response{
		JSONRPC: jsonrpcver,
		ID:      id,
	}

	if err != nil {
		response.Error = &ObjectError{Code: err.ErrorCode(), Message: err.Error()}
	} else {
		if len(reply) == 0 {
			reply = []byte("null")
		}

		response.Result = reply
	}

	return response
}

// argUint64 accepts both json numbers and hex quantities
type argUint64 uint64

func (u *argUint64) UnmarshalJSON(buffer []byte) error {
	str := strings.Trim(string(buffer), "\"")
	if str == "" {
		return fmt.Errorf("value is empty")
	}

	if strings.HasPrefix(str, "0x") {
		num, err := hex.DecodeUint64(str)
		if err != nil {
			return err
		}

		*u = argUint64(num)

		return nil
	}

	num, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return err
	}

	*u = argUint64(num)

	return nil
}

// argBig accepts json numbers, decimal and hex strings
type argBig big.Int

func (a *argBig) UnmarshalJSON(buffer []byte) error {
	str := strings.Trim(string(buffer), "\"")

	b, ok := new(big.Int).SetString(str, 0)
	if !ok {
		return fmt.Errorf("invalid big integer %q", str)
	}

	*a = argBig(*b)

	return nil
}
