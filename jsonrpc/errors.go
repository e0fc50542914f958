package jsonrpc

import (
	"fmt"
)

type Error interface {
	Error() string
	ErrorCode() int
}

type invalidParamsError struct {
	err string
}

func (e *invalidParamsError) Error() string {
	return e.err
}

func (e *invalidParamsError) ErrorCode() int {
	return -32602
}

type internalError struct {
	err string
}

func (e *internalError) Error() string {
	return e.err
}

func (e *internalError) ErrorCode() int {
	return -32603
}

type invalidRequestError struct {
	err string
}

func (e *invalidRequestError) Error() string {
	return e.err
}

func (e *invalidRequestError) ErrorCode() int {
	return -32600
}

type methodNotFoundError struct {
	err string
}

func (e *methodNotFoundError) Error() string {
	return e.err
}

func (e *methodNotFoundError) ErrorCode() int {
	return -32601
}

// notReadyError is returned while an upstream component has not advanced far enough.
// The same request is expected to succeed later.
type notReadyError struct {
	err string
}

func (e *notReadyError) Error() string {
	return e.err
}

func (e *notReadyError) ErrorCode() int {
	return ErrCodeNotReady
}

// ErrCodeNotReady is the code of errors worth retrying
const ErrCodeNotReady = -32000

func NewMethodNotFoundError(method string) *methodNotFoundError {
	return &methodNotFoundError{fmt.Sprintf("the method %s does not exist/is not available", method)}
}

func NewInvalidRequestError(msg string) *invalidRequestError {
	return &invalidRequestError{msg}
}

func NewInvalidParamsError(msg string) *invalidParamsError {
	return &invalidParamsError{msg}
}

func NewInternalError(msg string) *internalError {
	return &internalError{msg}
}

func NewNotReadyError(msg string) *notReadyError {
	return &notReadyError{msg}
}
