// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package netdisco

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned by Client.Send when no server was discovered
	// within the client timeout.
	ErrTimeout = errors.New("server discovery timeout has expired")
	// ErrStopped is returned when a stopped component is used.
	ErrStopped = errors.New("component is stopped")
	// ErrNotFound means that a discovery stream ended without a matching server.
	ErrNotFound = errors.New("server not found")
	// ErrNoInterface means that no network interface matches the request.
	ErrNoInterface = errors.New("no interface")
	// ErrInvalidAddress means that an address can't be used for discovery.
	ErrInvalidAddress = errors.New("invalid ip address")
	// ErrNoReply means that a request got no answer from the server.
	ErrNoReply = errors.New("no reply from server")
	// ErrEmptyRequest means that a request encoded to an empty payload.
	ErrEmptyRequest = errors.New("request encodes to an empty payload")
)

// OpError describes a failed operation of a named component.
type OpError struct {
	// Op is the operation, e.g. "discover", "bind" or "send".
	Op string
	// Name is the logical name of the component or wanted server.
	Name string
	// Err is the cause.
	Err error
}

func (e *OpError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("netdisco %s [%s]: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("netdisco %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// HandlerError is logged when an error handler fails while handling the
// error of a request. Original is the error it was asked to handle.
type HandlerError struct {
	Err      error
	Original error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("error handler failed: %v (original error: %v)", e.Err, e.Original)
}

func (e *HandlerError) Unwrap() []error {
	return []error{e.Err, e.Original}
}

// PanicError is a recovered panic from application code.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsTimeout reports whether err is a discovery timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
