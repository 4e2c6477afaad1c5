// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package cli

import (
	"errors"

	"github.com/google/uuid"
)

// EchoRequest is the request served by netdisco serve.
type EchoRequest struct {
	Message string `json:"message" yaml:"message"`
}

// EchoResponse is the reply to an EchoRequest. Error is set instead of
// Result when the request failed.
type EchoResponse struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Result string `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

var errEmptyMessage = errors.New("empty message")

// echoHandler answers "got: <message>".
type echoHandler struct{}

func (echoHandler) ProcessRequest(req EchoRequest) (EchoResponse, error) {
	if req.Message == "" {
		return EchoResponse{}, errEmptyMessage
	}
	return EchoResponse{ID: uuid.NewString(), Result: "got: " + req.Message}, nil
}

func (echoHandler) HandleError(req EchoRequest, err error) (EchoResponse, error) {
	return EchoResponse{ID: uuid.NewString(), Error: err.Error()}, nil
}

// echoError is the client side error handler.
func echoError(req EchoRequest, err error) EchoResponse {
	return EchoResponse{Error: err.Error()}
}
