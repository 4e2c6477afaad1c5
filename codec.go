// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package netdisco

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gopkg.in/yaml.v3"
)

// Codec turns values into datagram payloads and back. Both ends of a
// conversation must use the same codec.
type Codec interface {
	Name() string
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

var (
	// JSON is the default codec. Field names are matched case-insensitively
	// when decoding.
	JSON Codec = jsonCodec{}
	// YAML encodes payloads as YAML documents.
	YAML Codec = yamlCodec{}
)

type jsonCodec struct{}

func (jsonCodec) Name() string                               { return "json" }
func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

type yamlCodec struct{}

func (yamlCodec) Name() string                               { return "yaml" }
func (yamlCodec) Marshal(v interface{}) ([]byte, error)      { return yaml.Marshal(v) }
func (yamlCodec) Unmarshal(data []byte, v interface{}) error { return yaml.Unmarshal(data, v) }

// CodecByName returns the codec registered under name.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// Encode marshals v with c. A nil value or a marshal failure gives an
// empty payload; failures are logged.
func Encode(c Codec, v interface{}, logger log.Logger) (data []byte) {
	data = []byte{}
	if isNil(v) {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			level.Error(orNop(logger)).Log("msg", "An error occurred converting an object to a byte array", "codec", c.Name(), "err", &PanicError{Value: r})
			data = []byte{}
		}
	}()
	buf, err := c.Marshal(v)
	if err != nil {
		level.Error(orNop(logger)).Log("msg", "An error occurred converting an object to a byte array", "codec", c.Name(), "err", err)
		return
	}
	return buf
}

// Decode unmarshals data into a T with c. An empty payload or an undecodable
// one gives def. A JSON field of the wrong type only drops that field.
func Decode[T any](c Codec, data []byte, def T, logger log.Logger) (v T) {
	if len(data) == 0 {
		return def
	}
	defer func() {
		if r := recover(); r != nil {
			level.Error(orNop(logger)).Log("msg", "An error occurred converting a byte array to an object", "codec", c.Name(), "err", &PanicError{Value: r})
			v = def
		}
	}()
	err := c.Unmarshal(data, &v)
	if err == nil {
		return v
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		level.Warn(orNop(logger)).Log("msg", "Field skipped while converting a byte array to an object", "codec", c.Name(), "err", err)
		return v
	}
	level.Error(orNop(logger)).Log("msg", "An error occurred converting a byte array to an object", "codec", c.Name(), "err", err)
	return def
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
