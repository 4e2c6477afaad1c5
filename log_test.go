// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package netdisco

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/go-kit/log/level"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, FormatJSON)
	require.NoError(t, err)
	level.Info(logger).Log("msg", "hello", "port", 18500)

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "hello", event["msg"])
	assert.Equal(t, "info", event["level"])
	assert.Contains(t, event, "ts")
	assert.Contains(t, event, "caller")
}

func TestNewLoggerUnknownFormat(t *testing.T) {
	_, err := NewLogger(&bytes.Buffer{}, "xml")
	assert.Error(t, err)
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, FormatLogfmt)
	require.NoError(t, err)
	logger, err = LevelFilter(logger, "warn")
	require.NoError(t, err)

	level.Info(logger).Log("msg", "dropped")
	level.Error(logger).Log("msg", "kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "msg=kept")

	_, err = LevelFilter(logger, "loud")
	assert.Error(t, err)
}

func TestSinkLogger(t *testing.T) {
	type event struct{ lvl, msg string }
	var events []event
	logger := SinkLogger(func(lvl, msg string) {
		events = append(events, event{lvl, msg})
	})

	level.Error(logger).Log("msg", "An error occurred", "err", errors.New("boom"))
	logger.Log("msg", "plain")
	level.Debug(logger).Log("port", 1, "odd")

	require.Len(t, events, 3)
	assert.Equal(t, event{"error", "An error occurred err=boom"}, events[0])
	assert.Equal(t, event{"info", "plain"}, events[1])
	assert.Equal(t, "debug", events[2].lvl)
	assert.True(t, strings.HasPrefix(events[2].msg, "port=1 odd="), events[2].msg)
}
