// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package netdisco

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Log formats accepted by NewLogger.
const (
	FormatLogfmt = "logfmt"
	FormatJSON   = "json"
)

// NewLogger returns a synchronized logger writing to w in the given format
// (logfmt or json) with a UTC timestamp and the caller.
func NewLogger(w io.Writer, format string) (log.Logger, error) {
	var logger log.Logger
	switch strings.ToLower(format) {
	case "", FormatLogfmt:
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	case FormatJSON:
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)
	return logger, nil
}

// LevelFilter drops every event below lvl (debug, info, warn or error).
func LevelFilter(logger log.Logger, lvl string) (log.Logger, error) {
	v, err := level.Parse(lvl)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", lvl, err)
	}
	return level.NewFilter(logger, level.Allow(v)), nil
}

// SinkLogger adapts a plain {level, message} sink to a log.Logger. The
// message is the "msg" value followed by the other pairs in logfmt order.
// Events without a level are reported as info.
func SinkLogger(sink func(lvl, msg string)) log.Logger {
	return log.LoggerFunc(func(keyvals ...interface{}) error {
		lvl := level.InfoValue().String()
		var msg string
		var rest []string
		for i := 0; i < len(keyvals); i += 2 {
			k := keyvals[i]
			var v interface{} = log.ErrMissingValue
			if i+1 < len(keyvals) {
				v = keyvals[i+1]
			}
			if k == level.Key() {
				if lv, ok := v.(level.Value); ok {
					lvl = lv.String()
					continue
				}
			}
			if k == "msg" {
				msg = fmt.Sprint(v)
				continue
			}
			rest = append(rest, fmt.Sprintf("%v=%v", k, v))
		}
		if len(rest) > 0 {
			if msg != "" {
				msg += " "
			}
			msg += strings.Join(rest, " ")
		}
		sink(lvl, msg)
		return nil
	})
}

func orNop(logger log.Logger) log.Logger {
	if logger == nil {
		return log.NewNopLogger()
	}
	return logger
}
