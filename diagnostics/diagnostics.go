// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package diagnostics provides iteration statistics recording and export.
package diagnostics

import (
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/born-ml/padmm/internal/diagnostics"
)

// ErrFieldCount is returned when a row does not match the fields.
var ErrFieldCount = diagnostics.ErrFieldCount

// Field is a named column with a printf-style format.
type Field = diagnostics.Field

// Record is one recorded row.
type Record = diagnostics.Record

// Recorder accumulates iteration statistics.
type Recorder = diagnostics.Recorder

// Config configures a Recorder.
type Config = diagnostics.Config

// Sink receives every recorded row.
type Sink = diagnostics.Sink

// PrometheusSink exports rows as Prometheus gauges.
type PrometheusSink = diagnostics.PrometheusSink

// Timer is a resumable stopwatch.
type Timer = diagnostics.Timer

// NewRecorder creates a recorder.
func NewRecorder(cfg Config) (*Recorder, error) { return diagnostics.NewRecorder(cfg) }

// NewPrometheusSink registers a sink on reg.
func NewPrometheusSink(reg prometheus.Registerer, namespace, solver string) (*PrometheusSink, error) {
	return diagnostics.NewPrometheusSink(reg, namespace, solver)
}

// NewTimer creates a stopped timer on clock; nil means the real clock.
func NewTimer(clock clockwork.Clock) *Timer { return diagnostics.NewTimer(clock) }
