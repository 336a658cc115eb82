// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package checkpoint saves and restores solver state. Solvers produce a
// State with Checkpoint and continue from one with Restore.
package checkpoint

import (
	"io"

	"github.com/born-ml/padmm/internal/checkpoint"
)

// State is a solver snapshot.
type State = checkpoint.State

// Errors reported when reading or restoring a checkpoint.
var (
	ErrChecksumMismatch   = checkpoint.ErrChecksumMismatch
	ErrInvalidMagic       = checkpoint.ErrInvalidMagic
	ErrUnsupportedVersion = checkpoint.ErrUnsupportedVersion
	ErrSolverMismatch     = checkpoint.ErrSolverMismatch
)

// Write encodes st to w.
func Write(w io.Writer, st *State) error { return checkpoint.Write(w, st) }

// Read decodes a checkpoint from r.
func Read(r io.Reader) (*State, error) { return checkpoint.Read(r) }

// Save writes st to path.
func Save(path string, st *State) error { return checkpoint.Save(path, st) }

// Load reads the checkpoint at path.
func Load(path string) (*State, error) { return checkpoint.Load(path) }
