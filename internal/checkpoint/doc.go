// Package checkpoint saves and restores solver state so that a solve can be
// resumed in another process.
//
//	Format Structure:
//	  [4 bytes: Magic "PADM"]
//	  [4 bytes: Version (uint32 LE)]
//	  [8 bytes: Header Size (uint64 LE)]
//	  [32 bytes: SHA-256 of everything after this field]
//	  [Header: JSON metadata]
//	  [Padding to a 64-byte boundary]
//	  [Array data: little-endian, complex values as (re, im) pairs]
//
// Block values are stored as one entry per component, sharing a name.
//
// Example usage:
//
//	st := solver.Checkpoint()
//	if err := checkpoint.Save("run.padm", st); err != nil {
//	    return err
//	}
//
//	st, err := checkpoint.Load("run.padm")
//	if err != nil {
//	    return err
//	}
//	err = solver.Restore(st)
package checkpoint
