// Copyright 2025 Veil ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package remote provides the public API for deferred-execution handles to
// private tensors held by other parties.
package remote

import (
	"github.com/google/uuid"

	"github.com/veil-ml/veil/internal/bounds"
	"github.com/veil-ml/veil/internal/provenance"
	"github.com/veil-ml/veil/internal/remote"
	"github.com/veil-ml/veil/internal/tensor"
)

// Client transmits commands to the party owning the referenced tensor.
type Client = remote.Client

// Command is a deferred operation sent to the owning party.
type Command = remote.Command

// Pointer is one command operand: a remote reference or an inline literal.
type Pointer = remote.Pointer

// Handle references a private tensor stored by a remote party.
type Handle = remote.Handle

// Result is what a deferred operation yields: a *Handle or an *mpc.Tensor.
type Result = remote.Result

// Option configures a Handle.
type Option = remote.Option

// Handle options.
var (
	WithLogger      = remote.WithLogger
	WithCoordinator = remote.WithCoordinator
	WithTags        = remote.WithTags
	WithDescription = remote.WithDescription
)

// NewHandle creates a handle to a remote tensor from its public metadata.
func NewHandle(owner Client, id uuid.UUID, subjects *provenance.Set, minVals, maxVals *bounds.Envelope,
	shape tensor.Shape, dtype tensor.DataType, opts ...Option) *Handle {
	return remote.NewHandle(owner, id, subjects, minVals, maxVals, shape, dtype, opts...)
}
