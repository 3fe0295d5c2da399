// Copyright 2025 Veil ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package mpc provides the public API for secret-shared execution in the
// Veil framework: the coordinator that constructs shares over a party set
// and drives a multi-party protocol, plus the handle type for distributed
// results.
package mpc

import (
	"math/big"

	"github.com/veil-ml/veil/internal/mpc"
	"github.com/veil-ml/veil/internal/tensor"
)

// Party is a remote owner participating in a protocol run.
type Party = mpc.Party

// Secret is an operand to be secret-shared.
type Secret = mpc.Secret

// ShareRef is an opaque protocol-side handle to a secret-shared value.
type ShareRef = mpc.ShareRef

// Protocol is the external multi-party computation engine.
type Protocol = mpc.Protocol

// Coordinator mediates between tensor dispatch and the protocol.
type Coordinator = mpc.Coordinator

// CoordinatorOption configures a Coordinator.
type CoordinatorOption = mpc.CoordinatorOption

// WithLogger attaches a structured logger to a Coordinator.
var WithLogger = mpc.WithLogger

// NewCoordinator creates a coordinator over the given protocol.
func NewCoordinator(protocol Protocol, opts ...CoordinatorOption) *Coordinator {
	return mpc.NewCoordinator(protocol, opts...)
}

// Tensor is a handle to a secret-shared value distributed over a party set.
type Tensor = mpc.Tensor

// RingSize returns the secret-sharing ring size for a declared type, or nil
// when the type runs in default mode.
func RingSize(dt tensor.DataType) *big.Int {
	return mpc.RingSize(dt)
}

// LocalProtocol is an in-process reference protocol for tests and local
// development. It provides no security against other parties.
type LocalProtocol = mpc.LocalProtocol

// NewLocalProtocol creates an empty in-process protocol.
func NewLocalProtocol() *LocalProtocol { return mpc.NewLocalProtocol() }

// Config declares a static party set and optional ring overrides.
type Config = mpc.Config

// PartyConfig declares one participating party.
type PartyConfig = mpc.PartyConfig

// StaticParty is a configured party with a fixed address.
type StaticParty = mpc.StaticParty

// LoadConfig reads and validates a coordinator configuration file.
func LoadConfig(path string) (*Config, error) { return mpc.LoadConfig(path) }

// ParseConfig parses and validates YAML configuration bytes.
func ParseConfig(raw []byte) (*Config, error) { return mpc.ParseConfig(raw) }
