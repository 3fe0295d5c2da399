// Copyright 2025 Veil ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package phi

import (
	"github.com/veil-ml/veil/internal/gamma"
)

// GammaTensor is the disclosure representation: a symbolic node in the
// computation graph whose release is budget-checked and noised.
type GammaTensor = gamma.Tensor

// Ledger records every disclosure node involved in published releases.
type Ledger = gamma.Ledger

// NewLedger creates an empty disclosure ledger.
func NewLedger() *Ledger { return gamma.NewLedger() }

// BudgetGetter reports a data subject's remaining privacy budget.
type BudgetGetter = gamma.BudgetGetter

// EpsilonDeducter deducts spent budget from a data subject.
type EpsilonDeducter = gamma.EpsilonDeducter

// ErrInsufficientBudget is returned by Publish when a data subject's
// remaining budget does not cover the release.
var ErrInsufficientBudget = gamma.ErrInsufficientBudget
