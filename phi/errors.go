// Copyright 2025 Veil ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package phi

import (
	"github.com/veil-ml/veil/internal/phi"
)

// Sentinel errors returned by tensor operations and serialization.
var (
	ErrShapeMismatch          = phi.ErrShapeMismatch
	ErrUnsupportedOperand     = phi.ErrUnsupportedOperand
	ErrProvenanceConflict     = phi.ErrProvenanceConflict
	ErrUnimplementedPromotion = phi.ErrUnimplementedPromotion
	ErrEmptyRelease           = phi.ErrEmptyRelease
	ErrInvalidMagic           = phi.ErrInvalidMagic
	ErrUnsupportedVersion     = phi.ErrUnsupportedVersion
	ErrRecordTooLarge         = phi.ErrRecordTooLarge
)
