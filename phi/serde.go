// Copyright 2025 Veil ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package phi

import (
	"github.com/veil-ml/veil/internal/phi"
)

// Binary record framing.
const (
	// MagicBytes identify a serialized PrivateTensor record.
	MagicBytes = phi.MagicBytes

	// FormatVersion is the current record format version.
	FormatVersion = phi.FormatVersion
)

// DecodeOption configures Deserialize.
type DecodeOption = phi.DecodeOption

// WithDecodeLimit caps the accepted record size in bytes.
var WithDecodeLimit = phi.WithDecodeLimit

// Serialize packs a PrivateTensor into its binary record.
func Serialize(t *PrivateTensor) ([]byte, error) {
	return phi.Serialize(t)
}

// Deserialize reconstructs a PrivateTensor from its binary record.
func Deserialize(buf []byte, opts ...DecodeOption) (*PrivateTensor, error) {
	return phi.Deserialize(buf, opts...)
}
