package mpc

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"

	"github.com/veil-ml/veil/internal/tensor"
)

// defaultRing is the modulus used when a declared type has no table entry.
var defaultRing = new(big.Int).Lsh(big.NewInt(1), 64)

// shareFracBits is the fixed-point scale applied before ring encoding.
const shareFracBits = 16

// PartyShares holds one party's additive fragments, one per element.
type PartyShares struct {
	Party string
	Frags []*big.Int
}

// SplitAdditive splits ring-encoded values into one additive fragment set
// per party: every party but the last receives uniform random ring elements,
// the last receives the remainder. Fragments are information-theoretically
// blinded; only the combination of all parties' fragments reveals a value.
func SplitAdditive(values []*big.Int, ring *big.Int, parties []Party) ([]PartyShares, error) {
	if len(parties) < 2 {
		return nil, fmt.Errorf("split: need at least 2 parties, got %d", len(parties))
	}
	if ring == nil {
		ring = defaultRing
	}

	out := make([]PartyShares, len(parties))
	for i, p := range parties {
		out[i] = PartyShares{Party: p.Address(), Frags: make([]*big.Int, len(values))}
	}

	for j, v := range values {
		sum := new(big.Int)
		for i := 0; i < len(parties)-1; i++ {
			frag, err := rand.Int(rand.Reader, ring)
			if err != nil {
				return nil, fmt.Errorf("split: sampling share: %w", err)
			}
			out[i].Frags[j] = frag
			sum.Add(sum, frag)
		}
		last := new(big.Int).Sub(new(big.Int).Mod(v, ring), sum)
		out[len(parties)-1].Frags[j] = last.Mod(last, ring)
	}
	return out, nil
}

// CombineAdditive reassembles values from every party's fragments.
func CombineAdditive(shares []PartyShares, ring *big.Int) ([]*big.Int, error) {
	if len(shares) == 0 {
		return nil, fmt.Errorf("combine: no shares given")
	}
	if ring == nil {
		ring = defaultRing
	}
	n := len(shares[0].Frags)
	out := make([]*big.Int, n)
	for j := 0; j < n; j++ {
		sum := new(big.Int)
		for _, ps := range shares {
			if len(ps.Frags) != n {
				return nil, fmt.Errorf("combine: fragment count mismatch for party %s", ps.Party)
			}
			sum.Add(sum, ps.Frags[j])
		}
		out[j] = sum.Mod(sum, ring)
	}
	return out, nil
}

// ringEncode fixed-point encodes cleartext into ring elements.
func ringEncode(arr *tensor.Array, ring *big.Int) []*big.Int {
	if ring == nil {
		ring = defaultRing
	}
	scale := float64(int64(1) << shareFracBits)
	out := make([]*big.Int, arr.NumElements())
	for i, v := range arr.Data() {
		e := big.NewInt(int64(v * scale))
		out[i] = e.Mod(e, ring)
	}
	return out
}

// ringDecode converts ring elements back to cleartext, interpreting the
// upper half of the ring as negative values.
func ringDecode(values []*big.Int, ring *big.Int, shape tensor.Shape) (*tensor.Array, error) {
	if ring == nil {
		ring = defaultRing
	}
	half := new(big.Int).Rsh(ring, 1)
	scale := float64(int64(1) << shareFracBits)
	data := make([]float64, len(values))
	for i, v := range values {
		signed := new(big.Int).Set(v)
		if signed.Cmp(half) >= 0 {
			signed.Sub(signed, ring)
		}
		f, _ := new(big.Float).SetInt(signed).Float64()
		data[i] = f / scale
	}
	return tensor.FromSlice(data, shape)
}

// ClearSecret is implemented by secrets whose cleartext is locally
// available to the sharing party.
type ClearSecret interface {
	Secret
	Value() *tensor.Array
}

// LocalProtocol is an in-process reference protocol: it constructs genuine
// additive shares but executes operations on retained cleartext. It exists
// to exercise the coordinator contract in tests and local development and
// provides no security against other parties.
type LocalProtocol struct {
	mu     sync.Mutex
	values map[uuid.UUID]*localValue
}

type localValue struct {
	clear   *tensor.Array
	ring    *big.Int
	parties []Party
	shares  []PartyShares
}

type localRef struct {
	id uuid.UUID
}

// ID returns the reference's identity.
func (r localRef) ID() uuid.UUID { return r.id }

// NewLocalProtocol creates an empty in-process protocol.
func NewLocalProtocol() *LocalProtocol {
	return &LocalProtocol{values: make(map[uuid.UUID]*localValue)}
}

// Share implements Protocol.
func (p *LocalProtocol) Share(_ context.Context, secret Secret, shape tensor.Shape, ring *big.Int, parties []Party) (ShareRef, error) {
	clear, ok := secret.(ClearSecret)
	if !ok {
		return nil, fmt.Errorf("local protocol: cleartext unavailable for secret of type %T", secret)
	}
	value := clear.Value()
	if !value.Shape().Equal(shape) {
		return nil, fmt.Errorf("local protocol: declared shape %v does not match value shape %v", shape, value.Shape())
	}

	shares, err := SplitAdditive(ringEncode(value, ring), ring, parties)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	id := uuid.New()
	p.values[id] = &localValue{clear: value.Clone(), ring: ring, parties: parties, shares: shares}
	return localRef{id: id}, nil
}

// Execute implements Protocol.
func (p *LocalProtocol) Execute(_ context.Context, op string, a, b ShareRef) (ShareRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	va, ok := p.values[a.ID()]
	if !ok {
		return nil, fmt.Errorf("local protocol: unknown share %s", a.ID())
	}
	vb, ok := p.values[b.ID()]
	if !ok {
		return nil, fmt.Errorf("local protocol: unknown share %s", b.ID())
	}

	var (
		result *tensor.Array
		err    error
	)
	switch op {
	case "add":
		result, err = tensor.Add(va.clear, vb.clear)
	case "sub":
		result, err = tensor.Sub(va.clear, vb.clear)
	case "mul":
		result, err = tensor.Mul(va.clear, vb.clear)
	case "matmul", "dot":
		result, err = tensor.MatMul(va.clear, vb.clear)
	case "lt":
		result, err = tensor.Lt(va.clear, vb.clear)
	case "gt":
		result, err = tensor.Gt(va.clear, vb.clear)
	case "ge":
		result, err = tensor.Ge(va.clear, vb.clear)
	case "le":
		result, err = tensor.Le(va.clear, vb.clear)
	case "eq":
		result, err = tensor.Eq(va.clear, vb.clear)
	case "ne":
		result, err = tensor.Ne(va.clear, vb.clear)
	case "concatenate":
		result, err = tensor.Concatenate(va.clear, vb.clear, 0)
	default:
		return nil, fmt.Errorf("local protocol: unsupported operation %q", op)
	}
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	p.values[id] = &localValue{clear: result, ring: va.ring, parties: va.parties}
	return localRef{id: id}, nil
}

// Reconstruct implements Protocol. When genuine shares exist they are
// combined and decoded; derived results reveal retained cleartext.
func (p *LocalProtocol) Reconstruct(_ context.Context, ref ShareRef) (*tensor.Array, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.values[ref.ID()]
	if !ok {
		return nil, fmt.Errorf("local protocol: unknown share %s", ref.ID())
	}
	if v.shares != nil {
		combined, err := CombineAdditive(v.shares, v.ring)
		if err != nil {
			return nil, err
		}
		return ringDecode(combined, v.ring, v.clear.Shape())
	}
	return v.clear.Clone(), nil
}
