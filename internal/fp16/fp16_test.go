// Copyright 2024-2026 The TensorReduce Authors. SPDX-License-Identifier: Apache-2.0

package fp16

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

// isNaN16 reports whether the half-precision bit pattern encodes a NaN.
// NaN payloads are excluded from the reference comparisons: the engine never
// relies on a particular NaN payload surviving a conversion.
func isNaN16(bits uint16) bool {
	return bits&exponentMask == exponentMask && bits&mantissaMask != 0
}

func TestDecode_MatchesReference(t *testing.T) {
	for b := 0; b <= math.MaxUint16; b++ {
		bits := uint16(b)
		if isNaN16(bits) {
			continue
		}
		got := Decode(bits)
		want := float16.Float16(bits).Float32()
		if math.Float32bits(got) != math.Float32bits(want) {
			t.Fatalf("Decode(%#04x) = %v (bits %#08x), reference decodes to %v (bits %#08x)",
				bits, got, math.Float32bits(got), want, math.Float32bits(want))
		}
	}
}

func TestDecode_Subnormals(t *testing.T) {
	// Spot checks of the subnormal normalization against the exact values
	// (mantissa * 2^-24), including the boundary patterns on both sides.
	cases := map[uint16]float32{
		0x0001: 5.960464477539063e-08,  // Smallest subnormal.
		0x0003: 1.7881393432617188e-07, // Multi-bit mantissa, deep shift.
		0x0200: 3.0517578125e-05,       // Highest mantissa bit alone.
		0x03FF: 6.097555160522461e-05,  // Largest subnormal.
		0x0400: 6.103515625e-05,        // Smallest normal, for contrast.
	}
	for bits, want := range cases {
		require.Equalf(t, want, Decode(bits), "Decode(%#04x)", bits)
		require.Equalf(t, -want, Decode(bits|signMask), "Decode(%#04x)", bits|signMask)
	}
}

func TestDecodeEncodeRoundtrip(t *testing.T) {
	// Every non-NaN binary16 value is exactly representable in float32, so the
	// roundtrip must reproduce the original bits, including signed zeros,
	// subnormals and infinities.
	for b := 0; b <= math.MaxUint16; b++ {
		bits := uint16(b)
		if isNaN16(bits) {
			continue
		}
		if got := Encode(Decode(bits)); got != bits {
			t.Fatalf("Encode(Decode(%#04x)) = %#04x, want the original bits", bits, got)
		}
	}
}

func TestEncode_MatchesReference(t *testing.T) {
	edges := []float32{
		0, float32(math.Copysign(0, -1)),
		1, -1, 0.5, 2, 3,
		65504, -65504, // Largest finite half.
		65519.99, 65520, 65536, // Around the overflow-to-infinity threshold.
		6.103515625e-05,  // Smallest normal half.
		5.960464477539063e-08,  // Smallest subnormal half.
		2.9802322387695312e-08, // Half the smallest subnormal: ties to zero.
		4.470348358154297e-08,  // Between subnormal steps: rounds up.
		1e-9, -1e-9,
		float32(math.Inf(1)), float32(math.Inf(-1)),
		1.0009765625, // 1 + 2^-10, exactly representable.
		1.00048828125, // 1 + 2^-11, a tie: rounds to even (1.0).
		1.001465,
	}
	for _, f := range edges {
		got := Encode(f)
		want := uint16(float16.Fromfloat32(f))
		require.Equalf(t, want, got, "Encode(%v): got %#04x, reference gives %#04x", f, got, want)
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 100_000; i++ {
		// Random finite values spanning subnormal, normal and overflow ranges.
		f := float32(rng.NormFloat64() * math.Pow(10, float64(rng.Intn(12)-6)))
		got := Encode(f)
		want := uint16(float16.Fromfloat32(f))
		require.Equalf(t, want, got, "Encode(%v): got %#04x, reference gives %#04x", f, got, want)
	}
}

func TestBatch8_MatchesScalar(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var in [8]uint16
	var decoded, reencodeIn [8]float32
	var out [8]uint16
	for trial := 0; trial < 10_000; trial++ {
		for i := range in {
			in[i] = uint16(rng.Intn(math.MaxUint16 + 1))
			if isNaN16(in[i]) {
				in[i] = 0x3C00 // Replace NaNs with 1.0.
			}
		}
		DecodeBatch8(&decoded, &in)
		for i := range in {
			require.Equal(t, math.Float32bits(Decode(in[i])), math.Float32bits(decoded[i]))
		}
		reencodeIn = decoded
		EncodeBatch8(&out, &reencodeIn)
		for i := range out {
			require.Equal(t, Encode(reencodeIn[i]), out[i])
		}
	}
}

func TestSetAccelerated(t *testing.T) {
	orig := Accelerated()
	defer SetAccelerated(orig)

	prev := SetAccelerated(false)
	require.Equal(t, orig, prev)
	require.False(t, Accelerated())
	SetAccelerated(true)
	require.True(t, Accelerated())
}
