package swapkeys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPubkeyFromLimbs_RoundTrip(t *testing.T) {
	kp, err := GenerateSwapSecret()
	require.NoError(t, err)

	raw := SerializeUncompressed(kp.Public)
	require.Len(t, raw, 65)
	require.Equal(t, byte(0x04), raw[0])

	var xLimbs, yLimbs [4]uint64
	xBytes := raw[1:33]
	yBytes := raw[33:65]
	for i := 0; i < 4; i++ {
		xLimbs[i] = beLimb(xBytes, i)
		yLimbs[i] = beLimb(yBytes, i)
	}

	recovered, err := PubkeyFromLimbs(xLimbs, yLimbs)
	require.NoError(t, err)
	require.True(t, kp.Public.IsEqual(recovered))
}

// beLimb extracts limb i (0 = least significant) from a 32-byte
// big-endian coordinate.
func beLimb(be []byte, i int) uint64 {
	start := len(be) - 8*(i+1)
	end := len(be) - 8*i
	var v uint64
	for _, b := range be[start:end] {
		v = v<<8 | uint64(b)
	}
	return v
}

func TestAggregate_Commutative(t *testing.T) {
	a, err := GenerateSwapSecret()
	require.NoError(t, err)
	b, err := GenerateSwapSecret()
	require.NoError(t, err)

	ab := Aggregate(a.Public, b.Public)
	ba := Aggregate(b.Public, a.Public)
	require.True(t, ab.IsEqual(ba))
}

func TestSecretHash_Deterministic(t *testing.T) {
	k, err := SampleScalar()
	require.NoError(t, err)

	h1, err := SecretHash(k)
	require.NoError(t, err)
	h2, err := SecretHash(k)
	require.NoError(t, err)
	require.Equal(t, 0, h1.Cmp(h2))
}
