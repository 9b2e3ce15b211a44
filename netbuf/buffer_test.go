package netbuf

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendPeekRoundTrip(t *testing.T) {
	b := New(4)
	payload := []byte("hello world, this is longer than the initial capacity")
	b.Append(payload)
	require.Equal(t, payload, b.Peek())
}

func TestRetrieveAllToString(t *testing.T) {
	b := New(8)
	b.AppendString("abc")
	b.AppendString("def")
	require.Equal(t, "abcdef", b.RetrieveAllToString())
	require.Equal(t, 0, b.Readable())
	require.Equal(t, 0, b.Prependable())
}

func TestRetrieveBeyondReadablePanics(t *testing.T) {
	b := New(8)
	b.AppendString("ab")
	require.Panics(t, func() {
		b.Retrieve(3)
	})
}

func TestCompactReclaimsPrependableSpace(t *testing.T) {
	b := New(8)
	b.AppendString("abcdefgh")
	b.Retrieve(6)
	require.Equal(t, 6, b.Prependable())
	b.AppendString("XY") // fits in writable(0)+prependable(6) -> compacts, no grow
	require.Equal(t, "ghXY", b.RetrieveAllToString())
}

func TestInvariantHoldsUnderRandomOps(t *testing.T) {
	b := New(1)
	var model []byte
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		switch rng.Intn(3) {
		case 0:
			n := rng.Intn(37)
			chunk := make([]byte, n)
			rng.Read(chunk)
			b.Append(chunk)
			model = append(model, chunk...)
		case 1:
			if len(model) > 0 {
				n := rng.Intn(len(model) + 1)
				require.Equal(t, model[:n], b.Peek()[:n])
				b.Retrieve(n)
				model = model[n:]
			}
		case 2:
			require.Equal(t, string(model), b.RetrieveAllToString())
			model = nil
		}

		require.GreaterOrEqual(t, b.rPos, 0)
		require.LessOrEqual(t, b.rPos, b.wPos)
		require.LessOrEqual(t, b.wPos, len(b.buf))
		require.Equal(t, len(model), b.Readable())
	}
}
