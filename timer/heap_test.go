package timer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func (t *Heap) checkInvariant(tb testing.TB) {
	tb.Helper()
	for i, n := range t.h {
		require.Equal(tb, i, n.index)
		require.Same(tb, n, t.byFd[n.fd])
		if i > 0 {
			parent := (i - 1) / 2
			require.LessOrEqual(tb, t.h[parent].expiry, n.expiry)
		}
	}
}

func TestAddAdjustRemoveTickInvariant(t *testing.T) {
	var clock int64
	nowFn = func() int64 { return clock }
	defer func() { nowFn = defaultNow }()

	h := New()
	rng := rand.New(rand.NewSource(7))
	fired := map[int]bool{}

	for i := 0; i < 500; i++ {
		fd := rng.Intn(40)
		switch rng.Intn(4) {
		case 0:
			h.Add(fd, rng.Intn(1000), func() { fired[fd] = true })
		case 1:
			h.Adjust(fd, rng.Intn(1000))
		case 2:
			h.Remove(fd)
		case 3:
			clock += int64(rng.Intn(200)) * int64(1e6)
			h.Tick()
		}
		h.checkInvariant(t)
	}
}

func TestNextTickMSReportsMinusOneWhenEmpty(t *testing.T) {
	h := New()
	require.Equal(t, -1, h.NextTickMS())
}

func TestTickFiresExpiredCallbacksInOrder(t *testing.T) {
	var clock int64
	nowFn = func() int64 { return clock }
	defer func() { nowFn = defaultNow }()

	h := New()
	var order []int
	h.Add(1, 100, func() { order = append(order, 1) })
	h.Add(2, 50, func() { order = append(order, 2) })
	h.Add(3, 150, func() { order = append(order, 3) })

	clock = 120 * int64(1e6)
	h.Tick()

	require.Equal(t, []int{2, 1}, order)
	require.Equal(t, 1, h.Len())
}

func TestAdjustExtendsDeadline(t *testing.T) {
	var clock int64
	nowFn = func() int64 { return clock }
	defer func() { nowFn = defaultNow }()

	h := New()
	fired := false
	h.Add(5, 10, func() { fired = true })
	h.Adjust(5, 1000)

	clock = 50 * int64(1e6)
	h.Tick()
	require.False(t, fired)
}
