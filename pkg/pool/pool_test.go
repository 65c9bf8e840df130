package pool_test

import (
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/kshku/SnMemory/pkg/pool"
)

func TestInit(t *testing.T) {
	Convey("Given a pool allocator", t, func() {
		var a pool.Allocator

		Convey("Init fails on an empty buffer", func() {
			err := pool.Init(&a, nil, 64, 8)
			So(err, ShouldEqual, pool.ErrInvalidBuffer)
		})

		Convey("Init fails when the block size is smaller than a pointer", func() {
			err := pool.Init(&a, make([]byte, 256), 1, 1)
			So(err, ShouldEqual, pool.ErrBlockTooSmall)
		})

		Convey("Init fails when not even one block fits", func() {
			err := pool.Init(&a, make([]byte, 4), 64, 8)
			So(err, ShouldEqual, pool.ErrNoBlocksFit)
		})

		Convey("Init succeeds and threads the free list", func() {
			err := pool.Init(&a, make([]byte, 4096), 64, 8)
			So(err, ShouldBeNil)
			So(a.BlockCount(), ShouldBeGreaterThan, uint64(0))
			So(a.FreeCount(), ShouldEqual, a.BlockCount())
			So(a.UsedCount(), ShouldEqual, uint64(0))
		})

		Convey("Deinit clears accessors back to zero", func() {
			require.NoError(t, pool.Init(&a, make([]byte, 4096), 64, 8))
			_ = a.Allocate()
			pool.Deinit(&a)
			So(a.BlockCount(), ShouldEqual, uint64(0))
			So(a.FreeCount(), ShouldEqual, uint64(0))
		})
	})
}

func TestAllocateAndFree(t *testing.T) {
	Convey("Given an initialized pool allocator", t, func() {
		var a pool.Allocator
		require.NoError(t, pool.Init(&a, make([]byte, 4096), 64, 8))

		Convey("block_count is constant, free+used always equals it", func() {
			total := a.BlockCount()
			_ = a.Allocate()
			_ = a.Allocate()
			So(a.BlockCount(), ShouldEqual, total)
			So(a.FreeCount()+a.UsedCount(), ShouldEqual, total)
		})

		Convey("Free followed by Allocate reuses the same block", func() {
			p1 := a.Allocate()
			require.NotNil(t, p1)
			a.Free(p1)
			p2 := a.Allocate()
			require.NotNil(t, p2)
			So(&p1[0], ShouldEqual, &p2[0])
		})

		Convey("Freeing a pointer outside the buffer panics", func() {
			other := make([]byte, 64)
			So(func() { a.Free(other) }, ShouldPanic)
		})
	})
}

// TestPoolExhaustionScenario exercises spec scenario 3: allocate until
// exhausted, then free in shuffled order and confirm full recovery.
func TestPoolExhaustionScenario(t *testing.T) {
	var a pool.Allocator
	require.NoError(t, pool.Init(&a, make([]byte, 4096), 64, 8))

	total := a.BlockCount()

	var blocks [][]byte
	for {
		p := a.Allocate()
		if p == nil {
			break
		}
		blocks = append(blocks, p)
	}

	require.Equal(t, total, uint64(len(blocks)))
	require.Equal(t, total, a.UsedCount())
	require.Nil(t, a.Allocate())

	rng := rand.New(rand.NewSource(2))
	rng.Shuffle(len(blocks), func(i, j int) { blocks[i], blocks[j] = blocks[j], blocks[i] })

	for _, b := range blocks {
		a.Free(b)
	}

	require.Equal(t, total, a.FreeCount())
}
