package linear_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/kshku/SnMemory/internal/addr"
	"github.com/kshku/SnMemory/pkg/linear"
)

func TestInit(t *testing.T) {
	Convey("Given a linear allocator", t, func() {
		var a linear.Allocator

		Convey("Init fails on an empty buffer", func() {
			err := linear.Init(&a, nil)
			So(err, ShouldEqual, linear.ErrInvalidBuffer)
		})

		Convey("Init succeeds on a real buffer", func() {
			buf := make([]byte, 256)
			err := linear.Init(&a, buf)
			So(err, ShouldBeNil)
			So(a.AllocatedSize(), ShouldEqual, uint64(0))
			So(a.RemainingSize(), ShouldEqual, uint64(256))
		})

		Convey("Deinit clears accessors back to zero", func() {
			buf := make([]byte, 256)
			_ = linear.Init(&a, buf)
			_ = a.Allocate(32, 8)
			linear.Deinit(&a)
			So(a.AllocatedSize(), ShouldEqual, uint64(0))
			So(a.RemainingSize(), ShouldEqual, uint64(0))
		})
	})
}

func TestAllocate(t *testing.T) {
	Convey("Given an initialized allocator", t, func() {
		buf := make([]byte, 256)
		var a linear.Allocator
		require.NoError(t, linear.Init(&a, buf))

		Convey("Allocate returns an aligned, in-bounds slice", func() {
			p := a.Allocate(32, 16)
			So(p, ShouldNotBeNil)
			So(len(p), ShouldEqual, 32)
			So(addr.OfSlice(p).IsAligned(16), ShouldBeTrue)
			So(addr.OfSlice(p) >= addr.OfSlice(buf), ShouldBeTrue)
			So(addr.OfSlice(p).Add(32) <= addr.OfSlice(buf).Add(256), ShouldBeTrue)
		})

		Convey("Allocate returns nil once the buffer is exhausted", func() {
			for a.Allocate(32, 8) != nil {
			}
			So(a.Allocate(1, 1), ShouldBeNil)
		})

		Convey("Two consecutive allocations are disjoint", func() {
			p1 := a.Allocate(16, 8)
			p2 := a.Allocate(16, 8)
			p1[0] = 1
			p2[0] = 2
			So(p1[0], ShouldEqual, byte(1))
			So(p2[0], ShouldEqual, byte(2))
		})
	})
}

func TestResetAndMarks(t *testing.T) {
	Convey("Given an initialized allocator", t, func() {
		buf := make([]byte, 256)
		var a linear.Allocator
		require.NoError(t, linear.Init(&a, buf))

		Convey("Reset returns to the empty state", func() {
			_ = a.Allocate(64, 8)
			a.Reset()
			So(a.AllocatedSize(), ShouldEqual, uint64(0))
			So(a.RemainingSize(), ShouldEqual, uint64(256))
		})

		Convey("Rewinding to a mark restores the allocated size at that point", func() {
			_ = a.Allocate(32, 8)
			mark := a.GetMark()
			allocatedAtMark := a.AllocatedSize()
			_ = a.Allocate(32, 8)
			_ = a.Allocate(32, 8)

			a.RewindTo(mark)
			So(a.AllocatedSize(), ShouldEqual, allocatedAtMark)
		})

		Convey("Rewinding to a mark at or beyond top is a no-op", func() {
			_ = a.Allocate(32, 8)
			mark := a.GetMark()
			a.RewindTo(mark)
			So(a.AllocatedSize(), ShouldEqual, uint64(32))
		})
	})
}

// TestLinearMarksScenario exercises spec scenario 1: allocate 32 B at
// align 8 thirty-two times, each preceded by a mark, then rewind in reverse
// order through every mark.
func TestLinearMarksScenario(t *testing.T) {
	buf := make([]byte, 2048)
	var a linear.Allocator
	require.NoError(t, linear.Init(&a, buf))

	marks := make([]linear.Mark, 0, 32)
	for i := 0; i < 32; i++ {
		marks = append(marks, a.GetMark())
		p := a.Allocate(32, 8)
		require.NotNil(t, p)
	}

	for i := len(marks) - 1; i >= 0; i-- {
		a.RewindTo(marks[i])
	}

	require.Equal(t, uint64(0), a.AllocatedSize())
}
