package frame_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/kshku/SnMemory/pkg/frame"
)

func TestFrame(t *testing.T) {
	Convey("Given a frame allocator", t, func() {
		var a frame.Allocator
		require.NoError(t, frame.Init(&a, make([]byte, 256)))

		Convey("Allocating outside a frame still bumps the cursor", func() {
			p := a.Allocate(32, 8)
			So(p, ShouldNotBeNil)
			So(a.FrameUsage(), ShouldEqual, uint64(32))
		})

		Convey("Begin/End frees everything allocated inside the frame", func() {
			before := a.FrameUsage()
			a.Begin()
			_ = a.Allocate(64, 8)
			_ = a.Allocate(64, 8)
			a.End()
			So(a.FrameUsage(), ShouldEqual, before)
		})

		Convey("Allocations made before Begin survive End", func() {
			_ = a.Allocate(16, 8)
			surviving := a.FrameUsage()

			a.Begin()
			_ = a.Allocate(32, 8)
			a.End()

			So(a.FrameUsage(), ShouldEqual, surviving)
		})

		Convey("End without a matching Begin panics", func() {
			So(func() { a.End() }, ShouldPanic)
		})

		Convey("A second Begin before End panics: frames do not nest", func() {
			a.Begin()
			So(func() { a.Begin() }, ShouldPanic)
		})
	})
}
