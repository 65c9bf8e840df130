package vm_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/kshku/SnMemory/internal/addr"
	"github.com/kshku/SnMemory/pkg/vm"
)

func TestPageSize(t *testing.T) {
	Convey("PageSize is a positive power of two and stable across calls", t, func() {
		p1 := vm.PageSize()
		p2 := vm.PageSize()
		So(p1, ShouldBeGreaterThan, uint64(0))
		So(addr.IsPow2(p1), ShouldBeTrue)
		So(p1, ShouldEqual, p2)
	})
}

func TestReserveCommitDecommitRelease(t *testing.T) {
	Convey("Reserve followed by commit makes memory usable", t, func() {
		r, err := vm.NewReservation(4)
		So(err, ShouldBeNil)
		So(r.Base().Valid(), ShouldBeTrue)
		So(r.Pages(), ShouldEqual, uint32(4))
		So(r.Size(), ShouldEqual, 4*vm.PageSize())

		Convey("Committing and writing to the first page succeeds", func() {
			So(r.Commit(1), ShouldBeTrue)

			b := r.Bytes()[:vm.PageSize()]
			b[0] = 0xFF
			So(b[0], ShouldEqual, byte(0xFF))

			Convey("Decommit and release do not error", func() {
				So(r.Decommit(1), ShouldBeTrue)
				So(r.Release(), ShouldBeTrue)
			})
		})
	})

	Convey("Reserving zero pages returns an invalid address", t, func() {
		So(vm.Reserve(0).Valid(), ShouldBeFalse)
	})
}
