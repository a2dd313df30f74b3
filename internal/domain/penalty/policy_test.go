package penalty

import (
	"testing"

	"github.com/okian/forfeit/internal/domain/challenge"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCompute(t *testing.T) {
	Convey("Given a penalty of 10 with a cap of 25", t, func() {
		c := &challenge.Challenge{Penalty: 10, CumulativeCap: 25}

		Convey("Then the first charges the full penalty", func() {
			So(Compute(c, 0), ShouldResemble, Decision{Amount: 10})
		})

		Convey("Then the charge is trimmed to the remaining budget", func() {
			So(Compute(c, 20), ShouldResemble, Decision{Amount: 5, Capped: true})
		})

		Convey("Then an exact fit is reported as capped", func() {
			So(Compute(c, 15), ShouldResemble, Decision{Amount: 10, Capped: true})
		})

		Convey("Then an exhausted budget charges nothing", func() {
			So(Compute(c, 25), ShouldResemble, Decision{Capped: true})
			So(Compute(c, 40), ShouldResemble, Decision{Capped: true})
		})
	})

	Convey("Given a cap of 0", t, func() {
		c := &challenge.Challenge{Penalty: 5}

		Convey("Then the penalty is never capped", func() {
			So(Compute(c, 0), ShouldResemble, Decision{Amount: 5})
			So(Compute(c, 1_000_000), ShouldResemble, Decision{Amount: 5})
		})
	})

	Convey("Given negative configuration values", t, func() {
		Convey("Then a negative penalty charges nothing", func() {
			So(Compute(&challenge.Challenge{Penalty: -3}, 0), ShouldResemble, Decision{})
		})

		Convey("Then a negative cap behaves as unlimited", func() {
			So(Compute(&challenge.Challenge{Penalty: 4, CumulativeCap: -1}, 10), ShouldResemble, Decision{Amount: 4})
		})

		Convey("Then negative accumulated is clamped", func() {
			So(Compute(&challenge.Challenge{Penalty: 10, CumulativeCap: 25}, -50), ShouldResemble, Decision{Amount: 10})
		})
	})

	Convey("Given a zero penalty under a cap", t, func() {
		c := &challenge.Challenge{Penalty: 0, CumulativeCap: 10}

		Convey("Then nothing is charged and the cap is not reached", func() {
			So(Compute(c, 0), ShouldResemble, Decision{})
		})
	})
}
