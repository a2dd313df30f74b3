package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/forfeit/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRequestLog(t *testing.T) {
	ctx := context.Background()

	Convey("Given a request log", t, func() {
		d := dedupe.NewRequestLog()

		Convey("When a request id is claimed", func() {
			first := d.Claim(ctx, "acct-1", "req-1")

			Convey("Then the first claim wins and a repeat loses", func() {
				So(first, ShouldBeTrue)
				So(d.Claim(ctx, "acct-1", "req-1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("Then the same id from another account is independent", func() {
				So(d.Claim(ctx, "acct-2", "req-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 2)
			})

			Convey("Then a released claim can be claimed again", func() {
				d.Release(ctx, "acct-1", "req-1")
				So(d.Size(), ShouldEqual, 0)
				So(d.Claim(ctx, "acct-1", "req-1"), ShouldBeTrue)
			})
		})

		Convey("When releasing an unknown id", func() {
			d.Release(ctx, "acct-1", "missing")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a bounded request log", t, func() {
		d := dedupe.NewRequestLog(dedupe.WithMaxSize(2))
		So(d.Claim(ctx, "a", "1"), ShouldBeTrue)
		So(d.Claim(ctx, "a", "2"), ShouldBeTrue)

		Convey("When a third id is claimed", func() {
			So(d.Claim(ctx, "a", "3"), ShouldBeTrue)

			Convey("Then the oldest claim is evicted", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.Claim(ctx, "a", "3"), ShouldBeFalse)
				So(d.Claim(ctx, "a", "1"), ShouldBeTrue)
			})
		})
	})

	Convey("Given a request log with a ttl", t, func() {
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		d := dedupe.NewRequestLog(dedupe.WithTTL(time.Minute), dedupe.WithClock(func() time.Time { return now }))
		So(d.Claim(ctx, "a", "1"), ShouldBeTrue)

		Convey("Then the claim holds inside the window", func() {
			now = now.Add(59 * time.Second)
			So(d.Claim(ctx, "a", "1"), ShouldBeFalse)
		})

		Convey("Then the claim expires after the window", func() {
			now = now.Add(time.Minute)
			So(d.Claim(ctx, "a", "1"), ShouldBeTrue)
			So(d.Size(), ShouldEqual, 1)
		})
	})
}

func TestRequestLogConcurrency(t *testing.T) {
	Convey("Given many goroutines claiming the same ids", t, func() {
		d := dedupe.NewRequestLog(dedupe.WithMaxSize(0))
		const goroutines = 10
		const ids = 100
		var wins atomic.Int64
		var wg sync.WaitGroup

		for g := 0; g < goroutines; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < ids; i++ {
					if d.Claim(context.Background(), "acct", fmt.Sprintf("req-%d", i)) {
						wins.Add(1)
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then every id is won exactly once", func() {
			So(wins.Load(), ShouldEqual, ids)
			So(d.Size(), ShouldEqual, ids)
		})
	})
}
