package scheduler_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/barsys/scheduler"
)

var _ = Describe("Rule.Matches", func() {
	It("matches an any-weekday hour/minute rule only at that exact minute", func() {
		r := scheduler.Rule{
			Hour:        3,
			Minute:      0,
			WeekdayMask: scheduler.AnyWeekday,
		}

		Expect(r.Matches(time.Date(2026, 7, 30, 3, 0, 0, 0, time.UTC))).To(BeTrue())
		Expect(r.Matches(time.Date(2026, 7, 30, 3, 1, 0, 0, time.UTC))).To(BeFalse())
		Expect(r.Matches(time.Date(2026, 7, 30, 4, 0, 0, 0, time.UTC))).To(BeFalse())
	})

	It("honours an explicit weekday mask", func() {
		r := scheduler.Rule{
			Hour:        9,
			Minute:      30,
			WeekdayMask: scheduler.Monday | scheduler.Wednesday | scheduler.Friday,
		}

		monday := time.Date(2026, 8, 3, 9, 30, 0, 0, time.UTC)
		Expect(monday.Weekday()).To(Equal(time.Monday))
		Expect(r.Matches(monday)).To(BeTrue())

		tuesday := monday.AddDate(0, 0, 1)
		Expect(r.Matches(tuesday)).To(BeFalse())
	})

	It("treats Year/Month/Day zero as wildcards but a set value as exact", func() {
		r := scheduler.Rule{Year: 2026, Month: 12, Day: 25, Hour: scheduler.AnyHour, Minute: scheduler.AnyMinute}

		Expect(r.Matches(time.Date(2026, 12, 25, 14, 0, 0, 0, time.UTC))).To(BeTrue())
		Expect(r.Matches(time.Date(2027, 12, 25, 14, 0, 0, 0, time.UTC))).To(BeFalse())
	})
})
