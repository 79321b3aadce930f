package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	idxgorm "github.com/sabouaram/barsys/index/gorm"
	"github.com/sabouaram/barsys/job"
	"github.com/sabouaram/barsys/logger"
	_ "github.com/sabouaram/barsys/storage/local"
)

func newTickTestJobEngine(dir string) (*job.Engine, string) {
	st, err := idxgorm.New(&idxgorm.Config{Driver: idxgorm.DriverSQLite, DSN: filepath.Join(dir, "cat.db")})
	Expect(err).To(BeNil())

	log := logger.New(os.Stderr, nil)
	log.SetLevel(logger.ErrorLevel)

	je := job.New(context.Background(), st, log, nil)

	srcDir := filepath.Join(dir, "src")
	destDir := filepath.Join(dir, "dest")
	Expect(os.MkdirAll(srcDir, 0755)).To(Succeed())
	Expect(os.MkdirAll(destDir, 0755)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(srcDir, "f.txt"), []byte("hello"), 0644)).To(Succeed())

	id, jerr := je.NewJob("nightly", "uuid-nightly")
	Expect(jerr).To(BeNil())
	Expect(je.SetIncludes(id, []string{srcDir})).To(BeNil())
	Expect(je.SetEndpoint(id, "local://"+destDir)).To(BeNil())

	return je, id
}

var _ = Describe("Scheduler.tick", func() {
	var (
		dir string
		je  *job.Engine
		id  string
		s   *Scheduler
	)

	BeforeEach(func() {
		var derr error
		dir, derr = os.MkdirTemp("", "barsys-scheduler-")
		Expect(derr).To(BeNil())
		je, id = newTickTestJobEngine(dir)

		log := logger.New(os.Stderr, nil)
		log.SetLevel(logger.ErrorLevel)
		s = New(context.Background(), je, log, time.Minute)
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	// "Job has rule hour=3, minute=0, weekday=*; last_check_time =
	// yesterday 02:59. Wake scheduler at today 03:05. Expect: the job
	// is transitioned to WAITING exactly once."
	It("replays a single missed 03:00 firing and starts the job exactly once", func() {
		yesterday0259 := time.Date(2026, 7, 30, 2, 59, 0, 0, time.UTC)
		today0305 := time.Date(2026, 7, 31, 3, 5, 0, 0, time.UTC)

		ruleID, rerr := s.AddRule(Rule{
			JobID:         id,
			Enabled:       true,
			Hour:          3,
			Minute:        0,
			WeekdayMask:   AnyWeekday,
			ArchiveType:   job.TypeFull,
			LastCheckTime: yesterday0259,
		})
		Expect(rerr).To(BeNil())

		snapBefore, _ := je.JobStatus(id)
		Expect(snapBefore.State).To(Equal(job.StateNone))

		s.tick(today0305)

		// The job was started: it is no longer sitting in its initial
		// NONE state (it may already be Waiting, Running, or Done by
		// the time this observes it — dispatch runs asynchronously).
		Eventually(func() job.State {
			snap, _ := je.JobStatus(id)
			return snap.State
		}, time.Second, 5*time.Millisecond).ShouldNot(Equal(job.StateNone))

		rules := s.Rules()
		Expect(rules).To(HaveLen(1))
		Expect(rules[0].ID).To(Equal(ruleID))
		Expect(rules[0].LastCheckTime).To(Equal(today0305))

		// A second tick at the same "now" must not fire the rule again:
		// LastCheckTime already covers every minute up to today0305, and
		// the job is occupied or finished, never re-entering WAITING
		// from this same rule evaluation.
		doneState := awaitTickState(je, id, job.StateDone, 5*time.Second)
		Expect(doneState).To(Equal(job.StateDone))

		s.tick(today0305)
		time.Sleep(20 * time.Millisecond)
		snapAfter, _ := je.JobStatus(id)
		Expect(snapAfter.State).To(Equal(job.StateDone))
	})

	It("does not evaluate a disabled rule but still advances its clock", func() {
		from := time.Date(2026, 7, 31, 2, 0, 0, 0, time.UTC)
		now := time.Date(2026, 7, 31, 3, 5, 0, 0, time.UTC)

		s.AddRule(Rule{
			JobID: id, Enabled: false, Hour: 3, Minute: 0, WeekdayMask: AnyWeekday,
			LastCheckTime: from,
		})

		s.tick(now)
		time.Sleep(20 * time.Millisecond)

		snap, _ := je.JobStatus(id)
		Expect(snap.State).To(Equal(job.StateNone))

		rules := s.Rules()
		Expect(rules[0].LastCheckTime).To(Equal(now))
	})

	It("skips a rule whose job is already active", func() {
		Expect(je.StartJob(id, job.TypeFull)).To(BeNil())

		now := time.Now()
		s.AddRule(Rule{
			JobID: id, Enabled: true, Hour: AnyHour, Minute: AnyMinute, WeekdayMask: AnyWeekday,
			LastCheckTime: now.Add(-time.Minute),
		})

		// evaluate() must see the job active and decline to re-trigger
		// it; this mainly guards against a panic/deadlock from starting
		// an already-active job, since startJob itself also refuses.
		Expect(func() { s.tick(now) }).NotTo(Panic())

		awaitTickState(je, id, job.StateDone, 5*time.Second)
	})
})

func awaitTickState(je *job.Engine, id string, want job.State, timeout time.Duration) job.State {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		snap, _ := je.JobStatus(id)
		if snap.State == want {
			return snap.State
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap, _ := je.JobStatus(id)
	return snap.State
}
