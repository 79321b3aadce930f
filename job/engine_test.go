package job_test

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
	_ "github.com/sabouaram/barsys/storage/optical"
)

func newTestEngine(dir string) *job.Engine {
	st, err := idxgorm.New(&idxgorm.Config{Driver: idxgorm.DriverSQLite, DSN: filepath.Join(dir, "cat.db")})
	Expect(err).To(BeNil())

	log := logger.New(os.Stderr, nil)
	log.SetLevel(logger.ErrorLevel)

	return job.New(context.Background(), st, log, nil)
}

func writeTestFile(dir, name string, size int) {
	Expect(os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0644)).To(Succeed())
}

func awaitState(e *job.Engine, id string, want job.State, timeout time.Duration) job.State {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		snap, err := e.JobStatus(id)
		Expect(err).To(BeNil())
		if snap.State == want {
			return snap.State
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap, _ := e.JobStatus(id)
	return snap.State
}

var _ = Describe("job list CRUD", func() {
	var (
		dir string
		e   *job.Engine
	)

	BeforeEach(func() {
		var derr error
		dir, derr = os.MkdirTemp("", "barsys-job-")
		Expect(derr).To(BeNil())
		e = newTestEngine(dir)
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	It("creates, renames, and deletes a job", func() {
		id, err := e.NewJob("nightly", "uuid-nightly")
		Expect(err).To(BeNil())
		Expect(id).NotTo(BeEmpty())

		Expect(e.NewJob("nightly", "uuid-other")).Error().NotTo(BeNil())

		Expect(e.RenameJob(id, "nightly-2")).To(BeNil())
		Expect(e.ListJobs()[0].Name).To(Equal("nightly-2"))

		Expect(e.DeleteJob(id)).To(BeNil())
		Expect(e.ListJobs()).To(BeEmpty())
	})

	It("copies a job's configuration under a new identity", func() {
		id, err := e.NewJob("base", "uuid-base")
		Expect(err).To(BeNil())
		Expect(e.SetIncludes(id, []string{"/a", "/b"})).To(BeNil())
		Expect(e.SetOption(id, job.OptCompressAlgorithm, "deflate")).To(BeNil())

		cpID, cerr := e.CopyJob(id, "clone", "uuid-clone")
		Expect(cerr).To(BeNil())

		v, ok, _ := e.GetOption(cpID, job.OptCompressAlgorithm)
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("deflate"))
	})

	It("refuses to start a job with no includes or endpoint", func() {
		id, _ := e.NewJob("empty", "uuid-empty")
		Expect(e.StartJob(id, job.TypeFull)).NotTo(BeNil())
	})
})

var _ = Describe("job run lifecycle", func() {
	var (
		dir     string
		srcDir  string
		destDir string
		e       *job.Engine
		id      string
	)

	BeforeEach(func() {
		var derr error
		dir, derr = os.MkdirTemp("", "barsys-job-")
		Expect(derr).To(BeNil())
		srcDir = filepath.Join(dir, "src")
		destDir = filepath.Join(dir, "dest")
		Expect(os.MkdirAll(srcDir, 0755)).To(Succeed())
		Expect(os.MkdirAll(destDir, 0755)).To(Succeed())
		writeTestFile(srcDir, "a.txt", 128)
		writeTestFile(srcDir, "b.txt", 256)

		e = newTestEngine(dir)

		var jerr error
		id, jerr = e.NewJob("nightly", "uuid-nightly")
		Expect(jerr).To(BeNil())
		Expect(e.SetIncludes(id, []string{srcDir})).To(BeNil())
		Expect(e.SetEndpoint(id, "local://"+destDir)).To(BeNil())
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	It("runs NONE -> WAITING -> RUNNING -> DONE on a clean archive", func() {
		Expect(e.StartJob(id, job.TypeFull)).To(BeNil())

		state := awaitState(e, id, job.StateDone, 5*time.Second)
		Expect(state).To(Equal(job.StateDone))

		snap, _ := e.JobStatus(id)
		Expect(snap.RunError).To(BeEmpty())
		Expect(snap.ArchiveType).To(Equal(job.TypeFull))
	})

	It("refuses a second start while the job is active", func() {
		Expect(e.StartJob(id, job.TypeFull)).To(BeNil())
		err := e.StartJob(id, job.TypeFull)
		Expect(err).NotTo(BeNil())
		awaitState(e, id, job.StateDone, 5*time.Second)
	})

	It("resolves NORMAL to the job's own configured archive type", func() {
		Expect(e.SetOption(id, "unused", "x")).To(BeNil())
		Expect(e.StartJob(id, job.TypeNormal)).To(BeNil())
		awaitState(e, id, job.StateDone, 5*time.Second)

		snap, _ := e.JobStatus(id)
		Expect(snap.ArchiveType).To(Equal(job.TypeFull))
	})
})

var _ = Describe("pause and suspend", func() {
	var e *job.Engine

	BeforeEach(func() {
		dir, derr := os.MkdirTemp("", "barsys-job-pause-")
		Expect(derr).To(BeNil())
		DeferCleanup(func() { _ = os.RemoveAll(dir) })
		e = newTestEngine(dir)
	})

	It("auto-expires a timed pause", func() {
		e.SetPause(20 * time.Millisecond)
		Expect(e.RunState()).To(Equal(job.RunStatePause))
		Eventually(e.RunState, time.Second, 5*time.Millisecond).Should(Equal(job.RunStateRunning))
	})

	It("keeps SUSPENDED until Continue, ignoring SetPause", func() {
		e.Suspend()
		Expect(e.RunState()).To(Equal(job.RunStateSuspended))

		e.SetPause(time.Hour)
		Expect(e.RunState()).To(Equal(job.RunStateSuspended))

		e.Continue()
		Expect(e.RunState()).To(Equal(job.RunStateRunning))
	})
})
