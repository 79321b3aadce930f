package job_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/barsys/index"
	idxgorm "github.com/sabouaram/barsys/index/gorm"
	"github.com/sabouaram/barsys/job"
)

var _ = Describe("volume-request protocol", func() {
	var (
		dir     string
		srcDir  string
		destDir string
		e       *job.Engine
		id      string
	)

	BeforeEach(func() {
		var derr error
		dir, derr = os.MkdirTemp("", "barsys-job-volume-")
		Expect(derr).To(BeNil())
		srcDir = filepath.Join(dir, "src")
		destDir = filepath.Join(dir, "dest")
		Expect(os.MkdirAll(srcDir, 0755)).To(Succeed())
		Expect(os.MkdirAll(destDir, 0755)).To(Succeed())

		writeTestFile(srcDir, "a.txt", 4096)
		writeTestFile(srcDir, "b.txt", 4096)

		e = newTestEngine(dir)

		var jerr error
		id, jerr = e.NewJob("optical-run", "uuid-optical")
		Expect(jerr).To(BeNil())
		Expect(e.SetIncludes(id, []string{srcDir})).To(BeNil())
		Expect(e.SetEndpoint(id, "optical://"+destDir)).To(BeNil())
		// VolumePartSize is left at its default (unbounded), so the
		// writer opens exactly one volume and the only store.Create —
		// hence the only volume request — happens when doRun calls
		// Close.
		Expect(e.SetManualVolumes(id, true)).To(BeNil())
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	It("blocks in REQUEST_VOLUME until the operator loads the next volume", func() {
		Expect(e.StartJob(id, job.TypeFull)).To(BeNil())

		state := awaitState(e, id, job.StateRequestVolume, 5*time.Second)
		Expect(state).To(Equal(job.StateRequestVolume))

		Expect(e.LoadVolume(id, 1)).To(BeNil())

		state = awaitState(e, id, job.StateDone, 5*time.Second)
		Expect(state).To(Equal(job.StateDone))
	})

	It("aborts cleanly when the operator never loads the requested volume", func() {
		Expect(e.StartJob(id, job.TypeFull)).To(BeNil())

		state := awaitState(e, id, job.StateRequestVolume, 5*time.Second)
		Expect(state).To(Equal(job.StateRequestVolume))

		Expect(e.AbortJob(id)).To(BeNil())

		state = awaitState(e, id, job.StateAborted, 5*time.Second)
		Expect(state).To(Equal(job.StateAborted))

		snap, _ := e.JobStatus(id)
		Expect(snap.EntityID).NotTo(BeEmpty())

		st, serr := idxgorm.New(&idxgorm.Config{Driver: idxgorm.DriverSQLite, DSN: filepath.Join(dir, "cat.db")})
		Expect(serr).To(BeNil())
		defer st.Close()

		// Nothing reached storage before the abort, so no volume is
		// catalogued at all here — which still satisfies "no volume
		// looking usable" as strongly as an explicit StorageError row
		// would.
		vols, lerr := st.ListStoragesForEntity(snap.EntityID)
		Expect(lerr).To(BeNil())
		for _, v := range vols {
			Expect(v.State).NotTo(Equal(index.StorageOK))
		}
	})

	It("keeps blocking through an UnloadVolume until a matching LoadVolume arrives", func() {
		Expect(e.StartJob(id, job.TypeFull)).To(BeNil())

		awaitState(e, id, job.StateRequestVolume, 5*time.Second)

		Expect(e.UnloadVolume(id)).To(BeNil())
		time.Sleep(20 * time.Millisecond)
		snap, _ := e.JobStatus(id)
		Expect(snap.State).To(Equal(job.StateRequestVolume))

		Expect(e.LoadVolume(id, 1)).To(BeNil())
		state := awaitState(e, id, job.StateDone, 5*time.Second)
		Expect(state).To(Equal(job.StateDone))
	})
})
