package connector_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/barsys/connector"
	idxgorm "github.com/sabouaram/barsys/index/gorm"
	"github.com/sabouaram/barsys/job"
	"github.com/sabouaram/barsys/logger"
	"github.com/sabouaram/barsys/storage"
	_ "github.com/sabouaram/barsys/storage/local"
	"github.com/sabouaram/barsys/wire"
)

func newTestLogger() logger.Logger {
	l := logger.New(os.Stderr, nil)
	l.SetLevel(logger.ErrorLevel)
	return l
}

var _ = Describe("Connector", func() {
	var (
		dir            string
		je             *job.Engine
		masterConn, workerConn net.Conn
		c              *connector.Connector
	)

	BeforeEach(func() {
		var derr error
		dir, derr = os.MkdirTemp("", "barsys-connector-")
		Expect(derr).To(BeNil())

		idxStore, serr := idxgorm.New(&idxgorm.Config{Driver: idxgorm.DriverSQLite, DSN: filepath.Join(dir, "cat.db")})
		Expect(serr).To(BeNil())

		je = job.New(context.Background(), idxStore, newTestLogger(), nil)

		rawDir := filepath.Join(dir, "raw")
		Expect(os.MkdirAll(rawDir, 0755)).To(Succeed())
		backend, berr := storage.Open("local://"+rawDir, nil)
		Expect(berr).To(BeNil())

		masterConn, workerConn = net.Pipe()
		worker := wire.New(context.Background(), workerConn, connector.NewHandler(je, idxStore, backend), newTestLogger())
		worker.Start()

		master := wire.New(context.Background(), masterConn, nil, newTestLogger())
		c = connector.New(master)

		_, herr := c.Handshake(context.Background(), "test-master", wire.EncryptNone, "")
		Expect(herr).To(BeNil())
	})

	AfterEach(func() {
		_ = c.Close()
		_ = os.RemoveAll(dir)
	})

	It("creates, starts, and follows a job to completion", func() {
		srcDir := filepath.Join(dir, "src")
		Expect(os.MkdirAll(srcDir, 0755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("hello"), 0644)).To(Succeed())

		destDir := filepath.Join(dir, "dest")
		Expect(os.MkdirAll(destDir, 0755)).To(Succeed())

		cfg := connector.JobConfig{
			Name:        "nightly",
			JobUUID:     "job-uuid-1",
			Endpoint:    "local://" + destDir,
			ArchiveType: "full",
			Includes:    []string{srcDir},
		}

		var last connector.Status
		err := c.Create(context.Background(), cfg, func(s connector.Status) { last = s })
		Expect(err).To(BeNil())
		Expect(last.State).To(Equal("done"))
		Expect(last.Disconnected).To(BeFalse())
	})

	It("relays a raw storage_create/write/close/exists sequence", func() {
		ctx := context.Background()
		Expect(c.InitStorage(ctx, "volume-1", nil)).To(BeNil())

		handle, cerr := c.StorageCreate(ctx, "volume-1.dat", 0)
		Expect(cerr).To(BeNil())
		Expect(handle).NotTo(BeEmpty())

		Expect(c.StorageWrite(ctx, handle, 0, []byte("payload"))).To(BeNil())
		Expect(c.StorageClose(ctx, handle)).To(BeNil())
		Expect(c.DoneStorage(ctx)).To(BeNil())

		exists, eerr := c.StorageExists(ctx, "volume-1.dat")
		Expect(eerr).To(BeNil())
		Expect(exists).To(BeTrue())

		raw, rerr := os.ReadFile(filepath.Join(dir, "raw", "volume-1.dat"))
		Expect(rerr).To(BeNil())
		Expect(raw).To(Equal([]byte("payload")))
	})

	It("reports a disconnection instead of hanging when the worker dies mid-run", func() {
		cfg := connector.JobConfig{
			Name:     "orphaned",
			JobUUID:  "job-uuid-2",
			Endpoint: "local://" + filepath.Join(dir, "dest2"),
			Includes: []string{dir},
		}
		Expect(os.MkdirAll(filepath.Join(dir, "dest2"), 0755)).To(Succeed())

		updates := make(chan connector.Status, 8)
		done := make(chan struct{})
		go func() {
			_ = c.Create(context.Background(), cfg, func(s connector.Status) { updates <- s })
			close(done)
		}()

		// Give JOB_NEW/JOB_START a moment to clear before killing the
		// worker side, so the loop that observes the drop is the
		// monitoring poll loop, not an in-flight setup call.
		time.Sleep(30 * time.Millisecond)

		Expect(workerConn.Close()).To(BeNil())

		Eventually(done, 2*time.Second).Should(BeClosed())

		var sawDisconnect bool
		for {
			select {
			case s := <-updates:
				if s.Disconnected {
					sawDisconnect = true
				}
			default:
				Expect(sawDisconnect).To(BeTrue())
				return
			}
		}
	})
})
