package wire_test

import (
	"context"
	"net"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/barsys/logger"
	"github.com/sabouaram/barsys/wire"
)

func newTestLogger() logger.Logger {
	l := logger.New(os.Stderr, nil)
	l.SetLevel(logger.ErrorLevel)
	return l
}

var _ = Describe("Session", func() {
	var (
		masterConn, workerConn net.Conn
		master, worker         *wire.Session
		masterDone             <-chan struct{}
	)

	BeforeEach(func() {
		masterConn, workerConn = net.Pipe()
		master = wire.New(context.Background(), masterConn, nil, newTestLogger())
		worker = wire.New(context.Background(), workerConn, func(ctx context.Context, req wire.Request) wire.Response {
			switch req.Command {
			case "VERSION":
				return wire.Response{Completed: true, Params: map[string]string{"major": "1", "minor": "0", "mode": "master"}}
			case "AUTHORIZE":
				return wire.Response{Completed: true, Params: map[string]string{"authorized": "1"}}
			case "ECHO":
				return wire.Response{Completed: true, Params: req.Params}
			case "SLOW":
				time.Sleep(50 * time.Millisecond)
				return wire.Response{Completed: true}
			default:
				return wire.Response{Completed: true, ErrorCode: int(wire.ErrorUnknownCommand)}
			}
		}, newTestLogger())

		masterDone = master.Start()
		worker.Start()
	})

	AfterEach(func() {
		_ = master.Close()
		_ = worker.Close()
	})

	It("completes a handshake", func() {
		info, err := master.Handshake(context.Background(), 1, 0, "bar-master", wire.EncryptNone, "")
		Expect(err).To(BeNil())
		Expect(info.Major).To(Equal(1))
		Expect(master.Authorized()).To(BeTrue())
	})

	It("round-trips a call through the handler", func() {
		resp, err := master.Call(context.Background(), "ECHO", map[string]string{"a": "1", "b": "2"})
		Expect(err).To(BeNil())
		Expect(resp.Params["a"]).To(Equal("1"))
		Expect(resp.Params["b"]).To(Equal("2"))
	})

	It("fails a call against an unknown command", func() {
		_, err := master.Call(context.Background(), "NOPE", nil)
		Expect(err).NotTo(BeNil())
	})

	It("times out a call whose context is cancelled before the handler replies", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := master.Call(ctx, "SLOW", nil)
		Expect(err).NotTo(BeNil())
	})

	It("notices the peer disconnecting", func() {
		Expect(worker.Close()).To(BeNil())

		Eventually(masterDone, time.Second).Should(BeClosed())
	})
})
