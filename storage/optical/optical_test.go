package optical_test

import (
	"io"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/barsys/storage"
	_ "github.com/sabouaram/barsys/storage/optical"
)

var _ = Describe("optical media backend", func() {
	var root string

	BeforeEach(func() {
		var err error
		root, err = os.MkdirTemp(os.TempDir(), "barsys-optical-*")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(root)
	})

	It("auto-loads every volume when no callback is registered", func() {
		s, e := storage.Open("optical://"+root, nil)
		Expect(e).To(BeNil())
		defer func() { _ = s.Close() }()

		w, e := s.Create("vol-000000.bar", 0, storage.PriorityHigh)
		Expect(e).To(BeNil())
		_, err := w.Write([]byte("payload"))
		Expect(err).ToNot(HaveOccurred())
		Expect(w.Close()).ToNot(HaveOccurred())

		r, e := s.Open("vol-000000.bar", storage.PriorityLow)
		Expect(e).To(BeNil())
		defer func() { _ = r.Close() }()

		body, err := io.ReadAll(r)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(body)).To(Equal("payload"))
	})

	It("asks the registered callback for each volume in sequence", func() {
		s, e := storage.Open("optical://"+root, nil)
		Expect(e).To(BeNil())
		defer func() { _ = s.Close() }()

		va, ok := s.(storage.VolumeAware)
		Expect(ok).To(BeTrue())

		var requested []int
		va.SetVolumeCallback(func(n int) storage.VolumeDecision {
			requested = append(requested, n)
			return storage.VolumeLoaded
		})

		for i := 0; i < 3; i++ {
			w, e := s.Create("vol.bar", 0, storage.PriorityLow)
			Expect(e).To(BeNil())
			Expect(w.Close()).ToNot(HaveOccurred())
		}

		Expect(requested).To(Equal([]int{1, 2, 3}))
	})

	It("fails Create with the shared volume-aborted code when the operator aborts", func() {
		s, e := storage.Open("optical://"+root, nil)
		Expect(e).To(BeNil())
		defer func() { _ = s.Close() }()

		va, ok := s.(storage.VolumeAware)
		Expect(ok).To(BeTrue())
		va.SetVolumeCallback(func(n int) storage.VolumeDecision {
			return storage.VolumeAborted
		})

		_, e = s.Create("vol.bar", 0, storage.PriorityLow)
		Expect(e).ToNot(BeNil())
		Expect(e.IsCode(storage.ErrorVolumeAborted)).To(BeTrue())
	})
})
