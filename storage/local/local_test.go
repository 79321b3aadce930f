package local_test

import (
	"io"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/barsys/storage"
	_ "github.com/sabouaram/barsys/storage/local"
)

var _ = Describe("local filesystem backend", func() {
	var root string

	BeforeEach(func() {
		var err error
		root, err = os.MkdirTemp(os.TempDir(), "barsys-local-*")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(root)
	})

	It("writes and reads back a file through the bare path scheme", func() {
		s, e := storage.Open(root, nil)
		Expect(e).To(BeNil())
		defer func() { _ = s.Close() }()

		w, e := s.Create("archive/fragment.bar", 0, storage.PriorityHigh)
		Expect(e).To(BeNil())
		_, err := w.Write([]byte("payload"))
		Expect(err).ToNot(HaveOccurred())
		Expect(w.Close()).ToNot(HaveOccurred())

		Expect(filepath.Join(root, "archive", "fragment.bar")).To(BeAnExistingFile())

		r, e := s.Open("archive/fragment.bar", storage.PriorityLow)
		Expect(e).To(BeNil())
		defer func() { _ = r.Close() }()

		body, err := io.ReadAll(r)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(body)).To(Equal("payload"))
	})

	It("creates parent directories implicitly on Create", func() {
		s, e := storage.Open(root, nil)
		Expect(e).To(BeNil())
		defer func() { _ = s.Close() }()

		w, e := s.Create("a/b/c/leaf", 0, storage.PriorityLow)
		Expect(e).To(BeNil())
		Expect(w.Close()).ToNot(HaveOccurred())

		ok, e := s.Exists("a/b/c/leaf")
		Expect(e).To(BeNil())
		Expect(ok).To(BeTrue())
	})

	It("reports Exists as false for a missing name without error", func() {
		s, e := storage.Open(root, nil)
		Expect(e).To(BeNil())
		defer func() { _ = s.Close() }()

		ok, e := s.Exists("nothing-here")
		Expect(e).To(BeNil())
		Expect(ok).To(BeFalse())
	})

	It("fails Open on a missing name with the shared not-found code", func() {
		s, e := storage.Open(root, nil)
		Expect(e).To(BeNil())
		defer func() { _ = s.Close() }()

		_, e = s.Open("missing", storage.PriorityLow)
		Expect(e).ToNot(BeNil())
		Expect(e.IsCode(storage.ErrorNotFound)).To(BeTrue())
	})

	It("lists directory entries in name order", func() {
		s, e := storage.Open(root, nil)
		Expect(e).To(BeNil())
		defer func() { _ = s.Close() }()

		for _, name := range []string{"b.bar", "a.bar", "c.bar"} {
			w, e := s.Create(name, 0, storage.PriorityLow)
			Expect(e).To(BeNil())
			Expect(w.Close()).ToNot(HaveOccurred())
		}

		it, e := s.ListDirectory(".")
		Expect(e).To(BeNil())

		var names []string
		for {
			entry, ok, e := it.Next()
			Expect(e).To(BeNil())
			if !ok {
				break
			}
			names = append(names, entry.Name)
		}
		Expect(names).To(Equal([]string{"a.bar", "b.bar", "c.bar"}))
	})

	It("treats deleting a name that does not exist as a no-op", func() {
		s, e := storage.Open(root, nil)
		Expect(e).To(BeNil())
		defer func() { _ = s.Close() }()

		Expect(s.Delete("never-existed")).To(BeNil())
	})

	It("honors a bandwidth limiter without corrupting the transferred bytes", func() {
		lim := storage.NewLimiter(1 << 20)
		s, e := storage.Open(root, lim)
		Expect(e).To(BeNil())
		defer func() { _ = s.Close() }()

		payload := make([]byte, 4096)
		for i := range payload {
			payload[i] = byte(i)
		}

		w, e := s.Create("limited.bin", int64(len(payload)), storage.PriorityHigh)
		Expect(e).To(BeNil())
		_, err := w.Write(payload)
		Expect(err).ToNot(HaveOccurred())
		Expect(w.Close()).ToNot(HaveOccurred())

		r, e := s.Open("limited.bin", storage.PriorityHigh)
		Expect(e).To(BeNil())
		defer func() { _ = r.Close() }()

		body, err := io.ReadAll(r)
		Expect(err).ToNot(HaveOccurred())
		Expect(body).To(Equal(payload))
	})
})
