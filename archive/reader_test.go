package archive_test

import (
	"bytes"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/barsys/archive"
	"github.com/sabouaram/barsys/crypt"
	"github.com/sabouaram/barsys/storage/local"
)

var _ = Describe("Reader edge cases", func() {
	var dir string

	BeforeEach(func() {
		d, err := os.MkdirTemp("", "barsys-archive-reader-*")
		Expect(err).To(BeNil())
		dir = d
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	It("fails to decrypt a volume opened with the wrong passphrase", func() {
		store, serr := local.New(dir, nil)
		Expect(serr).To(BeNil())

		w, werr := archive.New(store, archive.WriterOptions{
			VolumeBaseName: "wrongpass",
			Crypt: archive.CryptConfig{
				Algorithm:  crypt.AES256,
				Passphrase: crypt.NewPassphrase("the-real-password"),
			},
		})
		Expect(werr).To(BeNil())

		content := []byte("sensitive content")
		Expect(w.AddFile("s.txt", attrs(), int64(len(content)), bytes.NewReader(content))).To(BeNil())
		_, cerr := w.Close()
		Expect(cerr).To(BeNil())

		r := archive.Open(store, "wrongpass", archive.ReaderOptions{
			Passphrases: []*crypt.Passphrase{crypt.NewPassphrase("not-it")},
		})
		defer func() { _ = r.Close() }()

		eh, ok, rerr := r.NextEntry()
		Expect(rerr).To(BeNil())
		Expect(ok).To(BeTrue())

		buf := make([]byte, 64)
		_, _, derr := r.ReadEntryData(eh, buf)
		Expect(derr).NotTo(BeNil())
	})

	It("returns immediate end-of-data for a metadata-only entry", func() {
		store, serr := local.New(dir, nil)
		Expect(serr).To(BeNil())

		w, werr := archive.New(store, archive.WriterOptions{VolumeBaseName: "dironly"})
		Expect(werr).To(BeNil())
		Expect(w.AddDirectory("just-a-dir", attrs())).To(BeNil())
		_, cerr := w.Close()
		Expect(cerr).To(BeNil())

		r := archive.Open(store, "dironly", archive.ReaderOptions{})
		defer func() { _ = r.Close() }()

		eh, ok, rerr := r.NextEntry()
		Expect(rerr).To(BeNil())
		Expect(ok).To(BeTrue())

		buf := make([]byte, 64)
		n, eof, derr := r.ReadEntryData(eh, buf)
		Expect(derr).To(BeNil())
		Expect(n).To(Equal(0))
		Expect(eof).To(BeTrue())
	})

	It("rejects further use of a closed reader", func() {
		store, serr := local.New(dir, nil)
		Expect(serr).To(BeNil())

		w, werr := archive.New(store, archive.WriterOptions{VolumeBaseName: "closed"})
		Expect(werr).To(BeNil())
		_, cerr := w.Close()
		Expect(cerr).To(BeNil())

		r := archive.Open(store, "closed", archive.ReaderOptions{})
		Expect(r.Close()).To(BeNil())

		_, _, rerr := r.NextEntry()
		Expect(rerr).NotTo(BeNil())
	})

	It("reports a missing first volume as a clean empty archive", func() {
		store, serr := local.New(dir, nil)
		Expect(serr).To(BeNil())

		r := archive.Open(store, "never-written", archive.ReaderOptions{})
		_, ok, rerr := r.NextEntry()
		Expect(rerr).To(BeNil())
		Expect(ok).To(BeFalse())
		Expect(r.Close()).To(BeNil())
	})
})
