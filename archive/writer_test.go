package archive_test

import (
	"bytes"
	"io"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/barsys/archive"
	"github.com/sabouaram/barsys/compress"
	"github.com/sabouaram/barsys/crypt"
	"github.com/sabouaram/barsys/storage/local"
)

func attrs() archive.EntryAttrs {
	now := time.Unix(1700000000, 0).UTC()
	return archive.EntryAttrs{UID: 1000, GID: 1000, Mode: 0644, Mtime: now, Atime: now, Ctime: now}
}

func readAllEntry(r *archive.Reader, eh *archive.EntryHeader) []byte {
	var out bytes.Buffer
	buf := make([]byte, 4096)
	for {
		n, eof, err := r.ReadEntryData(eh, buf)
		Expect(err).To(BeNil())
		if n > 0 {
			out.Write(buf[:n])
		}
		if eof {
			break
		}
	}
	return out.Bytes()
}

var _ = Describe("Writer/Reader round trip", func() {
	var dir string

	BeforeEach(func() {
		d, err := os.MkdirTemp("", "barsys-archive-*")
		Expect(err).To(BeNil())
		dir = d
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	It("round-trips a mix of entry kinds through one volume", func() {
		store, serr := local.New(dir, nil)
		Expect(serr).To(BeNil())

		w, werr := archive.New(store, archive.WriterOptions{
			VolumeBaseName:    "backup",
			SpillThreshold:    1 << 20,
			CompressAlgorithm: compress.Deflate,
			CompressLevel:     6,
		})
		Expect(werr).To(BeNil())

		fileContent := bytes.Repeat([]byte("payload-bytes-"), 1000)

		Expect(w.AddFile("data/hello.txt", attrs(), int64(len(fileContent)), bytes.NewReader(fileContent))).To(BeNil())
		Expect(w.AddDirectory("data", attrs())).To(BeNil())
		Expect(w.AddLink("data/hello-link", "hello.txt", attrs())).To(BeNil())
		Expect(w.AddSpecial("dev/null0", 1, 3, attrs())).To(BeNil())

		names, cerr := w.Close()
		Expect(cerr).To(BeNil())
		Expect(names).To(HaveLen(1))
		Expect(names[0]).To(Equal("backup-000001.bar"))

		r := archive.Open(store, "backup", archive.ReaderOptions{})
		defer func() { _ = r.Close() }()

		var got []string
		for {
			eh, ok, rerr := r.NextEntry()
			Expect(rerr).To(BeNil())
			if !ok {
				break
			}
			got = append(got, eh.Name)

			switch eh.Name {
			case "data/hello.txt":
				Expect(readAllEntry(r, eh)).To(Equal(fileContent))
			case "data/hello-link":
				Expect(eh.LinkTarget).To(Equal("hello.txt"))
			case "dev/null0":
				Expect(eh.Major).To(Equal(uint32(1)))
				Expect(eh.Minor).To(Equal(uint32(3)))
			}
		}

		Expect(got).To(ConsistOf("data/hello.txt", "data", "data/hello-link", "dev/null0"))
	})

	It("rotates volumes mid-entry and the reader reassembles transparently", func() {
		store, serr := local.New(dir, nil)
		Expect(serr).To(BeNil())

		w, werr := archive.New(store, archive.WriterOptions{
			VolumeBaseName:    "split",
			SpillThreshold:    1 << 20,
			VolumePartSize:    64 * 1024,
			CompressAlgorithm: compress.None,
		})
		Expect(werr).To(BeNil())

		content := bytes.Repeat([]byte("x"), 256*1024)
		Expect(w.AddFile("big.bin", attrs(), int64(len(content)), bytes.NewReader(content))).To(BeNil())

		names, cerr := w.Close()
		Expect(cerr).To(BeNil())
		Expect(len(names)).To(BeNumerically(">", 1))

		r := archive.Open(store, "split", archive.ReaderOptions{})
		defer func() { _ = r.Close() }()

		eh, ok, rerr := r.NextEntry()
		Expect(rerr).To(BeNil())
		Expect(ok).To(BeTrue())
		Expect(eh.Name).To(Equal("big.bin"))

		Expect(readAllEntry(r, eh)).To(Equal(content))

		_, more, rerr := r.NextEntry()
		Expect(rerr).To(BeNil())
		Expect(more).To(BeFalse())
	})

	It("round-trips a symmetrically encrypted volume", func() {
		store, serr := local.New(dir, nil)
		Expect(serr).To(BeNil())

		pass := crypt.NewPassphrase("correct horse battery staple")

		w, werr := archive.New(store, archive.WriterOptions{
			VolumeBaseName:    "secret",
			SpillThreshold:    1 << 20,
			CompressAlgorithm: compress.Deflate,
			CompressLevel:     3,
			Crypt: archive.CryptConfig{
				Algorithm:  crypt.AES256,
				Passphrase: pass,
			},
		})
		Expect(werr).To(BeNil())

		content := []byte("this is confidential backup content")
		Expect(w.AddFile("secret.txt", attrs(), int64(len(content)), bytes.NewReader(content))).To(BeNil())

		_, cerr := w.Close()
		Expect(cerr).To(BeNil())

		r := archive.Open(store, "secret", archive.ReaderOptions{
			Passphrases: []*crypt.Passphrase{crypt.NewPassphrase("correct horse battery staple")},
		})
		defer func() { _ = r.Close() }()

		eh, ok, rerr := r.NextEntry()
		Expect(rerr).To(BeNil())
		Expect(ok).To(BeTrue())
		Expect(readAllEntry(r, eh)).To(Equal(content))
	})

	It("reports io.EOF-free end of archive once all entries are drained", func() {
		store, serr := local.New(dir, nil)
		Expect(serr).To(BeNil())

		w, werr := archive.New(store, archive.WriterOptions{VolumeBaseName: "empty"})
		Expect(werr).To(BeNil())
		_, cerr := w.Close()
		Expect(cerr).To(BeNil())

		r := archive.Open(store, "empty", archive.ReaderOptions{})
		_, ok, rerr := r.NextEntry()
		Expect(rerr).To(BeNil())
		Expect(ok).To(BeFalse())
		Expect(r.Close()).To(BeNil())
	})
})

var _ = Describe("Writer validation", func() {
	It("rejects an empty volume base name", func() {
		store, serr := local.New(GinkgoT().TempDir(), nil)
		Expect(serr).To(BeNil())

		_, err := archive.New(store, archive.WriterOptions{})
		Expect(err).NotTo(BeNil())
	})
})

var _ = Describe("io reader contract", func() {
	It("returns an empty slice cleanly on Read", func() {
		var b bytes.Buffer
		n, err := b.Read(make([]byte, 8))
		Expect(n).To(Equal(0))
		Expect(err).To(Equal(io.EOF))
	})
})
