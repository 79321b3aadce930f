package chunk_test

import (
	"bytes"
	"io"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/barsys/chunk"
)

var _ = Describe("write and iterate chunks", func() {
	It("round-trips a single chunk through the buffered (non-seekable) path", func() {
		var buf bytes.Buffer

		e := chunk.WriteChunk(&buf, chunk.NewID("DATA"), 0, func(w io.Writer) error {
			_, err := w.Write([]byte("hello world"))
			return err
		})
		Expect(e).To(BeNil())

		it := chunk.IterChunks(&buf)
		c, ok, e := it.Next()
		Expect(e).To(BeNil())
		Expect(ok).To(BeTrue())
		Expect(c.ID.String()).To(Equal("DATA"))
		Expect(c.Size).To(Equal(uint64(11)))

		body, err := io.ReadAll(c.Reader)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(body)).To(Equal("hello world"))

		_, ok, e = it.Next()
		Expect(e).To(BeNil())
		Expect(ok).To(BeFalse())
	})

	It("round-trips a single chunk through the seekable (file) path", func() {
		f, err := os.CreateTemp(os.TempDir(), "chunk-seek-*")
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}()

		e := chunk.WriteChunk(f, chunk.NewID("BAR0"), 0, func(w io.Writer) error {
			_, err := w.Write(bytes.Repeat([]byte("x"), 4096))
			return err
		})
		Expect(e).To(BeNil())

		_, err = f.Seek(0, io.SeekStart)
		Expect(err).ToNot(HaveOccurred())

		it := chunk.IterChunks(f)
		c, ok, e := it.Next()
		Expect(e).To(BeNil())
		Expect(ok).To(BeTrue())
		Expect(c.ID.String()).To(Equal("BAR0"))
		Expect(c.Size).To(Equal(uint64(4096)))
	})

	It("skips an unrecognized id by its declared length without error", func() {
		var buf bytes.Buffer

		_ = chunk.WriteChunk(&buf, chunk.NewID("ZZZZ"), 0, func(w io.Writer) error {
			_, err := w.Write([]byte("ignored payload"))
			return err
		})
		_ = chunk.WriteChunk(&buf, chunk.NewID("FILE"), 0, func(w io.Writer) error {
			_, err := w.Write([]byte("kept"))
			return err
		})

		it := chunk.IterChunks(&buf)

		c1, ok, e := it.Next()
		Expect(e).To(BeNil())
		Expect(ok).To(BeTrue())
		Expect(c1.ID.String()).To(Equal("ZZZZ"))

		c2, ok, e := it.Next()
		Expect(e).To(BeNil())
		Expect(ok).To(BeTrue())
		Expect(c2.ID.String()).To(Equal("FILE"))

		body, err := io.ReadAll(c2.Reader)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(body)).To(Equal("kept"))
	})

	It("reports MalformedChunk when a nested chunk's size exceeds its parent's remaining bytes", func() {
		var inner bytes.Buffer
		_ = chunk.WriteChunk(&inner, chunk.NewID("SUB0"), 0, func(w io.Writer) error {
			_, err := w.Write([]byte("0123456789"))
			return err
		})

		// bound smaller than the inner chunk's declared total size
		it := chunk.IterChunksBounded(&inner, 5)
		_, _, e := it.Next()
		Expect(e).ToNot(BeNil())
		Expect(e.IsCode(chunk.ErrorMalformedChunk)).To(BeTrue())
	})

	It("reports UnexpectedEOF when fewer bytes than the header are available", func() {
		short := bytes.NewReader([]byte{0x01, 0x02, 0x03})

		it := chunk.IterChunks(short)
		_, _, e := it.Next()
		Expect(e).ToNot(BeNil())
		Expect(e.IsCode(chunk.ErrorUnexpectedEOF)).To(BeTrue())
	})

	It("spills a buffered payload past the threshold to a temporary file transparently", func() {
		var buf bytes.Buffer
		payload := bytes.Repeat([]byte("y"), 1024)

		e := chunk.WriteChunk(&buf, chunk.NewID("BIG0"), 256, func(w io.Writer) error {
			_, err := w.Write(payload)
			return err
		})
		Expect(e).To(BeNil())

		it := chunk.IterChunks(&buf)
		c, ok, e := it.Next()
		Expect(e).To(BeNil())
		Expect(ok).To(BeTrue())
		Expect(c.Size).To(Equal(uint64(len(payload))))

		body, err := io.ReadAll(c.Reader)
		Expect(err).ToNot(HaveOccurred())
		Expect(body).To(Equal(payload))
	})
})
