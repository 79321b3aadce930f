package compress_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/barsys/compress"
)

func roundTrip(algo compress.Algorithm, level int, payload []byte) []byte {
	c, e := compress.NewCompressor(algo, level)
	Expect(e).To(BeNil())
	Expect(c.Push(payload)).To(BeNil())
	packed, e := c.Finish()
	Expect(e).To(BeNil())

	d, e := compress.NewDecompressor(algo)
	Expect(e).To(BeNil())
	Expect(d.Push(packed)).To(BeNil())
	unpacked, e := d.Finish()
	Expect(e).To(BeNil())

	return unpacked
}

var _ = Describe("byte compression stage", func() {
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)

	It("round-trips through None unchanged", func() {
		Expect(roundTrip(compress.None, 0, payload)).To(Equal(payload))
	})

	It("round-trips through Deflate", func() {
		Expect(roundTrip(compress.Deflate, 6, payload)).To(Equal(payload))
	})

	It("round-trips through Bzip2", func() {
		Expect(roundTrip(compress.Bzip2, 6, payload)).To(Equal(payload))
	})

	It("round-trips through LZMA", func() {
		Expect(roundTrip(compress.LZMA, 6, payload)).To(Equal(payload))
	})

	It("rejects a level beyond the algorithm's max", func() {
		_, e := compress.NewCompressor(compress.Deflate, 99)
		Expect(e).ToNot(BeNil())
		Expect(e.IsCode(compress.ErrorInvalidLevel)).To(BeTrue())
	})

	It("refuses to accept more input after Finish", func() {
		c, _ := compress.NewCompressor(compress.None, 0)
		_, _ = c.Finish()
		e := c.Push([]byte("too late"))
		Expect(e).ToNot(BeNil())
		Expect(e.IsCode(compress.ErrorAlreadyFinished)).To(BeTrue())
	})
})

var _ = Describe("delta stage", func() {
	It("reconstructs target from source plus delta when most content matches", func() {
		source := bytes.Repeat([]byte("ABCDEFGH"), 100)
		target := append(append([]byte{}, source...), []byte("trailing new bytes not in source")...)

		d := compress.Delta(source, target)
		out, e := compress.DeltaPatch(source, d)
		Expect(e).To(BeNil())
		Expect(out).To(Equal(target))
	})

	It("reconstructs target from source plus delta when nothing matches", func() {
		source := []byte("source content")
		target := []byte("completely different target bytes")

		d := compress.Delta(source, target)
		out, e := compress.DeltaPatch(source, d)
		Expect(e).To(BeNil())
		Expect(out).To(Equal(target))
	})

	It("reports corruption on a truncated delta stream", func() {
		_, e := compress.DeltaPatch([]byte("src"), []byte{0x00})
		Expect(e).ToNot(BeNil())
	})
})
