package archive_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/barsys/archive"
	"github.com/sabouaram/barsys/storage/local"
)

var _ = Describe("Entry metadata round trip", func() {
	var dir string

	BeforeEach(func() {
		d, err := os.MkdirTemp("", "barsys-archive-meta-*")
		Expect(err).To(BeNil())
		dir = d
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	It("preserves every attribute of a metadata-only entry", func() {
		store, serr := local.New(dir, nil)
		Expect(serr).To(BeNil())

		w, werr := archive.New(store, archive.WriterOptions{VolumeBaseName: "meta"})
		Expect(werr).To(BeNil())

		a := archive.EntryAttrs{
			UID:   42,
			GID:   7,
			Mode:  0660,
			Mtime: time.Unix(1690000000, 123000000).UTC(),
			Atime: time.Unix(1690003600, 0).UTC(),
			Ctime: time.Unix(1690007200, 0).UTC(),
		}
		Expect(w.AddSpecial("dev/tty0", 4, 64, a)).To(BeNil())
		Expect(w.AddDirectory("bäckup/données-2026", a)).To(BeNil())

		_, cerr := w.Close()
		Expect(cerr).To(BeNil())

		r := archive.Open(store, "meta", archive.ReaderOptions{})
		defer func() { _ = r.Close() }()

		eh, ok, rerr := r.NextEntry()
		Expect(rerr).To(BeNil())
		Expect(ok).To(BeTrue())
		Expect(eh.Name).To(Equal("dev/tty0"))
		Expect(eh.Major).To(Equal(uint32(4)))
		Expect(eh.Minor).To(Equal(uint32(64)))
		Expect(eh.UID).To(Equal(uint32(42)))
		Expect(eh.GID).To(Equal(uint32(7)))
		Expect(eh.Mode).To(Equal(uint32(0660)))
		Expect(eh.Mtime.UnixNano()).To(Equal(a.Mtime.UnixNano()))

		eh2, ok2, rerr2 := r.NextEntry()
		Expect(rerr2).To(BeNil())
		Expect(ok2).To(BeTrue())
		Expect(eh2.Name).To(Equal("bäckup/données-2026"))
		Expect(eh2.FSType).To(Equal(""))
		Expect(eh2.LinkTarget).To(Equal(""))
	})

	It("records a symlink's target", func() {
		store, serr := local.New(dir, nil)
		Expect(serr).To(BeNil())

		w, werr := archive.New(store, archive.WriterOptions{VolumeBaseName: "meta2"})
		Expect(werr).To(BeNil())

		a := archive.EntryAttrs{Mode: 0777}
		Expect(w.AddLink("shortcut", "/real/target", a)).To(BeNil())

		_, cerr := w.Close()
		Expect(cerr).To(BeNil())

		r := archive.Open(store, "meta2", archive.ReaderOptions{})
		defer func() { _ = r.Close() }()

		eh, ok, rerr := r.NextEntry()
		Expect(rerr).To(BeNil())
		Expect(ok).To(BeTrue())
		Expect(eh.LinkTarget).To(Equal("/real/target"))
	})
})
