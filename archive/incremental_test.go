package archive_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/barsys/archive"
)

var _ = Describe("Incremental list codec", func() {
	It("round-trips a populated list through WriteIncrementalList/ReadIncrementalList", func() {
		list := archive.IncrementalList{
			"data/a.txt": {Name: "data/a.txt", Size: 1024, MtimeNS: 1690000000000000000, HeadHash: [32]byte{1, 2, 3}},
			"data/b.txt": {Name: "data/b.txt", Size: 2048, MtimeNS: 1690000100000000000, HeadHash: [32]byte{4, 5, 6}},
		}

		var buf bytes.Buffer
		Expect(archive.WriteIncrementalList(&buf, list)).To(BeNil())

		got, err := archive.ReadIncrementalList(&buf)
		Expect(err).To(BeNil())
		Expect(got).To(HaveLen(2))
		Expect(got["data/a.txt"]).To(Equal(list["data/a.txt"]))
		Expect(got["data/b.txt"]).To(Equal(list["data/b.txt"]))
	})

	It("round-trips an empty list", func() {
		var buf bytes.Buffer
		Expect(archive.WriteIncrementalList(&buf, archive.IncrementalList{})).To(BeNil())

		got, err := archive.ReadIncrementalList(&buf)
		Expect(err).To(BeNil())
		Expect(got).To(BeEmpty())
	})

	It("rejects a stream with a bad magic", func() {
		_, err := archive.ReadIncrementalList(bytes.NewReader([]byte("XXXX\x01\x00")))
		Expect(err).NotTo(BeNil())
	})

	DescribeTable("Changed detects new, matching and diverging candidates",
		func(list archive.IncrementalList, cand archive.IncrementalRecord, want bool) {
			Expect(list.Changed(cand)).To(Equal(want))
		},
		Entry("unknown name is always changed",
			archive.IncrementalList{}, archive.IncrementalRecord{Name: "new.txt"}, true),
		Entry("identical record is unchanged",
			archive.IncrementalList{"f": {Name: "f", Size: 10, MtimeNS: 5, HeadHash: [32]byte{9}}},
			archive.IncrementalRecord{Name: "f", Size: 10, MtimeNS: 5, HeadHash: [32]byte{9}},
			false),
		Entry("size mismatch is changed",
			archive.IncrementalList{"f": {Name: "f", Size: 10, MtimeNS: 5, HeadHash: [32]byte{9}}},
			archive.IncrementalRecord{Name: "f", Size: 11, MtimeNS: 5, HeadHash: [32]byte{9}},
			true),
		Entry("mtime mismatch is changed",
			archive.IncrementalList{"f": {Name: "f", Size: 10, MtimeNS: 5, HeadHash: [32]byte{9}}},
			archive.IncrementalRecord{Name: "f", Size: 10, MtimeNS: 6, HeadHash: [32]byte{9}},
			true),
		Entry("hash mismatch is changed",
			archive.IncrementalList{"f": {Name: "f", Size: 10, MtimeNS: 5, HeadHash: [32]byte{9}}},
			archive.IncrementalRecord{Name: "f", Size: 10, MtimeNS: 5, HeadHash: [32]byte{1}},
			true),
	)
})
