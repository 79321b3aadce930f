package sftpstore

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("sftp backend helpers", func() {
	Describe("shellQuote", func() {
		It("wraps a plain path in single quotes", func() {
			Expect(shellQuote("/backups/fragment.bar")).To(Equal("'/backups/fragment.bar'"))
		})

		It("escapes an embedded single quote", func() {
			Expect(shellQuote("it's.bar")).To(Equal(`'it'\''s.bar'`))
		})
	})

	Describe("isMissing", func() {
		It("recognizes the sftp client's not-found wording", func() {
			Expect(isMissing("File \"/x\" not found")).To(BeTrue())
			Expect(isMissing("Can't stat remote file: No such file or directory")).To(BeTrue())
		})

		It("does not flag unrelated output", func() {
			Expect(isMissing("-rw-r--r--   1 u g  123 Jan 01 00:00 fragment.bar")).To(BeFalse())
		})
	})

	Describe("parseLsOutput", func() {
		It("extracts name, size and directory flag from an ls -l listing", func() {
			out := "-rw-r--r--    1 user group      123 Jan 01 00:00 fragment.bar\n" +
				"drwxr-xr-x    2 user group     4096 Jan 02 00:00 subdir\n"

			entries := parseLsOutput(out)
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Name).To(Equal("fragment.bar"))
			Expect(entries[0].Size).To(Equal(int64(123)))
			Expect(entries[0].IsDir).To(BeFalse())
			Expect(entries[1].Name).To(Equal("subdir"))
			Expect(entries[1].IsDir).To(BeTrue())
		})

		It("skips blank lines and sftp prompt echoes", func() {
			out := "\nsftp> ls -l /backups\n-rw-r--r--    1 user group       10 Jan 01 00:00 a.bar\n"
			entries := parseLsOutput(out)
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Name).To(Equal("a.bar"))
		})
	})

	Describe("backend.path", func() {
		It("joins root and name under a single leading slash", func() {
			b := &backend{root: "/backups"}
			Expect(b.path("fragment.bar")).To(Equal("/backups/fragment.bar"))
		})
	})
})
