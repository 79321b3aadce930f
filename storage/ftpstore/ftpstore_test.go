package ftpstore

import (
	"errors"
	"net/textproto"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ftp backend helpers", func() {
	Describe("path", func() {
		It("joins the configured root with a relative name", func() {
			b := &backend{root: "/backups"}
			Expect(b.path("fragment.bar")).To(Equal("/backups/fragment.bar"))
		})

		It("roots the name at / when the root is empty", func() {
			b := &backend{root: ""}
			Expect(b.path("fragment.bar")).To(Equal("/fragment.bar"))
		})

		It("collapses duplicate slashes between root and name", func() {
			b := &backend{root: "/backups/"}
			Expect(b.path("/fragment.bar")).To(Equal("/backups/fragment.bar"))
		})
	})

	Describe("isNotFound", func() {
		It("recognizes a 550 FTP reply as not-found", func() {
			err := &textproto.Error{Code: 550, Msg: "No such file or directory"}
			Expect(isNotFound(err)).To(BeTrue())
		})

		It("does not treat other FTP reply codes as not-found", func() {
			err := &textproto.Error{Code: 530, Msg: "Not logged in"}
			Expect(isNotFound(err)).To(BeFalse())
		})

		It("does not treat a plain error as not-found", func() {
			Expect(isNotFound(errors.New("connection reset"))).To(BeFalse())
		})
	})
})
