package archive_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestBarsysArchive(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Archive Format Suite")
}
