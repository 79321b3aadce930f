package optical_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestBarsysStorageOptical(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Optical Storage Backend Suite")
}
