package local_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestBarsysStorageLocal(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Local Storage Backend Suite")
}
