package compress_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestBarsysCompress(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Compress Pipeline Suite")
}
