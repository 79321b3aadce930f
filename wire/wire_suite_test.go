package wire_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestBarsysWire(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Wire Protocol Suite")
}
