package ftpstore

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestBarsysStorageFTP(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "FTP Storage Backend Suite")
}
