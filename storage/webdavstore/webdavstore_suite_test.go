package webdavstore_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestBarsysStorageWebDAV(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "WebDAV Storage Backend Suite")
}
