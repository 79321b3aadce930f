package sftpstore

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestBarsysStorageSFTP(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SFTP Storage Backend Suite")
}
