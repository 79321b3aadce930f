package gorm_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestBarsysIndexGorm(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Index Catalogue Gorm Store Suite")
}
