package job_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestBarsysJob(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Job Engine Suite")
}
