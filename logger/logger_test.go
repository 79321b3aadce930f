package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/barsys/logger"
)

var _ = Describe("structured logger", func() {
	It("writes JSON entries carrying the base fields and the message", func() {
		var buf bytes.Buffer
		l := logger.New(&buf, logger.Fields{"component": "job-engine"})

		l.Info("job started", logger.Fields{"uuid": "abc"})

		var decoded map[string]interface{}
		Expect(json.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
		Expect(decoded["msg"]).To(Equal("job started"))
		Expect(decoded["component"]).To(Equal("job-engine"))
		Expect(decoded["uuid"]).To(Equal("abc"))
	})

	It("filters out entries below the configured level", func() {
		var buf bytes.Buffer
		l := logger.New(&buf, nil)
		l.SetLevel(logger.WarnLevel)

		l.Info("should not appear", nil)
		Expect(buf.Len()).To(Equal(0))

		l.Warning("should appear", nil)
		Expect(buf.Len()).ToNot(Equal(0))
	})

	It("CheckError logs the failure path and reports false on a non-nil error", func() {
		var buf bytes.Buffer
		l := logger.New(&buf, nil)

		ok := l.CheckError(logger.ErrorLevel, logger.InfoLevel, "operation", errors.New("boom"), nil)
		Expect(ok).To(BeFalse())

		var decoded map[string]interface{}
		Expect(json.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
		Expect(decoded["error"]).To(Equal("boom"))
	})

	It("CheckError logs the success path and reports true on a nil error", func() {
		var buf bytes.Buffer
		l := logger.New(&buf, nil)

		ok := l.CheckError(logger.ErrorLevel, logger.InfoLevel, "operation", nil, nil)
		Expect(ok).To(BeTrue())
		Expect(buf.Len()).ToNot(Equal(0))
	})
})
