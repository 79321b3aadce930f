package wire

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("frame codec", func() {
	It("round-trips a request with escaped parameter values", func() {
		req := Request{ID: 42, Command: "JOB_OPTION_SET", Params: map[string]string{
			"key": "compress", "value": "hello world & co",
		}}

		line := strings.TrimSuffix(encodeRequest(req), "\n")
		decoded, err := decodeRequest(line)
		Expect(err).To(BeNil())
		Expect(decoded.ID).To(Equal(uint64(42)))
		Expect(decoded.Command).To(Equal("JOB_OPTION_SET"))
		Expect(decoded.Params["key"]).To(Equal("compress"))
		Expect(decoded.Params["value"]).To(Equal("hello world & co"))
	})

	It("round-trips a completed response", func() {
		resp := Response{ID: 7, Completed: true, ErrorCode: 0, Params: map[string]string{"state": "done"}}

		line := strings.TrimSuffix(encodeResponse(resp), "\n")
		decoded, err := decodeResponse(line)
		Expect(err).To(BeNil())
		Expect(decoded).To(Equal(resp))
	})

	It("round-trips a non-completed progress response", func() {
		resp := Response{ID: 7, Completed: false, ErrorCode: 0, Params: map[string]string{"progress": "50"}}

		line := strings.TrimSuffix(encodeResponse(resp), "\n")
		decoded, err := decodeResponse(line)
		Expect(err).To(BeNil())
		Expect(decoded.Completed).To(BeFalse())
	})

	It("distinguishes a request line from a response line", func() {
		Expect(looksLikeResponse(strings.Fields("7 1 0 state=done"))).To(BeTrue())
		Expect(looksLikeResponse(strings.Fields("7 JOB_STATUS id=3"))).To(BeFalse())
	})

	It("rejects a frame with no command/completed field", func() {
		_, err := decodeRequest("42")
		Expect(err).NotTo(BeNil())

		_, rerr := decodeResponse("42 1")
		Expect(rerr).NotTo(BeNil())
	})

	It("rejects a parameter with no '=' separator", func() {
		_, err := decodeRequest("1 PING garbage")
		Expect(err).NotTo(BeNil())
	})
})
