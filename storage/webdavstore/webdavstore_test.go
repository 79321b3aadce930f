package webdavstore_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/barsys/storage"
	_ "github.com/sabouaram/barsys/storage/webdavstore"
)

// newDAVServer is a minimal single-level WebDAV server backed by an
// in-memory map, just enough to exercise PUT/GET/HEAD/DELETE/PROPFIND
// against this package's client.
func newDAVServer() *httptest.Server {
	var mu sync.Mutex
	files := map[string][]byte{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			files[r.URL.Path] = body
			w.WriteHeader(http.StatusCreated)

		case http.MethodGet:
			body, ok := files[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write(body)

		case http.MethodHead:
			if _, ok := files[r.URL.Path]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)

		case http.MethodDelete:
			delete(files, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)

		case "PROPFIND":
			var sb strings.Builder
			sb.WriteString(`<?xml version="1.0"?><multistatus xmlns="DAV:">`)
			for path, body := range files {
				if !strings.HasPrefix(path, r.URL.Path) {
					continue
				}
				fmt.Fprintf(&sb, `<response><href>%s</href><propstat><prop>`+
					`<displayname>%s</displayname><getcontentlength>%d</getcontentlength>`+
					`</prop><status>HTTP/1.1 200 OK</status></propstat></response>`,
					path, path[strings.LastIndex(path, "/")+1:], len(body))
			}
			sb.WriteString(`</multistatus>`)

			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusMultiStatus)
			_, _ = w.Write([]byte(sb.String()))

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
}

var _ = Describe("webdav backend", func() {
	var (
		srv  *httptest.Server
		host string
	)

	BeforeEach(func() {
		srv = newDAVServer()
		host = strings.TrimPrefix(srv.URL, "http://")
	})

	AfterEach(func() {
		srv.Close()
	})

	It("writes and reads back a file", func() {
		s, e := storage.Open("webdav://"+host, nil)
		Expect(e).To(BeNil())
		defer func() { _ = s.Close() }()

		w, e := s.Create("fragment.bar", 0, storage.PriorityHigh)
		Expect(e).To(BeNil())
		_, err := w.Write([]byte("payload"))
		Expect(err).ToNot(HaveOccurred())
		Expect(w.Close()).ToNot(HaveOccurred())

		r, e := s.Open("fragment.bar", storage.PriorityLow)
		Expect(e).To(BeNil())
		defer func() { _ = r.Close() }()

		body, err := io.ReadAll(r)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(body)).To(Equal("payload"))
	})

	It("reports Exists accurately before and after a delete", func() {
		s, e := storage.Open("webdav://"+host, nil)
		Expect(e).To(BeNil())
		defer func() { _ = s.Close() }()

		ok, e := s.Exists("missing.bar")
		Expect(e).To(BeNil())
		Expect(ok).To(BeFalse())

		w, e := s.Create("present.bar", 0, storage.PriorityLow)
		Expect(e).To(BeNil())
		Expect(w.Close()).ToNot(HaveOccurred())

		ok, e = s.Exists("present.bar")
		Expect(e).To(BeNil())
		Expect(ok).To(BeTrue())

		Expect(s.Delete("present.bar")).To(BeNil())

		ok, e = s.Exists("present.bar")
		Expect(e).To(BeNil())
		Expect(ok).To(BeFalse())
	})

	It("fails Open on a missing name with the shared not-found code", func() {
		s, e := storage.Open("webdav://"+host, nil)
		Expect(e).To(BeNil())
		defer func() { _ = s.Close() }()

		_, e = s.Open("missing.bar", storage.PriorityLow)
		Expect(e).ToNot(BeNil())
		Expect(e.IsCode(storage.ErrorNotFound)).To(BeTrue())
	})

	It("lists directory entries discovered via PROPFIND", func() {
		s, e := storage.Open("webdav://"+host, nil)
		Expect(e).To(BeNil())
		defer func() { _ = s.Close() }()

		for _, name := range []string{"a.bar", "b.bar"} {
			w, e := s.Create(name, 0, storage.PriorityLow)
			Expect(e).To(BeNil())
			Expect(w.Close()).ToNot(HaveOccurred())
		}

		it, e := s.ListDirectory(".")
		Expect(e).To(BeNil())

		var names []string
		for {
			entry, ok, e := it.Next()
			Expect(e).To(BeNil())
			if !ok {
				break
			}
			names = append(names, entry.Name)
		}
		Expect(names).To(ConsistOf("a.bar", "b.bar"))
	})
})
