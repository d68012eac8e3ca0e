package testsupport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"sdportal/internal/jsonbig"
	"sdportal/internal/transport"
)

// Response describes a canned relay reply. A zero Status means 200. Raw, when
// set, is written verbatim instead of the {"data": Data} envelope.
type Response struct {
	Status      int
	Data        any
	Raw         []byte
	ContentType string
}

// RecordedRequest captures a request seen by an EnvelopeServer.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

// EnvelopeServer is an httptest relay that answers registered routes with
// enveloped JSON and 404 for everything else.
type EnvelopeServer struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string][]Response
	requests []RecordedRequest
}

// NewEnvelopeServer starts a server that is closed when the test ends.
func NewEnvelopeServer(t testing.TB) *EnvelopeServer {
	t.Helper()

	s := &EnvelopeServer{routes: make(map[string][]Response)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle registers responses for method and path (including the /v1 prefix).
// Multiple responses are served in order; the last one repeats.
func (s *EnvelopeServer) Handle(method, path string, responses ...Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[method+" "+path] = responses
}

// Requests returns the requests received so far.
func (s *EnvelopeServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// Client returns a transport client bound to the server.
func (s *EnvelopeServer) Client(t testing.TB, opts ...transport.Option) *transport.Client {
	t.Helper()

	client, err := transport.New(s.URL, opts...)
	if err != nil {
		t.Fatalf("transport client: %v", err)
	}
	return client
}

func (s *EnvelopeServer) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   body,
	})
	key := r.Method + " " + r.URL.Path
	queue := s.routes[key]
	var resp Response
	found := len(queue) > 0
	if found {
		resp = queue[0]
		if len(queue) > 1 {
			s.routes[key] = queue[1:]
		}
	}
	s.mu.Unlock()

	if !found {
		http.NotFound(w, r)
		return
	}

	payload := resp.Raw
	if payload == nil {
		encoded, err := jsonbig.Marshal(map[string]any{"data": resp.Data})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		payload = encoded
	}
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
