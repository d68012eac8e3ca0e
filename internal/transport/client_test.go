package transport_test

import (
	"context"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"sdportal/internal/jsonbig"
	"sdportal/internal/transport"
)

func newClient(t *testing.T, handler http.HandlerFunc, opts ...transport.Option) *transport.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := transport.New(srv.URL+"/", opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewComposesVersionedBase(t *testing.T) {
	client, err := transport.New("https://relay.example.com/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.BaseURL() != "https://relay.example.com" {
		t.Fatalf("unexpected base url %q", client.BaseURL())
	}
	if client.APIBaseURL() != "https://relay.example.com/v1" {
		t.Fatalf("unexpected api base url %q", client.APIBaseURL())
	}
	if client.Timeout() != transport.DefaultTimeout {
		t.Fatalf("expected default timeout, got %s", client.Timeout())
	}
	if _, err := transport.New("ftp://relay.example.com"); err == nil {
		t.Fatal("expected unsupported scheme to fail")
	}
	if _, err := transport.New("  "); err == nil {
		t.Fatal("expected empty base url to fail")
	}
}

func TestGetUnwrapsEnvelope(t *testing.T) {
	var gotPath, gotQuery, gotRequestID, gotClient string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotClient = r.Header.Get("X-Client")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":{"name":"demo","id":123456789012345678901234567890}}`)
	})

	var out struct {
		Name string      `json:"name"`
		ID   jsonbig.Int `json:"id"`
	}
	err := client.Get(context.Background(), "/models/lora", &out,
		transport.WithQuery(url.Values{"type": {"sd_xl"}}),
		transport.WithHeader("X-Client", "sdportal-test"),
	)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotPath != "/v1/models/lora" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotQuery != "type=sd_xl" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if gotRequestID == "" {
		t.Fatal("expected request id header")
	}
	if gotClient != "sdportal-test" {
		t.Fatalf("custom header = %q", gotClient)
	}
	if out.Name != "demo" || out.ID.String() != "123456789012345678901234567890" {
		t.Fatalf("unexpected payload %+v", out)
	}
}

func TestPostEncodesBigIntegersExactly(t *testing.T) {
	var body string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		_, _ = io.WriteString(w, `{"data":null}`)
	})

	n, _ := new(big.Int).SetString("18446744073709551617", 10)
	payload := map[string]any{"id": n}
	if err := client.Post(context.Background(), "/inference_tasks", payload, nil); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if body != `{"id":18446744073709551617}` {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestEmptySuccessBodyResolves(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	var out map[string]any
	if err := client.Delete(context.Background(), "/inference_tasks/a/b", &out); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if out != nil {
		t.Fatalf("expected empty payload, got %v", out)
	}
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		kind      transport.Kind
		marker    error
		forbidden int32
		server    int32
	}{
		{status: http.StatusBadRequest, kind: transport.KindValidation, marker: transport.ErrValidation},
		{status: http.StatusForbidden, kind: transport.KindForbidden, marker: transport.ErrForbidden, forbidden: 1},
		{status: http.StatusNotFound, kind: transport.KindNotFound, marker: transport.ErrNotFound},
		{status: http.StatusInternalServerError, kind: transport.KindServer, marker: transport.ErrServer, server: 1},
		{status: http.StatusCreated, kind: transport.KindUnknown, marker: transport.ErrUnknown},
		{status: http.StatusNoContent, kind: transport.KindUnknown, marker: transport.ErrUnknown},
		{status: http.StatusUnauthorized, kind: transport.KindUnknown, marker: transport.ErrUnknown},
		{status: http.StatusBadGateway, kind: transport.KindUnknown, marker: transport.ErrUnknown},
		{status: http.StatusServiceUnavailable, kind: transport.KindUnknown, marker: transport.ErrUnknown},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			var forbidden, server int32
			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, `{"message":"nope"}`)
			})
			client.RegisterForbiddenHandler(func() { atomic.AddInt32(&forbidden, 1) })
			client.RegisterServerErrorHandler(func() { atomic.AddInt32(&server, 1) })

			err := client.Get(context.Background(), "/network/nodes", nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := transport.KindOf(err); got != tc.kind {
				t.Fatalf("expected kind %s, got %s", tc.kind, got)
			}
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected errors.Is(%v), got %v", tc.marker, err)
			}
			var apiErr *transport.Error
			if !errors.As(err, &apiErr) || apiErr.StatusCode != tc.status {
				t.Fatalf("expected status %d on error, got %v", tc.status, err)
			}
			if forbidden != tc.forbidden || server != tc.server {
				t.Fatalf("hook counts forbidden=%d server=%d", forbidden, server)
			}
		})
	}
}

func TestValidationCarriesServerDetail(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"message":"invalid","data":{"task_args":["bad seed"]},"code":9007199254740993}`)
	})
	err := client.Post(context.Background(), "/inference_tasks", map[string]string{}, nil)
	var apiErr *transport.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *transport.Error, got %v", err)
	}
	detail, ok := apiErr.Detail.(map[string]any)
	if !ok {
		t.Fatalf("expected object detail, got %T", apiErr.Detail)
	}
	if detail["message"] != "invalid" {
		t.Fatalf("unexpected detail %v", detail)
	}
	code, ok := detail["code"].(*big.Int)
	if !ok || code.String() != "9007199254740993" {
		t.Fatalf("expected exact big integer code, got %v", detail["code"])
	}
}

func TestMalformedEnvelopeIsUnknown(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>oops</html>`)
	})
	err := client.Get(context.Background(), "/models/base", nil)
	if transport.KindOf(err) != transport.KindUnknown || !errors.Is(err, transport.ErrUnknown) {
		t.Fatalf("expected unknown error, got %v", err)
	}
}

func TestNoResponseIsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	var server int32
	client, err := transport.New(base, transport.WithServerErrorHandler(func() { atomic.AddInt32(&server, 1) }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = client.Get(context.Background(), "/network/nodes", nil)
	var apiErr *transport.Error
	if !errors.As(err, &apiErr) || apiErr.Kind != transport.KindUnknown || apiErr.StatusCode != 0 {
		t.Fatalf("expected unknown error without status, got %v", err)
	}
	if server != 0 {
		t.Fatalf("server hook should not fire without a response")
	}
}

func TestTimeoutIsUnknown(t *testing.T) {
	release := make(chan struct{})
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, transport.WithTimeout(50*time.Millisecond))
	defer close(release)

	err := client.Get(context.Background(), "/network/nodes", nil)
	if transport.KindOf(err) != transport.KindUnknown {
		t.Fatalf("expected unknown error on timeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded in chain, got %v", err)
	}
}

func TestLastRegisteredHandlerWins(t *testing.T) {
	var first, second int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}, transport.WithForbiddenHandler(func() { atomic.AddInt32(&first, 1) }))
	client.RegisterForbiddenHandler(func() { atomic.AddInt32(&second, 1) })

	_ = client.Get(context.Background(), "/application/wallet/balance", nil)
	if first != 0 || second != 1 {
		t.Fatalf("expected only the last handler to run, got first=%d second=%d", first, second)
	}

	client.RegisterForbiddenHandler(nil)
	_ = client.Get(context.Background(), "/application/wallet/balance", nil)
	if second != 1 {
		t.Fatalf("cleared handler should not run, got %d", second)
	}
}

func TestErrorMessageNamesRequest(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	err := client.Get(context.Background(), "/inference_tasks/c/t", nil)
	if err == nil || !strings.Contains(err.Error(), "GET /inference_tasks/c/t") || !strings.Contains(err.Error(), "404") {
		t.Fatalf("unexpected error text %v", err)
	}
}
