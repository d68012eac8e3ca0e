package transport

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrappedError(t *testing.T) {
	err := fmt.Errorf("list nodes: %w", &Error{Kind: KindServer, Method: "GET", Path: "/network/nodes", StatusCode: 500})
	if KindOf(err) != KindServer {
		t.Fatalf("expected server kind, got %s", KindOf(err))
	}
	if !errors.Is(err, ErrServer) || errors.Is(err, ErrForbidden) {
		t.Fatalf("marker matching broken for %v", err)
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatal("non-transport errors must report unknown")
	}
}

func TestKindStrings(t *testing.T) {
	want := map[Kind]string{
		KindUnknown:    "unknown",
		KindValidation: "validation",
		KindForbidden:  "forbidden",
		KindNotFound:   "not_found",
		KindServer:     "server",
	}
	for kind, label := range want {
		if kind.String() != label {
			t.Fatalf("kind %d: expected %q, got %q", kind, label, kind.String())
		}
	}
}
