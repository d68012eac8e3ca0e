package main

import (
	"errors"
	"math/big"
	"net/http"
	"testing"

	"sdportal/internal/jsonbig"
	"sdportal/internal/testsupport"
	"sdportal/internal/transport"
)

func TestBalanceKeepsWideIntegers(t *testing.T) {
	env := setupCLITestEnv(t)
	env.relay.Handle(http.MethodGet, "/v1/application/wallet/balance", testsupport.Response{
		Raw: []byte(`{"data":{"address":"0xabc","balance":1000000000000000000000001}}`),
	})

	out, _, err := env.run(t, "balance")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	requireContains(t, out, "0xabc")
	requireContains(t, out, "1000000000000000000000001")

	out, _, err = env.run(t, "--json", "balance")
	if err != nil {
		t.Fatalf("balance --json: %v", err)
	}
	var decoded map[string]any
	if err := jsonbig.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	want, _ := new(big.Int).SetString("1000000000000000000000001", 10)
	if got, ok := decoded["balance"].(*big.Int); !ok || got.Cmp(want) != 0 {
		t.Fatalf("balance = %v, want %s", decoded["balance"], want)
	}
}

func TestForbiddenPrintsNotice(t *testing.T) {
	env := setupCLITestEnv(t)
	env.relay.Handle(http.MethodGet, "/v1/application/wallet/balance", testsupport.Response{
		Status: http.StatusForbidden,
		Raw:    []byte(`{}`),
	})

	_, stderr, err := env.run(t, "balance")
	if !errors.Is(err, transport.ErrForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	requireContains(t, stderr, "relay refused the request")
}

func TestServerErrorPrintsNotice(t *testing.T) {
	env := setupCLITestEnv(t)
	env.relay.Handle(http.MethodGet, "/v1/network/nodes", testsupport.Response{
		Status: http.StatusInternalServerError,
		Raw:    []byte(`oops`),
	})

	_, stderr, err := env.run(t, "nodes")
	if !errors.Is(err, transport.ErrServer) {
		t.Fatalf("expected server error, got %v", err)
	}
	requireContains(t, stderr, "internal error")
}

func TestModelsLoraFiltersByType(t *testing.T) {
	env := setupCLITestEnv(t)
	env.relay.Handle(http.MethodGet, "/v1/models/lora", testsupport.Response{
		Data: []map[string]any{
			{"id": "7", "name": "Ink Wash", "model": "ink-wash-xl", "model_type": "sd_xl"},
		},
	})

	out, _, err := env.run(t, "models", "lora", "--type", "sd_xl")
	if err != nil {
		t.Fatalf("models lora: %v", err)
	}
	requireContains(t, out, "Ink Wash")
	requests := env.relay.Requests()
	if len(requests) != 1 || requests[0].Query != "type=sd_xl" {
		t.Fatalf("unexpected requests %+v", requests)
	}

	if _, _, err := env.run(t, "models", "lora"); err != nil {
		t.Fatalf("models lora: %v", err)
	}
	requests = env.relay.Requests()
	if requests[1].Query != "" {
		t.Fatalf("unfiltered listing sent query %q", requests[1].Query)
	}
}

func TestModelsBaseJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	env.relay.Handle(http.MethodGet, "/v1/models/base", testsupport.Response{
		Data: []map[string]any{
			{"id": 1, "name": "stabilityai/sdxl-turbo", "model_type": "sd_xl_turbo", "default_steps": 1, "default_cfg": 0},
		},
	})

	out, _, err := env.run(t, "--json", "models", "base")
	if err != nil {
		t.Fatalf("models base: %v", err)
	}
	var decoded []any
	if err := jsonbig.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode models: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("unexpected models %v", decoded)
	}
	model, _ := decoded[0].(map[string]any)
	if model["name"] != "stabilityai/sdxl-turbo" {
		t.Fatalf("unexpected model %v", model)
	}
	if id, ok := model["id"].(*big.Int); !ok || id.Int64() != 1 {
		t.Fatalf("id = %v (%T)", model["id"], model["id"])
	}
}

func TestPosesListsBuiltinCatalog(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "poses")
	if err != nil {
		t.Fatalf("poses: %v", err)
	}
	requireContains(t, out, "standing")
	requireContains(t, out, "Standing")
}
