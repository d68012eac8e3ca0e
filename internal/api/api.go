package api

import (
	"context"
	"net/url"

	"sdportal/internal/transport"
)

// Requester issues envelope-unwrapping JSON requests against the /v1 root.
type Requester interface {
	Get(ctx context.Context, path string, out any, opts ...transport.RequestOption) error
	Post(ctx context.Context, path string, body any, out any, opts ...transport.RequestOption) error
	URL(path string) string
}

// ImageEncoder converts a URL into a data URL.
type ImageEncoder interface {
	Encode(ctx context.Context, url string) (string, error)
}

// API bundles the endpoint bindings around one Requester.
type API struct {
	Application *Application
	Models      *Models
	Network     *Network
	Inference   *Inference
}

// New wires every binding to client. encoder serves Inference.Image.
func New(client Requester, encoder ImageEncoder) *API {
	return &API{
		Application: &Application{client: client},
		Models:      &Models{client: client},
		Network:     &Network{client: client},
		Inference:   &Inference{client: client, encoder: encoder},
	}
}

// Application exposes application-level endpoints.
type Application struct {
	client Requester
}

// WalletBalance fetches the application wallet balance.
func (a *Application) WalletBalance(ctx context.Context) (*WalletBalance, error) {
	var out WalletBalance
	if err := a.client.Get(ctx, "/application/wallet/balance", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Models exposes the model catalogs.
type Models struct {
	client Requester
}

// BaseModels lists base models.
func (m *Models) BaseModels(ctx context.Context) ([]BaseModel, error) {
	var out []BaseModel
	if err := m.client.Get(ctx, "/models/base", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoraModels lists LoRA models, filtered by base model type when modelType is
// non-empty.
func (m *Models) LoraModels(ctx context.Context, modelType string) ([]LoraModel, error) {
	var opts []transport.RequestOption
	if modelType != "" {
		opts = append(opts, transport.WithQuery(url.Values{"type": {modelType}}))
	}
	var out []LoraModel
	if err := m.client.Get(ctx, "/models/lora", &out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Network exposes network statistics.
type Network struct {
	client Requester
}

// NodeStats lists compute node statistics.
func (n *Network) NodeStats(ctx context.Context) ([]NodeStats, error) {
	var out []NodeStats
	if err := n.client.Get(ctx, "/network/nodes", &out); err != nil {
		return nil, err
	}
	return out, nil
}
