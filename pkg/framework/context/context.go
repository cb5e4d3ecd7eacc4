/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package context creates a framework Provider context holding the services shared by the connection clients
// and provides simple accessor methods to those same services.
package context

import (
	"fmt"

	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/hyperledger/aries-vcx-go/pkg/agency"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/legacyconnection"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/thread"
	connectionstore "github.com/hyperledger/aries-vcx-go/pkg/store/connection"
)

// Provider supplies the framework configuration to client objects.
type Provider struct {
	storeProvider      storage.Provider
	keyManager         legacyconnection.KeyManager
	packager           transport.Packager
	relay              agency.Client
	outboundDispatcher dispatcher.Outbound
	registry           *connectionstore.Registry
	label              string
	serviceEndpoint    string
	routingKeys        []string
	orderingPolicy     thread.Policy
}

// ProviderOption configures the framework.
type ProviderOption func(opts *Provider) error

// New instantiates a new context provider.
func New(opts ...ProviderOption) (*Provider, error) {
	ctxProvider := Provider{orderingPolicy: thread.StrictlyIncreasing}

	for _, opt := range opts {
		err := opt(&ctxProvider)
		if err != nil {
			return nil, fmt.Errorf("option failed: %w", err)
		}
	}

	if ctxProvider.registry == nil {
		ctxProvider.registry = connectionstore.NewRegistry()
	}

	return &ctxProvider, nil
}

// StorageProvider returns the storage provider.
func (p *Provider) StorageProvider() storage.Provider {
	return p.storeProvider
}

// KeyManager returns the pairwise key manager.
func (p *Provider) KeyManager() legacyconnection.KeyManager {
	return p.keyManager
}

// Packager returns a packager service.
func (p *Provider) Packager() transport.Packager {
	return p.packager
}

// Relay returns the agency client.
func (p *Provider) Relay() agency.Client {
	return p.relay
}

// OutboundDispatcher returns an outbound dispatcher.
func (p *Provider) OutboundDispatcher() dispatcher.Outbound {
	return p.outboundDispatcher
}

// ConnectionRegistry returns the connection handle registry.
func (p *Provider) ConnectionRegistry() *connectionstore.Registry {
	return p.registry
}

// Label returns the label sent in invitations and requests.
func (p *Provider) Label() string {
	return p.label
}

// ServiceEndpoint returns the agency endpoint advertised to counterparties.
func (p *Provider) ServiceEndpoint() string {
	return p.serviceEndpoint
}

// RoutingKeys returns the routing keys advertised to counterparties.
func (p *Provider) RoutingKeys() []string {
	return p.routingKeys
}

// OrderingPolicy returns how inbound thread orders are validated.
func (p *Provider) OrderingPolicy() thread.Policy {
	return p.orderingPolicy
}

// WithStorageProvider sets the storage provider.
func WithStorageProvider(s storage.Provider) ProviderOption {
	return func(opts *Provider) error {
		opts.storeProvider = s
		return nil
	}
}

// WithKeyManager injects the pairwise key manager.
func WithKeyManager(k legacyconnection.KeyManager) ProviderOption {
	return func(opts *Provider) error {
		opts.keyManager = k
		return nil
	}
}

// WithPackager injects a packager into the context.
func WithPackager(p transport.Packager) ProviderOption {
	return func(opts *Provider) error {
		opts.packager = p
		return nil
	}
}

// WithRelay injects the agency client.
func WithRelay(r agency.Client) ProviderOption {
	return func(opts *Provider) error {
		opts.relay = r
		return nil
	}
}

// WithOutboundDispatcher injects an outbound dispatcher into the context.
func WithOutboundDispatcher(ob dispatcher.Outbound) ProviderOption {
	return func(opts *Provider) error {
		opts.outboundDispatcher = ob
		return nil
	}
}

// WithConnectionRegistry injects the connection handle registry. A fresh registry is used when none is set.
func WithConnectionRegistry(r *connectionstore.Registry) ProviderOption {
	return func(opts *Provider) error {
		opts.registry = r
		return nil
	}
}

// WithLabel sets the label sent in invitations and requests.
func WithLabel(label string) ProviderOption {
	return func(opts *Provider) error {
		opts.label = label
		return nil
	}
}

// WithServiceEndpoint injects a service endpoint into the context.
func WithServiceEndpoint(endpoint string) ProviderOption {
	return func(opts *Provider) error {
		opts.serviceEndpoint = endpoint
		return nil
	}
}

// WithRoutingKeys sets the routing keys advertised to counterparties.
func WithRoutingKeys(keys ...string) ProviderOption {
	return func(opts *Provider) error {
		opts.routingKeys = append([]string(nil), keys...)
		return nil
	}
}

// WithOrderingPolicy sets how inbound thread orders are validated.
func WithOrderingPolicy(policy thread.Policy) ProviderOption {
	return func(opts *Provider) error {
		if policy != thread.StrictlyIncreasing && policy != thread.NonDecreasing {
			return fmt.Errorf("unknown ordering policy %d", policy)
		}

		opts.orderingPolicy = policy

		return nil
	}
}
