/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aries

import (
	"fmt"
	"strings"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/hyperledger/aries-vcx-go/pkg/agency"
	agencyhttp "github.com/hyperledger/aries-vcx-go/pkg/agency/http"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/thread"
	"github.com/hyperledger/aries-vcx-go/pkg/framework/context"
	"github.com/hyperledger/aries-vcx-go/pkg/kms"
	connectionstore "github.com/hyperledger/aries-vcx-go/pkg/store/connection"
	"github.com/hyperledger/aries-vcx-go/pkg/wallet"
)

const defaultEndpoint = "didcomm:transport/queue"

// Aries provides access to the context being managed by the framework. The context can be used to create
// connection clients.
type Aries struct {
	storeProvider      storage.Provider
	kmsOpts            []kms.Opt
	wallet             *wallet.BaseWallet
	relay              agency.Client
	agencyURL          string
	agencyOpts         []agencyhttp.OutboundHTTPOpt
	recordConnections  bool
	registry           *connectionstore.Registry
	outboundDispatcher dispatcher.Outbound
	label              string
	serviceEndpoint    string
	routingKeys        []string
	orderingPolicy     thread.Policy
}

// Option configures the framework.
type Option func(opts *Aries) error

// New initializes the framework based on the set of options provided. Without options the agent keeps its keys
// and relay messages in memory.
func New(opts ...Option) (*Aries, error) {
	frameworkOpts := &Aries{}

	// generate framework configs from options
	for _, option := range opts {
		err := option(frameworkOpts)
		if err != nil {
			closeErr := frameworkOpts.Close()
			return nil, fmt.Errorf("close err: %v Error in option passed to New: %w", closeErr, err)
		}
	}

	if frameworkOpts.storeProvider == nil {
		frameworkOpts.storeProvider = mem.NewProvider()
	}

	return initializeServices(frameworkOpts)
}

func initializeServices(frameworkOpts *Aries) (*Aries, error) {
	// Order of initializing service is important
	if err := createWallet(frameworkOpts); err != nil {
		return nil, err
	}

	if err := createRelay(frameworkOpts); err != nil {
		return nil, err
	}

	if err := createConnectionRegistry(frameworkOpts); err != nil {
		return nil, err
	}

	if err := createOutboundDispatcher(frameworkOpts); err != nil {
		return nil, err
	}

	return frameworkOpts, nil
}

// WithStoreProvider injects a storage provider to the framework.
func WithStoreProvider(prov storage.Provider) Option {
	return func(opts *Aries) error {
		opts.storeProvider = prov
		return nil
	}
}

// WithKMSOptions configures the wallet key store.
func WithKMSOptions(kmsOpts ...kms.Opt) Option {
	return func(opts *Aries) error {
		opts.kmsOpts = append(opts.kmsOpts, kmsOpts...)
		return nil
	}
}

// WithRelay injects the agency client. It takes precedence over WithAgencyURL.
func WithRelay(relay agency.Client) Option {
	return func(opts *Aries) error {
		opts.relay = relay
		return nil
	}
}

// WithAgencyURL connects the framework to an agency server. Unless WithServiceEndpoint is given, the agency's
// message endpoint is advertised to counterparties.
func WithAgencyURL(agencyURL string, httpOpts ...agencyhttp.OutboundHTTPOpt) Option {
	return func(opts *Aries) error {
		if agencyURL == "" {
			return fmt.Errorf("agency URL is empty")
		}

		opts.agencyURL = strings.TrimSuffix(agencyURL, "/")
		opts.agencyOpts = append(opts.agencyOpts, httpOpts...)

		return nil
	}
}

// WithConnectionRecorder persists every connection to the store provider so it can be restored by source id.
func WithConnectionRecorder() Option {
	return func(opts *Aries) error {
		opts.recordConnections = true
		return nil
	}
}

// WithLabel sets the label sent in invitations and requests.
func WithLabel(label string) Option {
	return func(opts *Aries) error {
		opts.label = label
		return nil
	}
}

// WithServiceEndpoint sets the endpoint advertised in invitations and DID docs.
func WithServiceEndpoint(endpoint string) Option {
	return func(opts *Aries) error {
		opts.serviceEndpoint = endpoint
		return nil
	}
}

// WithRoutingKeys sets the routing keys advertised in invitations and DID docs.
func WithRoutingKeys(keys ...string) Option {
	return func(opts *Aries) error {
		opts.routingKeys = append(opts.routingKeys, keys...)
		return nil
	}
}

// WithOrderingPolicy sets how inbound thread orders are validated.
func WithOrderingPolicy(policy thread.Policy) Option {
	return func(opts *Aries) error {
		opts.orderingPolicy = policy
		return nil
	}
}

// Context provides a handle to the framework context.
func (a *Aries) Context() (*context.Provider, error) {
	return context.New(
		context.WithStorageProvider(a.storeProvider),
		context.WithKeyManager(a.wallet),
		context.WithPackager(a.wallet),
		context.WithRelay(a.relay),
		context.WithOutboundDispatcher(a.outboundDispatcher),
		context.WithConnectionRegistry(a.registry),
		context.WithLabel(a.label),
		context.WithServiceEndpoint(serviceEndpoint(a)),
		context.WithRoutingKeys(a.routingKeys...),
		context.WithOrderingPolicy(a.orderingPolicy),
	)
}

// Close releases every connection handle and frees resources being maintained by the framework.
func (a *Aries) Close() error {
	if a.registry != nil {
		a.registry.ReleaseAll()
	}

	if a.wallet != nil {
		if err := a.wallet.Close(); err != nil {
			return fmt.Errorf("failed to close the wallet: %w", err)
		}
	}

	if a.storeProvider != nil {
		err := a.storeProvider.Close()
		if err != nil {
			return fmt.Errorf("failed to close the store: %w", err)
		}
	}

	return nil
}

func createWallet(frameworkOpts *Aries) error {
	w, err := wallet.New(frameworkOpts.storeProvider, frameworkOpts.kmsOpts...)
	if err != nil {
		return fmt.Errorf("create wallet failed: %w", err)
	}

	frameworkOpts.wallet = w

	return nil
}

func createRelay(frameworkOpts *Aries) error {
	if frameworkOpts.relay != nil {
		return nil
	}

	if frameworkOpts.agencyURL != "" {
		client, err := agencyhttp.NewClient(frameworkOpts.agencyURL, frameworkOpts.agencyOpts...)
		if err != nil {
			return fmt.Errorf("create agency client failed: %w", err)
		}

		frameworkOpts.relay = client

		return nil
	}

	mailbox, err := agency.NewMailbox(frameworkOpts.storeProvider)
	if err != nil {
		return fmt.Errorf("create in-process agency failed: %w", err)
	}

	frameworkOpts.relay = mailbox

	return nil
}

func createConnectionRegistry(frameworkOpts *Aries) error {
	if !frameworkOpts.recordConnections {
		frameworkOpts.registry = connectionstore.NewRegistry()
		return nil
	}

	recorder, err := connectionstore.NewRecorder(frameworkOpts.storeProvider)
	if err != nil {
		return fmt.Errorf("create connection recorder failed: %w", err)
	}

	frameworkOpts.registry = connectionstore.NewRegistry(connectionstore.WithRecorder(recorder))

	return nil
}

func createOutboundDispatcher(frameworkOpts *Aries) error {
	ctx, err := context.New(
		context.WithPackager(frameworkOpts.wallet),
		context.WithRelay(frameworkOpts.relay),
	)
	if err != nil {
		return fmt.Errorf("context creation failed: %w", err)
	}

	frameworkOpts.outboundDispatcher, err = dispatcher.NewOutbound(ctx)
	if err != nil {
		return fmt.Errorf("failed to init outbound dispatcher: %w", err)
	}

	return nil
}

func serviceEndpoint(frameworkOpts *Aries) string {
	if frameworkOpts.serviceEndpoint != "" {
		return frameworkOpts.serviceEndpoint
	}

	if frameworkOpts.agencyURL != "" {
		return frameworkOpts.agencyURL + agencyhttp.MsgPath
	}

	return defaultEndpoint
}
