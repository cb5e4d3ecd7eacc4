/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/agency"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerror"
)

var logger = log.New("vcx/agency/http")

const (
	defaultRetries       = 2
	defaultRetryInterval = 500 * time.Millisecond
)

// outboundCommHTTPOpts holds options for the HTTP relay client.
type outboundCommHTTPOpts struct {
	client        *http.Client
	retries       uint64
	retryInterval time.Duration
	token         string
}

// OutboundHTTPOpt is an outbound HTTP transport option.
type OutboundHTTPOpt func(opts *outboundCommHTTPOpts)

// WithOutboundHTTPClient option is for creating an Outbound HTTP transport using an http.Client instance.
func WithOutboundHTTPClient(client *http.Client) OutboundHTTPOpt {
	return func(opts *outboundCommHTTPOpts) {
		opts.client = client
	}
}

// WithOutboundTimeout option is for creating an Outbound HTTP transport using a client timeout value.
func WithOutboundTimeout(timeout time.Duration) OutboundHTTPOpt {
	return func(opts *outboundCommHTTPOpts) {
		opts.client.Timeout = timeout
	}
}

// WithOutboundTLSConfig option is for creating an Outbound HTTP transport using a tls.Config instance.
func WithOutboundTLSConfig(tlsConfig *tls.Config) OutboundHTTPOpt {
	return func(opts *outboundCommHTTPOpts) {
		opts.client = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: tlsConfig,
			},
		}
	}
}

// WithRetry sets how many times a failed request is retried and the wait between attempts.
func WithRetry(retries uint64, interval time.Duration) OutboundHTTPOpt {
	return func(opts *outboundCommHTTPOpts) {
		opts.retries = retries
		opts.retryInterval = interval
	}
}

// WithAuthToken sends token as a bearer token with every request.
func WithAuthToken(token string) OutboundHTTPOpt {
	return func(opts *outboundCommHTTPOpts) {
		opts.token = token
	}
}

// Client is an agency.Client talking to the agency server over HTTP.
type Client struct {
	client        *http.Client
	agencyURL     string
	retries       uint64
	retryInterval time.Duration
	token         string
}

// NewClient creates a relay client for the agency at agencyURL.
func NewClient(agencyURL string, opts ...OutboundHTTPOpt) (*Client, error) {
	if _, err := url.ParseRequestURI(agencyURL); err != nil {
		return nil, fmt.Errorf("invalid agency url %q: %w", agencyURL, err)
	}

	clOpts := &outboundCommHTTPOpts{
		client:        &http.Client{},
		retries:       defaultRetries,
		retryInterval: defaultRetryInterval,
	}

	for _, opt := range opts {
		opt(clOpts)
	}

	if clOpts.client == nil {
		return nil, errors.New("can't create an outbound transport without an HTTP client")
	}

	return &Client{
		client:        clOpts.client,
		agencyURL:     strings.TrimSuffix(agencyURL, "/"),
		retries:       clOpts.retries,
		retryInterval: clOpts.retryInterval,
		token:         clOpts.token,
	}, nil
}

// Send posts the envelope to the destination's service endpoint, or to the agency when the destination has none.
func (c *Client) Send(ctx context.Context, envelope []byte, dest *service.Destination) error {
	endpoint := c.agencyURL + MsgPath
	if dest != nil && dest.ServiceEndpoint != "" {
		endpoint = dest.ServiceEndpoint
	}

	_, err := c.do(ctx, http.MethodPost, endpoint, commContentType, envelope)

	return err
}

// Poll queries the agency for held messages.
func (c *Client) Poll(ctx context.Context, filter *agency.Filter) ([]*agency.Message, error) {
	if filter == nil {
		filter = &agency.Filter{}
	}

	body, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("marshal filter: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.agencyURL+QueryPath, jsonContentType, body)
	if err != nil {
		return nil, err
	}

	var msgs []*agency.Message

	if err = json.Unmarshal(resp, &msgs); err != nil {
		return nil, fmt.Errorf("%w: decode poll response: %s", vcxerror.ErrTransport, err)
	}

	return msgs, nil
}

// UpdateStatus sets the status of a held message.
func (c *Client) UpdateStatus(ctx context.Context, uid string, status agency.Status) error {
	body, err := json.Marshal(statusUpdate{Status: status})
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	_, err = c.do(ctx, http.MethodPut, c.agencyURL+statusPath(uid), jsonContentType, body)

	return err
}

type httpStatusError struct {
	url    string
	status string
	code   int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("received non success %s from agency at [%s]", e.status, e.url)
}

// do sends one request, retrying transport failures and server errors.
func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body []byte) ([]byte, error) {
	var respData []byte

	operation := func() error {
		data, err := c.once(ctx, method, endpoint, contentType, body)
		if err != nil {
			var statusErr *httpStatusError
			if errors.As(err, &statusErr) && statusErr.code < http.StatusInternalServerError {
				return backoff.Permanent(err)
			}

			return err
		}

		respData = data

		return nil
	}

	err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryInterval), c.retries), ctx),
		func(retryErr error, t time.Duration) {
			logger.Warnf("%s %s failed, retrying in %s: %s", method, endpoint, t, retryErr)
		})
	if err != nil {
		var statusErr *httpStatusError
		if errors.As(err, &statusErr) && statusErr.code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", vcxerror.ErrNotFound, err)
		}

		return nil, fmt.Errorf("%w: %s", vcxerror.ErrTransport, err)
	}

	return respData, nil
}

func (c *Client) once(ctx context.Context, method, endpoint, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	req.Header.Set("Content-Type", contentType)

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		e := resp.Body.Close()
		if e != nil {
			logger.Errorf("HTTP Transport - Error closing response body: %v", e)
		}
	}()

	isStatusSuccess := resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices
	if !isStatusSuccess {
		return nil, &httpStatusError{url: endpoint, status: resp.Status, code: resp.StatusCode}
	}

	return io.ReadAll(resp.Body)
}
