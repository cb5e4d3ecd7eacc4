/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hyperledger/aries-vcx-go/pkg/agency"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerror"
)

const (
	commContentType = "application/didcomm-envelope-enc"
	jsonContentType = "application/json"

	// MsgPath accepts packed envelopes for delivery.
	MsgPath = "/agency/msg"

	// QueryPath returns held messages matching a filter.
	QueryPath = "/agency/messages/query"

	uidVar      = "uid"
	statusRoute = "/agency/messages/{" + uidVar + "}/status"
)

func statusPath(uid string) string {
	return "/agency/messages/" + uid + "/status"
}

type statusUpdate struct {
	Status agency.Status `json:"statusCode"`
}

// Store is the agency storage the HTTP handlers serve.
type Store interface {
	Deliver(ctx context.Context, envelope []byte) ([]string, error)
	Poll(ctx context.Context, filter *agency.Filter) ([]*agency.Message, error)
	UpdateStatus(ctx context.Context, uid string, status agency.Status) error
}

// NewInboundHandler creates the agency HTTP handler over the given mailbox.
func NewInboundHandler(mb Store) (http.Handler, error) {
	if mb == nil {
		logger.Errorf("Error creating a new inbound handler: store is nil")

		return nil, errors.New("failed to create NewInboundHandler")
	}

	router := mux.NewRouter()

	router.HandleFunc(MsgPath, func(w http.ResponseWriter, r *http.Request) {
		processPOSTRequest(w, r, mb)
	})
	router.HandleFunc(QueryPath, func(w http.ResponseWriter, r *http.Request) {
		processQuery(w, r, mb)
	})
	router.HandleFunc(statusRoute, func(w http.ResponseWriter, r *http.Request) {
		processStatusUpdate(w, r, mb)
	})

	return router, nil
}

func processPOSTRequest(w http.ResponseWriter, r *http.Request, mb Store) {
	if valid := validateHTTPMethod(w, r, http.MethodPost, commContentType); !valid {
		return
	}

	body, ok := readPayload(w, r)
	if !ok {
		return
	}

	uids, err := mb.Deliver(r.Context(), body)
	if err != nil {
		logger.Errorf("failed to deliver envelope: %s", err)
		http.Error(w, err.Error(), errorStatus(err))

		return
	}

	logger.Debugf("delivered envelope as %v", uids)

	w.WriteHeader(http.StatusAccepted)
}

func processQuery(w http.ResponseWriter, r *http.Request, mb Store) {
	if valid := validateHTTPMethod(w, r, http.MethodPost, jsonContentType); !valid {
		return
	}

	body, ok := readPayload(w, r)
	if !ok {
		return
	}

	filter := &agency.Filter{}

	if err := json.Unmarshal(body, filter); err != nil {
		http.Error(w, fmt.Sprintf("invalid filter: %s", err), http.StatusBadRequest)

		return
	}

	msgs, err := mb.Poll(r.Context(), filter)
	if err != nil {
		logger.Errorf("failed to query messages: %s", err)
		http.Error(w, err.Error(), errorStatus(err))

		return
	}

	if msgs == nil {
		msgs = []*agency.Message{}
	}

	w.Header().Set("Content-Type", jsonContentType)

	if err = json.NewEncoder(w).Encode(msgs); err != nil {
		logger.Errorf("failed to write query response: %s", err)
	}
}

func processStatusUpdate(w http.ResponseWriter, r *http.Request, mb Store) {
	if valid := validateHTTPMethod(w, r, http.MethodPut, jsonContentType); !valid {
		return
	}

	body, ok := readPayload(w, r)
	if !ok {
		return
	}

	update := statusUpdate{}

	if err := json.Unmarshal(body, &update); err != nil || update.Status == "" {
		http.Error(w, "invalid status update", http.StatusBadRequest)

		return
	}

	if err := mb.UpdateStatus(r.Context(), mux.Vars(r)[uidVar], update.Status); err != nil {
		http.Error(w, err.Error(), errorStatus(err))

		return
	}

	w.WriteHeader(http.StatusOK)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, vcxerror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, vcxerror.ErrDecode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// readPayload rejects empty bodies.
func readPayload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Errorf("Error reading request body: %s - returning Code: %d", err, http.StatusInternalServerError)
		http.Error(w, "Failed to read payload", http.StatusInternalServerError)

		return nil, false
	}

	if len(body) == 0 {
		http.Error(w, "Empty payload", http.StatusBadRequest)

		return nil, false
	}

	return body, true
}

// validateHTTPMethod validate HTTP method and content-type.
func validateHTTPMethod(w http.ResponseWriter, r *http.Request, method, contentType string) bool {
	if r.Method != method {
		http.Error(w, "HTTP Method not allowed", http.StatusMethodNotAllowed)

		return false
	}

	ct := r.Header.Get("Content-type")
	if ct != contentType {
		http.Error(w, fmt.Sprintf("Unsupported Content-type \"%s\"", ct), http.StatusUnsupportedMediaType)

		return false
	}

	return true
}
