// Copyright (c) 2026 Palantir Technologies. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stub

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	"github.com/palantir/go-feign-runtime/feign-contract/errors"
	werror "github.com/palantir/witchcraft-go-error"
	"github.com/palantir/witchcraft-go-logging/wlog/svclog/svc1log"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	maxRequestBodyBytes = 10 << 20
	closestMatchCount   = 3
)

// Handler serves the contracts of a Store over HTTP.
type Handler struct {
	store   *Store
	metrics *requestMetrics
	logger  svc1log.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler) error

// WithMetrics counts requests as stub_requests_total{contract,outcome} on registerer. Outcomes are matched,
// no_match, ambiguous and invalid.
func WithMetrics(registerer prometheus.Registerer) HandlerOption {
	return func(h *Handler) error {
		m, err := newRequestMetrics(registerer)
		if err != nil {
			return err
		}
		h.metrics = m
		return nil
	}
}

// WithLogger logs matching decisions to logger instead of the logger of the request context.
func WithLogger(logger svc1log.Logger) HandlerOption {
	return func(h *Handler) error {
		h.logger = logger
		return nil
	}
}

// NewHandler returns a handler serving store.
func NewHandler(store *Store, opts ...HandlerOption) (*Handler, error) {
	h := &Handler{store: store}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Handler) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h.logger != nil {
		ctx = svc1log.WithLogger(ctx, h.logger)
	}
	logger := svc1log.FromContext(ctx)

	body, err := readBody(req)
	if err != nil {
		h.metrics.observe("", "invalid")
		errors.WriteErrorResponse(rw, errors.WrapWithNewError(err, errors.DefaultInvalidArgument,
			errors.SafeParam("reason", "failed to read request body")))
		return
	}
	in := newInbound(req, body)

	result, err := h.store.match(in)
	if err != nil {
		h.metrics.observe("", "ambiguous")
		logger.Warn("Request matched more than one contract", svc1log.Stacktrace(err))
		if conjureErr, ok := errors.FromError(err); ok {
			errors.WriteErrorResponse(rw, conjureErr)
			return
		}
		errors.WriteErrorResponse(rw, errors.WrapWithInternal(err))
		return
	}
	if result.winner == nil {
		h.noMatch(ctx, rw, in, result.candidates)
		return
	}
	defer result.winner.release()

	if len(result.shadowed) > 0 {
		logger.Warn("Request also matched contracts declared later",
			svc1log.SafeParam("contract", result.winner.Name),
			svc1log.SafeParam("shadowed", result.shadowed))
	}
	logger.Debug("Serving contract",
		svc1log.SafeParam("contract", result.winner.Name),
		svc1log.SafeParam("method", in.method),
		svc1log.UnsafeParam("path", in.path))
	h.respond(ctx, rw, result.winner, in)
	h.metrics.observe(result.winner.Name, "matched")
}

func (h *Handler) noMatch(ctx context.Context, rw http.ResponseWriter, in *inbound, candidates []candidate) {
	nm := NoMatch{
		ID:             uuid.New(),
		Time:           time.Now(),
		Method:         in.method,
		Path:           in.path,
		ClosestMatches: closest(candidates, closestMatchCount),
	}
	h.store.recordNoMatch(nm)
	h.metrics.observe("", "no_match")

	names := make([]string, len(nm.ClosestMatches))
	for i, m := range nm.ClosestMatches {
		names[i] = m.Contract
	}
	svc1log.FromContext(ctx).Info("No contract matched request",
		svc1log.SafeParam("noMatchId", nm.ID.String()),
		svc1log.SafeParam("method", in.method),
		svc1log.UnsafeParam("path", in.path),
		svc1log.SafeParam("closestMatches", names))
	errors.WriteErrorResponse(rw, errors.NewError(errors.ContractNoMatch,
		errors.SafeParam("noMatchId", nm.ID.String()),
		errors.SafeParam("method", in.method),
		errors.SafeParam("path", in.path),
		errors.SafeParam("closestMatches", nm.ClosestMatches)))
}

func (h *Handler) respond(ctx context.Context, rw http.ResponseWriter, e *entry, in *inbound) {
	if delay := time.Duration(e.Response.FixedDelayMilliseconds) * time.Millisecond; delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	r := newReplacer(in)
	for name, value := range e.Response.Headers {
		rw.Header().Set(name, r.replaceString(value))
	}
	body, err := encodeBody(r.replaceTree(e.Response.Body), rw.Header())
	if err != nil {
		svc1log.FromContext(ctx).Error("Failed to encode contract response",
			svc1log.SafeParam("contract", e.Name),
			svc1log.Stacktrace(err))
		errors.WriteErrorResponse(rw, errors.WrapWithInternal(err, errors.SafeParam("contract", e.Name)))
		return
	}
	if len(r.unresolved) > 0 {
		svc1log.FromContext(ctx).Warn("Response template referenced missing request data",
			svc1log.SafeParam("contract", e.Name),
			svc1log.UnsafeParam("expressions", r.unresolved))
	}
	rw.WriteHeader(e.Response.Status)
	if len(body) > 0 {
		_, _ = rw.Write(body)
	}
}

// encodeBody renders a response body. Strings are written verbatim and structured values use the codec named by
// the Content-Type header, JSON by default.
func encodeBody(body interface{}, header http.Header) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case string:
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", codecs.Plain.ContentType())
		}
		return []byte(b), nil
	}
	codec := codecs.JSON
	if contentType := header.Get("Content-Type"); contentType != "" {
		negotiated, err := codecs.ForContentType(contentType)
		if err != nil {
			return nil, err
		}
		codec = negotiated
	} else {
		header.Set("Content-Type", codec.ContentType())
	}
	return codec.Marshal(body)
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil {
		return nil, nil
	}
	var r io.Reader = req.Body
	if strings.EqualFold(req.Header.Get("Content-Encoding"), codecs.ContentEncodingSnappyFramed) {
		r = snappy.NewReader(req.Body)
	}
	body, err := io.ReadAll(io.LimitReader(r, maxRequestBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxRequestBodyBytes {
		return nil, werror.Error("request body exceeds limit", werror.SafeParam("maxBytes", maxRequestBodyBytes))
	}
	return body, nil
}
