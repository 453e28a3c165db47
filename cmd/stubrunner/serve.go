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

package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	"github.com/palantir/go-feign-runtime/feign-stub/stub"
	pkghttpserver "github.com/palantir/pkg/httpserver"
	werror "github.com/palantir/witchcraft-go-error"
	"github.com/palantir/witchcraft-go-logging/wlog/svclog/svc1log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	contractsDir string
	address      string
	port         int
	strict       bool
	watch        bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stub responses for the contracts in a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&opts.contractsDir, "contracts", "contracts", "directory of contract files")
	cmd.Flags().StringVar(&opts.address, "address", "", "address to listen on")
	cmd.Flags().IntVar(&opts.port, "port", 0, "port to listen on; an available port is picked when 0")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail requests that fully match more than one contract")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "reload contracts when files in the directory change")
	return cmd
}

func serve(ctx context.Context, opts serveOptions) error {
	logger := svc1log.FromContext(ctx)
	contracts, err := stub.LoadDir(opts.contractsDir)
	if err != nil {
		return err
	}
	var storeOpts []stub.StoreOption
	if opts.strict {
		storeOpts = append(storeOpts, stub.WithStrictAmbiguity())
	}
	store, err := stub.NewStore(contracts, storeOpts...)
	if err != nil {
		return err
	}
	registry := prometheus.NewRegistry()
	handler, err := stub.NewHandler(store, stub.WithMetrics(registry), stub.WithLogger(logger))
	if err != nil {
		return err
	}
	if opts.watch {
		if err := stub.Watch(ctx, opts.contractsDir, store); err != nil {
			return err
		}
	}

	port := opts.port
	if port == 0 {
		if port, err = pkghttpserver.AvailablePort(); err != nil {
			return werror.WrapWithContextParams(ctx, err, "failed to find an available port")
		}
	}
	server := &http.Server{
		Addr:              net.JoinHostPort(opts.address, strconv.Itoa(port)),
		Handler:           newRouter(store, handler, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	logger.Info("Stub server started",
		svc1log.SafeParam("address", server.Addr),
		svc1log.SafeParam("contracts", len(contracts)),
		svc1log.SafeParam("watch", opts.watch))

	select {
	case err := <-errCh:
		return werror.WrapWithContextParams(ctx, err, "stub server stopped")
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if unmatched := store.NoMatches(); len(unmatched) > 0 {
		logger.Warn("Stub server received unmatched requests", svc1log.SafeParam("count", len(unmatched)))
	}
	return server.Shutdown(shutdownCtx)
}

// newRouter serves the admin endpoints under /__admin and every other request from the contracts.
func newRouter(store *stub.Store, handler http.Handler, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Route("/__admin", func(r chi.Router) {
		r.Get("/contracts", func(rw http.ResponseWriter, req *http.Request) {
			writeJSON(rw, store.Contracts())
		})
		r.Get("/states", func(rw http.ResponseWriter, req *http.Request) {
			states := store.States()
			out := make(map[string]string, len(states))
			for name, state := range states {
				out[name] = state.String()
			}
			writeJSON(rw, out)
		})
		r.Get("/unmatched", func(rw http.ResponseWriter, req *http.Request) {
			writeJSON(rw, store.NoMatches())
		})
		r.Post("/reset", func(rw http.ResponseWriter, req *http.Request) {
			store.Reset()
			rw.WriteHeader(http.StatusNoContent)
		})
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	})
	r.Handle("/*", handler)
	return r
}

func writeJSON(rw http.ResponseWriter, v interface{}) {
	rw.Header().Set("Content-Type", codecs.JSON.ContentType())
	_ = codecs.JSON.Encode(rw, v)
}
