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
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/palantir/go-feign-runtime/internal/github"
	werror "github.com/palantir/witchcraft-go-error"
	"github.com/palantir/witchcraft-go-logging/wlog"
	"github.com/palantir/witchcraft-go-logging/wlog/svclog/svc1log"
	"github.com/spf13/cobra"
)

const serviceName = "github-aggregator"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		port       int
		debug      bool
	)
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Serve GitHub users together with their repositories",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := wlog.InfoLevel
			if debug {
				level = wlog.DebugLevel
			}
			logger := svc1log.NewFromCreator(os.Stdout, level, wlog.NewJSONMarshalLoggerProvider().NewLeveledLogger)
			ctx, stop := signal.NotifyContext(svc1log.WithLogger(cmd.Context(), logger), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := serve(ctx, logger, configPath, port); err != nil {
				logger.Error("Server failed", svc1log.Stacktrace(err))
				_, _ = fmt.Fprintln(os.Stderr, err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the YAML install config")
	cmd.Flags().IntVar(&port, "port", 0, "port to listen on, overriding the config")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func serve(ctx context.Context, logger svc1log.Logger, configPath string, port int) error {
	conf, err := github.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if port != 0 {
		conf.Server.Port = port
	}
	clientConf := conf.ClientConfig()
	service, err := github.NewServiceFromConfig(clientConf)
	if err != nil {
		return werror.WrapWithContextParams(ctx, err, "failed to create GitHub client")
	}

	server := &http.Server{
		Addr:              net.JoinHostPort(conf.Server.Address, strconv.Itoa(conf.Server.Port)),
		Handler:           github.NewRouter(service, serviceName, time.Now(), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	logger.Info("Server started",
		svc1log.SafeParam("address", server.Addr),
		svc1log.SafeParam("githubUris", clientConf.URIs))

	select {
	case err := <-errCh:
		return werror.WrapWithContextParams(ctx, err, "server stopped")
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("Shutting down")
	return server.Shutdown(shutdownCtx)
}
