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
	"os"
	"time"

	"github.com/palantir/go-feign-runtime/feign-client/httpclient"
	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	"github.com/palantir/go-feign-runtime/feign-stub/stub"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	var (
		contractsDir string
		baseURL      string
		timeout      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Replay contracts against a running provider and report mismatches",
		RunE: func(cmd *cobra.Command, args []string) error {
			contracts, err := stub.LoadDir(contractsDir)
			if err != nil {
				return err
			}
			client, err := httpclient.NewClient(
				httpclient.WithServiceName("stubrunner"),
				httpclient.WithBaseURLs([]string{baseURL}),
				httpclient.WithHTTPTimeout(timeout),
				httpclient.WithDisableRestErrors())
			if err != nil {
				return err
			}
			report, err := stub.Verify(cmd.Context(), client, contracts)
			if err != nil {
				return err
			}
			if err := codecs.JSON.Encode(os.Stdout, report); err != nil {
				return err
			}
			return report.Err()
		},
	}
	cmd.Flags().StringVar(&contractsDir, "contracts", "contracts", "directory of contract files")
	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080", "base URL of the provider")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "timeout of each replayed request")
	return cmd
}
