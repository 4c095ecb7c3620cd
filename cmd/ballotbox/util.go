// Copyright 2026 Blink Labs Software
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
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/ballotbox"
	"github.com/blinklabs-io/ballotbox/internal/config"
	"github.com/blinklabs-io/ballotbox/internal/node"
)

// withNode opens the configured database for the duration of fn
func withNode(
	cmd *cobra.Command,
	fn func(context.Context, *ballotbox.Node) error,
) error {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return errors.New("no config found in context")
	}
	logger := commonRun(cmd.ErrOrStderr(), slog.LevelWarn)
	n, err := node.Open(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	err = fn(cmd.Context(), n)
	return errors.Join(err, n.Stop())
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func addIdentityFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVarP(dest, "identity", "i", "", "identity of the caller")
	_ = cmd.MarkFlagRequired("identity")
}
