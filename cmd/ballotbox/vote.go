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
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/ballotbox"
	"github.com/blinklabs-io/ballotbox/api"
	"github.com/blinklabs-io/ballotbox/voting"
)

func voteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vote",
		Short: "Cast and inspect votes",
	}
	cmd.AddCommand(
		voteCastCommand(),
		voteShowCommand(),
		voteListCommand(),
	)
	return cmd
}

func voteCastCommand() *cobra.Command {
	var identity string
	cmd := &cobra.Command{
		Use:   "cast <proposal-id> <option-index>",
		Short: "Cast a vote on a proposal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			optionIndex, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid option index %q: %w", args[1], err)
			}
			return withNode(cmd, func(ctx context.Context, n *ballotbox.Node) error {
				vote, err := n.Voting().CastVote(
					ctx,
					voting.Identity(identity),
					args[0],
					uint32(optionIndex),
				)
				if err != nil {
					return err
				}
				return printJSON(cmd, api.NewVoteResponse(vote))
			})
		},
	}
	addIdentityFlag(cmd, &identity)
	return cmd
}

func voteShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <proposal-id> <voter>",
		Short: "Show the vote cast by a voter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(cmd, func(ctx context.Context, n *ballotbox.Node) error {
				vote, err := n.Voting().GetVote(ctx, args[0], voting.Identity(args[1]))
				if err != nil {
					return err
				}
				return printJSON(cmd, api.NewVoteResponse(vote))
			})
		},
	}
}

func voteListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <proposal-id>",
		Short: "List the votes cast on a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(cmd, func(ctx context.Context, n *ballotbox.Node) error {
				votes, err := n.Indexer().ListVotes(ctx, args[0])
				if err != nil {
					return err
				}
				ret := make([]api.VoteResponse, 0, len(votes))
				for _, v := range votes {
					ret = append(ret, api.NewVoteResponse(v))
				}
				return printJSON(cmd, ret)
			})
		},
	}
}
