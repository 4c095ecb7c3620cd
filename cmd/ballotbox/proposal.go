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

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/ballotbox"
	"github.com/blinklabs-io/ballotbox/api"
	"github.com/blinklabs-io/ballotbox/indexer"
	"github.com/blinklabs-io/ballotbox/voting"
)

func proposalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proposal",
		Short: "Manage proposals",
	}
	cmd.AddCommand(
		proposalCreateCommand(),
		proposalShowCommand(),
		proposalCloseCommand(),
		proposalDeleteCommand(),
		proposalListCommand(),
	)
	return cmd
}

func proposalCreateCommand() *cobra.Command {
	var identity, description string
	var options []string
	var duration int64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a proposal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withNode(cmd, func(ctx context.Context, n *ballotbox.Node) error {
				p, err := n.Voting().CreateProposal(
					ctx,
					voting.Identity(identity),
					description,
					options,
					duration,
				)
				if err != nil {
					return err
				}
				return printJSON(cmd, api.NewProposalResponse(p, n.Voting().Clock().Now()))
			})
		},
	}
	addIdentityFlag(cmd, &identity)
	cmd.Flags().StringVar(&description, "description", "", "proposal description")
	cmd.Flags().StringArrayVarP(&options, "option", "o", nil, "option text, repeat for each option")
	cmd.Flags().Int64Var(&duration, "duration", 0, "voting window in seconds")
	return cmd
}

func proposalShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <proposal-id>",
		Short: "Show a proposal with its results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(cmd, func(ctx context.Context, n *ballotbox.Node) error {
				p, err := n.Voting().GetProposal(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, api.NewProposalResponse(p, n.Voting().Clock().Now()))
			})
		},
	}
}

func proposalCloseCommand() *cobra.Command {
	var identity string
	cmd := &cobra.Command{
		Use:   "close <proposal-id>",
		Short: "Close a proposal after its deadline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(cmd, func(ctx context.Context, n *ballotbox.Node) error {
				p, err := n.Voting().CloseProposal(ctx, voting.Identity(identity), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, api.NewProposalResponse(p, n.Voting().Clock().Now()))
			})
		},
	}
	addIdentityFlag(cmd, &identity)
	return cmd
}

func proposalDeleteCommand() *cobra.Command {
	var identity string
	cmd := &cobra.Command{
		Use:   "delete <proposal-id>",
		Short: "Delete a closed proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(cmd, func(ctx context.Context, n *ballotbox.Node) error {
				reclaimed, err := n.Voting().DeleteProposal(ctx, voting.Identity(identity), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, api.DeleteProposalResponse{
					ProposalId:     args[0],
					ReclaimedBytes: reclaimed,
				})
			})
		},
	}
	addIdentityFlag(cmd, &identity)
	return cmd
}

func proposalListCommand() *cobra.Command {
	var creator, status string
	var count, page int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List proposals, latest deadline first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := indexer.ProposalFilter{
				Creator: voting.Identity(creator),
				Limit:   count,
				Offset:  (max(page, 1) - 1) * count,
			}
			if status != "" {
				var err error
				filter.Status, err = voting.ParseStatus(status)
				if err != nil {
					return err
				}
			}
			return withNode(cmd, func(ctx context.Context, n *ballotbox.Node) error {
				proposals, err := n.Indexer().ListProposals(ctx, filter)
				if err != nil {
					return err
				}
				now := n.Voting().Clock().Now()
				ret := make([]api.ProposalResponse, 0, len(proposals))
				for _, p := range proposals {
					ret = append(ret, api.NewProposalResponse(p, now))
				}
				return printJSON(cmd, ret)
			})
		},
	}
	cmd.Flags().StringVar(&creator, "creator", "", "only list proposals by this creator")
	cmd.Flags().StringVar(&status, "status", "", "only list proposals in this status (open, expired, closed)")
	cmd.Flags().IntVar(&count, "count", indexer.MaxListLimit, "proposals per page")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}
