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
	"fmt"
	"os"
	"sort"

	"github.com/blinklabs-io/quoll/internal/config"
	"github.com/blinklabs-io/quoll/update"
	"github.com/spf13/cobra"
)

func proposalsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "proposals",
		Short: "List tracked undecided update proposals",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			logger := commonRun()
			s, err := openState(cfg, logger)
			if err != nil {
				logger.Error("failed to open state: " + err.Error())
				os.Exit(1)
			}
			defer s.Close()
			undecided, err := s.UndecidedProposals()
			if err != nil {
				logger.Error("failed to list proposals: " + err.Error())
				os.Exit(1)
			}
			ids := make([]update.UpId, 0, len(undecided))
			for id := range undecided {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool {
				a, b := undecided[ids[i]], undecided[ids[j]]
				return a.Slot < b.Slot
			})
			for _, id := range ids {
				p := undecided[id]
				fmt.Printf(
					"%s  app=%s version=%d slot=%d votes=%d stake=%d\n",
					id.String(),
					p.Proposal.SoftwareVersion.AppName,
					p.Proposal.SoftwareVersion.Number,
					p.Slot,
					len(p.Votes),
					p.PositiveStake(),
				)
			}
		},
	}
}
