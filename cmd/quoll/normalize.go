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

	"github.com/blinklabs-io/quoll/internal/config"
	"github.com/spf13/cobra"
)

func normalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize",
		Short: "Drop tracked proposals that no longer pass verification",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			logger := commonRun()
			s, err := openState(cfg, logger)
			if err != nil {
				logger.Error("failed to open state: " + err.Error())
				os.Exit(1)
			}
			defer s.Close()
			dropped, err := s.Normalize(cfg.ConsiderThreshold)
			if err != nil {
				logger.Error("normalize failed: " + err.Error())
				os.Exit(1)
			}
			for _, id := range dropped {
				fmt.Println(id.String())
			}
			logger.Info(
				fmt.Sprintf("dropped %d proposal(s)", len(dropped)),
				"component", programName,
			)
		},
	}
}
