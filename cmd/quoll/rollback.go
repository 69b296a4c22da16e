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
	"os"

	"github.com/blinklabs-io/quoll/internal/config"
	"github.com/spf13/cobra"
)

func rollbackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Revert the most recently applied update payload",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			logger := commonRun()
			s, err := openState(cfg, logger)
			if err != nil {
				logger.Error("failed to open state: " + err.Error())
				os.Exit(1)
			}
			defer s.Close()
			rolledBack, err := s.RollbackLast()
			if err != nil {
				logger.Error("rollback failed: " + err.Error())
				os.Exit(1)
			}
			if !rolledBack {
				logger.Info(
					"nothing to roll back",
					"component", programName,
				)
				return
			}
			logger.Info(
				"rolled back last applied payload",
				"component", programName,
			)
		},
	}
}
