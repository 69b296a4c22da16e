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

package update

import (
	"fmt"

	"github.com/blinklabs-io/quoll/event"
)

// Rollback restores every poll entry the matching apply touched to its
// pre-apply value as captured in undo. It must be invoked only on the most
// recently applied, not-yet-rolled-back payload for the poll, matching the
// surrounding chain-rollback order.
//
// Rollback performs no validation: all information needed is already in
// the undo record, so the only possible errors are store I/O failures.
// Entries are replayed in reverse mutation order.
func (a *Applier) Rollback(poll PollStore, undo *Undo) error {
	for i := len(undo.ConfirmedVersions) - 1; i >= 0; i-- {
		entry := undo.ConfirmedVersions[i]
		if entry.Prev == nil {
			if err := poll.DelLastConfirmedVersion(entry.AppName); err != nil {
				return fmt.Errorf("restore confirmed version: %w", err)
			}
			continue
		}
		err := poll.SetLastConfirmedVersion(entry.AppName, *entry.Prev)
		if err != nil {
			return fmt.Errorf("restore confirmed version: %w", err)
		}
	}
	for i := len(undo.ScriptVersions) - 1; i >= 0; i-- {
		entry := undo.ScriptVersions[i]
		if entry.Prev == nil {
			if err := poll.DelScriptVersionDep(entry.ProtocolVersion); err != nil {
				return fmt.Errorf("restore script version: %w", err)
			}
			continue
		}
		err := poll.AddScriptVersionDep(entry.ProtocolVersion, *entry.Prev)
		if err != nil {
			return fmt.Errorf("restore script version: %w", err)
		}
	}
	for i := len(undo.Proposals) - 1; i >= 0; i-- {
		entry := undo.Proposals[i]
		if entry.Prev == nil {
			if err := poll.DeleteProposal(entry.Id); err != nil {
				return fmt.Errorf("restore proposal: %w", err)
			}
			continue
		}
		if err := poll.PutProposal(entry.Id, entry.Prev); err != nil {
			return fmt.Errorf("restore proposal: %w", err)
		}
	}
	if a.metrics != nil {
		a.metrics.rollbacks.Inc()
	}
	a.config.Logger.Info(
		"update payload rolled back",
		"proposals", len(undo.Proposals),
		"script_versions", len(undo.ScriptVersions),
		"confirmed_versions", len(undo.ConfirmedVersions),
		"component", "update",
	)
	if a.config.EventBus != nil {
		a.config.EventBus.Publish(
			RollbackEventType,
			event.NewEvent(RollbackEventType, RollbackEvent{
				Proposals:         len(undo.Proposals),
				ScriptVersions:    len(undo.ScriptVersions),
				ConfirmedVersions: len(undo.ConfirmedVersions),
			}),
		)
	}
	return nil
}
