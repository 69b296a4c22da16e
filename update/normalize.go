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
	"bytes"
	"fmt"
	"sort"

	"github.com/blinklabs-io/quoll/event"
)

// Normalize re-validates every tracked undecided proposal against the
// current poll state and removes the ones that no longer hold. It is used
// to repair governance state after chain reorganizations without replaying
// full history.
//
// Proposals are processed in (slot, id) order so independently-normalizing
// nodes reach identical state. Each proposal is re-checked with itself
// removed from the poll: duplicate-active, script-version and
// software-version checks always run; when considerThreshold is set the
// accumulated positive stake is also re-checked against the proposal's
// recorded epoch. Recorded per-voter stakes are kept as-is, since voter
// keys are not retained in proposal state.
//
// Normalize only removes entries and never rejects input; a second
// consecutive call is a no-op. The returned ids are the dropped proposals.
func (a *Applier) Normalize(
	poll PollStore,
	considerThreshold bool,
) ([]UpId, error) {
	overlay := newPollOverlay(poll)
	undecided, err := overlay.UndecidedProposals()
	if err != nil {
		return nil, fmt.Errorf("list undecided proposals: %w", err)
	}
	ids := make([]UpId, 0, len(undecided))
	for id := range undecided {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := undecided[ids[i]], undecided[ids[j]]
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return bytes.Compare(ids[i].Bytes(), ids[j].Bytes()) < 0
	})
	// Remove all undecided proposals, then re-seed the ones that still
	// validate in order
	for _, id := range ids {
		if err := overlay.DeleteProposal(id); err != nil {
			return nil, fmt.Errorf("delete proposal: %w", err)
		}
	}
	var dropped []UpId
	for _, id := range ids {
		ok, err := a.revalidateProposal(
			overlay,
			considerThreshold,
			id,
			undecided[id],
		)
		if err != nil {
			return nil, err
		}
		if !ok {
			dropped = append(dropped, id)
		}
	}
	if _, err := overlay.commit(); err != nil {
		return nil, fmt.Errorf("commit normalization: %w", err)
	}
	if a.metrics != nil {
		a.metrics.normalizeDropped.Add(float64(len(dropped)))
		a.metrics.trackedProposals.Set(float64(len(ids) - len(dropped)))
	}
	if len(dropped) > 0 {
		a.config.Logger.Info(
			"normalization dropped stale proposals",
			"dropped", len(dropped),
			"remaining", len(ids)-len(dropped),
			"component", "update",
		)
		if a.config.EventBus != nil {
			a.config.EventBus.Publish(
				NormalizeEventType,
				event.NewEvent(NormalizeEventType, NormalizeEvent{
					Dropped: dropped,
				}),
			)
		}
	}
	return dropped, nil
}

// revalidateProposal re-runs the proposal validation checks against the
// overlay and re-seeds the proposal with its recorded votes when they
// pass. Returns false (and leaves the proposal removed) when any check no
// longer holds. The checks mirror new-proposal validation; validation
// failures here are expected outcomes, not errors.
func (a *Applier) revalidateProposal(
	overlay *pollOverlay,
	considerThreshold bool,
	id UpId,
	undecided *UndecidedProposalState,
) (bool, error) {
	// Each candidate runs on its own nested overlay so a proposal that
	// fails a later check cannot leave a partial mutation (such as a
	// fresh script-version pin) behind
	sub := newPollOverlay(overlay)
	proposal := undecided.Proposal
	appName := proposal.SoftwareVersion.AppName
	hasActive, err := sub.HasActiveProposal(appName)
	if err != nil {
		return false, fmt.Errorf("lookup active proposal: %w", err)
	}
	if hasActive {
		return false, nil
	}
	pinned, err := sub.GetScriptVersion(proposal.ProtocolVersion)
	if err != nil {
		return false, fmt.Errorf("lookup script version: %w", err)
	}
	if pinned == nil {
		err := sub.AddScriptVersionDep(
			proposal.ProtocolVersion,
			proposal.ScriptVersion,
		)
		if err != nil {
			return false, fmt.Errorf("pin script version: %w", err)
		}
	} else if *pinned != proposal.ScriptVersion {
		return false, nil
	}
	confirmed, err := sub.GetLastConfirmedVersion(appName)
	if err != nil {
		return false, fmt.Errorf("lookup confirmed version: %w", err)
	}
	if !softwareVersionFollows(confirmed, proposal.SoftwareVersion.Number) {
		return false, nil
	}
	if considerThreshold {
		totalStake, err := sub.GetEpochTotalStake(undecided.Epoch)
		if err != nil {
			return false, fmt.Errorf("lookup epoch total stake: %w", err)
		}
		if totalStake == nil {
			return false, nil
		}
		if !meetsThreshold(
			undecided.PositiveStake(),
			*totalStake,
			a.config.ProposalThreshold,
		) {
			return false, nil
		}
	}
	if err := sub.PutProposal(id, NewUndecided(undecided)); err != nil {
		return false, fmt.Errorf("put proposal: %w", err)
	}
	if _, err := sub.commit(); err != nil {
		return false, fmt.Errorf("commit proposal revalidation: %w", err)
	}
	return true, nil
}
