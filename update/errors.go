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
)

// Update validation error types
//
// These are validation outcomes, not crashes: the first one encountered
// aborts the whole payload and propagates unchanged to the block
// application pipeline, which decides whether to reject the enclosing
// block.

// DuplicateActiveProposalError is returned when a new proposal targets an
// application that already has an active (tracked) proposal.
type DuplicateActiveProposalError struct {
	AppName ApplicationName
	Given   NumSoftwareVersion
}

func (e DuplicateActiveProposalError) Error() string {
	return fmt.Sprintf(
		"active proposal already exists for application %s (given version %d)",
		e.AppName,
		e.Given,
	)
}

// ScriptVersionMismatchError is returned when a proposal's script version
// disagrees with the version already pinned for its protocol version.
type ScriptVersionMismatchError struct {
	Expected   ScriptVersion
	Found      ScriptVersion
	ProposalId UpId
}

func (e ScriptVersionMismatchError) Error() string {
	return fmt.Sprintf(
		"script version mismatch for proposal %s: expected %d, found %d",
		e.ProposalId.String(),
		e.Expected,
		e.Found,
	)
}

// SoftwareVersionMismatchError is returned when a proposal's software
// version does not follow the last confirmed version for its application.
// Stored is nil when no version has been confirmed yet.
type SoftwareVersionMismatchError struct {
	Stored     *NumSoftwareVersion
	Given      NumSoftwareVersion
	AppName    ApplicationName
	ProposalId UpId
}

func (e SoftwareVersionMismatchError) Error() string {
	stored := "none"
	if e.Stored != nil {
		stored = fmt.Sprintf("%d", *e.Stored)
	}
	return fmt.Sprintf(
		"software version mismatch for application %s in proposal %s: stored %s, given %d",
		e.AppName,
		e.ProposalId.String(),
		stored,
		e.Given,
	)
}

// UnknownEpochStakeError is returned when no total stake snapshot exists
// for the epoch being voted in.
type UnknownEpochStakeError struct {
	Epoch uint64
}

func (e UnknownEpochStakeError) Error() string {
	return fmt.Sprintf(
		"no total stake snapshot for epoch %d",
		e.Epoch,
	)
}

// NotRichmanError is returned when a voter is ineligible: either absent
// from the epoch's stake snapshot (Stake is nil) or below the vote
// threshold (Stake holds the insufficient amount).
type NotRichmanError struct {
	Stakeholder StakeholderId
	Stake       *Coin
}

func (e NotRichmanError) Error() string {
	if e.Stake == nil {
		return fmt.Sprintf(
			"stakeholder %s not present in stake snapshot",
			e.Stakeholder.String(),
		)
	}
	return fmt.Sprintf(
		"stakeholder %s stake %d below vote threshold",
		e.Stakeholder.String(),
		*e.Stake,
	)
}

// InsufficientProposalStakeError is returned when the positive stake
// behind a new proposal does not reach the proposal acceptance threshold.
type InsufficientProposalStakeError struct {
	Threshold  Coin
	Actual     Coin
	ProposalId UpId
}

func (e InsufficientProposalStakeError) Error() string {
	return fmt.Sprintf(
		"insufficient stake for proposal %s: have %d, need %d",
		e.ProposalId.String(),
		e.Actual,
		e.Threshold,
	)
}

// UnknownProposalError is returned when a vote targets a proposal id that
// the poll does not track.
type UnknownProposalError struct {
	Stakeholder StakeholderId
	ProposalId  UpId
}

func (e UnknownProposalError) Error() string {
	return fmt.Sprintf(
		"vote by stakeholder %s targets unknown proposal %s",
		e.Stakeholder.String(),
		e.ProposalId.String(),
	)
}

// ProposalDecidedError is returned when a vote targets a proposal whose
// outcome has already been fixed.
type ProposalDecidedError struct {
	ProposalId  UpId
	Stakeholder StakeholderId
}

func (e ProposalDecidedError) Error() string {
	return fmt.Sprintf(
		"vote by stakeholder %s targets decided proposal %s",
		e.Stakeholder.String(),
		e.ProposalId.String(),
	)
}

// errorReason maps a validation error to a short label used for metrics.
func errorReason(err error) string {
	switch err.(type) {
	case DuplicateActiveProposalError:
		return "duplicate_active_proposal"
	case ScriptVersionMismatchError:
		return "script_version_mismatch"
	case SoftwareVersionMismatchError:
		return "software_version_mismatch"
	case UnknownEpochStakeError:
		return "unknown_epoch_stake"
	case NotRichmanError:
		return "not_richman"
	case InsufficientProposalStakeError:
		return "insufficient_proposal_stake"
	case UnknownProposalError:
		return "unknown_proposal"
	case ProposalDecidedError:
		return "proposal_decided"
	default:
		return "other"
	}
}
