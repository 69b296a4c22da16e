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
	"github.com/blinklabs-io/quoll/event"
)

const (
	// ProposalEventType is emitted when a new update proposal is applied
	ProposalEventType = event.EventType("update.proposal")
	// VoteEventType is emitted for each vote folded into a tracked proposal
	VoteEventType = event.EventType("update.vote")
	// DecisionEventType is emitted when a tracked proposal is decided
	DecisionEventType = event.EventType("update.decision")
	// RollbackEventType is emitted when an applied payload is rolled back
	RollbackEventType = event.EventType("update.rollback")
	// NormalizeEventType is emitted when normalization drops proposals
	NormalizeEventType = event.EventType("update.normalize")
)

// ProposalEvent is emitted when a new update proposal is verified and
// applied to the poll
type ProposalEvent struct {
	// ProposalId is the content hash identifying the proposal
	ProposalId UpId
	// AppName is the application the proposal targets
	AppName ApplicationName
	// SoftwareVersion is the proposed software version number
	SoftwareVersion NumSoftwareVersion
	// ProtocolVersion is the proposed protocol version
	ProtocolVersion ProtocolVersion
	// Epoch is the epoch whose stake snapshot governs voting
	Epoch uint64
	// Slot is the slot the proposal originated in
	Slot uint64
}

// VoteEvent is emitted for each vote applied to a tracked proposal
type VoteEvent struct {
	// ProposalId is the vote's target proposal
	ProposalId UpId
	// Stakeholder is the voter's derived stakeholder id
	Stakeholder StakeholderId
	// Decision is the vote's yes/no position
	Decision bool
	// Slot is the slot the vote was applied in
	Slot uint64
}

// DecisionEvent is emitted when a tracked proposal moves to a decided
// state
type DecisionEvent struct {
	// ProposalId is the decided proposal
	ProposalId UpId
	// AppName is the application the proposal targets
	AppName ApplicationName
	// Accepted is the decision outcome
	Accepted bool
	// Slot is the slot the decision took effect
	Slot uint64
}

// RollbackEvent is emitted after an applied payload has been reversed
type RollbackEvent struct {
	// Proposals is the number of proposal entries restored
	Proposals int
	// ScriptVersions is the number of script-version pins restored
	ScriptVersions int
	// ConfirmedVersions is the number of confirmed versions restored
	ConfirmedVersions int
}

// NormalizeEvent is emitted after a normalization pass
type NormalizeEvent struct {
	// Dropped lists the proposals removed because they no longer validate
	Dropped []UpId
}
