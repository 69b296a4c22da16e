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

// Package update implements the software-update governance engine: it
// verifies and applies update proposals and stake-weighted votes against a
// poll store, producing undo records that allow the surrounding block
// processing pipeline to roll back chain reorganizations without corrupting
// governance state.
package update

import (
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
)

// UpId uniquely identifies an update proposal. It is the Blake2b-256 hash
// of the proposal's canonical CBOR encoding and is immutable once created.
type UpId = lcommon.Blake2b256

// StakeholderId identifies a stakeholder. It is derived from the
// stakeholder's verification key via Blake2b-224.
type StakeholderId = lcommon.Blake2b224

// ApplicationName names an application whose software version is tracked
// on chain.
type ApplicationName string

// NumSoftwareVersion is the integral part of a software version. Confirmed
// versions for an application advance strictly by one.
type NumSoftwareVersion uint32

// ScriptVersion identifies the on-chain validation script logic tied to a
// protocol version.
type ScriptVersion uint16

// Coin is an amount of stake in lovelace.
type Coin uint64

// ProtocolVersion is the chain protocol version a proposal targets.
type ProtocolVersion struct {
	cbor.StructAsArray
	Major uint16
	Minor uint16
	Alt   uint8
}

func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Alt)
}

// SoftwareVersion is an application name paired with a version number.
type SoftwareVersion struct {
	cbor.StructAsArray
	AppName ApplicationName
	Number  NumSoftwareVersion
}

func (v SoftwareVersion) String() string {
	return fmt.Sprintf("%s:%d", v.AppName, v.Number)
}

// UpdateProposal is a request to change the protocol, script, or software
// version of the chain. Signature verification is assumed to have been
// performed upstream before the proposal reaches this package.
type UpdateProposal struct {
	cbor.StructAsArray
	ProtocolVersion ProtocolVersion
	ScriptVersion   ScriptVersion
	SoftwareVersion SoftwareVersion
	ProposerKey     []byte
}

// Id computes the proposal's identifier from its canonical CBOR encoding.
func (p *UpdateProposal) Id() (UpId, error) {
	rawCbor, err := cbor.Encode(p)
	if err != nil {
		return UpId{}, fmt.Errorf("encode proposal: %w", err)
	}
	return lcommon.Blake2b256Hash(rawCbor), nil
}

// UpdateVote is a stake-weighted yes/no signal for a specific proposal.
// The vote's signature is assumed valid.
type UpdateVote struct {
	cbor.StructAsArray
	ProposalId UpId
	VoterKey   []byte
	Decision   bool
}

// Stakeholder derives the voter's stakeholder id from their key.
func (v *UpdateVote) Stakeholder() StakeholderId {
	return lcommon.Blake2b224Hash(v.VoterKey)
}

// UpdatePayload is one block's worth of update activity: at most one new
// proposal plus any number of votes, which may target the payload's own
// proposal or other proposals already tracked by the poll.
type UpdatePayload struct {
	cbor.StructAsArray
	Proposal *UpdateProposal
	Votes    []UpdateVote
}

// VoteState is the recorded voting position of a single stakeholder on an
// undecided proposal, along with the stake it carried when cast.
type VoteState struct {
	cbor.StructAsArray
	Decision bool
	Stake    Coin
}

// UndecidedProposalState tracks a proposal that is still accumulating
// votes. Votes is keyed by stakeholder id; a repeat vote by the same
// stakeholder overwrites the earlier entry.
type UndecidedProposalState struct {
	cbor.StructAsArray
	Proposal UpdateProposal
	Slot     uint64
	Epoch    uint64
	Votes    map[StakeholderId]VoteState
}

// DecidedProposalState is a proposal whose outcome has been fixed. Decided
// proposals are immutable and reject further votes.
type DecidedProposalState struct {
	cbor.StructAsArray
	Proposal    UpdateProposal
	Accepted    bool
	DecidedSlot uint64
}

// ProposalState is the tracked state of a proposal: exactly one of
// Undecided or Decided is set.
type ProposalState struct {
	cbor.StructAsArray
	Undecided *UndecidedProposalState
	Decided   *DecidedProposalState
}

// NewUndecided wraps an undecided state as a ProposalState.
func NewUndecided(s *UndecidedProposalState) *ProposalState {
	return &ProposalState{Undecided: s}
}

// NewDecided wraps a decided state as a ProposalState.
func NewDecided(s *DecidedProposalState) *ProposalState {
	return &ProposalState{Decided: s}
}

// IsDecided returns true when the proposal's outcome has been fixed.
func (s *ProposalState) IsDecided() bool {
	return s.Decided != nil
}

// Proposal returns the underlying proposal body.
func (s *ProposalState) Proposal() UpdateProposal {
	if s.Decided != nil {
		return s.Decided.Proposal
	}
	return s.Undecided.Proposal
}

// AppName returns the application the proposal targets.
func (s *ProposalState) AppName() ApplicationName {
	return s.Proposal().SoftwareVersion.AppName
}

// Copy returns a deep copy of the proposal state. Vote maps are copied so
// that mutating the copy cannot alias the original.
func (s *ProposalState) Copy() *ProposalState {
	if s == nil {
		return nil
	}
	ret := &ProposalState{}
	if s.Undecided != nil {
		tmpUndecided := *s.Undecided
		tmpUndecided.Votes = make(
			map[StakeholderId]VoteState,
			len(s.Undecided.Votes),
		)
		for k, v := range s.Undecided.Votes {
			tmpUndecided.Votes[k] = v
		}
		ret.Undecided = &tmpUndecided
	}
	if s.Decided != nil {
		tmpDecided := *s.Decided
		ret.Decided = &tmpDecided
	}
	return ret
}

// PositiveStake sums the stake behind positive votes on an undecided
// proposal.
func (s *UndecidedProposalState) PositiveStake() Coin {
	var total Coin
	for _, vote := range s.Votes {
		if vote.Decision {
			total += vote.Stake
		}
	}
	return total
}
