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
	"io"
	"log/slog"
	"math/big"

	"github.com/blinklabs-io/quoll/event"
	"github.com/prometheus/client_golang/prometheus"
)

// Mainnet default governance thresholds: a proposal needs positive votes
// backed by 10% of total stake, and a single vote counts only when the
// voter holds at least 0.1% of total stake.
const (
	DefaultProposalThreshold = "1/10"
	DefaultVoteThreshold     = "1/1000"
)

// ApplierConfig configures an update Applier. Thresholds are fractions of
// total epoch stake in [0,1]; nil selects the mainnet defaults.
type ApplierConfig struct {
	Logger            *slog.Logger
	EventBus          *event.EventBus
	PromRegistry      prometheus.Registerer
	ProposalThreshold *big.Rat
	VoteThreshold     *big.Rat
}

// Applier verifies and applies update payloads against a poll store. It is
// pure synchronous state-transition logic: no two applications may run
// concurrently against the same store, and each application is
// all-or-nothing.
type Applier struct {
	config  ApplierConfig
	metrics *applierMetrics
}

// NewApplier creates an Applier from the provided config.
func NewApplier(cfg ApplierConfig) *Applier {
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.ProposalThreshold == nil {
		cfg.ProposalThreshold, _ = new(big.Rat).SetString(
			DefaultProposalThreshold,
		)
	}
	if cfg.VoteThreshold == nil {
		cfg.VoteThreshold, _ = new(big.Rat).SetString(DefaultVoteThreshold)
	}
	a := &Applier{config: cfg}
	if cfg.PromRegistry != nil {
		a.metrics = &applierMetrics{}
		a.metrics.init(cfg.PromRegistry)
	}
	return a
}

// voteGroup is a run of votes sharing one target proposal, in payload
// order.
type voteGroup struct {
	id    UpId
	votes []UpdateVote
}

// VerifyAndApply validates one block's worth of update activity and folds
// it into the poll. Processing order is deterministic: the payload's own
// proposal first (with any votes that target it), then the remaining vote
// groups in order of first appearance, votes within a group in payload
// order.
//
// The application is transactional: on any validation error no mutation is
// observable in the poll and the error is returned unchanged. On success
// the returned Undo is sufficient for exact reversal via Rollback.
//
// considerThreshold gates only proposal acceptance by required stake; it
// never applies to votes on already-tracked proposals.
func (a *Applier) VerifyAndApply(
	poll PollStore,
	considerThreshold bool,
	epoch uint64,
	slot uint64,
	payload *UpdatePayload,
) (*Undo, error) {
	overlay := newPollOverlay(poll)
	// Partition votes into those for the payload's own proposal and
	// groups targeting other proposals
	var ownId UpId
	var ownVotes []UpdateVote
	var groups []*voteGroup
	groupsById := make(map[UpId]*voteGroup)
	if payload.Proposal != nil {
		var err error
		ownId, err = payload.Proposal.Id()
		if err != nil {
			return nil, err
		}
	}
	for _, vote := range payload.Votes {
		if payload.Proposal != nil && vote.ProposalId == ownId {
			ownVotes = append(ownVotes, vote)
			continue
		}
		group, ok := groupsById[vote.ProposalId]
		if !ok {
			group = &voteGroup{id: vote.ProposalId}
			groupsById[vote.ProposalId] = group
			groups = append(groups, group)
		}
		group.votes = append(group.votes, vote)
	}
	// Proposal first, then vote groups
	if payload.Proposal != nil {
		err := a.verifyAndApplyProposal(
			overlay,
			considerThreshold,
			epoch,
			slot,
			ownId,
			ownVotes,
			payload.Proposal,
		)
		if err != nil {
			a.countRejection(err)
			return nil, err
		}
	}
	for _, group := range groups {
		if err := a.verifyAndApplyVoteGroup(overlay, group); err != nil {
			a.countRejection(err)
			return nil, err
		}
	}
	undo, err := overlay.commit()
	if err != nil {
		return nil, fmt.Errorf("commit update payload: %w", err)
	}
	a.recordApplied(epoch, slot, payload, ownId)
	return undo, nil
}

// verifyAndApplyProposal validates a new proposal against the poll
// invariants and seeds it as an undecided proposal with its resolved
// votes.
func (a *Applier) verifyAndApplyProposal(
	overlay *pollOverlay,
	considerThreshold bool,
	epoch uint64,
	slot uint64,
	id UpId,
	votes []UpdateVote,
	proposal *UpdateProposal,
) error {
	appName := proposal.SoftwareVersion.AppName
	// At most one active proposal per application
	hasActive, err := overlay.HasActiveProposal(appName)
	if err != nil {
		return fmt.Errorf("lookup active proposal: %w", err)
	}
	if hasActive {
		return DuplicateActiveProposalError{
			AppName: appName,
			Given:   proposal.SoftwareVersion.Number,
		}
	}
	// Script version: first proposal for a protocol version pins it,
	// later ones must match exactly
	pinned, err := overlay.GetScriptVersion(proposal.ProtocolVersion)
	if err != nil {
		return fmt.Errorf("lookup script version: %w", err)
	}
	if pinned == nil {
		err := overlay.AddScriptVersionDep(
			proposal.ProtocolVersion,
			proposal.ScriptVersion,
		)
		if err != nil {
			return fmt.Errorf("pin script version: %w", err)
		}
	} else if *pinned != proposal.ScriptVersion {
		return ScriptVersionMismatchError{
			Expected:   *pinned,
			Found:      proposal.ScriptVersion,
			ProposalId: id,
		}
	}
	// Software version advances by exactly one from the last confirmed
	// value; a new application may start at 0 or 1
	confirmed, err := overlay.GetLastConfirmedVersion(appName)
	if err != nil {
		return fmt.Errorf("lookup confirmed version: %w", err)
	}
	if !softwareVersionFollows(confirmed, proposal.SoftwareVersion.Number) {
		return SoftwareVersionMismatchError{
			Stored:     confirmed,
			Given:      proposal.SoftwareVersion.Number,
			AppName:    appName,
			ProposalId: id,
		}
	}
	totalStake, err := overlay.GetEpochTotalStake(epoch)
	if err != nil {
		return fmt.Errorf("lookup epoch total stake: %w", err)
	}
	if totalStake == nil {
		return UnknownEpochStakeError{Epoch: epoch}
	}
	// Resolve stake for every vote, last vote per stakeholder wins
	voteStates := make(map[StakeholderId]VoteState)
	for _, vote := range votes {
		stake, err := a.resolveVoteStake(overlay, epoch, *totalStake, vote)
		if err != nil {
			return err
		}
		voteStates[vote.Stakeholder()] = VoteState{
			Decision: vote.Decision,
			Stake:    stake,
		}
	}
	if considerThreshold {
		var positiveStake Coin
		for _, voteState := range voteStates {
			if voteState.Decision {
				positiveStake += voteState.Stake
			}
		}
		if !meetsThreshold(
			positiveStake,
			*totalStake,
			a.config.ProposalThreshold,
		) {
			return InsufficientProposalStakeError{
				Threshold: thresholdAmount(
					*totalStake,
					a.config.ProposalThreshold,
				),
				Actual:     positiveStake,
				ProposalId: id,
			}
		}
	}
	err = overlay.PutProposal(id, NewUndecided(&UndecidedProposalState{
		Proposal: *proposal,
		Slot:     slot,
		Epoch:    epoch,
		Votes:    voteStates,
	}))
	if err != nil {
		return fmt.Errorf("put proposal: %w", err)
	}
	return nil
}

// verifyAndApplyVoteGroup folds a group of votes sharing one target into
// that proposal's voting record. The proposal's recorded epoch selects the
// stake snapshot, so late votes count against the same snapshot as the
// proposal itself.
func (a *Applier) verifyAndApplyVoteGroup(
	overlay *pollOverlay,
	group *voteGroup,
) error {
	state, err := overlay.GetProposal(group.id)
	if err != nil {
		return fmt.Errorf("lookup proposal: %w", err)
	}
	if state == nil {
		return UnknownProposalError{
			Stakeholder: group.votes[0].Stakeholder(),
			ProposalId:  group.id,
		}
	}
	if state.IsDecided() {
		return ProposalDecidedError{
			ProposalId:  group.id,
			Stakeholder: group.votes[0].Stakeholder(),
		}
	}
	undecided := state.Undecided
	totalStake, err := overlay.GetEpochTotalStake(undecided.Epoch)
	if err != nil {
		return fmt.Errorf("lookup epoch total stake: %w", err)
	}
	if totalStake == nil {
		return UnknownEpochStakeError{Epoch: undecided.Epoch}
	}
	for _, vote := range group.votes {
		stake, err := a.resolveVoteStake(
			overlay,
			undecided.Epoch,
			*totalStake,
			vote,
		)
		if err != nil {
			return err
		}
		// Last writer wins: repeat votes by the same stakeholder are
		// not an error
		undecided.Votes[vote.Stakeholder()] = VoteState{
			Decision: vote.Decision,
			Stake:    stake,
		}
	}
	if err := overlay.PutProposal(group.id, state); err != nil {
		return fmt.Errorf("put proposal: %w", err)
	}
	return nil
}

// resolveVoteStake derives the voter's stakeholder id and returns their
// eligible stake for the epoch. Voters absent from the stake snapshot or
// below the vote threshold are not richmen and cannot vote.
func (a *Applier) resolveVoteStake(
	poll PollStore,
	epoch uint64,
	totalStake Coin,
	vote UpdateVote,
) (Coin, error) {
	stakeholder := vote.Stakeholder()
	stake, err := poll.GetRichmanStake(epoch, stakeholder)
	if err != nil {
		return 0, fmt.Errorf("lookup richman stake: %w", err)
	}
	if stake == nil {
		return 0, NotRichmanError{Stakeholder: stakeholder}
	}
	if !meetsThreshold(*stake, totalStake, a.config.VoteThreshold) {
		return 0, NotRichmanError{Stakeholder: stakeholder, Stake: stake}
	}
	return *stake, nil
}

// DecideProposal fixes the outcome of a tracked undecided proposal. When
// accepted, the application's last-confirmed software version advances to
// the proposal's number. The trigger for deciding (threshold crossing,
// expiry) belongs to the caller; this provides the reversible state
// transition.
func (a *Applier) DecideProposal(
	poll PollStore,
	id UpId,
	accepted bool,
	slot uint64,
) (*Undo, error) {
	overlay := newPollOverlay(poll)
	state, err := overlay.GetProposal(id)
	if err != nil {
		return nil, fmt.Errorf("lookup proposal: %w", err)
	}
	if state == nil {
		return nil, UnknownProposalError{ProposalId: id}
	}
	if state.IsDecided() {
		return nil, ProposalDecidedError{ProposalId: id}
	}
	proposal := state.Undecided.Proposal
	err = overlay.PutProposal(id, NewDecided(&DecidedProposalState{
		Proposal:    proposal,
		Accepted:    accepted,
		DecidedSlot: slot,
	}))
	if err != nil {
		return nil, fmt.Errorf("put proposal: %w", err)
	}
	if accepted {
		err = overlay.SetLastConfirmedVersion(
			proposal.SoftwareVersion.AppName,
			proposal.SoftwareVersion.Number,
		)
		if err != nil {
			return nil, fmt.Errorf("set confirmed version: %w", err)
		}
	}
	undo, err := overlay.commit()
	if err != nil {
		return nil, fmt.Errorf("commit decision: %w", err)
	}
	if a.metrics != nil {
		a.metrics.proposalsDecided.Inc()
	}
	a.config.Logger.Info(
		"update proposal decided",
		"proposal", id.String(),
		"app", string(proposal.SoftwareVersion.AppName),
		"accepted", accepted,
		"component", "update",
	)
	if a.config.EventBus != nil {
		a.config.EventBus.Publish(
			DecisionEventType,
			event.NewEvent(DecisionEventType, DecisionEvent{
				ProposalId: id,
				AppName:    proposal.SoftwareVersion.AppName,
				Accepted:   accepted,
				Slot:       slot,
			}),
		)
	}
	return undo, nil
}

func (a *Applier) countRejection(err error) {
	if a.metrics != nil {
		a.metrics.payloadsRejected.WithLabelValues(errorReason(err)).Inc()
	}
}

func (a *Applier) recordApplied(
	epoch uint64,
	slot uint64,
	payload *UpdatePayload,
	ownId UpId,
) {
	if a.metrics != nil {
		if payload.Proposal != nil {
			a.metrics.proposalsApplied.Inc()
		}
		a.metrics.votesApplied.Add(float64(len(payload.Votes)))
	}
	if payload.Proposal != nil {
		a.config.Logger.Info(
			"update proposal applied",
			"proposal", ownId.String(),
			"app", string(payload.Proposal.SoftwareVersion.AppName),
			"version", payload.Proposal.SoftwareVersion.Number,
			"epoch", epoch,
			"slot", slot,
			"component", "update",
		)
	}
	if a.config.EventBus != nil {
		if payload.Proposal != nil {
			a.config.EventBus.Publish(
				ProposalEventType,
				event.NewEvent(ProposalEventType, ProposalEvent{
					ProposalId:      ownId,
					AppName:         payload.Proposal.SoftwareVersion.AppName,
					SoftwareVersion: payload.Proposal.SoftwareVersion.Number,
					ProtocolVersion: payload.Proposal.ProtocolVersion,
					Epoch:           epoch,
					Slot:            slot,
				}),
			)
		}
		for _, vote := range payload.Votes {
			a.config.EventBus.Publish(
				VoteEventType,
				event.NewEvent(VoteEventType, VoteEvent{
					ProposalId:  vote.ProposalId,
					Stakeholder: vote.Stakeholder(),
					Decision:    vote.Decision,
					Slot:        slot,
				}),
			)
		}
	}
}

// softwareVersionFollows reports whether a proposed version number may
// follow the last confirmed one. A new application starts at 0 or 1;
// afterwards versions advance by exactly one.
func softwareVersionFollows(
	confirmed *NumSoftwareVersion,
	given NumSoftwareVersion,
) bool {
	if confirmed == nil {
		return given <= 1
	}
	return given == *confirmed+1
}

// meetsThreshold reports whether stake reaches the given fraction of
// total, using exact cross-multiplied integer arithmetic. The comparison
// is non-strict: stake exactly at the threshold qualifies.
func meetsThreshold(stake Coin, total Coin, frac *big.Rat) bool {
	lhs := new(big.Int).Mul(
		new(big.Int).SetUint64(uint64(stake)),
		frac.Denom(),
	)
	rhs := new(big.Int).Mul(
		new(big.Int).SetUint64(uint64(total)),
		frac.Num(),
	)
	return lhs.Cmp(rhs) >= 0
}

// thresholdAmount returns the smallest stake meeting the fraction of
// total, for error reporting.
func thresholdAmount(total Coin, frac *big.Rat) Coin {
	num := new(big.Int).Mul(
		new(big.Int).SetUint64(uint64(total)),
		frac.Num(),
	)
	quo, rem := new(big.Int).QuoRem(num, frac.Denom(), new(big.Int))
	if rem.Sign() != 0 {
		quo.Add(quo, big.NewInt(1))
	}
	return Coin(quo.Uint64())
}
