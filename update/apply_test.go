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
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEpoch = uint64(7)

func testApplier(
	proposalThreshold string,
	voteThreshold string,
) *Applier {
	cfg := ApplierConfig{}
	if proposalThreshold != "" {
		cfg.ProposalThreshold, _ = new(big.Rat).SetString(proposalThreshold)
	}
	if voteThreshold != "" {
		cfg.VoteThreshold, _ = new(big.Rat).SetString(voteThreshold)
	}
	return NewApplier(cfg)
}

func testProposal(
	appName string,
	number NumSoftwareVersion,
	pv ProtocolVersion,
	sv ScriptVersion,
) *UpdateProposal {
	return &UpdateProposal{
		ProtocolVersion: pv,
		ScriptVersion:   sv,
		SoftwareVersion: SoftwareVersion{
			AppName: ApplicationName(appName),
			Number:  number,
		},
		ProposerKey: []byte("proposer-" + appName),
	}
}

func testVote(
	t *testing.T,
	proposal *UpdateProposal,
	voterKey string,
	decision bool,
) UpdateVote {
	t.Helper()
	id, err := proposal.Id()
	require.NoError(t, err)
	return UpdateVote{
		ProposalId: id,
		VoterKey:   []byte(voterKey),
		Decision:   decision,
	}
}

func seedRichman(
	poll *MemPoll,
	epoch uint64,
	voterKey string,
	stake Coin,
) {
	vote := UpdateVote{VoterKey: []byte(voterKey)}
	poll.SetRichmanStake(epoch, vote.Stakeholder(), stake)
}

func stakeholderId(voterKey string) StakeholderId {
	vote := UpdateVote{VoterKey: []byte(voterKey)}
	return vote.Stakeholder()
}

func TestVerifyAndApplyProposalWithVotes(t *testing.T) {
	// totalStake=1000, proposal threshold 1/2 (500). Two positive votes
	// with stakes 300 and 250 reach the threshold.
	poll := NewMemPoll()
	poll.SetEpochTotalStake(testEpoch, 1000)
	seedRichman(poll, testEpoch, "v1", 300)
	seedRichman(poll, testEpoch, "v2", 250)
	applier := testApplier("1/2", "1/1000")

	proposal := testProposal("A", 1, ProtocolVersion{Major: 1}, 0)
	id, err := proposal.Id()
	require.NoError(t, err)
	payload := &UpdatePayload{
		Proposal: proposal,
		Votes: []UpdateVote{
			testVote(t, proposal, "v1", true),
			testVote(t, proposal, "v2", true),
		},
	}

	undo, err := applier.VerifyAndApply(poll, true, testEpoch, 100, payload)
	require.NoError(t, err)
	require.NotNil(t, undo)

	state, err := poll.GetProposal(id)
	require.NoError(t, err)
	require.NotNil(t, state)
	require.NotNil(t, state.Undecided)
	assert.Nil(t, state.Decided)
	assert.Equal(t, uint64(100), state.Undecided.Slot)
	assert.Equal(t, testEpoch, state.Undecided.Epoch)
	assert.Len(t, state.Undecided.Votes, 2)
	assert.Equal(
		t,
		VoteState{Decision: true, Stake: 300},
		state.Undecided.Votes[stakeholderId("v1")],
	)
	assert.Equal(
		t,
		VoteState{Decision: true, Stake: 250},
		state.Undecided.Votes[stakeholderId("v2")],
	)
	assert.Equal(t, Coin(550), state.Undecided.PositiveStake())
}

func TestVerifyAndApplyInsufficientStake(t *testing.T) {
	// Same as above but only the 300-stake vote: 300 < 500 threshold.
	// The store must be unchanged, including the script version pin.
	poll := NewMemPoll()
	poll.SetEpochTotalStake(testEpoch, 1000)
	seedRichman(poll, testEpoch, "v1", 300)
	applier := testApplier("1/2", "1/1000")

	proposal := testProposal("A", 1, ProtocolVersion{Major: 1}, 0)
	id, err := proposal.Id()
	require.NoError(t, err)
	payload := &UpdatePayload{
		Proposal: proposal,
		Votes:    []UpdateVote{testVote(t, proposal, "v1", true)},
	}

	undo, err := applier.VerifyAndApply(poll, true, testEpoch, 100, payload)
	assert.Nil(t, undo)
	require.Error(t, err)
	expectedErr := InsufficientProposalStakeError{
		Threshold:  500,
		Actual:     300,
		ProposalId: id,
	}
	assert.Equal(t, expectedErr, err)

	state, err := poll.GetProposal(id)
	require.NoError(t, err)
	assert.Nil(t, state)
	pinned, err := poll.GetScriptVersion(ProtocolVersion{Major: 1})
	require.NoError(t, err)
	assert.Nil(t, pinned)
}

func TestSoftwareVersionMustFollowConfirmed(t *testing.T) {
	// App "A" has last-confirmed=2: number 4 fails, number 3 passes.
	poll := NewMemPoll()
	poll.SetEpochTotalStake(testEpoch, 1000)
	require.NoError(
		t,
		poll.SetLastConfirmedVersion(ApplicationName("A"), 2),
	)
	applier := testApplier("", "")

	badProposal := testProposal("A", 4, ProtocolVersion{Major: 1}, 0)
	badId, err := badProposal.Id()
	require.NoError(t, err)
	_, err = applier.VerifyAndApply(
		poll,
		false,
		testEpoch,
		100,
		&UpdatePayload{Proposal: badProposal},
	)
	require.Error(t, err)
	var mismatch SoftwareVersionMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.NotNil(t, mismatch.Stored)
	assert.Equal(t, NumSoftwareVersion(2), *mismatch.Stored)
	assert.Equal(t, NumSoftwareVersion(4), mismatch.Given)
	assert.Equal(t, badId, mismatch.ProposalId)

	goodProposal := testProposal("A", 3, ProtocolVersion{Major: 1}, 0)
	_, err = applier.VerifyAndApply(
		poll,
		false,
		testEpoch,
		100,
		&UpdatePayload{Proposal: goodProposal},
	)
	assert.NoError(t, err)
}

func TestNewApplicationVersionStart(t *testing.T) {
	// A new application may start at version 0 or 1 but nothing higher
	tests := []struct {
		name      string
		number    NumSoftwareVersion
		expectErr bool
	}{
		{name: "zero", number: 0},
		{name: "one", number: 1},
		{name: "two", number: 2, expectErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poll := NewMemPoll()
			poll.SetEpochTotalStake(testEpoch, 1000)
			applier := testApplier("", "")
			proposal := testProposal(
				"fresh",
				tt.number,
				ProtocolVersion{Major: 1},
				0,
			)
			_, err := applier.VerifyAndApply(
				poll,
				false,
				testEpoch,
				100,
				&UpdatePayload{Proposal: proposal},
			)
			if tt.expectErr {
				var mismatch SoftwareVersionMismatchError
				require.ErrorAs(t, err, &mismatch)
				assert.Nil(t, mismatch.Stored)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVoteThresholdBoundary(t *testing.T) {
	// Vote threshold 1/10 of total 1000: stake exactly 100 qualifies,
	// 99 does not.
	tests := []struct {
		name      string
		stake     Coin
		expectErr bool
	}{
		{name: "exactly at threshold", stake: 100},
		{name: "one below threshold", stake: 99, expectErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poll := NewMemPoll()
			poll.SetEpochTotalStake(testEpoch, 1000)
			seedRichman(poll, testEpoch, "voter", tt.stake)
			applier := testApplier("1/2", "1/10")

			proposal := testProposal("A", 1, ProtocolVersion{Major: 1}, 0)
			payload := &UpdatePayload{
				Proposal: proposal,
				Votes:    []UpdateVote{testVote(t, proposal, "voter", true)},
			}
			_, err := applier.VerifyAndApply(
				poll,
				false,
				testEpoch,
				100,
				payload,
			)
			if tt.expectErr {
				var notRichman NotRichmanError
				require.ErrorAs(t, err, &notRichman)
				require.NotNil(t, notRichman.Stake)
				assert.Equal(t, tt.stake, *notRichman.Stake)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVoterAbsentFromSnapshot(t *testing.T) {
	poll := NewMemPoll()
	poll.SetEpochTotalStake(testEpoch, 1000)
	applier := testApplier("", "")

	proposal := testProposal("A", 1, ProtocolVersion{Major: 1}, 0)
	payload := &UpdatePayload{
		Proposal: proposal,
		Votes:    []UpdateVote{testVote(t, proposal, "nobody", true)},
	}
	_, err := applier.VerifyAndApply(poll, false, testEpoch, 100, payload)
	var notRichman NotRichmanError
	require.ErrorAs(t, err, &notRichman)
	assert.Nil(t, notRichman.Stake)
	assert.Equal(t, stakeholderId("nobody"), notRichman.Stakeholder)
}

func TestDuplicateActiveProposal(t *testing.T) {
	poll := NewMemPoll()
	poll.SetEpochTotalStake(testEpoch, 1000)
	applier := testApplier("", "")

	first := testProposal("A", 0, ProtocolVersion{Major: 1}, 0)
	_, err := applier.VerifyAndApply(
		poll,
		false,
		testEpoch,
		100,
		&UpdatePayload{Proposal: first},
	)
	require.NoError(t, err)

	second := testProposal("A", 1, ProtocolVersion{Major: 1}, 0)
	_, err = applier.VerifyAndApply(
		poll,
		false,
		testEpoch,
		101,
		&UpdatePayload{Proposal: second},
	)
	var dup DuplicateActiveProposalError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, ApplicationName("A"), dup.AppName)
}

func TestScriptVersionPinning(t *testing.T) {
	poll := NewMemPoll()
	poll.SetEpochTotalStake(testEpoch, 1000)
	applier := testApplier("", "")
	pv := ProtocolVersion{Major: 2}

	// First proposal pins script version 3 for the protocol version
	first := testProposal("A", 0, pv, 3)
	_, err := applier.VerifyAndApply(
		poll,
		false,
		testEpoch,
		100,
		&UpdatePayload{Proposal: first},
	)
	require.NoError(t, err)
	pinned, err := poll.GetScriptVersion(pv)
	require.NoError(t, err)
	require.NotNil(t, pinned)
	assert.Equal(t, ScriptVersion(3), *pinned)

	// Different script version for the same protocol version fails
	conflicting := testProposal("B", 0, pv, 4)
	conflictingId, err := conflicting.Id()
	require.NoError(t, err)
	_, err = applier.VerifyAndApply(
		poll,
		false,
		testEpoch,
		101,
		&UpdatePayload{Proposal: conflicting},
	)
	expectedErr := ScriptVersionMismatchError{
		Expected:   3,
		Found:      4,
		ProposalId: conflictingId,
	}
	assert.Equal(t, expectedErr, err)

	// Matching script version for another application passes
	matching := testProposal("B", 0, pv, 3)
	_, err = applier.VerifyAndApply(
		poll,
		false,
		testEpoch,
		102,
		&UpdatePayload{Proposal: matching},
	)
	assert.NoError(t, err)
}

func TestUnknownEpochStake(t *testing.T) {
	poll := NewMemPoll()
	applier := testApplier("", "")
	proposal := testProposal("A", 0, ProtocolVersion{Major: 1}, 0)
	_, err := applier.VerifyAndApply(
		poll,
		false,
		testEpoch,
		100,
		&UpdatePayload{Proposal: proposal},
	)
	assert.Equal(t, UnknownEpochStakeError{Epoch: testEpoch}, err)
}

func TestVoteForUnknownProposal(t *testing.T) {
	poll := NewMemPoll()
	poll.SetEpochTotalStake(testEpoch, 1000)
	applier := testApplier("", "")

	ghost := testProposal("ghost", 0, ProtocolVersion{Major: 1}, 0)
	payload := &UpdatePayload{
		Votes: []UpdateVote{testVote(t, ghost, "v1", true)},
	}
	_, err := applier.VerifyAndApply(poll, false, testEpoch, 100, payload)
	var unknown UnknownProposalError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, stakeholderId("v1"), unknown.Stakeholder)
}

func TestVoteForDecidedProposal(t *testing.T) {
	poll := NewMemPoll()
	poll.SetEpochTotalStake(testEpoch, 1000)
	seedRichman(poll, testEpoch, "late-voter", 500)
	applier := testApplier("", "")

	proposal := testProposal("A", 0, ProtocolVersion{Major: 1}, 0)
	id, err := proposal.Id()
	require.NoError(t, err)
	_, err = applier.VerifyAndApply(
		poll,
		false,
		testEpoch,
		100,
		&UpdatePayload{Proposal: proposal},
	)
	require.NoError(t, err)
	_, err = applier.DecideProposal(poll, id, true, 110)
	require.NoError(t, err)

	// A vote from a stakeholder who never voted before is still rejected
	payload := &UpdatePayload{
		Votes: []UpdateVote{testVote(t, proposal, "late-voter", true)},
	}
	_, err = applier.VerifyAndApply(poll, false, testEpoch, 120, payload)
	var decided ProposalDecidedError
	require.ErrorAs(t, err, &decided)
	assert.Equal(t, id, decided.ProposalId)
}

func TestLastVotePerStakeholderWins(t *testing.T) {
	poll := NewMemPoll()
	poll.SetEpochTotalStake(testEpoch, 1000)
	seedRichman(poll, testEpoch, "flipper", 400)
	applier := testApplier("", "")

	proposal := testProposal("A", 0, ProtocolVersion{Major: 1}, 0)
	id, err := proposal.Id()
	require.NoError(t, err)
	payload := &UpdatePayload{
		Proposal: proposal,
		Votes: []UpdateVote{
			testVote(t, proposal, "flipper", true),
			testVote(t, proposal, "flipper", false),
		},
	}
	_, err = applier.VerifyAndApply(poll, false, testEpoch, 100, payload)
	require.NoError(t, err)

	state, err := poll.GetProposal(id)
	require.NoError(t, err)
	require.NotNil(t, state.Undecided)
	assert.Len(t, state.Undecided.Votes, 1)
	assert.Equal(
		t,
		VoteState{Decision: false, Stake: 400},
		state.Undecided.Votes[stakeholderId("flipper")],
	)
}

func TestVotesOnTrackedProposalUseRecordedEpoch(t *testing.T) {
	// The proposal is recorded in epoch 7; a later vote arrives while the
	// poll only has a snapshot for epoch 7, and must resolve against it.
	poll := NewMemPoll()
	poll.SetEpochTotalStake(testEpoch, 1000)
	seedRichman(poll, testEpoch, "v1", 400)
	applier := testApplier("", "")

	proposal := testProposal("A", 0, ProtocolVersion{Major: 1}, 0)
	id, err := proposal.Id()
	require.NoError(t, err)
	_, err = applier.VerifyAndApply(
		poll,
		false,
		testEpoch,
		100,
		&UpdatePayload{Proposal: proposal},
	)
	require.NoError(t, err)

	payload := &UpdatePayload{
		Votes: []UpdateVote{testVote(t, proposal, "v1", true)},
	}
	_, err = applier.VerifyAndApply(poll, false, testEpoch+1, 200, payload)
	require.NoError(t, err)

	state, err := poll.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(
		t,
		VoteState{Decision: true, Stake: 400},
		state.Undecided.Votes[stakeholderId("v1")],
	)
}

func TestDecideProposalConfirmsVersion(t *testing.T) {
	poll := NewMemPoll()
	poll.SetEpochTotalStake(testEpoch, 1000)
	applier := testApplier("", "")

	proposal := testProposal("A", 1, ProtocolVersion{Major: 1}, 0)
	id, err := proposal.Id()
	require.NoError(t, err)
	_, err = applier.VerifyAndApply(
		poll,
		false,
		testEpoch,
		100,
		&UpdatePayload{Proposal: proposal},
	)
	require.NoError(t, err)

	undo, err := applier.DecideProposal(poll, id, true, 150)
	require.NoError(t, err)

	state, err := poll.GetProposal(id)
	require.NoError(t, err)
	require.NotNil(t, state.Decided)
	assert.True(t, state.Decided.Accepted)
	assert.Equal(t, uint64(150), state.Decided.DecidedSlot)
	confirmed, err := poll.GetLastConfirmedVersion(ApplicationName("A"))
	require.NoError(t, err)
	require.NotNil(t, confirmed)
	assert.Equal(t, NumSoftwareVersion(1), *confirmed)

	// Rolling the decision back restores the undecided state and removes
	// the confirmed version
	require.NoError(t, applier.Rollback(poll, undo))
	state, err = poll.GetProposal(id)
	require.NoError(t, err)
	require.NotNil(t, state.Undecided)
	assert.Nil(t, state.Decided)
	confirmed, err = poll.GetLastConfirmedVersion(ApplicationName("A"))
	require.NoError(t, err)
	assert.Nil(t, confirmed)
}

func TestDecideRejectedProposalLeavesVersion(t *testing.T) {
	poll := NewMemPoll()
	poll.SetEpochTotalStake(testEpoch, 1000)
	applier := testApplier("", "")

	proposal := testProposal("A", 0, ProtocolVersion{Major: 1}, 0)
	id, err := proposal.Id()
	require.NoError(t, err)
	_, err = applier.VerifyAndApply(
		poll,
		false,
		testEpoch,
		100,
		&UpdatePayload{Proposal: proposal},
	)
	require.NoError(t, err)

	_, err = applier.DecideProposal(poll, id, false, 150)
	require.NoError(t, err)
	confirmed, err := poll.GetLastConfirmedVersion(ApplicationName("A"))
	require.NoError(t, err)
	assert.Nil(t, confirmed)
}

func TestApplyRollbackRoundTrip(t *testing.T) {
	poll := NewMemPoll()
	poll.SetEpochTotalStake(testEpoch, 1000)
	seedRichman(poll, testEpoch, "v1", 300)
	seedRichman(poll, testEpoch, "v2", 250)
	applier := testApplier("1/2", "1/1000")

	proposal := testProposal("A", 1, ProtocolVersion{Major: 1}, 5)
	id, err := proposal.Id()
	require.NoError(t, err)
	payload := &UpdatePayload{
		Proposal: proposal,
		Votes: []UpdateVote{
			testVote(t, proposal, "v1", true),
			testVote(t, proposal, "v2", true),
		},
	}
	undo, err := applier.VerifyAndApply(poll, true, testEpoch, 100, payload)
	require.NoError(t, err)

	require.NoError(t, applier.Rollback(poll, undo))

	state, err := poll.GetProposal(id)
	require.NoError(t, err)
	assert.Nil(t, state)
	pinned, err := poll.GetScriptVersion(ProtocolVersion{Major: 1})
	require.NoError(t, err)
	assert.Nil(t, pinned)
	hasActive, err := poll.HasActiveProposal(ApplicationName("A"))
	require.NoError(t, err)
	assert.False(t, hasActive)
}

func TestRollbackRestoresPriorVotes(t *testing.T) {
	poll := NewMemPoll()
	poll.SetEpochTotalStake(testEpoch, 1000)
	seedRichman(poll, testEpoch, "v1", 300)
	seedRichman(poll, testEpoch, "v2", 250)
	applier := testApplier("", "")

	proposal := testProposal("A", 0, ProtocolVersion{Major: 1}, 0)
	id, err := proposal.Id()
	require.NoError(t, err)
	payload1 := &UpdatePayload{
		Proposal: proposal,
		Votes:    []UpdateVote{testVote(t, proposal, "v1", true)},
	}
	_, err = applier.VerifyAndApply(poll, false, testEpoch, 100, payload1)
	require.NoError(t, err)

	payload2 := &UpdatePayload{
		Votes: []UpdateVote{testVote(t, proposal, "v2", true)},
	}
	undo2, err := applier.VerifyAndApply(poll, false, testEpoch, 110, payload2)
	require.NoError(t, err)

	state, err := poll.GetProposal(id)
	require.NoError(t, err)
	assert.Len(t, state.Undecided.Votes, 2)

	require.NoError(t, applier.Rollback(poll, undo2))
	state, err = poll.GetProposal(id)
	require.NoError(t, err)
	require.NotNil(t, state.Undecided)
	assert.Len(t, state.Undecided.Votes, 1)
	assert.Contains(t, state.Undecided.Votes, stakeholderId("v1"))
}

func TestEmptyPayload(t *testing.T) {
	poll := NewMemPoll()
	applier := testApplier("", "")
	undo, err := applier.VerifyAndApply(
		poll,
		true,
		testEpoch,
		100,
		&UpdatePayload{},
	)
	require.NoError(t, err)
	require.NotNil(t, undo)
	assert.True(t, undo.Empty())
}

func TestThresholdAmountRoundsUp(t *testing.T) {
	frac, ok := new(big.Rat).SetString("1/3")
	require.True(t, ok)
	assert.Equal(t, Coin(334), thresholdAmount(1000, frac))
	assert.True(t, meetsThreshold(334, 1000, frac))
	assert.False(t, meetsThreshold(333, 1000, frac))
}
