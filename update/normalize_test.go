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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKeepsValidProposals(t *testing.T) {
	poll := NewMemPoll()
	poll.SetEpochTotalStake(testEpoch, 1000)
	applier := testApplier("", "")

	proposalA := testProposal("A", 0, ProtocolVersion{Major: 1}, 0)
	idA, err := proposalA.Id()
	require.NoError(t, err)
	_, err = applier.VerifyAndApply(
		poll,
		false,
		testEpoch,
		100,
		&UpdatePayload{Proposal: proposalA},
	)
	require.NoError(t, err)
	proposalB := testProposal("B", 0, ProtocolVersion{Major: 1}, 0)
	idB, err := proposalB.Id()
	require.NoError(t, err)
	_, err = applier.VerifyAndApply(
		poll,
		false,
		testEpoch,
		110,
		&UpdatePayload{Proposal: proposalB},
	)
	require.NoError(t, err)

	dropped, err := applier.Normalize(poll, false)
	require.NoError(t, err)
	assert.Empty(t, dropped)
	for _, id := range []UpId{idA, idB} {
		state, err := poll.GetProposal(id)
		require.NoError(t, err)
		require.NotNil(t, state)
		assert.NotNil(t, state.Undecided)
	}
}

func TestNormalizeDropsStaleSoftwareVersion(t *testing.T) {
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

	// The application's confirmed version moves past the proposal, such
	// as after a competing chain confirmed a later version
	require.NoError(
		t,
		poll.SetLastConfirmedVersion(ApplicationName("A"), 3),
	)

	dropped, err := applier.Normalize(poll, false)
	require.NoError(t, err)
	assert.Equal(t, []UpId{id}, dropped)
	state, err := poll.GetProposal(id)
	require.NoError(t, err)
	assert.Nil(t, state)

	// A second consecutive call is a no-op
	dropped, err = applier.Normalize(poll, false)
	require.NoError(t, err)
	assert.Empty(t, dropped)
}

func TestNormalizeDropsScriptVersionConflict(t *testing.T) {
	// Seed two conflicting proposals directly: the same protocol version
	// pinned to script version 1, with the later proposal claiming 2
	poll := NewMemPoll()
	poll.SetEpochTotalStake(testEpoch, 1000)
	applier := testApplier("", "")
	pv := ProtocolVersion{Major: 3}
	require.NoError(t, poll.AddScriptVersionDep(pv, 1))

	proposalA := testProposal("A", 0, pv, 1)
	idA, err := proposalA.Id()
	require.NoError(t, err)
	require.NoError(t, poll.PutProposal(idA, NewUndecided(
		&UndecidedProposalState{
			Proposal: *proposalA,
			Slot:     10,
			Epoch:    testEpoch,
			Votes:    map[StakeholderId]VoteState{},
		},
	)))
	proposalB := testProposal("B", 0, pv, 2)
	idB, err := proposalB.Id()
	require.NoError(t, err)
	require.NoError(t, poll.PutProposal(idB, NewUndecided(
		&UndecidedProposalState{
			Proposal: *proposalB,
			Slot:     20,
			Epoch:    testEpoch,
			Votes:    map[StakeholderId]VoteState{},
		},
	)))

	dropped, err := applier.Normalize(poll, false)
	require.NoError(t, err)
	assert.Equal(t, []UpId{idB}, dropped)
	state, err := poll.GetProposal(idA)
	require.NoError(t, err)
	assert.NotNil(t, state)
}

func TestNormalizeThresholdRecheck(t *testing.T) {
	// The proposal was admitted without threshold checking; normalizing
	// with considerThreshold drops it when its positive stake is short
	poll := NewMemPoll()
	poll.SetEpochTotalStake(testEpoch, 1000)
	seedRichman(poll, testEpoch, "v1", 300)
	applier := testApplier("1/2", "1/1000")

	proposal := testProposal("A", 0, ProtocolVersion{Major: 1}, 0)
	id, err := proposal.Id()
	require.NoError(t, err)
	payload := &UpdatePayload{
		Proposal: proposal,
		Votes:    []UpdateVote{testVote(t, proposal, "v1", true)},
	}
	_, err = applier.VerifyAndApply(poll, false, testEpoch, 100, payload)
	require.NoError(t, err)

	dropped, err := applier.Normalize(poll, true)
	require.NoError(t, err)
	assert.Equal(t, []UpId{id}, dropped)
}

func TestNormalizeDropsUnknownEpochSnapshot(t *testing.T) {
	poll := NewMemPoll()
	applier := testApplier("", "")
	proposal := testProposal("A", 0, ProtocolVersion{Major: 1}, 0)
	id, err := proposal.Id()
	require.NoError(t, err)
	require.NoError(t, poll.PutProposal(id, NewUndecided(
		&UndecidedProposalState{
			Proposal: *proposal,
			Slot:     10,
			Epoch:    99,
			Votes:    map[StakeholderId]VoteState{},
		},
	)))

	// Without threshold checking the missing snapshot does not matter
	dropped, err := applier.Normalize(poll, false)
	require.NoError(t, err)
	assert.Empty(t, dropped)

	dropped, err = applier.Normalize(poll, true)
	require.NoError(t, err)
	assert.Equal(t, []UpId{id}, dropped)
}
