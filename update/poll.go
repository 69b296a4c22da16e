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

// PollStore is the capability surface the engine consumes. It holds
// tracked proposal states, script-version pins, last-confirmed software
// versions, and read-only per-epoch stake snapshots. The engine mutates
// only through this interface; callers provide the backing storage.
//
// Get methods return (nil, nil) when the requested entry does not exist.
// The stake snapshot entries are an external oracle and are never written
// by the engine.
type PollStore interface {
	GetProposal(id UpId) (*ProposalState, error)
	PutProposal(id UpId, state *ProposalState) error
	DeleteProposal(id UpId) error
	UndecidedProposals() (map[UpId]*UndecidedProposalState, error)
	HasActiveProposal(appName ApplicationName) (bool, error)
	GetScriptVersion(pv ProtocolVersion) (*ScriptVersion, error)
	AddScriptVersionDep(pv ProtocolVersion, sv ScriptVersion) error
	DelScriptVersionDep(pv ProtocolVersion) error
	GetLastConfirmedVersion(
		appName ApplicationName,
	) (*NumSoftwareVersion, error)
	SetLastConfirmedVersion(
		appName ApplicationName,
		num NumSoftwareVersion,
	) error
	DelLastConfirmedVersion(appName ApplicationName) error
	GetEpochTotalStake(epoch uint64) (*Coin, error)
	GetRichmanStake(epoch uint64, id StakeholderId) (*Coin, error)
}

// MemPoll is an in-memory PollStore. It is used for mempool-side
// verification against an ephemeral view and throughout the test suite.
// It is not safe for concurrent use; the engine's single-writer model
// applies.
type MemPoll struct {
	proposals      map[UpId]*ProposalState
	scriptVersions map[ProtocolVersion]ScriptVersion
	confirmed      map[ApplicationName]NumSoftwareVersion
	epochTotals    map[uint64]Coin
	richmen        map[uint64]map[StakeholderId]Coin
}

// NewMemPoll creates an empty in-memory poll store.
func NewMemPoll() *MemPoll {
	return &MemPoll{
		proposals:      make(map[UpId]*ProposalState),
		scriptVersions: make(map[ProtocolVersion]ScriptVersion),
		confirmed:      make(map[ApplicationName]NumSoftwareVersion),
		epochTotals:    make(map[uint64]Coin),
		richmen:        make(map[uint64]map[StakeholderId]Coin),
	}
}

func (m *MemPoll) GetProposal(id UpId) (*ProposalState, error) {
	state, ok := m.proposals[id]
	if !ok {
		return nil, nil
	}
	return state.Copy(), nil
}

func (m *MemPoll) PutProposal(id UpId, state *ProposalState) error {
	m.proposals[id] = state.Copy()
	return nil
}

func (m *MemPoll) DeleteProposal(id UpId) error {
	delete(m.proposals, id)
	return nil
}

func (m *MemPoll) UndecidedProposals() (
	map[UpId]*UndecidedProposalState,
	error,
) {
	ret := make(map[UpId]*UndecidedProposalState)
	for id, state := range m.proposals {
		if state.Undecided == nil {
			continue
		}
		ret[id] = state.Copy().Undecided
	}
	return ret, nil
}

func (m *MemPoll) HasActiveProposal(appName ApplicationName) (bool, error) {
	for _, state := range m.proposals {
		if state.Undecided != nil && state.AppName() == appName {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemPoll) GetScriptVersion(
	pv ProtocolVersion,
) (*ScriptVersion, error) {
	sv, ok := m.scriptVersions[pv]
	if !ok {
		return nil, nil
	}
	return &sv, nil
}

func (m *MemPoll) AddScriptVersionDep(
	pv ProtocolVersion,
	sv ScriptVersion,
) error {
	m.scriptVersions[pv] = sv
	return nil
}

func (m *MemPoll) DelScriptVersionDep(pv ProtocolVersion) error {
	delete(m.scriptVersions, pv)
	return nil
}

func (m *MemPoll) GetLastConfirmedVersion(
	appName ApplicationName,
) (*NumSoftwareVersion, error) {
	num, ok := m.confirmed[appName]
	if !ok {
		return nil, nil
	}
	return &num, nil
}

func (m *MemPoll) SetLastConfirmedVersion(
	appName ApplicationName,
	num NumSoftwareVersion,
) error {
	m.confirmed[appName] = num
	return nil
}

func (m *MemPoll) DelLastConfirmedVersion(appName ApplicationName) error {
	delete(m.confirmed, appName)
	return nil
}

func (m *MemPoll) GetEpochTotalStake(epoch uint64) (*Coin, error) {
	total, ok := m.epochTotals[epoch]
	if !ok {
		return nil, nil
	}
	return &total, nil
}

func (m *MemPoll) GetRichmanStake(
	epoch uint64,
	id StakeholderId,
) (*Coin, error) {
	epochRichmen, ok := m.richmen[epoch]
	if !ok {
		return nil, nil
	}
	stake, ok := epochRichmen[id]
	if !ok {
		return nil, nil
	}
	return &stake, nil
}

// SetEpochTotalStake seeds the read-only stake oracle with an epoch's
// total stake.
func (m *MemPoll) SetEpochTotalStake(epoch uint64, total Coin) {
	m.epochTotals[epoch] = total
}

// SetRichmanStake seeds the read-only stake oracle with a stakeholder's
// stake for an epoch.
func (m *MemPoll) SetRichmanStake(
	epoch uint64,
	id StakeholderId,
	stake Coin,
) {
	epochRichmen, ok := m.richmen[epoch]
	if !ok {
		epochRichmen = make(map[StakeholderId]Coin)
		m.richmen[epoch] = epochRichmen
	}
	epochRichmen[id] = stake
}
