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

// pollOverlay buffers mutations against a base PollStore so that a payload
// application is all-or-nothing: reads see the buffered writes, but the
// base is only touched on commit. The prior base value of every mutated
// key is captured on first write, which is exactly the information the
// Undo record needs.
//
// Stake snapshot reads pass straight through; the engine never writes
// them.
type pollOverlay struct {
	base           PollStore
	proposals      map[UpId]*proposalDelta
	proposalOrder  []UpId
	scripts        map[ProtocolVersion]*scriptDelta
	scriptOrder    []ProtocolVersion
	confirmed      map[ApplicationName]*confirmedDelta
	confirmedOrder []ApplicationName
}

type proposalDelta struct {
	state *ProposalState // nil when deleted
	prior *ProposalState
}

type scriptDelta struct {
	version *ScriptVersion // nil when deleted
	prior   *ScriptVersion
}

type confirmedDelta struct {
	num   *NumSoftwareVersion // nil when deleted
	prior *NumSoftwareVersion
}

func newPollOverlay(base PollStore) *pollOverlay {
	return &pollOverlay{
		base:      base,
		proposals: make(map[UpId]*proposalDelta),
		scripts:   make(map[ProtocolVersion]*scriptDelta),
		confirmed: make(map[ApplicationName]*confirmedDelta),
	}
}

func (o *pollOverlay) GetProposal(id UpId) (*ProposalState, error) {
	if delta, ok := o.proposals[id]; ok {
		return delta.state.Copy(), nil
	}
	return o.base.GetProposal(id)
}

func (o *pollOverlay) PutProposal(id UpId, state *ProposalState) error {
	delta, err := o.proposalDeltaFor(id)
	if err != nil {
		return err
	}
	delta.state = state.Copy()
	return nil
}

func (o *pollOverlay) DeleteProposal(id UpId) error {
	delta, err := o.proposalDeltaFor(id)
	if err != nil {
		return err
	}
	delta.state = nil
	return nil
}

// proposalDeltaFor returns the delta for a proposal id, capturing the
// prior base value on first mutation.
func (o *pollOverlay) proposalDeltaFor(id UpId) (*proposalDelta, error) {
	if delta, ok := o.proposals[id]; ok {
		return delta, nil
	}
	prior, err := o.base.GetProposal(id)
	if err != nil {
		return nil, err
	}
	delta := &proposalDelta{prior: prior}
	o.proposals[id] = delta
	o.proposalOrder = append(o.proposalOrder, id)
	return delta, nil
}

func (o *pollOverlay) UndecidedProposals() (
	map[UpId]*UndecidedProposalState,
	error,
) {
	ret, err := o.base.UndecidedProposals()
	if err != nil {
		return nil, err
	}
	for id, delta := range o.proposals {
		delete(ret, id)
		if delta.state != nil && delta.state.Undecided != nil {
			ret[id] = delta.state.Copy().Undecided
		}
	}
	return ret, nil
}

func (o *pollOverlay) HasActiveProposal(
	appName ApplicationName,
) (bool, error) {
	deactivatedForApp := false
	for _, delta := range o.proposals {
		if delta.state != nil && delta.state.Undecided != nil {
			if delta.state.AppName() == appName {
				return true, nil
			}
			continue
		}
		// Buffered delete or undecided-to-decided transition
		if delta.prior != nil && delta.prior.Undecided != nil &&
			delta.prior.AppName() == appName {
			deactivatedForApp = true
		}
	}
	hasActive, err := o.base.HasActiveProposal(appName)
	if err != nil {
		return false, err
	}
	if !hasActive {
		return false, nil
	}
	// The base tracks at most one active proposal per application, so a
	// buffered deactivation for this application must be that one.
	return !deactivatedForApp, nil
}

func (o *pollOverlay) GetScriptVersion(
	pv ProtocolVersion,
) (*ScriptVersion, error) {
	if delta, ok := o.scripts[pv]; ok {
		if delta.version == nil {
			return nil, nil
		}
		tmpVersion := *delta.version
		return &tmpVersion, nil
	}
	return o.base.GetScriptVersion(pv)
}

func (o *pollOverlay) AddScriptVersionDep(
	pv ProtocolVersion,
	sv ScriptVersion,
) error {
	delta, err := o.scriptDeltaFor(pv)
	if err != nil {
		return err
	}
	delta.version = &sv
	return nil
}

func (o *pollOverlay) DelScriptVersionDep(pv ProtocolVersion) error {
	delta, err := o.scriptDeltaFor(pv)
	if err != nil {
		return err
	}
	delta.version = nil
	return nil
}

func (o *pollOverlay) scriptDeltaFor(
	pv ProtocolVersion,
) (*scriptDelta, error) {
	if delta, ok := o.scripts[pv]; ok {
		return delta, nil
	}
	prior, err := o.base.GetScriptVersion(pv)
	if err != nil {
		return nil, err
	}
	delta := &scriptDelta{prior: prior}
	o.scripts[pv] = delta
	o.scriptOrder = append(o.scriptOrder, pv)
	return delta, nil
}

func (o *pollOverlay) GetLastConfirmedVersion(
	appName ApplicationName,
) (*NumSoftwareVersion, error) {
	if delta, ok := o.confirmed[appName]; ok {
		if delta.num == nil {
			return nil, nil
		}
		tmpNum := *delta.num
		return &tmpNum, nil
	}
	return o.base.GetLastConfirmedVersion(appName)
}

func (o *pollOverlay) SetLastConfirmedVersion(
	appName ApplicationName,
	num NumSoftwareVersion,
) error {
	delta, err := o.confirmedDeltaFor(appName)
	if err != nil {
		return err
	}
	delta.num = &num
	return nil
}

func (o *pollOverlay) DelLastConfirmedVersion(
	appName ApplicationName,
) error {
	delta, err := o.confirmedDeltaFor(appName)
	if err != nil {
		return err
	}
	delta.num = nil
	return nil
}

func (o *pollOverlay) confirmedDeltaFor(
	appName ApplicationName,
) (*confirmedDelta, error) {
	if delta, ok := o.confirmed[appName]; ok {
		return delta, nil
	}
	prior, err := o.base.GetLastConfirmedVersion(appName)
	if err != nil {
		return nil, err
	}
	delta := &confirmedDelta{prior: prior}
	o.confirmed[appName] = delta
	o.confirmedOrder = append(o.confirmedOrder, appName)
	return delta, nil
}

func (o *pollOverlay) GetEpochTotalStake(epoch uint64) (*Coin, error) {
	return o.base.GetEpochTotalStake(epoch)
}

func (o *pollOverlay) GetRichmanStake(
	epoch uint64,
	id StakeholderId,
) (*Coin, error) {
	return o.base.GetRichmanStake(epoch, id)
}

// commit flushes every buffered mutation to the base store in mutation
// order and returns the Undo record for exact reversal. The overlay must
// not be used again afterwards.
func (o *pollOverlay) commit() (*Undo, error) {
	undo := &Undo{}
	for _, id := range o.proposalOrder {
		delta := o.proposals[id]
		undo.Proposals = append(undo.Proposals, ProposalStateUndo{
			Id:   id,
			Prev: delta.prior,
		})
		if delta.state != nil {
			if err := o.base.PutProposal(id, delta.state); err != nil {
				return nil, err
			}
		} else if delta.prior != nil {
			if err := o.base.DeleteProposal(id); err != nil {
				return nil, err
			}
		}
	}
	for _, pv := range o.scriptOrder {
		delta := o.scripts[pv]
		undo.ScriptVersions = append(
			undo.ScriptVersions,
			ScriptVersionUndo{
				ProtocolVersion: pv,
				Prev:            delta.prior,
			},
		)
		if delta.version != nil {
			if err := o.base.AddScriptVersionDep(pv, *delta.version); err != nil {
				return nil, err
			}
		} else if delta.prior != nil {
			if err := o.base.DelScriptVersionDep(pv); err != nil {
				return nil, err
			}
		}
	}
	for _, appName := range o.confirmedOrder {
		delta := o.confirmed[appName]
		undo.ConfirmedVersions = append(
			undo.ConfirmedVersions,
			ConfirmedVersionUndo{
				AppName: appName,
				Prev:    delta.prior,
			},
		)
		if delta.num != nil {
			if err := o.base.SetLastConfirmedVersion(appName, *delta.num); err != nil {
				return nil, err
			}
		} else if delta.prior != nil {
			if err := o.base.DelLastConfirmedVersion(appName); err != nil {
				return nil, err
			}
		}
	}
	return undo, nil
}
