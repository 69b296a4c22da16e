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

package database

import (
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/blinklabs-io/quoll/database/models"
	"github.com/blinklabs-io/quoll/database/types"
	"github.com/blinklabs-io/quoll/update"
)

// GetProposal returns the tracked state for a proposal id, or nil if the
// proposal is not tracked.
func (d *Database) GetProposal(
	id update.UpId,
	txn *Txn,
) (*update.ProposalState, error) {
	tmpProposal, err := d.metadata.GetProposal(id.Bytes(), txn.Metadata())
	if err != nil {
		return nil, err
	}
	if tmpProposal == nil {
		return nil, nil
	}
	var state update.ProposalState
	if _, err := cbor.Decode(tmpProposal.StateCbor, &state); err != nil {
		return nil, fmt.Errorf("decode proposal state: %w", err)
	}
	return &state, nil
}

// SetProposal stores or replaces the tracked state for a proposal id.
func (d *Database) SetProposal(
	id update.UpId,
	state *update.ProposalState,
	txn *Txn,
) error {
	stateCbor, err := cbor.Encode(state)
	if err != nil {
		return fmt.Errorf("encode proposal state: %w", err)
	}
	addedSlot := uint64(0)
	if state.Undecided != nil {
		addedSlot = state.Undecided.Slot
	} else if state.Decided != nil {
		addedSlot = state.Decided.DecidedSlot
	}
	return d.metadata.SetProposal(
		&models.Proposal{
			ProposalId: id.Bytes(),
			AppName:    string(state.AppName()),
			Decided:    state.IsDecided(),
			AddedSlot:  addedSlot,
			StateCbor:  stateCbor,
		},
		txn.Metadata(),
	)
}

// DeleteProposal removes a tracked proposal.
func (d *Database) DeleteProposal(id update.UpId, txn *Txn) error {
	return d.metadata.DeleteProposal(id.Bytes(), txn.Metadata())
}

// UndecidedProposals returns the tracked states of all undecided
// proposals keyed by proposal id.
func (d *Database) UndecidedProposals(
	txn *Txn,
) (map[update.UpId]*update.UndecidedProposalState, error) {
	tmpProposals, err := d.metadata.GetUndecidedProposals(txn.Metadata())
	if err != nil {
		return nil, err
	}
	ret := make(map[update.UpId]*update.UndecidedProposalState)
	for _, tmpProposal := range tmpProposals {
		var state update.ProposalState
		if _, err := cbor.Decode(tmpProposal.StateCbor, &state); err != nil {
			return nil, fmt.Errorf("decode proposal state: %w", err)
		}
		if state.Undecided == nil {
			continue
		}
		ret[lcommon.NewBlake2b256(tmpProposal.ProposalId)] = state.Undecided
	}
	return ret, nil
}

// HasActiveProposal returns whether an undecided proposal is tracked for
// the given application name.
func (d *Database) HasActiveProposal(
	appName update.ApplicationName,
	txn *Txn,
) (bool, error) {
	return d.metadata.HasActiveProposal(string(appName), txn.Metadata())
}

// GetScriptVersion returns the script version pinned for a protocol
// version, or nil if none is pinned.
func (d *Database) GetScriptVersion(
	pv update.ProtocolVersion,
	txn *Txn,
) (*update.ScriptVersion, error) {
	tmpPin, err := d.metadata.GetScriptVersionPin(
		pv.Major,
		pv.Minor,
		pv.Alt,
		txn.Metadata(),
	)
	if err != nil {
		return nil, err
	}
	if tmpPin == nil {
		return nil, nil
	}
	sv := update.ScriptVersion(tmpPin.ScriptVersion)
	return &sv, nil
}

// SetScriptVersion pins a script version for a protocol version.
func (d *Database) SetScriptVersion(
	pv update.ProtocolVersion,
	sv update.ScriptVersion,
	txn *Txn,
) error {
	return d.metadata.SetScriptVersionPin(
		&models.ScriptVersionPin{
			Major:         pv.Major,
			Minor:         pv.Minor,
			Alt:           pv.Alt,
			ScriptVersion: uint16(sv),
		},
		txn.Metadata(),
	)
}

// DeleteScriptVersion removes the script version pin for a protocol
// version.
func (d *Database) DeleteScriptVersion(
	pv update.ProtocolVersion,
	txn *Txn,
) error {
	return d.metadata.DeleteScriptVersionPin(
		pv.Major,
		pv.Minor,
		pv.Alt,
		txn.Metadata(),
	)
}

// GetLastConfirmedVersion returns the last confirmed software version
// number for an application, or nil if none has been confirmed.
func (d *Database) GetLastConfirmedVersion(
	appName update.ApplicationName,
	txn *Txn,
) (*update.NumSoftwareVersion, error) {
	tmpVersion, err := d.metadata.GetConfirmedVersion(
		string(appName),
		txn.Metadata(),
	)
	if err != nil {
		return nil, err
	}
	if tmpVersion == nil {
		return nil, nil
	}
	num := update.NumSoftwareVersion(tmpVersion.Number)
	return &num, nil
}

// SetLastConfirmedVersion stores the last confirmed software version
// number for an application.
func (d *Database) SetLastConfirmedVersion(
	appName update.ApplicationName,
	num update.NumSoftwareVersion,
	txn *Txn,
) error {
	return d.metadata.SetConfirmedVersion(
		&models.ConfirmedVersion{
			AppName: string(appName),
			Number:  uint32(num),
		},
		txn.Metadata(),
	)
}

// DeleteLastConfirmedVersion removes the last confirmed software version
// for an application.
func (d *Database) DeleteLastConfirmedVersion(
	appName update.ApplicationName,
	txn *Txn,
) error {
	return d.metadata.DeleteConfirmedVersion(string(appName), txn.Metadata())
}

// GetEpochTotalStake returns the total stake snapshot for an epoch, or
// nil if no snapshot exists.
func (d *Database) GetEpochTotalStake(
	epoch uint64,
	txn *Txn,
) (*update.Coin, error) {
	tmpStake, err := d.metadata.GetEpochStake(epoch, txn.Metadata())
	if err != nil {
		return nil, err
	}
	if tmpStake == nil {
		return nil, nil
	}
	total := update.Coin(tmpStake.TotalStake)
	return &total, nil
}

// SetEpochTotalStake stores the total stake snapshot for an epoch.
func (d *Database) SetEpochTotalStake(
	epoch uint64,
	total update.Coin,
	txn *Txn,
) error {
	return d.metadata.SetEpochStake(
		&models.EpochStake{
			Epoch:      epoch,
			TotalStake: types.Uint64(total),
		},
		txn.Metadata(),
	)
}

// GetRichmanStake returns the stake snapshot entry for a stakeholder in
// an epoch, or nil if the stakeholder is not in the snapshot.
func (d *Database) GetRichmanStake(
	epoch uint64,
	id update.StakeholderId,
	txn *Txn,
) (*update.Coin, error) {
	tmpStake, err := d.metadata.GetRichmanStake(
		epoch,
		id.Bytes(),
		txn.Metadata(),
	)
	if err != nil {
		return nil, err
	}
	if tmpStake == nil {
		return nil, nil
	}
	stake := update.Coin(tmpStake.Stake)
	return &stake, nil
}

// SetRichmanStake stores the stake snapshot entry for a stakeholder in
// an epoch.
func (d *Database) SetRichmanStake(
	epoch uint64,
	id update.StakeholderId,
	stake update.Coin,
	txn *Txn,
) error {
	return d.metadata.SetRichmanStake(
		&models.RichmanStake{
			Epoch:       epoch,
			Stakeholder: id.Bytes(),
			Stake:       types.Uint64(stake),
		},
		txn.Metadata(),
	)
}
