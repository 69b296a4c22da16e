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

package metadata

import (
	"errors"

	"github.com/blinklabs-io/quoll/database/models"
	"github.com/blinklabs-io/quoll/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetProposal returns the tracked proposal with the given id, or nil if
// none exists.
func (d *Store) GetProposal(
	proposalId []byte,
	txn types.Txn,
) (*models.Proposal, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var tmpProposal models.Proposal
	result := db.
		Where("proposal_id = ?", proposalId).
		First(&tmpProposal)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &tmpProposal, nil
}

// SetProposal stores or replaces the tracked proposal with the given id.
func (d *Store) SetProposal(
	proposal *models.Proposal,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "proposal_id"}},
			UpdateAll: true,
		}).
		Create(proposal)
	return result.Error
}

// DeleteProposal removes the tracked proposal with the given id. It's not
// an error if no such proposal exists.
func (d *Store) DeleteProposal(
	proposalId []byte,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.
		Where("proposal_id = ?", proposalId).
		Delete(&models.Proposal{})
	return result.Error
}

// GetUndecidedProposals returns all tracked proposals that have not yet
// been decided, ordered by the slot they were added in.
func (d *Store) GetUndecidedProposals(
	txn types.Txn,
) ([]models.Proposal, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var tmpProposals []models.Proposal
	result := db.
		Where("decided = ?", false).
		Order("added_slot").
		Find(&tmpProposals)
	if result.Error != nil {
		return nil, result.Error
	}
	return tmpProposals, nil
}

// HasActiveProposal returns whether an undecided proposal exists for the
// given application name.
func (d *Store) HasActiveProposal(
	appName string,
	txn types.Txn,
) (bool, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return false, err
	}
	var count int64
	result := db.
		Model(&models.Proposal{}).
		Where("app_name = ? AND decided = ?", appName, false).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// GetScriptVersionPin returns the script version pinned for the given
// protocol version, or nil if none is pinned.
func (d *Store) GetScriptVersionPin(
	major uint16,
	minor uint16,
	alt uint8,
	txn types.Txn,
) (*models.ScriptVersionPin, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var tmpPin models.ScriptVersionPin
	result := db.
		Where("major = ? AND minor = ? AND alt = ?", major, minor, alt).
		First(&tmpPin)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &tmpPin, nil
}

// SetScriptVersionPin stores or replaces the script version pin for a
// protocol version.
func (d *Store) SetScriptVersionPin(
	pin *models.ScriptVersionPin,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "major"},
				{Name: "minor"},
				{Name: "alt"},
			},
			UpdateAll: true,
		}).
		Create(pin)
	return result.Error
}

// DeleteScriptVersionPin removes the script version pin for a protocol
// version.
func (d *Store) DeleteScriptVersionPin(
	major uint16,
	minor uint16,
	alt uint8,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.
		Where("major = ? AND minor = ? AND alt = ?", major, minor, alt).
		Delete(&models.ScriptVersionPin{})
	return result.Error
}

// GetConfirmedVersion returns the last confirmed software version for the
// given application name, or nil if none has been confirmed.
func (d *Store) GetConfirmedVersion(
	appName string,
	txn types.Txn,
) (*models.ConfirmedVersion, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var tmpVersion models.ConfirmedVersion
	result := db.
		Where("app_name = ?", appName).
		First(&tmpVersion)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &tmpVersion, nil
}

// SetConfirmedVersion stores or replaces the last confirmed software
// version for an application.
func (d *Store) SetConfirmedVersion(
	version *models.ConfirmedVersion,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "app_name"}},
			UpdateAll: true,
		}).
		Create(version)
	return result.Error
}

// DeleteConfirmedVersion removes the last confirmed software version for
// an application.
func (d *Store) DeleteConfirmedVersion(
	appName string,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.
		Where("app_name = ?", appName).
		Delete(&models.ConfirmedVersion{})
	return result.Error
}

// GetEpochStake returns the total stake snapshot for the given epoch, or
// nil if no snapshot exists.
func (d *Store) GetEpochStake(
	epoch uint64,
	txn types.Txn,
) (*models.EpochStake, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var tmpStake models.EpochStake
	result := db.
		Where("epoch = ?", epoch).
		First(&tmpStake)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &tmpStake, nil
}

// SetEpochStake stores or replaces the total stake snapshot for an epoch.
func (d *Store) SetEpochStake(
	stake *models.EpochStake,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "epoch"}},
			UpdateAll: true,
		}).
		Create(stake)
	return result.Error
}

// GetRichmanStake returns the recorded stake for a stakeholder in the
// given epoch, or nil if the stakeholder is not in the snapshot.
func (d *Store) GetRichmanStake(
	epoch uint64,
	stakeholder []byte,
	txn types.Txn,
) (*models.RichmanStake, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var tmpStake models.RichmanStake
	result := db.
		Where("epoch = ? AND stakeholder = ?", epoch, stakeholder).
		First(&tmpStake)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &tmpStake, nil
}

// SetRichmanStake stores or replaces the recorded stake for a stakeholder
// in an epoch.
func (d *Store) SetRichmanStake(
	stake *models.RichmanStake,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "epoch"},
				{Name: "stakeholder"},
			},
			UpdateAll: true,
		}).
		Create(stake)
	return result.Error
}
