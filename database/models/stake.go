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

package models

import (
	"github.com/blinklabs-io/quoll/database/types"
)

// EpochStake is the total stake snapshot for one epoch. Stake snapshots
// are a read-only oracle loaded from outside the governance engine.
type EpochStake struct {
	ID         uint         `gorm:"primarykey"`
	Epoch      uint64       `gorm:"uniqueIndex;not null"`
	TotalStake types.Uint64 `gorm:"not null"`
}

// TableName returns the table name
func (EpochStake) TableName() string {
	return "epoch_stake"
}

// RichmanStake is the per-stakeholder stake snapshot for one epoch.
type RichmanStake struct {
	ID          uint         `gorm:"primarykey"`
	Epoch       uint64       `gorm:"uniqueIndex:idx_richman_epoch_stakeholder,priority:1;not null"`
	Stakeholder []byte       `gorm:"uniqueIndex:idx_richman_epoch_stakeholder,priority:2;size:28;not null"`
	Stake       types.Uint64 `gorm:"not null"`
}

// TableName returns the table name
func (RichmanStake) TableName() string {
	return "richman_stake"
}
