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

// Proposal is a tracked update proposal state. The full state (including
// the per-stakeholder voting record) is stored as CBOR in StateCbor; the
// remaining columns exist for lookups.
type Proposal struct {
	ID         uint   `gorm:"primarykey"`
	ProposalId []byte `gorm:"uniqueIndex;size:32;not null"`
	AppName    string `gorm:"index;not null"`
	Decided    bool   `gorm:"not null"`
	AddedSlot  uint64 `gorm:"index;not null"`
	StateCbor  []byte `gorm:"not null"`
}

// TableName returns the table name
func (Proposal) TableName() string {
	return "proposal"
}
