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

// ScriptVersionPin maps a protocol version to its script version. A pin
// is written once per protocol version; later proposals must match it.
type ScriptVersionPin struct {
	ID            uint   `gorm:"primarykey"`
	Major         uint16 `gorm:"uniqueIndex:idx_script_pin_protocol,priority:1;not null"`
	Minor         uint16 `gorm:"uniqueIndex:idx_script_pin_protocol,priority:2;not null"`
	Alt           uint8  `gorm:"uniqueIndex:idx_script_pin_protocol,priority:3;not null"`
	ScriptVersion uint16 `gorm:"not null"`
}

// TableName returns the table name
func (ScriptVersionPin) TableName() string {
	return "script_version_pin"
}

// ConfirmedVersion is the last confirmed software version number for an
// application.
type ConfirmedVersion struct {
	ID      uint   `gorm:"primarykey"`
	AppName string `gorm:"uniqueIndex;not null"`
	Number  uint32 `gorm:"not null"`
}

// TableName returns the table name
func (ConfirmedVersion) TableName() string {
	return "confirmed_version"
}
