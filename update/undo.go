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
	"github.com/blinklabs-io/gouroboros/cbor"
)

// ProposalStateUndo records the prior state of one tracked proposal entry.
// Prev is nil when the entry did not exist before the apply.
type ProposalStateUndo struct {
	cbor.StructAsArray
	Id   UpId
	Prev *ProposalState
}

// ScriptVersionUndo records the prior script-version pin for one protocol
// version. Prev is nil when no pin existed before the apply.
type ScriptVersionUndo struct {
	cbor.StructAsArray
	ProtocolVersion ProtocolVersion
	Prev            *ScriptVersion
}

// ConfirmedVersionUndo records the prior confirmed software version for
// one application. Prev is nil when no version was confirmed before the
// apply.
type ConfirmedVersionUndo struct {
	cbor.StructAsArray
	AppName ApplicationName
	Prev    *NumSoftwareVersion
}

// Undo captures the prior value of every poll entry a single apply
// mutated, in mutation order. Replaying it in reverse order restores the
// poll to an observably identical pre-apply state. It is CBOR-encodable
// so it can be persisted alongside the block that produced it.
type Undo struct {
	cbor.StructAsArray
	Proposals         []ProposalStateUndo
	ScriptVersions    []ScriptVersionUndo
	ConfirmedVersions []ConfirmedVersionUndo
}

// Empty returns true when the apply performed no mutations.
func (u *Undo) Empty() bool {
	return len(u.Proposals) == 0 &&
		len(u.ScriptVersions) == 0 &&
		len(u.ConfirmedVersions) == 0
}
