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

package state

import (
	"github.com/blinklabs-io/quoll/database"
	"github.com/blinklabs-io/quoll/update"
)

// dbPoll adapts a database transaction to the update.PollStore interface.
// All reads and writes flow through the same transaction, so an apply is
// committed or rolled back as a unit.
type dbPoll struct {
	db  *database.Database
	txn *database.Txn
}

func (p *dbPoll) GetProposal(id update.UpId) (*update.ProposalState, error) {
	return p.db.GetProposal(id, p.txn)
}

func (p *dbPoll) PutProposal(
	id update.UpId,
	state *update.ProposalState,
) error {
	return p.db.SetProposal(id, state, p.txn)
}

func (p *dbPoll) DeleteProposal(id update.UpId) error {
	return p.db.DeleteProposal(id, p.txn)
}

func (p *dbPoll) UndecidedProposals() (
	map[update.UpId]*update.UndecidedProposalState,
	error,
) {
	return p.db.UndecidedProposals(p.txn)
}

func (p *dbPoll) HasActiveProposal(
	appName update.ApplicationName,
) (bool, error) {
	return p.db.HasActiveProposal(appName, p.txn)
}

func (p *dbPoll) GetScriptVersion(
	pv update.ProtocolVersion,
) (*update.ScriptVersion, error) {
	return p.db.GetScriptVersion(pv, p.txn)
}

func (p *dbPoll) AddScriptVersionDep(
	pv update.ProtocolVersion,
	sv update.ScriptVersion,
) error {
	return p.db.SetScriptVersion(pv, sv, p.txn)
}

func (p *dbPoll) DelScriptVersionDep(pv update.ProtocolVersion) error {
	return p.db.DeleteScriptVersion(pv, p.txn)
}

func (p *dbPoll) GetLastConfirmedVersion(
	appName update.ApplicationName,
) (*update.NumSoftwareVersion, error) {
	return p.db.GetLastConfirmedVersion(appName, p.txn)
}

func (p *dbPoll) SetLastConfirmedVersion(
	appName update.ApplicationName,
	num update.NumSoftwareVersion,
) error {
	return p.db.SetLastConfirmedVersion(appName, num, p.txn)
}

func (p *dbPoll) DelLastConfirmedVersion(
	appName update.ApplicationName,
) error {
	return p.db.DeleteLastConfirmedVersion(appName, p.txn)
}

func (p *dbPoll) GetEpochTotalStake(epoch uint64) (*update.Coin, error) {
	return p.db.GetEpochTotalStake(epoch, p.txn)
}

func (p *dbPoll) GetRichmanStake(
	epoch uint64,
	id update.StakeholderId,
) (*update.Coin, error) {
	return p.db.GetRichmanStake(epoch, id, p.txn)
}
