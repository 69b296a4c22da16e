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

// Package state ties the update engine to persistent storage. It owns the
// single-writer lock, wraps each apply in a database transaction, and
// maintains the persisted undo stack for rollback.
package state

import (
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"

	"github.com/blinklabs-io/quoll/database"
	"github.com/blinklabs-io/quoll/event"
	"github.com/blinklabs-io/quoll/update"
	"github.com/prometheus/client_golang/prometheus"
)

type UpdateStateConfig struct {
	Logger            *slog.Logger
	DataDir           string
	EventBus          *event.EventBus
	PromRegistry      prometheus.Registerer
	ProposalThreshold *big.Rat
	VoteThreshold     *big.Rat
}

// UpdateState is the persistent update ledger. All mutating operations
// take the write lock, so applies, rollbacks, and normalization are
// serialized.
type UpdateState struct {
	sync.RWMutex
	config  UpdateStateConfig
	db      *database.Database
	applier *update.Applier
}

func NewUpdateState(cfg UpdateStateConfig) (*UpdateState, error) {
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	db, err := database.New(cfg.Logger, cfg.DataDir)
	if err != nil {
		return nil, err
	}
	u := &UpdateState{
		config: cfg,
		db:     db,
		applier: update.NewApplier(update.ApplierConfig{
			Logger:            cfg.Logger,
			EventBus:          cfg.EventBus,
			PromRegistry:      cfg.PromRegistry,
			ProposalThreshold: cfg.ProposalThreshold,
			VoteThreshold:     cfg.VoteThreshold,
		}),
	}
	return u, nil
}

// DB returns the underlying database handle.
func (u *UpdateState) DB() *database.Database {
	return u.db
}

// Close shuts down the underlying database.
func (u *UpdateState) Close() error {
	return u.db.Close()
}

// ApplyPayload verifies a payload against the current ledger and applies
// it at the given epoch and slot. The resulting undo record is pushed on
// the persisted undo stack in the same transaction.
func (u *UpdateState) ApplyPayload(
	considerThreshold bool,
	epoch uint64,
	slot uint64,
	payload *update.UpdatePayload,
) error {
	u.Lock()
	defer u.Unlock()
	txn := u.db.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		poll := &dbPoll{db: u.db, txn: txn}
		undo, err := u.applier.VerifyAndApply(
			poll,
			considerThreshold,
			epoch,
			slot,
			payload,
		)
		if err != nil {
			return err
		}
		return u.db.PushUndo(undo, txn)
	})
}

// DecideProposal marks a tracked proposal as accepted or rejected at the
// given slot and records the reversal on the undo stack.
func (u *UpdateState) DecideProposal(
	id update.UpId,
	accepted bool,
	slot uint64,
) error {
	u.Lock()
	defer u.Unlock()
	txn := u.db.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		poll := &dbPoll{db: u.db, txn: txn}
		undo, err := u.applier.DecideProposal(poll, id, accepted, slot)
		if err != nil {
			return err
		}
		return u.db.PushUndo(undo, txn)
	})
}

// RollbackLast pops the most recent undo record and reverts the ledger to
// the state before that application. It returns false if the undo stack
// is empty.
func (u *UpdateState) RollbackLast() (bool, error) {
	u.Lock()
	defer u.Unlock()
	var rolledBack bool
	txn := u.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		undo, err := u.db.PopUndo(txn)
		if err != nil {
			return err
		}
		if undo == nil {
			return nil
		}
		poll := &dbPoll{db: u.db, txn: txn}
		if err := u.applier.Rollback(poll, undo); err != nil {
			return err
		}
		rolledBack = true
		return nil
	})
	return rolledBack, err
}

// Normalize drops tracked undecided proposals that no longer pass
// verification against the current ledger, such as after a rollback. It
// returns the ids of the dropped proposals.
func (u *UpdateState) Normalize(
	considerThreshold bool,
) ([]update.UpId, error) {
	u.Lock()
	defer u.Unlock()
	var dropped []update.UpId
	txn := u.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		poll := &dbPoll{db: u.db, txn: txn}
		var err error
		dropped, err = u.applier.Normalize(poll, considerThreshold)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dropped, nil
}

// GetProposal returns the tracked state for a proposal id, or nil if the
// proposal is not tracked.
func (u *UpdateState) GetProposal(
	id update.UpId,
) (*update.ProposalState, error) {
	u.RLock()
	defer u.RUnlock()
	txn := u.db.Transaction(false)
	defer txn.Release()
	return u.db.GetProposal(id, txn)
}

// UndecidedProposals returns the tracked states of all undecided
// proposals keyed by proposal id.
func (u *UpdateState) UndecidedProposals() (
	map[update.UpId]*update.UndecidedProposalState,
	error,
) {
	u.RLock()
	defer u.RUnlock()
	txn := u.db.Transaction(false)
	defer txn.Release()
	return u.db.UndecidedProposals(txn)
}

// UndoDepth returns the number of undo records available for rollback.
func (u *UpdateState) UndoDepth() (uint64, error) {
	u.RLock()
	defer u.RUnlock()
	txn := u.db.Transaction(false)
	defer txn.Release()
	return u.db.UndoCount(txn)
}

// LoadStakeSnapshot stores the stake distribution for an epoch. The
// total is the full epoch stake used as the threshold denominator; the
// richmen map holds the per-stakeholder stakes eligible to vote.
func (u *UpdateState) LoadStakeSnapshot(
	epoch uint64,
	total update.Coin,
	richmen map[update.StakeholderId]update.Coin,
) error {
	u.Lock()
	defer u.Unlock()
	txn := u.db.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		if err := u.db.SetEpochTotalStake(epoch, total, txn); err != nil {
			return fmt.Errorf("store epoch total stake: %w", err)
		}
		for id, stake := range richmen {
			if err := u.db.SetRichmanStake(epoch, id, stake, txn); err != nil {
				return fmt.Errorf("store stakeholder stake: %w", err)
			}
		}
		return nil
	})
}
