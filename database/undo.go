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
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/quoll/database/types"
	"github.com/blinklabs-io/quoll/update"
)

const (
	undoHeadBlobKey     = "undo_head"
	undoRecordKeyPrefix = "undo_record_"
)

func undoRecordKey(seq uint64) []byte {
	key := []byte(undoRecordKeyPrefix)
	key = binary.BigEndian.AppendUint64(key, seq)
	return key
}

// UndoCount returns the number of undo records on the stack.
func (d *Database) UndoCount(txn *Txn) (uint64, error) {
	val, err := d.blob.Get(txn.Blob(), []byte(undoHeadBlobKey))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("malformed undo head value: %d bytes", len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}

// PushUndo appends an undo record to the stack.
func (d *Database) PushUndo(undo *update.Undo, txn *Txn) error {
	head, err := d.UndoCount(txn)
	if err != nil {
		return err
	}
	undoCbor, err := cbor.Encode(undo)
	if err != nil {
		return fmt.Errorf("encode undo record: %w", err)
	}
	if err := d.blob.Set(txn.Blob(), undoRecordKey(head+1), undoCbor); err != nil {
		return err
	}
	return d.blob.Set(
		txn.Blob(),
		[]byte(undoHeadBlobKey),
		binary.BigEndian.AppendUint64(nil, head+1),
	)
}

// PopUndo removes and returns the most recent undo record, or nil if the
// stack is empty.
func (d *Database) PopUndo(txn *Txn) (*update.Undo, error) {
	head, err := d.UndoCount(txn)
	if err != nil {
		return nil, err
	}
	if head == 0 {
		return nil, nil
	}
	val, err := d.blob.Get(txn.Blob(), undoRecordKey(head))
	if err != nil {
		return nil, err
	}
	var undo update.Undo
	if _, err := cbor.Decode(val, &undo); err != nil {
		return nil, fmt.Errorf("decode undo record: %w", err)
	}
	if err := d.blob.Delete(txn.Blob(), undoRecordKey(head)); err != nil {
		return nil, err
	}
	if err := d.blob.Set(
		txn.Blob(),
		[]byte(undoHeadBlobKey),
		binary.BigEndian.AppendUint64(nil, head-1),
	); err != nil {
		return nil, err
	}
	return &undo, nil
}
