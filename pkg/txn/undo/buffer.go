// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package undo

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4"

	"github.com/matrixorigin/mocatalog/pkg/catalog/catalogif"
	"github.com/matrixorigin/mocatalog/pkg/catalog/chain"
	"github.com/matrixorigin/mocatalog/pkg/common/moerr"
	v2 "github.com/matrixorigin/mocatalog/pkg/util/metric/v2"
)

// Record is one catalog write: the entry it was made on top of and, for
// alters, the compressed alter record.
type Record struct {
	Set  catalogif.VersionedSet
	Prev *chain.Entry

	alter   []byte
	rawSize int
}

// AlterRecord returns the uncompressed alter record, nil if the write was
// not an alter.
func (r *Record) AlterRecord() ([]byte, error) {
	if r.alter == nil {
		return nil, nil
	}
	data, err := io.ReadAll(lz4.NewReader(bytes.NewReader(r.alter)))
	if err != nil {
		return nil, moerr.NewInternalError(moerr.Context(), "decompress alter record: %v", err)
	}
	if len(data) != r.rawSize {
		return nil, moerr.NewInternalError(moerr.Context(),
			"alter record is %d bytes, expected %d", len(data), r.rawSize)
	}
	return data, nil
}

// Buffer is the undo log of one transaction. It is only used by the
// goroutine running the transaction.
type Buffer struct {
	records []*Record
	reverts []func()
	err     error
}

var _ catalogif.UndoBuffer = (*Buffer)(nil)

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) PushCatalogEntry(set catalogif.VersionedSet, prev *chain.Entry, alterRecord []byte) {
	r := &Record{
		Set:  set,
		Prev: prev,
	}
	if alterRecord != nil {
		compressed, err := compress(alterRecord)
		if err != nil && b.err == nil {
			b.err = err
		}
		r.alter = compressed
		r.rawSize = len(alterRecord)
		v2.TxnUndoBytesHistogram.Observe(float64(len(compressed)))
	}
	b.records = append(b.records, r)
}

func (b *Buffer) PushRevert(fn func()) {
	b.reverts = append(b.reverts, fn)
}

// Revert runs the recorded reverts newest first.
func (b *Buffer) Revert() {
	for i := len(b.reverts) - 1; i >= 0; i-- {
		b.reverts[i]()
	}
}

// Err returns the first error met while recording.
func (b *Buffer) Err() error {
	return b.err
}

func (b *Buffer) Len() int {
	return len(b.records)
}

func (b *Buffer) Records() []*Record {
	return b.records
}

// ForEach visits records in write order.
func (b *Buffer) ForEach(fn func(*Record) error) error {
	for _, r := range b.records {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// ReverseForEach visits records newest first.
func (b *Buffer) ReverseForEach(fn func(*Record) error) error {
	for i := len(b.records) - 1; i >= 0; i-- {
		if err := fn(b.records[i]); err != nil {
			return err
		}
	}
	return nil
}

func (b *Buffer) Reset() {
	b.records = b.records[:0]
	b.reverts = b.reverts[:0]
	b.err = nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, moerr.NewInternalError(moerr.Context(), "compress alter record: %v", err)
	}
	if err := w.Close(); err != nil {
		return nil, moerr.NewInternalError(moerr.Context(), "compress alter record: %v", err)
	}
	return buf.Bytes(), nil
}
