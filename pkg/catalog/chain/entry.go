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

package chain

import (
	"context"
	"fmt"

	"github.com/matrixorigin/mocatalog/pkg/txn/txnts"
)

type Kind uint8

const (
	// KindPlaceholder roots a chain whose first creation is not committed
	// yet. It is always deleted.
	KindPlaceholder Kind = iota
	// KindTombstone marks a drop.
	KindTombstone
	// KindRenamed marks that the object moved to another name. At the old
	// name it is deleted, at the new name it roots the moved object.
	KindRenamed

	KindSchema
	KindTable
	KindView
	KindType
	KindFunction
	KindSequence
	// KindDependency entries belong to the dependency manager and may live
	// in the system catalog without being internal.
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindPlaceholder:
		return "PLACEHOLDER"
	case KindTombstone:
		return "TOMBSTONE"
	case KindRenamed:
		return "RENAMED"
	case KindSchema:
		return "SCHEMA"
	case KindTable:
		return "TABLE"
	case KindView:
		return "VIEW"
	case KindType:
		return "TYPE"
	case KindFunction:
		return "FUNCTION"
	case KindSequence:
		return "SEQUENCE"
	case KindDependency:
		return "DEPENDENCY"
	}
	return fmt.Sprintf("KIND(%d)", uint8(k))
}

// IsMarker reports whether entries of this kind carry no object.
func (k Kind) IsMarker() bool {
	return k <= KindRenamed
}

// AlterInfo describes one alter statement. The catalog only needs to know
// whether it may touch internal entries and how to record it for undo.
type AlterInfo interface {
	AllowInternal() bool
	// ColumnName is the column the alter touches, empty if none.
	ColumnName() string
	Marshal() ([]byte, error)
}

// Object is the kind specific state of a live entry.
type Object interface {
	// Alter returns the entry that replaces entry once info is applied, or
	// nil if info changes nothing. The returned entry may carry a new name.
	Alter(ctx context.Context, entry *Entry, info AlterInfo) (*Entry, error)
	// UndoAlter reverts side effects of a previous Alter that is abandoned
	// before it reaches the catalog.
	UndoAlter(ctx context.Context, entry *Entry, info AlterInfo) error
}

// Entry is one version of one catalog name. Once linked into a chain only
// its timestamp and links change, and only under the owning set's
// structural lock.
type Entry struct {
	Name string
	// Set is the name of the entry set the entry was written to.
	Set       string
	Kind      Kind
	Deleted   bool
	Internal  bool
	Temporary bool
	Object    Object

	ts     txnts.TS
	handle Handle
	heir   Handle
	elder  Handle
}

func NewEntry(kind Kind, name string, obj Object) *Entry {
	return &Entry{
		Name:   name,
		Kind:   kind,
		Object: obj,
	}
}

// NewPlaceholder returns the deleted root that reserves name until its
// first creation commits.
func NewPlaceholder(name string) *Entry {
	return &Entry{
		Name:    name,
		Kind:    KindPlaceholder,
		Deleted: true,
		ts:      txnts.ZeroTS,
	}
}

// NewTombstone returns a drop marker of the given kind, KindTombstone or
// KindRenamed.
func NewTombstone(kind Kind, name string) *Entry {
	return &Entry{
		Name:    name,
		Kind:    kind,
		Deleted: true,
	}
}

func (e *Entry) Timestamp() txnts.TS { return e.ts }

// SetTimestamp is called by the owning set under its structural lock.
func (e *Entry) SetTimestamp(ts txnts.TS) { e.ts = ts }

func (e *Entry) Handle() Handle { return e.handle }

func (e *Entry) HasHeir() bool  { return !e.heir.IsNil() }
func (e *Entry) HasElder() bool { return !e.elder.IsNil() }

func (e *Entry) String() string {
	flags := ""
	if e.Deleted {
		flags += "D"
	}
	if e.Internal {
		flags += "I"
	}
	if e.Temporary {
		flags += "T"
	}
	return fmt.Sprintf("%s[%s][ts=%s][%s]", e.Name, e.Kind, e.ts, flags)
}
