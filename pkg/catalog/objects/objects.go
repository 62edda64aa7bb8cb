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

// Package objects holds the payloads of live catalog entries and the alter
// statements they understand.
package objects

import (
	"context"
	"encoding/json"

	"golang.org/x/exp/slices"

	"github.com/matrixorigin/mocatalog/pkg/catalog/chain"
	"github.com/matrixorigin/mocatalog/pkg/common/moerr"
)

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema is a namespace entry.
type Schema struct {
	Comment string
}

type Table struct {
	Columns []Column
	Comment string
}

type View struct {
	Query   string
	Comment string
}

func NewSchemaEntry(name string) *chain.Entry {
	return chain.NewEntry(chain.KindSchema, name, &Schema{})
}

func NewTableEntry(name string, columns ...Column) *chain.Entry {
	return chain.NewEntry(chain.KindTable, name, &Table{Columns: slices.Clone(columns)})
}

func NewViewEntry(name, query string) *chain.Entry {
	return chain.NewEntry(chain.KindView, name, &View{Query: query})
}

// derive returns a copy of entry under name carrying obj.
func derive(entry *chain.Entry, name string, obj chain.Object) *chain.Entry {
	e := chain.NewEntry(entry.Kind, name, obj)
	e.Internal = entry.Internal
	e.Temporary = entry.Temporary
	return e
}

func unsupported(ctx context.Context, entry *chain.Entry, info chain.AlterInfo) error {
	return moerr.NewNYI(ctx, "alter %T on %s", info, entry.Kind)
}

func (s *Schema) Alter(ctx context.Context, entry *chain.Entry, info chain.AlterInfo) (*chain.Entry, error) {
	switch info := info.(type) {
	case *RenameInfo:
		if info.NewName == entry.Name {
			return nil, nil
		}
		return derive(entry, info.NewName, &Schema{Comment: s.Comment}), nil
	case *SetCommentInfo:
		if info.Comment == s.Comment {
			return nil, nil
		}
		return derive(entry, entry.Name, &Schema{Comment: info.Comment}), nil
	}
	return nil, unsupported(ctx, entry, info)
}

func (s *Schema) UndoAlter(context.Context, *chain.Entry, chain.AlterInfo) error {
	return nil
}

func (t *Table) clone() *Table {
	return &Table{
		Columns: slices.Clone(t.Columns),
		Comment: t.Comment,
	}
}

func (t *Table) columnIndex(name string) int {
	return slices.IndexFunc(t.Columns, func(c Column) bool {
		return c.Name == name
	})
}

func (t *Table) Alter(ctx context.Context, entry *chain.Entry, info chain.AlterInfo) (*chain.Entry, error) {
	switch info := info.(type) {
	case *RenameInfo:
		if info.NewName == entry.Name {
			return nil, nil
		}
		return derive(entry, info.NewName, t.clone()), nil
	case *SetCommentInfo:
		if info.Comment == t.Comment {
			return nil, nil
		}
		table := t.clone()
		table.Comment = info.Comment
		return derive(entry, entry.Name, table), nil
	case *AddColumnInfo:
		if t.columnIndex(info.Column.Name) >= 0 {
			if info.IfNotExists {
				return nil, nil
			}
			return nil, moerr.NewInvalidInput(ctx, "column %q of table %q already exists", info.Column.Name, entry.Name)
		}
		table := t.clone()
		table.Columns = append(table.Columns, info.Column)
		return derive(entry, entry.Name, table), nil
	case *DropColumnInfo:
		idx := t.columnIndex(info.Name)
		if idx < 0 {
			if info.IfExists {
				return nil, nil
			}
			return nil, moerr.NewInvalidInput(ctx, "column %q of table %q does not exist", info.Name, entry.Name)
		}
		if len(t.Columns) == 1 {
			return nil, moerr.NewInvalidInput(ctx, "cannot drop the only column of table %q", entry.Name)
		}
		table := t.clone()
		table.Columns = slices.Delete(table.Columns, idx, idx+1)
		return derive(entry, entry.Name, table), nil
	}
	return nil, unsupported(ctx, entry, info)
}

func (t *Table) UndoAlter(context.Context, *chain.Entry, chain.AlterInfo) error {
	return nil
}

// Verify checks that the table has columns and that their names are
// unique.
func (t *Table) Verify() error {
	if len(t.Columns) == 0 {
		return moerr.NewInternalError(moerr.Context(), "table without columns")
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return moerr.NewInternalError(moerr.Context(), "column without name")
		}
		if _, ok := seen[c.Name]; ok {
			return moerr.NewInternalError(moerr.Context(), "duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

func (v *View) Alter(ctx context.Context, entry *chain.Entry, info chain.AlterInfo) (*chain.Entry, error) {
	switch info := info.(type) {
	case *RenameInfo:
		if info.NewName == entry.Name {
			return nil, nil
		}
		return derive(entry, info.NewName, &View{Query: v.Query, Comment: v.Comment}), nil
	case *SetCommentInfo:
		if info.Comment == v.Comment {
			return nil, nil
		}
		return derive(entry, entry.Name, &View{Query: v.Query, Comment: info.Comment}), nil
	}
	return nil, unsupported(ctx, entry, info)
}

func (v *View) UndoAlter(context.Context, *chain.Entry, chain.AlterInfo) error {
	return nil
}

// AlterBase carries what every alter statement shares.
type AlterBase struct {
	Internal bool `json:"allow_internal,omitempty"`
}

func (b AlterBase) AllowInternal() bool { return b.Internal }
func (b AlterBase) ColumnName() string  { return "" }

type RenameInfo struct {
	AlterBase
	NewName string `json:"new_name"`
}

func (info *RenameInfo) Marshal() ([]byte, error) {
	return marshalInfo("rename", info)
}

type SetCommentInfo struct {
	AlterBase
	Comment string `json:"comment"`
}

func (info *SetCommentInfo) Marshal() ([]byte, error) {
	return marshalInfo("set_comment", info)
}

type AddColumnInfo struct {
	AlterBase
	Column      Column `json:"column"`
	IfNotExists bool   `json:"if_not_exists,omitempty"`
}

func (info *AddColumnInfo) ColumnName() string { return info.Column.Name }

func (info *AddColumnInfo) Marshal() ([]byte, error) {
	return marshalInfo("add_column", info)
}

type DropColumnInfo struct {
	AlterBase
	Name     string `json:"name"`
	IfExists bool   `json:"if_exists,omitempty"`
}

func (info *DropColumnInfo) ColumnName() string { return info.Name }

func (info *DropColumnInfo) Marshal() ([]byte, error) {
	return marshalInfo("drop_column", info)
}

type taggedInfo struct {
	Type string          `json:"type"`
	Info json.RawMessage `json:"info"`
}

func marshalInfo(typ string, info chain.AlterInfo) ([]byte, error) {
	raw, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedInfo{Type: typ, Info: raw})
}

// UnmarshalAlterInfo decodes what an AlterInfo of this package marshalled.
func UnmarshalAlterInfo(data []byte) (chain.AlterInfo, error) {
	var tagged taggedInfo
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, moerr.NewInvalidInput(moerr.Context(), "alter info: %v", err)
	}
	var info chain.AlterInfo
	switch tagged.Type {
	case "rename":
		info = &RenameInfo{}
	case "set_comment":
		info = &SetCommentInfo{}
	case "add_column":
		info = &AddColumnInfo{}
	case "drop_column":
		info = &DropColumnInfo{}
	default:
		return nil, moerr.NewInvalidInput(moerr.Context(), "unknown alter info type %q", tagged.Type)
	}
	if err := json.Unmarshal(tagged.Info, info); err != nil {
		return nil, moerr.NewInvalidInput(moerr.Context(), "alter info %s: %v", tagged.Type, err)
	}
	return info, nil
}
