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

package defaults

import (
	"context"
	"sync/atomic"

	"golang.org/x/exp/slices"
	"golang.org/x/text/cases"

	"github.com/matrixorigin/mocatalog/pkg/catalog/catalogif"
	"github.com/matrixorigin/mocatalog/pkg/catalog/chain"
	"github.com/matrixorigin/mocatalog/pkg/catalog/objects"
)

// Builder synthesizes the default entry called name.
type Builder func(ctx context.Context, name string) (*chain.Entry, error)

// Generator materializes built-in entries on first reference.
type Generator struct {
	names    []string
	builders map[string]namedBuilder
	caser    cases.Caser
	drained  atomic.Bool
	calls    atomic.Int64
}

type namedBuilder struct {
	name  string
	build Builder
}

var _ catalogif.DefaultGenerator = (*Generator)(nil)

func NewGenerator(builders map[string]Builder) *Generator {
	g := &Generator{
		builders: make(map[string]namedBuilder, len(builders)),
		caser:    cases.Fold(),
	}
	for name, b := range builders {
		g.names = append(g.names, name)
		g.builders[g.caser.String(name)] = namedBuilder{name: name, build: b}
	}
	slices.Sort(g.names)
	return g
}

// CreateDefaultEntry builds the default entry matching name, under the
// spelling it was registered with. It returns nil for names without one.
func (g *Generator) CreateDefaultEntry(ctx context.Context, name string) (*chain.Entry, error) {
	b, ok := g.builders[g.caser.String(name)]
	if !ok {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.calls.Add(1)
	return b.build(ctx, b.name)
}

func (g *Generator) DefaultEntryNames() []string {
	return slices.Clone(g.names)
}

func (g *Generator) Drained() bool { return g.drained.Load() }
func (g *Generator) SetDrained()   { g.drained.Store(true) }

// Calls is the number of entries built so far, kept or not.
func (g *Generator) Calls() int64 { return g.calls.Load() }

var builtinSchemas = []string{"information_schema", "pg_catalog"}

func schemaBuilder(_ context.Context, name string) (*chain.Entry, error) {
	e := objects.NewSchemaEntry(name)
	e.Internal = true
	return e, nil
}

// NewSchemaGenerator returns the generator of the built-in schemas plus
// extra.
func NewSchemaGenerator(extra ...string) *Generator {
	builders := make(map[string]Builder)
	for _, name := range builtinSchemas {
		builders[name] = schemaBuilder
	}
	for _, name := range extra {
		builders[name] = schemaBuilder
	}
	return NewGenerator(builders)
}

var builtinViews = map[string]string{
	"mo_tables":  "SELECT name FROM entries WHERE kind = 'TABLE'",
	"mo_views":   "SELECT name FROM entries WHERE kind = 'VIEW'",
	"mo_schemas": "SELECT name FROM entries WHERE kind = 'SCHEMA'",
}

// NewViewGenerator returns the generator of the built-in introspection
// views.
func NewViewGenerator() *Generator {
	builders := make(map[string]Builder, len(builtinViews))
	for name, query := range builtinViews {
		query := query
		builders[name] = func(_ context.Context, name string) (*chain.Entry, error) {
			e := objects.NewViewEntry(name, query)
			e.Internal = true
			return e, nil
		}
	}
	return NewGenerator(builders)
}
