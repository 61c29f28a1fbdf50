package graph_test

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/kadirbelkuyu/schemagraph/internal/graph"
	"github.com/kadirbelkuyu/schemagraph/internal/metadata"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
)

// syntheticSnapshot derives a snapshot from a table count and a list of
// edge seeds. Each seed encodes one single-column foreign key; targets
// past the table count become dangling references on purpose.
func syntheticSnapshot(tableCount int, edgeSeeds []int) *metadata.Snapshot {
	snap := &metadata.Snapshot{DatabaseName: "synthetic"}

	for i := 0; i < tableCount; i++ {
		name := fmt.Sprintf("t%d", i)
		snap.Tables = append(snap.Tables, metadata.TableRow{Schema: "public", Table: name})
		snap.Columns = append(snap.Columns, metadata.ColumnRow{
			Schema: "public", Table: name, Column: "id", Ordinal: 1, DataType: "int4",
		})
	}

	for i, seed := range edgeSeeds {
		from := fmt.Sprintf("t%d", seed%tableCount)
		targetIdx := (seed / tableCount) % (tableCount + 2)
		to := fmt.Sprintf("t%d", targetIdx)
		column := fmt.Sprintf("ref_%d", i)

		snap.Columns = append(snap.Columns, metadata.ColumnRow{
			Schema: "public", Table: from, Column: column, Ordinal: i + 2, DataType: "int4",
		})
		snap.ForeignKeys = append(snap.ForeignKeys, metadata.ForeignKeyRow{
			Schema: "public", Table: from, ConstraintName: fmt.Sprintf("fk_%d", i),
			Column: column, ReferencedSchema: "public", ReferencedTable: to, ReferencedColumn: "id",
		})
	}

	return snap
}

func TestProperty_RelationshipMirror(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	builder := graph.NewBuilder(graph.DefaultSettings(), logger.NewNop())

	properties.Property("every resolvable foreign key is mirrored as an incoming edge on its target", prop.ForAll(
		func(tableCount int, edgeSeeds []int) bool {
			artifacts := builder.Build(syntheticSnapshot(tableCount, edgeSeeds))

			expected := 0
			for _, key := range artifacts.TableOrder {
				for _, fk := range artifacts.Tables[key].ForeignKeys {
					target := graph.TableKey{Schema: fk.ReferencedSchema, Table: fk.ReferencedTable}
					if _, ok := artifacts.Tables[target]; ok {
						expected++
					}
				}
			}

			got := 0
			for _, key := range artifacts.TableOrder {
				for _, incoming := range artifacts.Tables[key].Relationships.Incoming {
					if incoming.RelationshipType != "one_to_many" {
						return false
					}
					source := graph.TableKey{Schema: incoming.FromSchema, Table: incoming.FromTable}
					if _, ok := artifacts.Tables[source]; !ok {
						return false
					}
					got++
				}
			}
			return got == expected
		},
		gen.IntRange(1, 10),
		gen.SliceOf(gen.IntRange(0, 1<<15)),
	))

	properties.Property("statistics count exactly the assembled columns", prop.ForAll(
		func(tableCount int, edgeSeeds []int) bool {
			artifacts := builder.Build(syntheticSnapshot(tableCount, edgeSeeds))
			for _, key := range artifacts.TableOrder {
				table := artifacts.Tables[key]
				if table.Statistics.TotalColumns != len(table.Columns) {
					return false
				}
				if table.Statistics.NullableColumns > table.Statistics.TotalColumns {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 10),
		gen.SliceOf(gen.IntRange(0, 1<<15)),
	))

	properties.Property("building the same snapshot twice yields identical payloads", prop.ForAll(
		func(tableCount int, edgeSeeds []int) bool {
			first := builder.Build(syntheticSnapshot(tableCount, edgeSeeds))
			second := builder.Build(syntheticSnapshot(tableCount, edgeSeeds))

			if !reflect.DeepEqual(first.TableOrder, second.TableOrder) {
				return false
			}
			for _, key := range first.TableOrder {
				if !reflect.DeepEqual(first.Tables[key], second.Tables[key]) {
					return false
				}
			}
			return reflect.DeepEqual(
				first.Index.RelationshipSummary,
				second.Index.RelationshipSummary,
			)
		},
		gen.IntRange(1, 8),
		gen.SliceOf(gen.IntRange(0, 1<<15)),
	))

	properties.TestingRun(t)
}

func TestProperty_JunctionPairCounts(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	builder := graph.NewBuilder(graph.DefaultSettings(), logger.NewNop())

	// One junction table holding only foreign key columns into a pool of
	// targets; every unordered pair of distinct targets must surface
	// exactly once no matter how many duplicate keys point at them.
	properties.Property("a pure junction produces one pattern per distinct target pair", prop.ForAll(
		func(targetCount int, fkSeeds []int) bool {
			snap := &metadata.Snapshot{DatabaseName: "synthetic"}
			for i := 0; i < targetCount; i++ {
				name := fmt.Sprintf("entity_%d", i)
				snap.Tables = append(snap.Tables, metadata.TableRow{Schema: "public", Table: name})
				snap.Columns = append(snap.Columns, metadata.ColumnRow{
					Schema: "public", Table: name, Column: "id", Ordinal: 1, DataType: "int4",
				})
			}

			snap.Tables = append(snap.Tables, metadata.TableRow{Schema: "public", Table: "links"})
			distinct := make(map[string]struct{})
			for i, seed := range fkSeeds {
				target := fmt.Sprintf("entity_%d", seed%targetCount)
				distinct[target] = struct{}{}
				column := fmt.Sprintf("ref_%d", i)
				snap.Columns = append(snap.Columns, metadata.ColumnRow{
					Schema: "public", Table: "links", Column: column, Ordinal: i + 1, DataType: "int4",
				})
				snap.ForeignKeys = append(snap.ForeignKeys, metadata.ForeignKeyRow{
					Schema: "public", Table: "links", ConstraintName: fmt.Sprintf("fk_links_%d", i),
					Column: column, ReferencedSchema: "public", ReferencedTable: target, ReferencedColumn: "id",
				})
			}

			artifacts := builder.Build(snap)

			d := len(distinct)
			expected := 0
			if len(fkSeeds) >= 2 && d >= 2 {
				expected = d * (d - 1) / 2
			}
			return len(artifacts.Index.RelationshipSummary.ManyToManyPatterns) == expected
		},
		gen.IntRange(1, 6),
		gen.SliceOf(gen.IntRange(0, 1<<15)),
	))

	properties.TestingRun(t)
}
