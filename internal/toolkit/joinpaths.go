package toolkit

import "strings"

// JoinStep is one traversable edge: fk columns on the from side matched
// against the referenced columns on the to side.
type JoinStep struct {
	FromTable         string
	ToTable           string
	Columns           []string
	ReferencedColumns []string
	RelationshipType  string
}

// JoinPath is an ordered chain of steps from Source to Target.
type JoinPath struct {
	Source string
	Target string
	Steps  []JoinStep
	Length int
}

// buildAdjacency derives the traversal graph from the loaded tables'
// foreign keys: a forward edge per FK plus its reverse, so paths can walk
// relationships in either direction.
func (t *Toolkit) buildAdjacency() map[string][]JoinStep {
	edges := make(map[string][]JoinStep)

	for _, key := range t.order {
		table := t.details[key]

		relTypes := make(map[string]string, len(table.Relationships.Outgoing))
		for _, rel := range table.Relationships.Outgoing {
			if len(rel.ViaColumns) > 0 {
				relTypes[strings.ToLower(strings.Join(rel.ViaColumns, "|"))] = rel.RelationshipType
			}
		}

		for _, fk := range table.ForeignKeys {
			if fk.ReferencedTable == "" {
				continue
			}

			relType := relTypes[strings.ToLower(strings.Join(fk.Columns, "|"))]
			if relType == "" {
				relType = "many_to_one"
			}
			reverseType := relType
			if relType == "many_to_one" {
				reverseType = "one_to_many"
			}

			edges[key] = append(edges[key], JoinStep{
				FromTable:         table.TableName,
				ToTable:           fk.ReferencedTable,
				Columns:           append([]string(nil), fk.Columns...),
				ReferencedColumns: append([]string(nil), fk.ReferencedColumns...),
				RelationshipType:  relType,
			})

			referencedKey := strings.ToLower(fk.ReferencedTable)
			edges[referencedKey] = append(edges[referencedKey], JoinStep{
				FromTable:         fk.ReferencedTable,
				ToTable:           table.TableName,
				Columns:           append([]string(nil), fk.ReferencedColumns...),
				ReferencedColumns: append([]string(nil), fk.Columns...),
				RelationshipType:  reverseType,
			})
		}
	}

	return edges
}

// FindJoinPaths walks the relationship graph breadth-first from source to
// target, so shorter paths surface first. It refuses to immediately walk
// an edge backwards but otherwise leaves cycles to the depth bound, and
// deduplicates accepted paths by their table-to-table signature. Both
// bounds fall back to 3 when not positive.
func (t *Toolkit) FindJoinPaths(sourceTable, targetTable string, maxDepth, maxPaths int) []JoinPath {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	if maxPaths <= 0 {
		maxPaths = 3
	}

	source := strings.ToLower(sourceTable)
	target := strings.ToLower(targetTable)

	if source == target {
		return []JoinPath{{Source: sourceTable, Target: targetTable, Steps: []JoinStep{}, Length: 0}}
	}
	if _, ok := t.edges[source]; !ok {
		return nil
	}
	if _, ok := t.edges[target]; !ok {
		return nil
	}

	type state struct {
		table string
		path  []JoinStep
	}

	queue := []state{{table: source}}
	accepted := make(map[string]struct{})
	var results []JoinPath

	for len(queue) > 0 && len(results) < maxPaths {
		current := queue[0]
		queue = queue[1:]

		if len(current.path) >= maxDepth {
			continue
		}

		for _, step := range t.edges[current.table] {
			if reversesEarlierStep(current.path, step) {
				continue
			}

			path := append(append([]JoinStep(nil), current.path...), step)
			next := strings.ToLower(step.ToTable)

			if next != target {
				queue = append(queue, state{table: next, path: path})
				continue
			}

			signature := pathSignature(path)
			if _, dup := accepted[signature]; dup {
				continue
			}
			accepted[signature] = struct{}{}

			results = append(results, JoinPath{
				Source: sourceTable,
				Target: targetTable,
				Steps:  path,
				Length: len(path),
			})
			if len(results) >= maxPaths {
				break
			}
		}
	}

	return results
}

func reversesEarlierStep(path []JoinStep, step JoinStep) bool {
	for _, prior := range path {
		if strings.EqualFold(prior.FromTable, step.ToTable) && strings.EqualFold(prior.ToTable, step.FromTable) {
			return true
		}
	}
	return false
}

func pathSignature(path []JoinStep) string {
	parts := make([]string, len(path))
	for i, step := range path {
		parts[i] = step.FromTable + "->" + step.ToTable
	}
	return strings.Join(parts, "|")
}
