package toolkit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kadirbelkuyu/schemagraph/internal/graph"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
)

// TableMatch is one ranked search hit.
type TableMatch struct {
	TableName   string
	Score       float64
	Reason      string
	Description string
	Columns     []string
}

var stopWords = map[string]struct{}{
	"and": {}, "the": {}, "for": {}, "with": {}, "from": {},
	"this": {}, "that": {}, "into": {}, "about": {}, "show": {},
	"list": {}, "give": {}, "data": {}, "info": {}, "details": {},
}

var wordPattern = regexp.MustCompile(`\w+`)

func tokenize(text string) []string {
	var tokens []string
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// Search ranks tables against a free-text query. Tokens hit a table once
// per field they appear in, weighted by field; alias-map hits add a flat
// bonus on the aliased table. Zero-score tables are dropped and at most
// topK matches return, highest first.
func (t *Toolkit) Search(query string, topK int, includeColumnMatches bool) []TableMatch {
	if topK <= 0 {
		topK = t.search.TopK
	}
	if topK <= 0 {
		topK = 5
	}

	tokens := tokenize(query)

	aliasTargets := make(map[string]struct{})
	for _, token := range append([]string(nil), tokens...) {
		if mapped, ok := t.aliases[token]; ok {
			aliasTargets[strings.ToLower(mapped)] = struct{}{}
			tokens = append(tokens, strings.ToLower(mapped))
		}
	}
	if len(tokens) == 0 {
		tokens = tokenize(query + " table")
	}

	effectiveColumns := includeColumnMatches && !t.search.ExcludeColumnMatches

	type scoredTable struct {
		key     string
		score   float64
		reasons *reasonCounter
	}

	var matches []scoredTable
	for _, key := range t.order {
		score, reasons := scoreTable(t.details[key], tokens, effectiveColumns)
		if _, aliased := aliasTargets[key]; aliased {
			score += 6.0
			reasons.add("alias")
		}
		if score > 0 {
			matches = append(matches, scoredTable{key: key, score: score, reasons: reasons})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > topK {
		matches = matches[:topK]
	}

	results := make([]TableMatch, 0, len(matches))
	for _, match := range matches {
		detail := t.details[match.key]

		columns := make([]string, 0, 10)
		for _, col := range detail.Columns {
			if len(columns) == 10 {
				break
			}
			columns = append(columns, col.Name)
		}

		results = append(results, TableMatch{
			TableName:   detail.TableName,
			Score:       match.score,
			Reason:      match.reasons.String(),
			Description: detail.Description,
			Columns:     columns,
		})
	}

	return results
}

type scoreField struct {
	name   string
	weight float64
	values []string
}

func scoreTable(detail *graph.Table, tokens []string, includeColumns bool) (float64, *reasonCounter) {
	fields := []scoreField{
		{name: "name", weight: 5.0, values: []string{strings.ToLower(detail.TableName)}},
		{name: "keywords", weight: 3.5, values: lowerAll(detail.Keywords)},
	}
	if detail.Description != "" {
		fields = append(fields, scoreField{
			name: "description", weight: 3.0, values: []string{strings.ToLower(detail.Description)},
		})
	}
	if includeColumns {
		columnNames := make([]string, 0, len(detail.Columns))
		var columnKeywords []string
		for _, col := range detail.Columns {
			columnNames = append(columnNames, strings.ToLower(col.Name))
			for _, keyword := range col.Keywords {
				columnKeywords = append(columnKeywords, strings.ToLower(keyword))
			}
		}
		fields = append(fields,
			scoreField{name: "columns", weight: 2.5, values: columnNames},
			scoreField{name: "column_keywords", weight: 2.0, values: columnKeywords},
		)
	}

	reasons := newReasonCounter()
	var score float64
	for _, token := range tokens {
		for _, field := range fields {
			if anyContains(field.values, token) {
				score += field.weight
				reasons.add(token)
			}
		}
	}
	return score, reasons
}

func anyContains(values []string, token string) bool {
	for _, value := range values {
		if strings.Contains(value, token) {
			return true
		}
	}
	return false
}

func lowerAll(values []string) []string {
	lowered := make([]string, len(values))
	for i, value := range values {
		lowered[i] = strings.ToLower(value)
	}
	return lowered
}

// reasonCounter counts hits per token while remembering first-seen order,
// so the rendered reason string is stable across runs.
type reasonCounter struct {
	order  []string
	counts map[string]int
}

func newReasonCounter() *reasonCounter {
	return &reasonCounter{counts: make(map[string]int)}
}

func (c *reasonCounter) add(token string) {
	if _, seen := c.counts[token]; !seen {
		c.order = append(c.order, token)
	}
	c.counts[token]++
}

func (c *reasonCounter) String() string {
	parts := make([]string, 0, len(c.order))
	for _, token := range c.order {
		parts = append(parts, fmt.Sprintf("%s:%d", token, c.counts[token]))
	}
	return strings.Join(parts, ", ")
}

// loadAliasMap reads a flat business-term -> table-name map from a YAML
// or JSON file. Any problem degrades to an empty map with a log line;
// aliases are an optional overlay, never a load failure.
func loadAliasMap(path string, log *logger.Logger) map[string]string {
	aliases := make(map[string]string)
	if path == "" {
		return aliases
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("alias map not readable: %v", err)
		return aliases
	}

	raw := make(map[string]string)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".json":
		err = json.Unmarshal(data, &raw)
	default:
		log.Warnf("unsupported alias map format: %s", path)
		return aliases
	}
	if err != nil {
		log.Errorf("failed to parse alias map %s: %v", path, err)
		return aliases
	}

	for term, table := range raw {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		aliases[term] = strings.TrimSpace(table)
	}
	return aliases
}
