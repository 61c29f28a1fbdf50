package toolkit

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kadirbelkuyu/schemagraph/internal/graph"
)

// defaultSynonyms maps a name token to the business terms it should also
// answer to. Callers can extend the set with their own ontology.
var defaultSynonyms = map[string][]string{
	"dispense":  {"order", "shipment", "delivery"},
	"patient":   {"customer", "client"},
	"inventory": {"stock", "product"},
	"invoice":   {"bill", "statement"},
	"payment":   {"transaction", "settlement"},
}

// nameStopWords are structural name parts that carry no meaning on their
// own: log tables, history suffixes and the like.
var nameStopWords = map[string]struct{}{
	"master": {}, "detail": {}, "history": {}, "log": {}, "temp": {},
}

var (
	camelPart        = regexp.MustCompile(`[A-Z][a-z]*`)
	separatorPattern = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// nameTokens splits an identifier into meaningful lower-cased parts:
// snake_case separators first, CamelCase humps within each part, and a
// part without humps stays whole. Short and structural parts drop out.
func nameTokens(name string) []string {
	var tokens []string
	seen := make(map[string]struct{})
	for _, part := range separatorPattern.Split(name, -1) {
		if part == "" {
			continue
		}
		humps := camelPart.FindAllString(part, -1)
		if len(humps) == 0 {
			humps = []string{part}
		}
		for _, hump := range humps {
			token := strings.ToLower(hump)
			if len(token) <= 2 {
				continue
			}
			if _, stop := nameStopWords[token]; stop {
				continue
			}
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// KeywordSuggester derives searchable keywords from table and column
// names, expanded through a synonym ontology. It backs the automatic
// annotation path and the exported keyword map.
type KeywordSuggester struct {
	synonyms map[string][]string
}

func NewKeywordSuggester(customSynonyms map[string][]string) *KeywordSuggester {
	synonyms := make(map[string][]string, len(defaultSynonyms))
	for base, values := range defaultSynonyms {
		synonyms[base] = append([]string(nil), values...)
	}

	for base, values := range customSynonyms {
		key := strings.ToLower(base)
		merged := make(map[string]struct{})
		for _, value := range synonyms[key] {
			merged[value] = struct{}{}
		}
		for _, value := range values {
			merged[strings.ToLower(value)] = struct{}{}
		}
		flat := make([]string, 0, len(merged))
		for value := range merged {
			flat = append(flat, value)
		}
		sort.Strings(flat)
		synonyms[key] = flat
	}

	return &KeywordSuggester{synonyms: synonyms}
}

// SuggestTableKeywords proposes keywords for a table from its own name
// and its column names: sorted, capped at 10.
func (s *KeywordSuggester) SuggestTableKeywords(table *graph.Table) []string {
	merged := make(map[string]struct{})
	for _, token := range s.expand(nameTokens(table.TableName)) {
		merged[token] = struct{}{}
	}
	for _, col := range table.Columns {
		for _, token := range s.expand(nameTokens(col.Name)) {
			merged[token] = struct{}{}
		}
	}

	keywords := make([]string, 0, len(merged))
	for token := range merged {
		keywords = append(keywords, token)
	}
	sort.Strings(keywords)
	if len(keywords) > 10 {
		keywords = keywords[:10]
	}
	return keywords
}

// SuggestColumnKeywords proposes keywords for a single column name.
func (s *KeywordSuggester) SuggestColumnKeywords(columnName string) []string {
	expanded := s.expand(nameTokens(columnName))
	sort.Strings(expanded)
	return expanded
}

func (s *KeywordSuggester) expand(tokens []string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(token string) {
		if _, dup := seen[token]; dup {
			return
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}

	for _, token := range tokens {
		add(token)
		for _, synonym := range s.synonyms[token] {
			add(synonym)
		}
	}
	return out
}

// KeywordMap builds the keyword -> table-names ontology across every
// loaded table: name and column tokens (synonym-expanded) point at their
// table, and each foreign key endpoint points at the other side.
func (t *Toolkit) KeywordMap(suggester *KeywordSuggester) map[string][]string {
	if suggester == nil {
		suggester = NewKeywordSuggester(nil)
	}

	byKeyword := make(map[string]map[string]struct{})
	add := func(keyword, tableName string) {
		if keyword == "" {
			return
		}
		if byKeyword[keyword] == nil {
			byKeyword[keyword] = make(map[string]struct{})
		}
		byKeyword[keyword][tableName] = struct{}{}
	}

	for _, key := range t.order {
		table := t.details[key]

		tokens := suggester.expand(nameTokens(table.TableName))
		for _, col := range table.Columns {
			tokens = append(tokens, suggester.expand(nameTokens(col.Name))...)
		}
		for _, token := range tokens {
			add(token, table.TableName)
		}

		for _, fk := range table.ForeignKeys {
			if fk.ReferencedTable == "" {
				continue
			}
			add(strings.ToLower(fk.ReferencedTable), table.TableName)
			add(strings.ToLower(table.TableName), fk.ReferencedTable)
		}
	}

	result := make(map[string][]string, len(byKeyword))
	for keyword, tables := range byKeyword {
		names := make([]string, 0, len(tables))
		for name := range tables {
			names = append(names, name)
		}
		sort.Strings(names)
		result[keyword] = names
	}
	return result
}
