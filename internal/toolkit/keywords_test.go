package toolkit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirbelkuyu/schemagraph/internal/graph"
	"github.com/kadirbelkuyu/schemagraph/internal/toolkit"
)

func TestSuggestColumnKeywordsSplitsSnakeCase(t *testing.T) {
	s := toolkit.NewKeywordSuggester(nil)

	assert.Equal(t, []string{"dispensed"}, s.SuggestColumnKeywords("dispensed_at"), "short parts drop out")
	assert.Equal(t, []string{"drug", "name"}, s.SuggestColumnKeywords("drug_name"))
}

func TestSuggestColumnKeywordsSplitsCamelCase(t *testing.T) {
	s := toolkit.NewKeywordSuggester(nil)

	keywords := s.SuggestColumnKeywords("PatientBirthDate")
	assert.Equal(t, []string{"birth", "client", "customer", "date", "patient"}, keywords,
		"camel humps split and the patient synonym set joins in")
}

func TestSuggestColumnKeywordsDropsStopParts(t *testing.T) {
	s := toolkit.NewKeywordSuggester(nil)

	assert.Equal(t, []string{"audit"}, s.SuggestColumnKeywords("audit_log"))
	assert.Empty(t, s.SuggestColumnKeywords("temp"))
}

func TestSuggestTableKeywordsMergesColumns(t *testing.T) {
	s := toolkit.NewKeywordSuggester(nil)

	table := &graph.Table{
		TableName: "invoices",
		Columns: []graph.Column{
			{Name: "id"},
			{Name: "payment_ref"},
			{Name: "issued_at"},
		},
	}

	keywords := s.SuggestTableKeywords(table)
	require.NotEmpty(t, keywords)

	assert.Contains(t, keywords, "invoices")
	assert.Contains(t, keywords, "payment")
	assert.Contains(t, keywords, "transaction", "payment synonym")
	assert.Contains(t, keywords, "settlement", "payment synonym")
	assert.LessOrEqual(t, len(keywords), 10)
	assert.IsIncreasing(t, keywords)
}

func TestCustomSynonymsMergeIntoDefaults(t *testing.T) {
	s := toolkit.NewKeywordSuggester(map[string][]string{
		"patient": {"Member"},
		"refill":  {"renewal"},
	})

	patient := s.SuggestColumnKeywords("patient_id")
	assert.Contains(t, patient, "member", "custom synonyms are lower-cased")
	assert.Contains(t, patient, "customer", "defaults stay in place")

	refill := s.SuggestColumnKeywords("refill_count")
	assert.Contains(t, refill, "renewal")
}

func TestKeywordMapPointsTokensAtTables(t *testing.T) {
	tk := newClinicToolkit(t)

	keywordMap := tk.KeywordMap(nil)
	require.NotEmpty(t, keywordMap)

	assert.Contains(t, keywordMap["patients"], "Patients")
	assert.Contains(t, keywordMap["patient"], "PatientDoctors", "patient_id column token")
	assert.Contains(t, keywordMap["customer"], "Prescriptions", "column token synonyms map back to the table")

	// FK endpoints reference each other by name.
	assert.Contains(t, keywordMap["patients"], "Prescriptions")
	assert.Contains(t, keywordMap["prescriptions"], "Patients")

	for _, tables := range keywordMap {
		assert.IsIncreasing(t, tables, "table lists are sorted")
	}
}
