package querybuilder

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goto/sitesearch/core/search"
	"github.com/olivere/elastic/v7"
)

const (
	// MinimumShouldMatch: up to 2 terms all must match, 3 terms need 2,
	// 4 to 7 terms need 3 and from 8 terms half of them must match.
	MinimumShouldMatch = "2<2 3<3 7<50%"

	defaultQueryAnalyzer = "query_with_old_synonyms"
	shingleAnalyzer      = "shingled_query_analyzer"
	allSearchableText    = "all_searchable_text"
	synonymTieBreaker    = 0.1
)

type fieldBoost struct {
	field string
	boost float64
}

var matchFields = []fieldBoost{
	{field: "title", boost: 5},
	{field: "acronym", boost: 5},
	{field: "description", boost: 2},
	{field: "indexable_content", boost: 1},
}

func matchFieldNames() []string {
	names := make([]string, 0, len(matchFields))
	for _, f := range matchFields {
		names = append(names, f.field)
	}
	return names
}

// TextQuery scores documents against the free text of the request.
type TextQuery struct {
	params search.QueryParameters
}

func NewTextQuery(params search.QueryParameters) TextQuery {
	return TextQuery{params: params}
}

// Payload returns match_all when there is no free text.
func (q TextQuery) Payload() elastic.Query {
	if !q.params.HasQuery() {
		return elastic.NewMatchAllQuery()
	}
	if q.params.QuotedSearchPhrase() {
		return q.quotedPhrase()
	}
	return elastic.NewBoolQuery().
		Must(q.allSearchableText()).
		Should(
			q.fieldPhrases(),
			q.allTerms(),
			q.bigrams(),
		)
}

func (q TextQuery) term() string { return q.params.Query() }

func (q TextQuery) allSearchableText() elastic.Query {
	match := elastic.NewMatchQuery(allSearchableText, q.term()).
		Analyzer(defaultQueryAnalyzer).
		MinimumShouldMatch(MinimumShouldMatch)
	if q.params.Debug().DisableSynonyms {
		return match
	}

	synonyms := elastic.NewMatchQuery(allSearchableText+".synonym", q.term()).
		MinimumShouldMatch(MinimumShouldMatch)
	return elastic.NewDisMaxQuery().
		Query(match, synonyms).
		TieBreaker(synonymTieBreaker)
}

func (q TextQuery) fieldPhrases() elastic.Query {
	phrases := make([]elastic.Query, 0, len(matchFields))
	for _, f := range matchFields {
		phrases = append(phrases, elastic.NewMatchPhraseQuery(f.field, q.term()).
			Analyzer(defaultQueryAnalyzer).
			Boost(f.boost))
	}
	return elastic.NewDisMaxQuery().Query(phrases...)
}

func (q TextQuery) allTerms() elastic.Query {
	return elastic.NewMultiMatchQuery(q.term(), matchFieldNames()...).
		Operator("and").
		Analyzer(defaultQueryAnalyzer)
}

func (q TextQuery) bigrams() elastic.Query {
	return elastic.NewMultiMatchQuery(q.term(), matchFieldNames()...).
		Operator("or").
		Analyzer(shingleAnalyzer)
}

func (q TextQuery) quotedPhrase() elastic.Query {
	phrase := strings.Trim(q.term(), `"`)
	phrases := make([]elastic.Query, 0, len(matchFields))
	for _, f := range matchFields {
		phrases = append(phrases, elastic.NewMatchPhraseQuery(f.field+".no_stop", phrase).Boost(f.boost))
	}
	return elastic.NewDisMaxQuery().Query(phrases...)
}

// RequiredClauses returns how many of the given number of optional clauses
// must match under a minimum_should_match expression made of conditional
// "N<M" parts, as used by MinimumShouldMatch.
func RequiredClauses(expr string, clauses int) (int, error) {
	required := clauses
	for _, part := range strings.Fields(expr) {
		threshold, spec, ok := strings.Cut(part, "<")
		if !ok {
			return 0, fmt.Errorf("unsupported minimum_should_match part %q", part)
		}
		n, err := strconv.Atoi(threshold)
		if err != nil {
			return 0, fmt.Errorf("invalid threshold in %q: %w", part, err)
		}
		if clauses <= n {
			break
		}
		required, err = applyMinimumShouldMatch(spec, clauses)
		if err != nil {
			return 0, fmt.Errorf("invalid value in %q: %w", part, err)
		}
	}
	if required < 0 {
		required = 0
	}
	if required > clauses {
		required = clauses
	}
	return required, nil
}

func applyMinimumShouldMatch(spec string, clauses int) (int, error) {
	if pct, ok := strings.CutSuffix(spec, "%"); ok {
		p, err := strconv.Atoi(pct)
		if err != nil {
			return 0, err
		}
		n := int(math.Floor(float64(clauses) * float64(abs(p)) / 100))
		if p < 0 {
			return clauses - n, nil
		}
		return n, nil
	}

	n, err := strconv.Atoi(spec)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return clauses + n, nil
	}
	return n, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
