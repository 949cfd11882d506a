package opensearch

import "github.com/ministryofjustice/rd-search-backend/internal/core/domain"

// wrapWithFilter combines the retrieval query with the metadata filter
// translated to an OpenSearch bool clause. A zero filter leaves the
// query untouched.
func wrapWithFilter(query map[string]any, filter domain.Filter) map[string]any {
	if filter.IsZero() {
		return query
	}
	return map[string]any{
		"bool": map[string]any{
			"must":   query,
			"filter": translateFilter(filter),
		},
	}
}

// translateFilter maps the predicate tree onto the query DSL: == and in
// become term/terms over the meta object, AND/OR become bool must/should.
func translateFilter(filter domain.Filter) map[string]any {
	switch filter.Operator {
	case domain.FilterEq:
		return map[string]any{
			"term": map[string]any{"meta." + filter.Field: filter.Value},
		}
	case domain.FilterIn:
		return map[string]any{
			"terms": map[string]any{"meta." + filter.Field: filter.Value},
		}
	case domain.FilterAnd:
		clauses := make([]map[string]any, 0, len(filter.Conditions))
		for _, cond := range filter.Conditions {
			clauses = append(clauses, translateFilter(cond))
		}
		return map[string]any{"bool": map[string]any{"must": clauses}}
	case domain.FilterOr:
		clauses := make([]map[string]any, 0, len(filter.Conditions))
		for _, cond := range filter.Conditions {
			clauses = append(clauses, translateFilter(cond))
		}
		return map[string]any{"bool": map[string]any{
			"should":               clauses,
			"minimum_should_match": 1,
		}}
	default:
		return map[string]any{"match_all": map[string]any{}}
	}
}
