package grading

import "github.com/noah-isme/classroom-grades-api/internal/models"

// Decision tags how a score was attributed to a category.
type Decision int

const (
	// Unattributed scores count toward no category.
	Unattributed Decision = iota
	// ExactMatch scores carry the id of a category in the current scheme.
	ExactMatch
	// FallbackToFirst scores carry no id, or a retired one, and fold into the first category.
	FallbackToFirst
)

func (d Decision) String() string {
	switch d {
	case ExactMatch:
		return "exact_match"
	case FallbackToFirst:
		return "fallback_to_first"
	default:
		return "unattributed"
	}
}

// Resolution is the outcome of resolving one score.
type Resolution struct {
	Decision Decision
	Category models.GradeCategory
}

// Attributed reports whether the score counts toward a category.
func (r Resolution) Attributed() bool {
	return r.Decision != Unattributed
}

// Resolver maps a recorded score onto a category of the active scheme.
type Resolver interface {
	Resolve(score models.RecordedScore, categories []models.GradeCategory) Resolution
}

// FallbackResolver folds scores with a missing or unknown category into the category with
// order 1. Historical scores keep counting after a scheme is replaced, at the cost of
// being attributed to a category the teacher may not have intended.
type FallbackResolver struct{}

// Resolve implements Resolver.
func (FallbackResolver) Resolve(score models.RecordedScore, categories []models.GradeCategory) Resolution {
	if len(categories) == 0 {
		return Resolution{Decision: Unattributed}
	}
	if category, ok := exactMatch(score, categories); ok {
		return Resolution{Decision: ExactMatch, Category: category}
	}
	return Resolution{Decision: FallbackToFirst, Category: firstByOrder(categories)}
}

// StrictResolver only attributes scores whose category id matches exactly.
type StrictResolver struct{}

// Resolve implements Resolver.
func (StrictResolver) Resolve(score models.RecordedScore, categories []models.GradeCategory) Resolution {
	if category, ok := exactMatch(score, categories); ok {
		return Resolution{Decision: ExactMatch, Category: category}
	}
	return Resolution{Decision: Unattributed}
}

// ResolverForPolicy returns the resolver for a configured unmatched-category policy.
// Unknown policies use the fallback behaviour.
func ResolverForPolicy(policy string) Resolver {
	if policy == PolicyExclude {
		return StrictResolver{}
	}
	return FallbackResolver{}
}

// Unmatched-category policies.
const (
	PolicyFallback = "fallback"
	PolicyExclude  = "exclude"
)

func exactMatch(score models.RecordedScore, categories []models.GradeCategory) (models.GradeCategory, bool) {
	if score.CategoryID == nil || *score.CategoryID == "" {
		return models.GradeCategory{}, false
	}
	for _, category := range categories {
		if category.ID == *score.CategoryID {
			return category, true
		}
	}
	return models.GradeCategory{}, false
}

// firstByOrder returns the category with order 1, or the lowest order when the
// sequence was stored without one.
func firstByOrder(categories []models.GradeCategory) models.GradeCategory {
	first := categories[0]
	for _, category := range categories {
		if category.Order == 1 {
			return category
		}
		if category.Order < first.Order {
			first = category
		}
	}
	return first
}
