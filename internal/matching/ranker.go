// Package matching orders psychologist candidates by relevance against a
// patient's search filters. It is a ranking, not a hard filter: a
// candidate matching nothing still appears, scored lowest. Callers that
// want hard filtering must pre-filter the pool before ranking.
package matching

import (
	"sort"

	"github.com/google/uuid"
)

// Weights holds the score contribution of each filter dimension. The
// three overlap dimensions are independently configurable; see
// DefaultWeights for the stock values.
type Weights struct {
	Gender    float64
	MaxPrice  float64
	Approach  float64
	Specialty float64
	Audience  float64
}

// DefaultWeights reproduces the scoring the system has always shipped
// with: exact-match dimensions at 10/5, every overlap dimension at 30.
func DefaultWeights() Weights {
	return Weights{
		Gender:    10,
		MaxPrice:  5,
		Approach:  30,
		Specialty: 30,
		Audience:  30,
	}
}

// Filters is the patient's search request. Nil or empty dimensions are
// unrequested and contribute nothing to any candidate's score.
type Filters struct {
	Gender       string
	MaxPrice     *float64
	ApproachIDs  []uuid.UUID
	SpecialtyIDs []uuid.UUID
	Audiences    []string
}

func (f Filters) IsZero() bool {
	return f.Gender == "" && f.MaxPrice == nil &&
		len(f.ApproachIDs) == 0 && len(f.SpecialtyIDs) == 0 && len(f.Audiences) == 0
}

// Candidate is the ranker's view of a psychologist.
type Candidate struct {
	ID                  uuid.UUID
	Name                string
	Gender              string
	SpecialtyIDs        []uuid.UUID
	ApproachIDs         []uuid.UUID
	Audiences           []string
	ValuePerAppointment float64
}

type Ranker struct {
	weights Weights
}

func NewRanker(w Weights) *Ranker {
	return &Ranker{weights: w}
}

// Score computes the weighted relevance of one candidate. Exact-match
// dimensions award their full weight or nothing; overlap dimensions award
// weight scaled by matched/requested.
func (r *Ranker) Score(c Candidate, f Filters) float64 {
	var score float64

	if f.Gender != "" && c.Gender == f.Gender {
		score += r.weights.Gender
	}
	if f.MaxPrice != nil && c.ValuePerAppointment <= *f.MaxPrice {
		score += r.weights.MaxPrice
	}
	score += r.weights.Approach * overlapRatio(c.ApproachIDs, f.ApproachIDs)
	score += r.weights.Specialty * overlapRatio(c.SpecialtyIDs, f.SpecialtyIDs)
	score += r.weights.Audience * overlapRatioStr(c.Audiences, f.Audiences)

	return score
}

// Rank scores and orders the whole pool, then cuts the requested page.
// The sort is stable, so equal scores keep the pool's incoming order.
// Total reflects the full pool, not the page.
func (r *Ranker) Rank(pool []Candidate, f Filters, pageable Pageable) Page[Candidate] {
	ranked := make([]Candidate, len(pool))
	copy(ranked, pool)

	scores := make(map[uuid.UUID]float64, len(ranked))
	for _, c := range ranked {
		scores[c.ID] = r.Score(c, f)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i].ID] > scores[ranked[j].ID]
	})

	total := len(ranked)
	start := pageable.Offset()
	if start > total {
		start = total
	}
	end := start + pageable.Limit()
	if end > total {
		end = total
	}

	return Page[Candidate]{
		Items:    ranked[start:end],
		Total:    total,
		Pageable: pageable,
	}
}

func overlapRatio(have, want []uuid.UUID) float64 {
	if len(want) == 0 {
		return 0
	}
	set := make(map[uuid.UUID]struct{}, len(have))
	for _, id := range have {
		set[id] = struct{}{}
	}
	matched := 0
	for _, id := range want {
		if _, ok := set[id]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(want))
}

func overlapRatioStr(have, want []string) float64 {
	if len(want) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(have))
	for _, s := range have {
		set[s] = struct{}{}
	}
	matched := 0
	for _, s := range want {
		if _, ok := set[s]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(want))
}
