package matching

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	specA = uuid.New()
	specB = uuid.New()
	apprA = uuid.New()
	apprB = uuid.New()
)

func floatPtr(v float64) *float64 { return &v }

func TestScore(t *testing.T) {
	r := NewRanker(DefaultWeights())

	t.Run("full specialty overlap awards full weight", func(t *testing.T) {
		c := Candidate{ID: uuid.New(), SpecialtyIDs: []uuid.UUID{specA, specB}}
		f := Filters{SpecialtyIDs: []uuid.UUID{specA, specB}}
		assert.InDelta(t, 30.0, r.Score(c, f), 1e-9)
	})

	t.Run("partial overlap scales by requested count", func(t *testing.T) {
		c := Candidate{ID: uuid.New(), SpecialtyIDs: []uuid.UUID{specA}}
		f := Filters{SpecialtyIDs: []uuid.UUID{specA, specB}}
		assert.InDelta(t, 15.0, r.Score(c, f), 1e-9)
	})

	t.Run("gender and price are all or nothing", func(t *testing.T) {
		c := Candidate{ID: uuid.New(), Gender: "female", ValuePerAppointment: 100}
		f := Filters{Gender: "female", MaxPrice: floatPtr(120)}
		assert.InDelta(t, 15.0, r.Score(c, f), 1e-9)

		f.MaxPrice = floatPtr(80)
		assert.InDelta(t, 10.0, r.Score(c, f), 1e-9)
	})

	t.Run("unrequested dimensions contribute nothing", func(t *testing.T) {
		c := Candidate{
			ID:                  uuid.New(),
			Gender:              "male",
			SpecialtyIDs:        []uuid.UUID{specA},
			ApproachIDs:         []uuid.UUID{apprA},
			Audiences:           []string{"adult"},
			ValuePerAppointment: 50,
		}
		assert.Zero(t, r.Score(c, Filters{}))
	})

	t.Run("all dimensions stack", func(t *testing.T) {
		c := Candidate{
			ID:                  uuid.New(),
			Gender:              "female",
			SpecialtyIDs:        []uuid.UUID{specA, specB},
			ApproachIDs:         []uuid.UUID{apprA},
			Audiences:           []string{"adult", "teen"},
			ValuePerAppointment: 100,
		}
		f := Filters{
			Gender:       "female",
			MaxPrice:     floatPtr(150),
			SpecialtyIDs: []uuid.UUID{specA, specB},
			ApproachIDs:  []uuid.UUID{apprA, apprB},
			Audiences:    []string{"adult"},
		}
		// 10 + 5 + 30 + 30*1/2 + 30
		assert.InDelta(t, 90.0, r.Score(c, f), 1e-9)
	})
}

func TestRank(t *testing.T) {
	r := NewRanker(DefaultWeights())

	t.Run("orders pool by descending score without dropping anyone", func(t *testing.T) {
		strong := Candidate{ID: uuid.New(), Name: "strong", SpecialtyIDs: []uuid.UUID{specA, specB}}
		weak := Candidate{ID: uuid.New(), Name: "weak", SpecialtyIDs: []uuid.UUID{specA}}
		none := Candidate{ID: uuid.New(), Name: "none"}

		f := Filters{SpecialtyIDs: []uuid.UUID{specA, specB}}
		page := r.Rank([]Candidate{none, weak, strong}, f, NewPageable(1, 10))

		require.Len(t, page.Items, 3)
		assert.Equal(t, "strong", page.Items[0].Name)
		assert.Equal(t, "weak", page.Items[1].Name)
		assert.Equal(t, "none", page.Items[2].Name)
		assert.Equal(t, 3, page.Total)
	})

	t.Run("ties keep incoming order", func(t *testing.T) {
		first := Candidate{ID: uuid.New(), Name: "first"}
		second := Candidate{ID: uuid.New(), Name: "second"}
		third := Candidate{ID: uuid.New(), Name: "third"}

		page := r.Rank([]Candidate{first, second, third}, Filters{}, NewPageable(1, 10))

		require.Len(t, page.Items, 3)
		assert.Equal(t, "first", page.Items[0].Name)
		assert.Equal(t, "second", page.Items[1].Name)
		assert.Equal(t, "third", page.Items[2].Name)
	})

	t.Run("pagination cuts after ranking", func(t *testing.T) {
		pool := make([]Candidate, 5)
		for i := range pool {
			pool[i] = Candidate{ID: uuid.New()}
		}

		page := r.Rank(pool, Filters{}, NewPageable(2, 2))
		assert.Len(t, page.Items, 2)
		assert.Equal(t, 5, page.Total)
		assert.Equal(t, 3, page.TotalPages())

		last := r.Rank(pool, Filters{}, NewPageable(3, 2))
		assert.Len(t, last.Items, 1)
		assert.False(t, last.HasNext())
	})

	t.Run("page past the end is empty, total is intact", func(t *testing.T) {
		pool := []Candidate{{ID: uuid.New()}}
		page := r.Rank(pool, Filters{}, NewPageable(4, 10))
		assert.Empty(t, page.Items)
		assert.Equal(t, 1, page.Total)
	})

	t.Run("ranking does not mutate the pool", func(t *testing.T) {
		strong := Candidate{ID: uuid.New(), Name: "strong", SpecialtyIDs: []uuid.UUID{specA}}
		pool := []Candidate{{ID: uuid.New(), Name: "none"}, strong}

		r.Rank(pool, Filters{SpecialtyIDs: []uuid.UUID{specA}}, NewPageable(1, 10))
		assert.Equal(t, "none", pool[0].Name)
	})

	t.Run("custom weights shift the order", func(t *testing.T) {
		priceRanker := NewRanker(Weights{Gender: 1, MaxPrice: 50, Approach: 1, Specialty: 1, Audience: 1})
		cheap := Candidate{ID: uuid.New(), Name: "cheap", ValuePerAppointment: 50}
		specialist := Candidate{ID: uuid.New(), Name: "specialist", SpecialtyIDs: []uuid.UUID{specA}, ValuePerAppointment: 300}

		f := Filters{MaxPrice: floatPtr(100), SpecialtyIDs: []uuid.UUID{specA}}
		page := priceRanker.Rank([]Candidate{specialist, cheap}, f, NewPageable(1, 10))
		assert.Equal(t, "cheap", page.Items[0].Name)
	})
}
