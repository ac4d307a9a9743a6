package cart

import (
	"context"
	"errors"
	"testing"

	"cart-service/internal/models"
	"cart-service/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRules struct {
	dependents  map[models.VariationID][]models.PriceDependent
	constraints []models.Constraint
	err         error
	calls       int
}

func (f *fakeRules) GetPriceDependents(_ context.Context, base models.VariationID) ([]models.PriceDependent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.dependents[base], nil
}

func (f *fakeRules) GetConstraints(_ context.Context, v models.VariationID) ([]models.Constraint, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Constraint
	for _, c := range f.constraints {
		if c.A.VariationID == v || c.B.VariationID == v {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestPricer_DependentPricing(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	rules := &fakeRules{dependents: map[models.VariationID][]models.PriceDependent{
		100: {{ID: 1, BaseVariation: 100, DependentVariation: 110, AdjustedPrice: 200}},
	}}
	pricer := NewPricer(rules)

	c, _ := loadEmpty(t)
	_, err := c.AddOrUpdate(f.frame, f.oak, 1)
	require.NoError(t, err)

	total, err := pricer.Total(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), total, "only base variation in cart")

	_, err = c.AddOrUpdate(f.paint, f.red, 1)
	require.NoError(t, err)

	q, err := pricer.Quote(ctx, c)
	require.NoError(t, err)
	require.Len(t, q.Entries, 1)

	oak := q.Entries[0].Parts[0]
	assert.Equal(t, int64(200), oak.ExtraPrice)
	assert.Equal(t, int64(1200), oak.TotalPrice)

	red := q.Entries[0].Parts[1]
	assert.Equal(t, int64(0), red.ExtraPrice)
	assert.Equal(t, int64(500), red.TotalPrice)

	assert.Equal(t, int64(1700), q.Entries[0].TotalPrice)
	assert.Equal(t, int64(1700), q.Total)
}

func TestPricer_RulesSumAcrossProducts(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	rules := &fakeRules{dependents: map[models.VariationID][]models.PriceDependent{
		100: {
			{ID: 1, BaseVariation: 100, DependentVariation: 110, AdjustedPrice: 200},
			{ID: 2, BaseVariation: 100, DependentVariation: 200, AdjustedPrice: 300},
			{ID: 3, BaseVariation: 100, DependentVariation: 111, AdjustedPrice: 5000},
		},
	}}
	pricer := NewPricer(rules)

	c, _ := loadEmpty(t)
	_, err := c.AddOrUpdate(f.frame, f.oak, 2)
	require.NoError(t, err)
	_, err = c.AddOrUpdate(f.paint, f.red, 1)
	require.NoError(t, err)
	_, err = c.AddOrUpdate(f.wheels, f.fatWheels, 1)
	require.NoError(t, err)

	q, err := pricer.Quote(ctx, c)
	require.NoError(t, err)

	oak := q.Entries[0].Parts[0]
	assert.Equal(t, int64(500), oak.ExtraPrice)
	assert.Equal(t, int64(2*1000+500), oak.TotalPrice)
	assert.Equal(t, int64(2500+500+4000), q.Total)
}

func TestPricer_SelfTriggeringRule(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	rules := &fakeRules{dependents: map[models.VariationID][]models.PriceDependent{
		100: {{ID: 1, BaseVariation: 100, DependentVariation: 100, AdjustedPrice: 150}},
	}}
	pricer := NewPricer(rules)

	c, _ := loadEmpty(t)
	_, err := c.AddOrUpdate(f.frame, f.oak, 1)
	require.NoError(t, err)

	q, err := pricer.Quote(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, int64(150), q.Entries[0].Parts[0].ExtraPrice)
	assert.Equal(t, int64(1150), q.Total)
}

func TestPricer_TotalMatchesSumOfLines(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	rules := &fakeRules{dependents: map[models.VariationID][]models.PriceDependent{
		110: {{ID: 1, BaseVariation: 110, DependentVariation: 200, AdjustedPrice: 75}},
		200: {{ID: 2, BaseVariation: 200, DependentVariation: 100, AdjustedPrice: 25}},
	}}
	pricer := NewPricer(rules)

	c, _ := loadEmpty(t)
	_, err := c.AddOrUpdate(f.frame, f.oak, 3)
	require.NoError(t, err)
	_, err = c.AddOrUpdate(f.paint, f.red, 2)
	require.NoError(t, err)
	_, err = c.AddOrUpdate(f.wheels, f.fatWheels, 1)
	require.NoError(t, err)

	var sum int64
	for entry, err := range pricer.Entries(ctx, c) {
		require.NoError(t, err)
		for _, p := range entry.Parts {
			assert.Equal(t, int64(p.Quantity)*p.UnitPrice+p.ExtraPrice, p.TotalPrice)
			sum += p.TotalPrice
		}
	}

	total, err := pricer.Total(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, sum, total)
	assert.Equal(t, int64(3000+1000+75+4000+25), total)
}

func TestPricer_ReflectsRuleChangesWithoutMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	rules := &fakeRules{dependents: map[models.VariationID][]models.PriceDependent{}}
	pricer := NewPricer(rules)

	c, _ := loadEmpty(t)
	_, err := c.AddOrUpdate(f.frame, f.oak, 1)
	require.NoError(t, err)
	_, err = c.AddOrUpdate(f.paint, f.red, 1)
	require.NoError(t, err)

	total, err := pricer.Total(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), total)

	rules.dependents[100] = []models.PriceDependent{{ID: 9, BaseVariation: 100, DependentVariation: 110, AdjustedPrice: 40}}

	total, err = pricer.Total(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, int64(1540), total)
}

func TestPricer_DoesNotPersistTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	rules := &fakeRules{dependents: map[models.VariationID][]models.PriceDependent{
		100: {{ID: 1, BaseVariation: 100, DependentVariation: 110, AdjustedPrice: 200}},
	}}
	pricer := NewPricer(rules)

	c, sess := loadEmpty(t)
	_, err := c.AddOrUpdate(f.frame, f.oak, 1)
	require.NoError(t, err)
	_, err = c.AddOrUpdate(f.paint, f.red, 1)
	require.NoError(t, err)
	before, _ := sess.Get(testKey)

	_, err = pricer.Quote(ctx, c)
	require.NoError(t, err)

	after, _ := sess.Get(testKey)
	assert.Equal(t, string(before), string(after))

	entry, _ := c.Entry(1)
	assert.Equal(t, int64(0), entry.Parts[0].ExtraPrice)
}

func TestPricer_EntriesIsRestartable(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pricer := NewPricer(&fakeRules{})

	c, _ := loadEmpty(t)
	_, err := c.AddOrUpdate(f.frame, f.oak, 1)
	require.NoError(t, err)
	_, err = c.AddOrUpdate(f.wheels, f.fatWheels, 1)
	require.NoError(t, err)

	seq := pricer.Entries(ctx, c)

	count := func() int {
		n := 0
		for _, err := range seq {
			require.NoError(t, err)
			n++
		}
		return n
	}
	assert.Equal(t, 2, count())
	assert.Equal(t, 2, count())

	for range seq {
		break
	}
	assert.Equal(t, 2, count())
}

func TestPricer_EmptyCart(t *testing.T) {
	ctx := context.Background()
	pricer := NewPricer(&fakeRules{})
	c, _ := loadEmpty(t)

	total, err := pricer.Total(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	display, err := pricer.TotalDisplay(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 0.0, display)
}

func TestPricer_TotalDisplay(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pricer := NewPricer(&fakeRules{})

	c, _ := loadEmpty(t)
	_, err := c.AddOrUpdate(f.frame, f.oak, 1)
	require.NoError(t, err)
	_, err = c.AddOrUpdate(f.paint, f.blue, 1)
	require.NoError(t, err)

	total, err := pricer.Total(ctx, c)
	require.NoError(t, err)
	display, err := pricer.TotalDisplay(ctx, c)
	require.NoError(t, err)

	assert.Equal(t, float64(total)/100, display)
	assert.Equal(t, 17.0, display)
}

func TestPricer_RuleLookupError(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	rules := &fakeRules{err: errors.New("db down")}
	pricer := NewPricer(rules)

	c, _ := loadEmpty(t)
	_, err := c.AddOrUpdate(f.frame, f.oak, 1)
	require.NoError(t, err)

	_, err = pricer.Total(ctx, c)
	assert.ErrorContains(t, err, "db down")

	_, err = pricer.Quote(ctx, c)
	assert.Error(t, err)
}

func TestPricer_RoundTripKeepsTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	rules := &fakeRules{dependents: map[models.VariationID][]models.PriceDependent{
		100: {{ID: 1, BaseVariation: 100, DependentVariation: 200, AdjustedPrice: 333}},
	}}
	pricer := NewPricer(rules)

	c, sess := loadEmpty(t)
	_, err := c.AddOrUpdate(f.frame, f.oak, 2)
	require.NoError(t, err)
	_, err = c.AddOrUpdate(f.wheels, f.fatWheels, 1)
	require.NoError(t, err)

	before, err := pricer.Quote(ctx, c)
	require.NoError(t, err)

	data, err := c.MarshalJSON()
	require.NoError(t, err)
	restoredSession := session.New("other")
	restoredSession.Set(testKey, data)
	assert.Equal(t, sess.Len(), restoredSession.Len())

	restored, err := Load(restoredSession, testKey)
	require.NoError(t, err)

	after, err := pricer.Quote(ctx, restored)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
