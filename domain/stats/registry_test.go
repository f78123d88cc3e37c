package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simplesurvey/domain/core"
)

type fakeTest struct{ name string }

func (f fakeTest) Name() string        { return f.name }
func (f fakeTest) Description() string { return "fake" }
func (f fakeTest) Compute(ctx context.Context, s Sample) (Outcome, error) {
	return Outcome{}, nil
}

type strictBeta struct{ fakeTest }

func (strictBeta) MeetsBeta(o Outcome, beta float64) bool { return o.Statistic >= beta }

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry(fakeTest{"b"}, fakeTest{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, reg.Names())

	_, ok := reg.Get("a")
	assert.True(t, ok)
	_, ok = reg.Get("zzz")
	assert.False(t, ok)

	assert.ErrorIs(t, reg.Register(fakeTest{"a"}), core.ErrConfiguration)
	assert.ErrorIs(t, reg.Register(fakeTest{" "}), core.ErrConfiguration)
	assert.ErrorIs(t, reg.Register(nil), core.ErrConfiguration)
}

func TestMeetsBeta(t *testing.T) {
	o := Outcome{Statistic: 4, EffectSize: -0.3}

	assert.True(t, MeetsBeta(fakeTest{"x"}, o, 0))
	assert.True(t, MeetsBeta(fakeTest{"x"}, o, 0.3), "default uses |effect|")
	assert.False(t, MeetsBeta(fakeTest{"x"}, o, 0.31))

	assert.True(t, MeetsBeta(strictBeta{}, o, 4))
	assert.False(t, MeetsBeta(strictBeta{}, o, 5))
}

func TestOutcomeValid(t *testing.T) {
	assert.True(t, Outcome{Statistic: 1, PValue: 0.5}.Valid())
	assert.False(t, Outcome{Statistic: 1, PValue: 1.5}.Valid())
	assert.Equal(t, 7, Outcome{GroupN: 3, ReferenceN: 4}.N())
}
