package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/breakout/signal"
)

func testLimits() Limits {
	return Limits{
		MaxOpenPositions:    3,
		MaxPositionValue:    10000,
		MaxExposureFraction: 0.5,
		CooldownBars:        4,
	}
}

func testController(t *testing.T, l Limits) *Controller {
	t.Helper()
	c, err := NewController(l)
	require.NoError(t, err)
	return c
}

func sig(strategy string, src signal.Source, typ signal.Type, strength float64) signal.Signal {
	return signal.Signal{
		Symbol:   "BTC-USD",
		Time:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Type:     typ,
		Strength: strength,
		Source:   src,
		Strategy: strategy,
	}
}

func flatSnap(cash float64) Snapshot {
	return Snapshot{
		Cash:       cash,
		Equity:     cash,
		Positions:  map[string]float64{},
		SinceClose: map[string]int{},
	}
}

func TestLimitsValidate(t *testing.T) {
	assert.NoError(t, testLimits().Validate())

	l := testLimits()
	l.MaxOpenPositions = 0
	assert.Error(t, l.Validate())

	l = testLimits()
	l.MaxExposureFraction = 1.5
	assert.Error(t, l.Validate())

	l = testLimits()
	l.SameSidePolicy = "bogus"
	assert.Error(t, l.Validate())
}

func TestAdmitAcceptSizesByCashCap(t *testing.T) {
	c := testController(t, testLimits())
	s := sig("rule", signal.SourceRule, signal.BreakoutLong, 0.8)

	d := c.Admit(s, []signal.Signal{s}, 100, flatSnap(100000))
	require.True(t, d.Accepted)
	assert.InDelta(t, 100.0, d.Quantity, 1e-9) // 10000 cap / 100 price
	assert.False(t, d.Exit)
}

func TestAdmitSizeUsesAvailableCash(t *testing.T) {
	c := testController(t, testLimits())
	s := sig("rule", signal.SourceRule, signal.BreakoutLong, 0.8)

	d := c.Admit(s, []signal.Signal{s}, 100, flatSnap(5000))
	require.True(t, d.Accepted)
	assert.InDelta(t, 50.0, d.Quantity, 1e-9) // cash below the cap
}

func TestAdmitRejectsAtCapacity(t *testing.T) {
	c := testController(t, testLimits())
	s := sig("rule", signal.SourceRule, signal.BreakoutLong, 0.8)

	snap := flatSnap(100000)
	snap.Positions = map[string]float64{"ETH-USD": 10, "SOL-USD": 5, "DOGE-USD": 100}

	d := c.Admit(s, []signal.Signal{s}, 100, snap)
	require.False(t, d.Accepted)
	assert.Equal(t, ReasonCapacity, d.Reason)
}

func TestAdmitRejectsNoBudget(t *testing.T) {
	c := testController(t, testLimits())
	s := sig("rule", signal.SourceRule, signal.BreakoutLong, 0.8)

	d := c.Admit(s, []signal.Signal{s}, 100, flatSnap(0))
	require.False(t, d.Accepted)
	assert.Equal(t, ReasonSize, d.Reason)
}

func TestAdmitExposureClampAndReject(t *testing.T) {
	c := testController(t, testLimits())
	s := sig("rule", signal.SourceRule, signal.BreakoutLong, 0.8)

	// Equity 20000, cap 50% = 10000, existing exposure 9000: only 1000
	// of headroom left.
	snap := flatSnap(20000)
	snap.Positions = map[string]float64{"ETH-USD": 3}
	snap.Exposure = 9000

	d := c.Admit(s, []signal.Signal{s}, 100, snap)
	require.True(t, d.Accepted)
	assert.InDelta(t, 10.0, d.Quantity, 1e-9)

	// No headroom at all.
	snap.Exposure = 10000
	d = c.Admit(s, []signal.Signal{s}, 100, snap)
	require.False(t, d.Accepted)
	assert.Equal(t, ReasonExposure, d.Reason)
}

func TestAdmitConflictHigherStrengthWins(t *testing.T) {
	c := testController(t, testLimits())

	ruleLong := sig("rule", signal.SourceRule, signal.BreakoutLong, 0.7)
	mlShort := sig("ml", signal.SourceML, signal.BreakoutShort, 0.5)
	set := []signal.Signal{ruleLong, mlShort}

	snap := flatSnap(100000)

	d := c.Admit(ruleLong, set, 100, snap)
	assert.True(t, d.Accepted)

	d = c.Admit(mlShort, set, 100, snap)
	require.False(t, d.Accepted)
	assert.Equal(t, ReasonConflict, d.Reason)
}

func TestAdmitConflictTieBreaksRuleOverModel(t *testing.T) {
	c := testController(t, testLimits())

	mlLong := sig("ml", signal.SourceML, signal.BreakoutLong, 0.7)
	ruleShort := sig("rule", signal.SourceRule, signal.BreakoutShort, 0.7)
	set := []signal.Signal{mlLong, ruleShort}

	d := c.Admit(ruleShort, set, 100, flatSnap(100000))
	assert.True(t, d.Accepted, "equal strength: rule wins for explainability")

	d = c.Admit(mlLong, set, 100, flatSnap(100000))
	require.False(t, d.Accepted)
	assert.Equal(t, ReasonConflict, d.Reason)
}

func TestAdmitConflictTieBreaksRegistrationOrder(t *testing.T) {
	c := testController(t, testLimits())

	first := sig("rule-a", signal.SourceRule, signal.BreakoutLong, 0.7)
	second := sig("rule-b", signal.SourceRule, signal.BreakoutShort, 0.7)
	set := []signal.Signal{first, second}

	d := c.Admit(first, set, 100, flatSnap(100000))
	assert.True(t, d.Accepted)

	d = c.Admit(second, set, 100, flatSnap(100000))
	assert.Equal(t, ReasonConflict, d.Reason)
}

func TestAdmitSameSideIndependentPolicy(t *testing.T) {
	l := testLimits()
	l.SameSidePolicy = SameSideIndependent
	c := testController(t, l)

	strong := sig("rule", signal.SourceRule, signal.BreakoutLong, 0.9)
	weak := sig("ml", signal.SourceML, signal.BreakoutLong, 0.6)
	set := []signal.Signal{strong, weak}

	d := c.Admit(weak, set, 100, flatSnap(100000))
	assert.True(t, d.Accepted, "agreeing signals pass independently")
}

func TestAdmitCooldown(t *testing.T) {
	c := testController(t, testLimits())
	s := sig("rule", signal.SourceRule, signal.BreakoutLong, 0.8)

	snap := flatSnap(100000)
	snap.SinceClose = map[string]int{"BTC-USD": 2}

	d := c.Admit(s, []signal.Signal{s}, 100, snap)
	require.False(t, d.Accepted)
	assert.Equal(t, ReasonCooldown, d.Reason)

	snap.SinceClose["BTC-USD"] = 4
	d = c.Admit(s, []signal.Signal{s}, 100, snap)
	assert.True(t, d.Accepted, "cooldown elapsed")
}

func TestAdmitOppositeSignalIsExit(t *testing.T) {
	c := testController(t, testLimits())
	s := sig("rule", signal.SourceRule, signal.BreakoutShort, 0.8)

	snap := flatSnap(1000)
	snap.Positions = map[string]float64{"BTC-USD": 50}
	snap.Exposure = 5000

	d := c.Admit(s, []signal.Signal{s}, 100, snap)
	require.True(t, d.Accepted)
	assert.True(t, d.Exit)
	assert.InDelta(t, 50.0, d.Quantity, 1e-9, "exit closes the open quantity")
}

func TestAdmitHoldNeverAdmitted(t *testing.T) {
	c := testController(t, testLimits())
	s := sig("rule", signal.SourceRule, signal.Hold, 0)

	d := c.Admit(s, []signal.Signal{s}, 100, flatSnap(100000))
	assert.False(t, d.Accepted)
}

func TestAdmitBatchScenario(t *testing.T) {
	c := testController(t, testLimits())

	ruleLong := sig("rule", signal.SourceRule, signal.BreakoutLong, 0.7)
	mlShort := sig("ml", signal.SourceML, signal.BreakoutShort, 0.5)
	holdSig := sig("noop", signal.SourceRule, signal.Hold, 0)

	decisions := c.AdmitBatch(
		[]signal.Signal{ruleLong, mlShort, holdSig},
		func(string) float64 { return 100 },
		flatSnap(100000),
	)

	require.Len(t, decisions, 2, "holds are filtered out")
	assert.True(t, decisions[0].Accepted)
	assert.Equal(t, "rule", decisions[0].Signal.Strategy)
	assert.False(t, decisions[1].Accepted)
	assert.Equal(t, ReasonConflict, decisions[1].Reason)
}
