package report

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalepa/vaultstats/chart"
	"github.com/zalepa/vaultstats/table"
	"github.com/zalepa/vaultstats/transform"
)

func csvTable(t *testing.T, name, content string) *table.Table {
	t.Helper()
	tbl, err := table.ReadDelimited(strings.NewReader(content), name, ',')
	require.NoError(t, err)
	return tbl
}

func categories(s chart.Spec) []string {
	var out []string
	for _, p := range s.Series[0].Points {
		out = append(out, p.Category)
	}
	return out
}

func TestLockDurationsTopThree(t *testing.T) {
	tbl := csvTable(t, "locks", "bucket,locks\n<1 day,5\n1–6 days,15\n90–101 days,80\n")
	sec, err := LockDurations(tbl)
	require.NoError(t, err)

	assert.Equal(t,
		"Most popular lock duration is **90–101 days** at **80%**, followed by **1–6 days** (**15%**) and **<1 day** (**5%**).",
		sec.Summary)
	assert.Equal(t, []string{"90–101 days", "1–6 days", "<1 day"}, categories(sec.Chart))
	assert.Equal(t, chart.Horizontal, sec.Chart.Orientation)
	assert.Equal(t, "80.0%", sec.Chart.Series[0].Points[0].Text)
	assert.Equal(t, 3, sec.Data.Len())
	assert.Empty(t, sec.Warnings)
}

func TestLockDurationsFewerThanThree(t *testing.T) {
	sec, err := LockDurations(csvTable(t, "locks", "bucket,locks\n<1 day,7\n"))
	require.NoError(t, err)
	assert.Equal(t, "Most popular lock duration is **<1 day** at **100%**.", sec.Summary)

	sec, err = LockDurations(csvTable(t, "locks", "bucket,locks\n<1 day,1\n>101 days,3\n"))
	require.NoError(t, err)
	assert.Equal(t, "Most popular lock duration is **>101 days** at **75%**, followed by **<1 day** (**25%**).", sec.Summary)
}

func TestLockDurationsUnknownBucket(t *testing.T) {
	sec, err := LockDurations(csvTable(t, "locks", "bucket,locks\n<1 day,5\nforever,5\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"<1 day"}, categories(sec.Chart))
	require.Len(t, sec.Warnings, 1)
	assert.Contains(t, sec.Warnings[0], `"forever"`)
	assert.Equal(t, 2, sec.Data.Len(), "unknown buckets stay in the derived data")
	assert.Equal(t, []string{"<1 day", "5", "0.5"}, sec.Data.Row(0))
}

func TestLockDurationsErrors(t *testing.T) {
	_, err := LockDurations(csvTable(t, "locks", "bucket,locks\n<1 day,0\n"))
	assert.ErrorIs(t, err, transform.ErrZeroTotal)

	_, err = LockDurations(csvTable(t, "locks", "bucket,count\n<1 day,3\n"))
	assert.True(t, table.IsSchemaError(err))

	_, err = LockDurations(csvTable(t, "locks", "bucket,locks\n<1 day,many\n"))
	assert.True(t, table.IsSchemaError(err))
}

func TestEarlyUnlocksSummary(t *testing.T) {
	tbl := csvTable(t, "early", "bucket,unlocks\n"+
		"<1 day early,1\n1–6 days early,289\n7–13 days early,170\n14–29 days early,240\n"+
		"30–59 days early,170\n60–89 days early,30\n≥90 days early,100\n")
	sec, err := EarlyUnlocks(tbl)
	require.NoError(t, err)

	assert.Contains(t, sec.Summary, "Most early unlocks happen in the **final month before the scheduled unlock date**, about **70%**")
	assert.Contains(t, sec.Summary, "1–6 days ~**29%**, 7–13 days ~**17%**, 14–29 days ~**24%**")
	assert.Contains(t, sec.Summary, "Roughly **17%** occur **30–59 days** before")
	assert.Contains(t, sec.Summary, "make up about **13%** (≥90 days ~**10%**, 60–89 days ~**3%**)")
	assert.Contains(t, sec.Summary, "are **0.1%**.")
	assert.Contains(t, sec.Action, "partial withdraw allowance")
	assert.Equal(t, EarlyOrder, categories(sec.Chart))
}

func TestEarlyUnlocksMinorityFinalMonth(t *testing.T) {
	sec, err := EarlyUnlocks(csvTable(t, "early", "bucket,unlocks\n1–6 days early,1\n≥90 days early,3\n"))
	require.NoError(t, err)
	assert.Contains(t, sec.Summary, "About **25%** of early unlocks happen in the **final month before the scheduled unlock date**, that is **1–29 days before due date**")
}

func TestEarlyRate(t *testing.T) {
	tbl := csvTable(t, "rate", "bucket,locks,early_unlocks\n>101 days,1000,3\n<1 day,10,5\n1–6 days,40,10\n")
	sec, err := EarlyRate(tbl)
	require.NoError(t, err)

	s := sec.Chart
	assert.Equal(t, chart.Stack, s.BarMode)
	assert.True(t, s.LegendReversed)
	assert.Equal(t, []string{"<1 day", "1–6 days", ">101 days"}, s.Categories)
	require.Len(t, s.Series, 2)
	assert.Equal(t, transform.StatusNotEarly, s.Series[0].Name)
	assert.Equal(t, "#FFD23F", s.ColorMap[transform.StatusEarly])
	assert.Equal(t, "50.0%", s.Series[1].Points[0].Text)

	for i, cat := range s.Categories {
		sum := s.Series[0].Points[i].Value + s.Series[1].Points[i].Value
		assert.InDelta(t, 1.0, sum, 1e-9, cat)
	}

	assert.Contains(t, sec.Summary, "Overall, **2%** of locks are unlocked early.")
	assert.Contains(t, sec.Summary, "Shorter locks: **<1 day 50.0%** and **1–6 days 25.0%**.")
	assert.Contains(t, sec.Summary, "Longer durations: **>101 days 0.3%**.")
	assert.True(t, strings.HasPrefix(sec.Action, "**Actions:**\n- "))
	assert.Equal(t, 6, sec.Data.Len())
}

func TestEarlyRateRejectsEarlyAboveLocks(t *testing.T) {
	_, err := EarlyRate(csvTable(t, "rate", "bucket,locks,early_unlocks\n<1 day,3,4\n"))
	require.Error(t, err)
	assert.True(t, table.IsSchemaError(err))
}

func TestBucketSectionsRejectDuplicateBuckets(t *testing.T) {
	tests := []struct {
		name  string
		build func(*table.Table) (*Section, error)
		input string
	}{
		{"lock durations", LockDurations, "bucket,locks\n<1 day,40\n<1 day,35\n1–6 days,25\n"},
		{"early unlocks", EarlyUnlocks, "bucket,unlocks\n<1 day early,4\n1–6 days early,6\n <1 day early ,1\n"},
		{"early rate", EarlyRate, "bucket,locks,early_unlocks\n<1 day,10,5\n<1 day,10,0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sec, err := tt.build(csvTable(t, "buckets", tt.input))
			assert.Nil(t, sec)
			require.Error(t, err)
			var se *table.SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, "bucket", se.Column)
			assert.Contains(t, se.Msg, "duplicate bucket")
			assert.Contains(t, se.Msg, "first seen on line 2")
		})
	}
}

const adoptionCSV = ` period ,LOCK_UNLOCK_INITIATOR,STATE,pct,num_of_unlocks
2025-06-01,CHATBOT,UNLOCKED,0.40,400
2025-05-01,CHATBOT,UNLOCKED,0.30,300
2025-05-01,INTERACTIVE_VOICE_RESPONSE,unlocked,0.10,100
2025-05-01,SUPPORT,UNLOCKED,0.60,600
2025-06-01,IVR,UNLOCKED,0.15,150
2025-06-01,SUPPORT,UNLOCKED,0.45,450
2025-06-01,SUPPORT,LOCKED,0.99,5000
`

func TestAdoptionSelfServeDelta(t *testing.T) {
	sec, err := Adoption(csvTable(t, "adoption", adoptionCSV))
	require.NoError(t, err)

	assert.Equal(t,
		"**Summary (2025-06):** Self-serve (Chatbot + IVR) **55%** (+15.0% MoM), Support **45%** (-15.0% MoM), Customer **0%**. Total unlocks **1,000**.",
		sec.Summary)

	var names []string
	for _, s := range sec.Chart.Series {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"CHATBOT", "IVR", "SUPPORT"}, names)
	assert.Equal(t, chart.Time, sec.Chart.X.Kind)
	assert.Equal(t, "30.0%", sec.Chart.Series[0].Points[0].Text)
	assert.Equal(t, 6, sec.Data.Len())
	assert.Contains(t, sec.Action, "≥75% self-serve share")
}

func TestAdoptionSinglePeriodWithoutCounts(t *testing.T) {
	sec, err := Adoption(csvTable(t, "adoption", "period,initiator,state,pct\n2025-06,CHATBOT,UNLOCKED,0.5\n2025-06,SUPPORT,UNLOCKED,0.5\nnot a date,IVR,UNLOCKED,0.1\n"))
	require.NoError(t, err)
	assert.Equal(t, "**Summary (2025-06):** Self-serve (Chatbot + IVR) **50%**, Support **50%**, Customer **0%**.", sec.Summary)
	require.Len(t, sec.Warnings, 1)
	assert.Contains(t, sec.Warnings[0], "line 4")
}

func TestAdoptionNoUnlockedRows(t *testing.T) {
	_, err := Adoption(csvTable(t, "adoption", "period,initiator,state,pct\n2025-06,CHATBOT,LOCKED,0.5\n"))
	assert.ErrorIs(t, err, transform.ErrNoPeriods)
}

func TestSupportHours(t *testing.T) {
	tbl := csvTable(t, "hours", "hour_of_day,support_unlocks\n18,4\n9,1\n17,3\n10,2\n")
	sec, err := SupportHours(tbl, DefaultWindow)
	require.NoError(t, err)

	pts := sec.Chart.Series[0].Points
	require.Len(t, pts, 4)
	assert.Equal(t, 9.0, pts[0].X)
	for i := 1; i < len(pts); i++ {
		assert.GreaterOrEqual(t, pts[i].Value, pts[i-1].Value)
	}
	assert.Equal(t, 1.0, pts[3].Value)
	assert.Contains(t, sec.Summary, "The **10:00–18:00** window accounts for **50%** of all support unlocks.")
	assert.Contains(t, sec.Action, "**10:00–18:00**")

	sec, err = SupportHours(tbl, Window{Start: 9, End: 10})
	require.NoError(t, err)
	assert.Contains(t, sec.Summary, "The **09:00–10:00** window accounts for **10%**")
}

func TestSupportHoursErrors(t *testing.T) {
	_, err := SupportHours(csvTable(t, "hours", "hour_of_day,support_unlocks\n24,1\n"), DefaultWindow)
	assert.True(t, table.IsSchemaError(err))

	_, err = SupportHours(csvTable(t, "hours", "hour_of_day,support_unlocks\n3,0\n"), DefaultWindow)
	assert.ErrorIs(t, err, transform.ErrZeroTotal)

	_, err = SupportHours(csvTable(t, "hours", "hour_of_day,support_unlocks\n3,1\n"), Window{Start: 18, End: 10})
	assert.Error(t, err)
}

func TestRepeatEarlyRateColumns(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"fraction", "period,pct_early_after_frac\n2025-05,0.1\n2025-06,0.125\n"},
		{"percent", "period,pct_early_after\n2025-05,10\n2025-06,12.5\n"},
		{"counts", "period,early_unlocks_after,total_subsequent_sessions\n2025-05,1,10\n2025-06,1,8\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sec, err := RepeatEarly(csvTable(t, "repeat", tt.csv))
			require.NoError(t, err)
			require.Len(t, sec.Chart.Series, 1)
			assert.Equal(t, DefaultCohort, sec.Chart.Series[0].Name)
			pts := sec.Chart.Series[0].Points
			require.Len(t, pts, 2)
			assert.InDelta(t, 0.125, pts[1].Value, 1e-9)
			assert.Equal(t, "12.5%", pts[1].Text)
			assert.Contains(t, sec.Summary, "**All** (2025-06): **12.5%** (+2.5% MoM)")
		})
	}
}

func TestRepeatEarlyCohorts(t *testing.T) {
	tbl := csvTable(t, "repeat", "period,cohort,pct_early_after_frac\n"+
		"2025-06,New,0.30\n2025-05,New,0.20\n2025-06,Returning,0.10\n2025-06,Returning,0.90\n2025-07,Returning,\n")
	sec, err := RepeatEarly(tbl)
	require.NoError(t, err)

	require.Len(t, sec.Chart.Series, 2)
	assert.Equal(t, "New", sec.Chart.Series[0].Name)
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), sec.Chart.Series[0].Points[0].Time)
	assert.Len(t, sec.Warnings, 2, "duplicate and empty rows are skipped")
	assert.Contains(t, sec.Action, "**New** cohort (**30.0%** latest)")
}

func TestRepeatEarlyErrors(t *testing.T) {
	_, err := RepeatEarly(csvTable(t, "repeat", "period,other\n2025-06,1\n"))
	assert.True(t, table.IsSchemaError(err))

	_, err = RepeatEarly(csvTable(t, "repeat", "period,pct_early_after_frac\n2025-06,1.5\n"))
	assert.True(t, table.IsSchemaError(err))

	_, err = RepeatEarly(csvTable(t, "repeat", "period,early_unlocks_after,total_subsequent_sessions\n2025-06,1,0\n"))
	assert.ErrorIs(t, err, transform.ErrNoPeriods)
}

func TestParsePeriod(t *testing.T) {
	want := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2025-06-01", "2025-06", " 2025/06/01 ", "06/01/2025", "Jun 2025", "2025-06-01T00:00:00Z"} {
		got, err := parsePeriod(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(want), "parsePeriod(%q) = %v", in, got)
	}
	_, err := parsePeriod("soon")
	assert.Error(t, err)
}

func TestParsePeriodWorkbookSerial(t *testing.T) {
	got, err := parsePeriod("45809")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)), "got %v", got)

	_, err = parsePeriod("-3")
	assert.Error(t, err)
}

func TestMustAppend(t *testing.T) {
	tb := table.MustNew("derived", "a", "b")
	mustAppend(tb, "1", "2")
	assert.Equal(t, 1, tb.Len())
	assert.Panics(t, func() { mustAppend(tb, "only one") })
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "0.5", formatFloat(0.5))
	assert.Equal(t, "1000", formatFloat(1000))
	assert.Equal(t, "NaN", formatFloat(math.NaN()))
}
