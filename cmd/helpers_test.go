package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zalepa/vaultstats/report"
	"github.com/zalepa/vaultstats/table"
)

var sources = map[string]string{
	"lock_duration.csv": "bucket,locks\n<1 day,5\n1–6 days,15\n90–101 days,80\n",
	"early_unlocks.csv": "bucket,unlocks\n<1 day early,1\n1–6 days early,289\n7–13 days early,170\n" +
		"14–29 days early,240\n30–59 days early,170\n60–89 days early,30\n≥90 days early,100\n",
	"lock_duration_with_early_unlock.csv": "bucket,locks,early_unlocks\n<1 day,10,5\n1–6 days,40,10\n>101 days,1000,3\n",
	"adoption rate_excl.csv": "period,initiator,state,pct,count\n" +
		"2025-05,CHATBOT,UNLOCKED,0.30,300\n2025-05,INTERACTIVE_VOICE_RESPONSE,UNLOCKED,0.10,100\n" +
		"2025-05,SUPPORT,UNLOCKED,0.40,400\n2025-05,CUSTOMER,UNLOCKED,0.20,200\n" +
		"2025-06,CHATBOT,UNLOCKED,0.40,400\n2025-06,IVR,UNLOCKED,0.15,150\n" +
		"2025-06,SUPPORT,UNLOCKED,0.30,300\n2025-06,CUSTOMER,UNLOCKED,0.15,150\n",
	"hour_of_contact.csv": "hour_of_day,support_unlocks\n9,1\n10,2\n17,3\n18,4\n",
	"early unlock.csv":    "period,cohort,pct_early_after_frac\n2025-05,All,0.1\n2025-06,All,0.125\n",
}

// writeSources writes a complete set of source files and returns their
// directory.
func writeSources(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range sources {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func testGenerator(dir string) *report.Generator {
	return &report.Generator{
		Loader:  table.NewLoader(',', nil),
		DataDir: dir,
		Log:     zap.NewNop(),
	}
}

func testReport(t *testing.T) *report.Report {
	t.Helper()
	rep, err := testGenerator(writeSources(t)).Render(context.Background())
	require.NoError(t, err)
	require.Empty(t, rep.Failed())
	return rep
}
