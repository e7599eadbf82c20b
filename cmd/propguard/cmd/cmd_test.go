package cmd

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The commands share package-level flag variables, so these tests run
// sequentially and every flag is put back to its default before a run.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "propguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "propguard.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")
	assert.True(t, fileExists(path))

	out, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "soft 4.00% / hard 5.00%")

	_, err = execute(t, "config", "init", "-o", path)
	assert.Error(t, err, "existing file must not be overwritten without --force")
}

func TestBacktestSummaryJSON(t *testing.T) {
	out, err := execute(t, "backtest",
		"--returns", "0.01,-0.07,0.02",
		"--window", "2",
		"--interval", "1h",
		"--journal", "none",
		"--summary-json",
		"--log-level", "disabled",
	)
	require.NoError(t, err)

	var doc struct {
		Mode    string `json:"mode"`
		Windows []struct {
			StartIndex int `json:"start_index"`
		} `json:"windows"`
		FTMORiskSummary struct {
			Passed      bool `json:"passed"`
			FirstBreach *struct {
				Kind string `json:"breach_type"`
			} `json:"first_breach"`
		} `json:"ftmo_risk_summary"`
		EngineDetail struct {
			InitialEquity    float64 `json:"initial_equity"`
			Observations     int     `json:"observations"`
			FirstBreachIndex int     `json:"first_breach_index"`
		} `json:"engine_detail"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	assert.Equal(t, "graph", doc.Mode)
	assert.Len(t, doc.Windows, 2)
	assert.False(t, doc.FTMORiskSummary.Passed)
	require.NotNil(t, doc.FTMORiskSummary.FirstBreach)
	assert.Equal(t, 1.0, doc.EngineDetail.InitialEquity, "no initial_equity configured means a unit account")
	assert.Equal(t, 3, doc.EngineDetail.Observations)
	assert.Equal(t, 1, doc.EngineDetail.FirstBreachIndex)
}

func TestSizeClampsRequestedRisk(t *testing.T) {
	out, err := execute(t, "size",
		"--entry", "100",
		"--sl", "99",
		"--equity", "10000",
		"--risk", "5",
		"--log-level", "disabled",
	)
	require.NoError(t, err)

	var got sizeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Nil(t, got.Decision)
	assert.InDelta(t, 100.0, got.Result.Size, 1e-9)
	assert.InDelta(t, 1.0, got.Result.EffectiveRiskPct, 1e-12)
	assert.Equal(t, []string{"max_risk_clamp", "max_risk_per_trade"}, got.Result.CappedBy)
}

func TestSizeAdmission(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		allow    bool
		hardStop bool
		reason   string
		size     float64
	}{
		{
			name:  "small intraday loss",
			args:  []string{"--equity", "49900", "--day-open", "50000"},
			allow: true,
			size:  499,
		},
		{
			name:     "daily hard stop",
			args:     []string{"--equity", "47400", "--day-open", "50000"},
			hardStop: true,
			reason:   "ftmo_daily_hard_stop",
		},
		{
			name:   "daily soft stop",
			args:   []string{"--equity", "47900", "--day-open", "50000"},
			reason: "ftmo_daily_soft_stop",
		},
		{
			name:     "overall loss from the initial balance",
			args:     []string{"--equity", "49900", "--day-open", "50000", "--initial-equity", "100000"},
			hardStop: true,
			reason:   "ftmo_total_safety",
		},
		{
			name:   "account limits",
			args:   []string{"--equity", "49900", "--day-open", "50000", "--open-trades", "3"},
			reason: "limits_too_many_open_trades",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"size", "--entry", "100", "--sl", "99", "--risk", "5", "--log-level", "disabled"}, tt.args...)
			out, err := execute(t, args...)
			require.NoError(t, err)

			var got sizeOutput
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			require.NotNil(t, got.Decision)
			assert.Equal(t, tt.allow, got.Decision.Allow)
			assert.Equal(t, tt.hardStop, got.Decision.HardStop)
			assert.Equal(t, tt.reason, got.Decision.Reason)
			assert.InDelta(t, tt.size, got.Result.Size, 1e-6)
			if !tt.allow {
				assert.Equal(t, []string{"admission_blocked"}, got.Result.CappedBy)
			}
		})
	}
}

func TestSizeSymbolFromConfig(t *testing.T) {
	cfg := writeConfig(t, "backtest:\n  instrument: EUR_USD\n")

	out, err := execute(t, "size", "--config", cfg,
		"--entry", "1.5",
		"--sl", "1.25",
		"--equity", "10010",
		"--log-level", "disabled",
	)
	require.NoError(t, err)

	var got sizeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "EUR_USD", got.Symbol)
	assert.InDelta(t, 400.0, got.Result.Size, 1e-9, "EUR_USD trades whole units")
	assert.Contains(t, got.Result.CappedBy, "step_rounding")

	out, err = execute(t, "size", "--config", cfg,
		"--symbol", "US30",
		"--entry", "1.5",
		"--sl", "1.25",
		"--equity", "10010",
		"--log-level", "disabled",
	)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "US30", got.Symbol)
	assert.InDelta(t, 400.4, got.Result.Size, 1e-9)
}

func TestRunsExportReadsEquityFromJournal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs")
	cfg := writeConfig(t, "journal:\n  type: file\n  dir: "+dir+"\n")

	out, err := execute(t, "backtest", "--config", cfg,
		"--returns", "0.01,-0.02,0.03",
		"--window", "2",
		"--interval", "H1",
		"--json",
		"--log-level", "disabled",
	)
	require.NoError(t, err)
	var res struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotEmpty(t, res.ID)

	csvPath := filepath.Join(t.TempDir(), "equity.csv")
	out, err = execute(t, "runs", "export", res.ID, "--config", cfg, "--equity-csv", csvPath, "--log-level", "disabled")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported run "+res.ID)

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "run_id", rows[0][0])
	for i, row := range rows[1:] {
		assert.Equal(t, res.ID, row[0])
		assert.Equal(t, []string{"0", "1", "2"}[i], row[1])
	}
	assert.Equal(t, "1970-01-01T01:00:00Z", rows[2][2], "H1 spacing")

	out, err = execute(t, "runs", "equity", "--config", cfg,
		"--from", "1970-01-01T01:00:00Z",
		"--to", "1970-01-02",
		"--log-level", "disabled",
	)
	require.NoError(t, err)
	rows, err = csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "1", rows[1][1])
	assert.Equal(t, "2", rows[2][1])

	_, err = execute(t, "runs", "equity", res.ID, "--config", cfg, "--from", "1970-01-01", "--log-level", "disabled")
	assert.Error(t, err)
}
