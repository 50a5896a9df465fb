package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// execCLI is a helper to execute the root command with args and return stdout.
func execCLI(t *testing.T, args ...string) string {
	t.Helper()
	// Reset bound variables that persist across invocations
	runDataDir, runOutputDir, runBoundaries = "", "", ""
	runSkipMaps, runNoCharts = false, false
	runUnknown, runOnMissing = "", ""
	runNoProgress = true
	insOutputPath, insDelimiter, insThousands, insSheetName = "", "", "", ""
	insSampleRows = 5

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out.String()
}

func writeExtracts(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"allunits_puf_23.csv": "CONTROL,BORO,UNIT_RATING\n1,1,4\n2,2,3\n3,1,5\n",
		"occupied_puf_23.csv": "CONTROL,RENT_AMOUNT,UTIL_SUMMER,UTIL_WINTER,PETS,LEASE_LENGTH,GROSS_RENT,NUM_PROBLEMS,RODENTS,HHINC\n" +
			"1,1000,50,80,1,12,1100,0,2,40000\n" +
			"2,1500,60,90,2,24,1600,1,1,52000\n" +
			"3,-2,55,85,2,12,1200,2,2,45000\n",
		"person_puf_23.csv": "CONTROL,RACE,GENDER,AGE\n1,1,1,35\n2,2,2,41\n3,3,2,29\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestCLI_ConfigSet_Run(t *testing.T) {
	// Use a temp HOME to isolate config
	home := t.TempDir()
	t.Setenv("HOME", home)
	data := filepath.Join(home, "data")
	if err := os.MkdirAll(data, 0o755); err != nil {
		t.Fatal(err)
	}
	writeExtracts(t, data)

	out := execCLI(t, "config", "set", "data_dir", data)
	if !strings.Contains(out, "Saved config") {
		t.Fatalf("unexpected set output: %q", out)
	}
	if _, err := os.Stat(filepath.Join(home, ".nychvs", "config.yaml")); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	out = execCLI(t, "config", "show")
	if !strings.Contains(out, "data_dir: "+data) {
		t.Fatalf("config show missing data_dir: %q", out)
	}

	outDir := filepath.Join(home, "out")
	out = execCLI(t, "run", "--skip-maps", "--no-charts", "-o", outDir)
	if !strings.Contains(out, "Joined 3 rows, kept 2 after cleaning") {
		t.Fatalf("unexpected run summary: %q", out)
	}
	if !strings.Contains(out, "Means by borough, sorted by RENT_AMOUNT") {
		t.Fatalf("tables not printed: %q", out)
	}
	for _, name := range []string{"tables.txt", "nychvs_tables.xlsx", "dashboard_stats.json", "dashboard_data.js", "dashboard_stats.parquet"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}
}

func TestCLI_RunRejectsInvalidPolicy(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	runNoProgress = true
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"run", "--unknown", "ignore", "--skip-maps", "-o", filepath.Join(home, "out")})
	err := rootCmd.Execute()
	runUnknown = ""
	if err == nil || !strings.Contains(err.Error(), "recode.unknown") {
		t.Fatalf("expected policy error, got %v", err)
	}
}

func TestCLI_Inspect(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeExtracts(t, home)

	out := execCLI(t, "inspect", filepath.Join(home, "person_puf_23.csv"), "--rows", "2")
	for _, want := range []string{"[DATASET SUMMARY]", "Shape: 3 rows x 4 columns", "[SCHEMA]", "[HEAD]", "[TAIL]", "GENDER"} {
		if !strings.Contains(out, want) {
			t.Fatalf("inspect output missing %q:\n%s", want, out)
		}
	}

	dst := filepath.Join(home, "profile.md")
	execCLI(t, "inspect", filepath.Join(home, "occupied_puf_23.csv"), "-o", dst)
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read profile: %v", err)
	}
	if !strings.Contains(string(b), "RENT_AMOUNT") {
		t.Fatalf("profile missing column: %s", b)
	}
}
