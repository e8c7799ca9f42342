package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sortie/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // rewrite golden traces
	Filter    string // glob over scenario file names, without extension
	GoldenDir string // default <scenarios-dir>/golden
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r *TestResult) add(s ScenarioResult) {
	r.Scenarios = append(r.Scenarios, s)
	r.Total++
	if s.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run progression scenarios",
		Long: `Run YAML progression scenarios against the engine.

Every scenario gets a fresh engine over an in-memory store. Step
expectations and final assertions are checked, then the step trace is
compared with <golden-dir>/<scenario>.golden when that file exists.

Exit codes:
  0 - every scenario passed
  1 - a scenario failed
  2 - the scenarios directory could not be read

Examples:
  sortie test ./scenarios
  sortie test ./scenarios --filter "ngplus-*"
  sortie test ./scenarios --update --golden-dir ./traces`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden traces")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose name matches this glob")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden-dir", "", "golden trace directory (default <scenarios-dir>/golden)")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	files, err := scenarioFiles(dir, opts.Filter)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	goldenDir := opts.GoldenDir
	if goldenDir == "" {
		goldenDir = filepath.Join(dir, "golden")
	}
	r := scenarioRunner{
		goldenDir: goldenDir,
		update:    opts.Update,
		formatter: formatter,
	}
	if formatter.Format != "json" {
		r.progress = formatter.Writer
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, f := range files {
		result.add(r.run(f))
	}
	return reportTests(formatter, result)
}

// scenarioFiles lists the .yaml and .yml files under dir whose base name
// matches filter.
func scenarioFiles(dir, filter string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("scenarios directory not found: %s", dir)
	}
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}
	return files, nil
}

// scenarioRunner runs scenario files and checks their golden traces.
type scenarioRunner struct {
	goldenDir string
	update    bool
	formatter *OutputFormatter
	progress  io.Writer // per-scenario lines; nil for JSON output
}

// run executes one scenario file and reports it on the progress writer.
func (r scenarioRunner) run(file string) ScenarioResult {
	name, note, problems := r.check(file)
	if r.progress != nil {
		mark := "✓"
		if len(problems) > 0 {
			mark = "✗"
		}
		fmt.Fprintf(r.progress, "%s %s%s\n", mark, name, note)
		for _, p := range problems {
			fmt.Fprintf(r.progress, "  %s\n", p)
		}
	}
	return ScenarioResult{Name: name, Pass: len(problems) == 0, Errors: problems}
}

// check returns the scenario name, a note for the progress line and every
// problem found.
func (r scenarioRunner) check(file string) (name, note string, problems []string) {
	name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return name, "", []string{fmt.Sprintf("load: %v", err)}
	}
	name = scenario.Name
	r.formatter.VerboseLog("Running %s (%d steps)", name, len(scenario.Flow))

	result, err := harness.Run(scenario)
	if err != nil {
		return name, "", []string{fmt.Sprintf("run: %v", err)}
	}
	trace, err := harness.MarshalTrace(name, result)
	if err != nil {
		return name, "", []string{fmt.Sprintf("trace: %v", err)}
	}

	note, err = r.golden(name, trace)
	if err != nil {
		problems = append(problems, err.Error())
	}
	if !result.Pass {
		problems = append(problems, result.Errors...)
	}
	return name, note, problems
}

// golden writes the trace in update mode, otherwise compares it with the
// stored one. A scenario without a golden file is checked by its
// assertions alone.
func (r scenarioRunner) golden(name string, trace []byte) (string, error) {
	path := filepath.Join(r.goldenDir, name+".golden")
	if r.update {
		if err := os.MkdirAll(r.goldenDir, 0o755); err != nil {
			return "", fmt.Errorf("golden dir: %w", err)
		}
		if err := os.WriteFile(path, trace, 0o644); err != nil {
			return "", fmt.Errorf("write golden: %w", err)
		}
		return " (golden updated)", nil
	}

	want, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("read golden: %w", err)
	case !bytes.Equal(want, trace):
		return "", fmt.Errorf("trace does not match golden file %s (rerun with --update)", path)
	}
	return "", nil
}

// reportTests prints the summary. Any failed scenario makes the command
// exit 1.
func reportTests(f *OutputFormatter, result TestResult) error {
	var failed error
	if result.Failed > 0 {
		failed = NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	if f.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if failed != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_TEST_FAILED", Message: failed.Error()}
		}
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
		return failed
	}

	if result.Total == 0 {
		fmt.Fprintln(f.Writer, "No scenarios found.")
		return nil
	}
	fmt.Fprintf(f.Writer, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if failed == nil {
		fmt.Fprintln(f.Writer, "✓ All scenarios passed")
	}
	return failed
}
