package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envelope decodes a CLIResponse with a typed payload.
type envelope[T any] struct {
	Status string    `json:"status"`
	Data   T         `json:"data"`
	Error  *CLIError `json:"error"`
}

// useHome points the CLI at a fresh data directory with the given driver.
func useHome(t *testing.T, driver string) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("SORTIE_HOME", home)
	t.Setenv("SORTIE_STORE", driver)
	t.Setenv("SORTIE_PROFILE", "pilot")
	t.Setenv("SORTIE_TEAM_SIZE", "0")
	t.Setenv("SORTIE_LOG_LEVEL", "warn")
	return home
}

// runCLI executes the root command and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// runJSON executes args with --format json and decodes the response.
func runJSON[T any](t *testing.T, args ...string) (envelope[T], error) {
	t.Helper()
	out, err := runCLI(t, append(args, "--format", "json")...)
	var resp envelope[T]
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp, err
}

func mustStatus(t *testing.T, args ...string) StatusView {
	t.Helper()
	resp, err := runJSON[StatusView](t, args...)
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestStatus_FreshProfile(t *testing.T) {
	useHome(t, "file")

	v := mustStatus(t, "status")
	assert.Equal(t, "pilot", v.Profile)
	assert.Equal(t, "AwaitingSquad", v.Phase)
	assert.False(t, v.Resumed)
	assert.Equal(t, "1", v.Progress.CurrentMissionID)
	assert.Empty(t, v.Progress.CompletedPath)
	assert.Empty(t, v.Choices)
}

func TestStatus_DoesNotCreateSave(t *testing.T) {
	home := useHome(t, "file")

	mustStatus(t, "status")
	_, err := os.Stat(filepath.Join(home, "saves", "pilot.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestFullRun_FileStore(t *testing.T) {
	home := useHome(t, "file")

	v := mustStatus(t, "squad", "a", "b")
	assert.Equal(t, "Briefing", v.Phase)
	assert.Equal(t, []string{"a", "b"}, v.Progress.SelectedSquad)

	// A later invocation resumes the saved squad.
	v = mustStatus(t, "status")
	assert.True(t, v.Resumed)
	assert.Equal(t, "Briefing", v.Phase)

	fly, err := runJSON[FlyResult](t, "fly", "--score", "1000", "--rank", "s")
	require.NoError(t, err)
	assert.Equal(t, "1", fly.Data.Mission)
	assert.True(t, fly.Data.Outcome.Completed)
	assert.Equal(t, "S", string(fly.Data.Outcome.Rank))
	assert.Equal(t, "PathChoice", fly.Data.Status.Phase)
	assert.Equal(t, []string{"2a", "2b"}, fly.Data.Status.Choices)

	v = mustStatus(t, "choose", "2a")
	assert.Equal(t, "Briefing", v.Phase)
	assert.Equal(t, "2a", v.Progress.CurrentMissionID)

	// The chosen mission survives a restart.
	v = mustStatus(t, "status")
	assert.Equal(t, "Briefing", v.Phase)
	assert.Equal(t, "2a", v.Progress.CurrentMissionID)

	for _, next := range []string{"3", "5a"} {
		_, err = runJSON[FlyResult](t, "fly", "--score", "1500")
		require.NoError(t, err)
		mustStatus(t, "choose", next)
	}

	fly, err = runJSON[FlyResult](t, "fly", "--score", "3000", "--lost", "b")
	require.NoError(t, err)
	assert.Equal(t, "RunComplete", fly.Data.Status.Phase)
	require.NotNil(t, fly.Data.Unlocked)
	assert.Equal(t, 1, fly.Data.Unlocked.Tier)
	assert.Equal(t, map[string]bool{"a": true, "b": false}, fly.Data.Outcome.SquadStatus)

	v = mustStatus(t, "status")
	assert.Equal(t, "RunComplete", v.Phase)
	assert.Equal(t, []string{"1", "2a", "3", "5a"}, v.Progress.CompletedPath)
	assert.Equal(t, int64(7000), v.Progress.CumulativeScore)
	assert.Equal(t, 1, v.Progress.CompletedRuns)

	_, err = os.Stat(filepath.Join(home, "saves", "pilot.json"))
	assert.NoError(t, err)
}

func TestFly_FailureKeepsMission(t *testing.T) {
	useHome(t, "file")

	mustStatus(t, "squad", "c", "d")
	fly, err := runJSON[FlyResult](t, "fly", "--failed", "--score", "300")
	require.NoError(t, err)
	assert.False(t, fly.Data.Outcome.Completed)
	assert.Equal(t, "D", string(fly.Data.Outcome.Rank))
	assert.Equal(t, "Briefing", fly.Data.Status.Phase)
	assert.Equal(t, int64(0), fly.Data.Status.Progress.CumulativeScore)
	assert.Empty(t, fly.Data.Status.Progress.CompletedPath)

	v := mustStatus(t, "status")
	assert.Equal(t, "Briefing", v.Phase)
	assert.Equal(t, "1", v.Progress.CurrentMissionID)
}

func TestFly_FailureAfterChoiceRetriesChosenMission(t *testing.T) {
	useHome(t, "file")

	mustStatus(t, "squad", "a", "b")
	_, err := runJSON[FlyResult](t, "fly", "--score", "1000")
	require.NoError(t, err)
	mustStatus(t, "choose", "2b")
	_, err = runJSON[FlyResult](t, "fly", "--failed")
	require.NoError(t, err)

	v := mustStatus(t, "status")
	assert.Equal(t, "Briefing", v.Phase)
	assert.Equal(t, "2b", v.Progress.CurrentMissionID)
	assert.Equal(t, int64(1000), v.Progress.CumulativeScore)
}

func TestTransitionErrors(t *testing.T) {
	useHome(t, "file")

	t.Run("squad too small", func(t *testing.T) {
		resp, err := runJSON[StatusView](t, "squad", "a")
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "INVALID_SQUAD_SIZE", resp.Error.Code)
	})

	t.Run("unknown member", func(t *testing.T) {
		resp, err := runJSON[StatusView](t, "squad", "a", "zz")
		require.Error(t, err)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "UNKNOWN_MEMBER", resp.Error.Code)
	})

	t.Run("fly without squad", func(t *testing.T) {
		resp, err := runJSON[FlyResult](t, "fly")
		require.Error(t, err)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "INVALID_PHASE", resp.Error.Code)
	})

	t.Run("illegal choice", func(t *testing.T) {
		mustStatus(t, "squad", "a", "b")
		_, err := runJSON[FlyResult](t, "fly", "--score", "10")
		require.NoError(t, err)

		resp, err := runJSON[StatusView](t, "choose", "3")
		require.Error(t, err)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "ILLEGAL_CHOICE", resp.Error.Code)

		// The rejected choice left the run untouched.
		v := mustStatus(t, "status")
		assert.Equal(t, "PathChoice", v.Phase)
	})
}

func TestFly_InvalidRank(t *testing.T) {
	useHome(t, "file")

	resp, err := runJSON[FlyResult](t, "fly", "--rank", "Z")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidFlag, resp.Error.Code)
}

func TestFly_LostMemberOutsideSquadIsInvalidOutcome(t *testing.T) {
	useHome(t, "file")

	mustStatus(t, "squad", "a", "b")
	resp, err := runJSON[FlyResult](t, "fly", "--lost", "d")
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_OUTCOME", resp.Error.Code)

	// Nothing was recorded; the mission can still be flown.
	v := mustStatus(t, "status")
	assert.Equal(t, "Briefing", v.Phase)
	assert.Nil(t, v.Progress.LastOutcome)
}

func TestNewGamePlus_KeepsRunsAndOptions(t *testing.T) {
	useHome(t, "file")

	_, err := runCLI(t, "options", "--music", "40")
	require.NoError(t, err)
	mustStatus(t, "squad", "a", "b")
	for _, next := range []string{"2b", "4", "5b"} {
		_, err := runJSON[FlyResult](t, "fly", "--score", "100")
		require.NoError(t, err)
		mustStatus(t, "choose", next)
	}
	fly, err := runJSON[FlyResult](t, "fly", "--score", "100")
	require.NoError(t, err)
	assert.Equal(t, "RunComplete", fly.Data.Status.Phase)

	v := mustStatus(t, "ngplus")
	assert.Equal(t, "AwaitingSquad", v.Phase)
	assert.Equal(t, 1, v.Progress.CompletedRuns)
	assert.Equal(t, 40, v.Progress.Options.MusicVolume)
	assert.Empty(t, v.Progress.CompletedPath)
	assert.Equal(t, int64(0), v.Progress.CumulativeScore)
	assert.Empty(t, v.Progress.SelectedSquad)

	unlocks, err := runJSON[UnlocksView](t, "unlocks")
	require.NoError(t, err)
	assert.Equal(t, 1, unlocks.Data.CompletedRuns)
	require.Len(t, unlocks.Data.Tiers, 3)
	assert.True(t, unlocks.Data.Tiers[0].Earned)
	assert.False(t, unlocks.Data.Tiers[1].Earned)
}

func TestNew_ResetsRun(t *testing.T) {
	useHome(t, "file")

	mustStatus(t, "squad", "a", "b")
	_, err := runJSON[FlyResult](t, "fly", "--score", "500")
	require.NoError(t, err)

	v := mustStatus(t, "new")
	assert.Equal(t, "AwaitingSquad", v.Phase)
	assert.Empty(t, v.Progress.CompletedPath)
	assert.Equal(t, int64(0), v.Progress.CumulativeScore)
}

func TestOptions_ShowAndSet(t *testing.T) {
	useHome(t, "file")

	resp, err := runJSON[map[string]any](t, "options")
	require.NoError(t, err)
	assert.Equal(t, float64(80), resp.Data["masterVolume"])
	assert.Equal(t, "normal", resp.Data["difficulty"])

	resp, err = runJSON[map[string]any](t, "options", "--master", "55", "--screen-shake=false", "--difficulty", "hard")
	require.NoError(t, err)
	assert.Equal(t, float64(55), resp.Data["masterVolume"])
	assert.Equal(t, float64(70), resp.Data["musicVolume"])
	assert.Equal(t, false, resp.Data["screenShake"])
	assert.Equal(t, "hard", resp.Data["difficulty"])

	out, err := runCLI(t, "options")
	require.NoError(t, err)
	assert.Contains(t, out, "Master volume: 55")
	assert.Contains(t, out, "Difficulty:    hard")
}

func TestOptions_OutOfRange(t *testing.T) {
	useHome(t, "file")

	resp, err := runJSON[map[string]any](t, "options", "--sfx", "101")
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_OPTIONS", resp.Error.Code)
}

func TestProfilesAreIsolated(t *testing.T) {
	useHome(t, "file")

	mustStatus(t, "squad", "a", "b", "--profile", "one")
	v := mustStatus(t, "status", "--profile", "two")
	assert.Equal(t, "AwaitingSquad", v.Phase)
	v = mustStatus(t, "status", "--profile", "one")
	assert.Equal(t, "Briefing", v.Phase)
}

func TestCorruptSaveStartsFresh(t *testing.T) {
	home := useHome(t, "file")

	dir := filepath.Join(home, "saves")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pilot.json"), []byte("{not json"), 0o644))

	v := mustStatus(t, "status")
	assert.False(t, v.Resumed)
	assert.Equal(t, "AwaitingSquad", v.Phase)
}

func TestSQLiteStore_PersistsAcrossInvocations(t *testing.T) {
	home := useHome(t, "sqlite")

	mustStatus(t, "squad", "b", "c")
	_, err := runJSON[FlyResult](t, "fly", "--score", "250")
	require.NoError(t, err)

	v := mustStatus(t, "status")
	assert.True(t, v.Resumed)
	assert.Equal(t, "PathChoice", v.Phase)
	assert.Equal(t, []string{"b", "c"}, v.Progress.SelectedSquad)
	assert.Equal(t, int64(250), v.Progress.CumulativeScore)

	_, err = os.Stat(filepath.Join(home, "sortie.db"))
	assert.NoError(t, err)
}

func TestMemoryStore_ForgetsBetweenInvocations(t *testing.T) {
	useHome(t, "memory")

	mustStatus(t, "squad", "a", "b")
	v := mustStatus(t, "status")
	assert.Equal(t, "AwaitingSquad", v.Phase)
}

func TestMetricsTextfile(t *testing.T) {
	useHome(t, "file")
	path := filepath.Join(t.TempDir(), "sortie.prom")
	t.Setenv("SORTIE_METRICS_FILE", path)

	mustStatus(t, "squad", "a", "b")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sortie_transitions_total")
	assert.Contains(t, string(data), `transition="confirm_squad"`)
}

func TestStatus_Text(t *testing.T) {
	useHome(t, "file")

	_, err := runCLI(t, "squad", "a", "b")
	require.NoError(t, err)
	out, err := runCLI(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Profile:  pilot")
	assert.Contains(t, out, "Phase:    Briefing")
	assert.Contains(t, out, "Mission:  1 (First Light)")
	assert.Contains(t, out, "Squad:    a, b")
	assert.Contains(t, out, "Path:     -")
}

func TestUnknownCampaignDir(t *testing.T) {
	useHome(t, "file")

	resp, err := runJSON[StatusView](t, "status", "--campaign", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCampaign, resp.Error.Code)
}
