package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theimaginaryfoundation/pet-companion/companion"
	"github.com/theimaginaryfoundation/pet-companion/companion/config"
)

// testConfig writes a config that keeps the database inside the test's temp dir.
func testConfig(t *testing.T) string {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("COMPANION_OPENAI_API_KEY", "")
	t.Setenv("COMPANION_QUOTA_REDIS_ADDR", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "companion.yaml")
	body := "store:\n  db_path: " + filepath.Join(dir, "companion.db") + "\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAnalyze_Offline(t *testing.T) {
	cfg := testConfig(t)

	out, err := runCLI(t, "", "analyze", "-c", cfg, "--offline", "너무", "보고싶어", "그리워")
	require.NoError(t, err)

	var got companion.EmotionAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, companion.EmotionAnalysis{Emotion: companion.Sad, Score: 0.6, Context: companion.ContextKeyword}, got)
}

func TestAnalyze_MemorialFromStdin(t *testing.T) {
	cfg := testConfig(t)

	out, err := runCLI(t, "정말 믿기지 않아\n", "analyze", "-c", cfg, "--offline", "--mode", "memorial")
	require.NoError(t, err)

	var got companion.EmotionAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, companion.Denial, got.GriefStage)
	assert.Equal(t, 0.35, got.GriefScore)
}

func TestAnalyze_RequiresKeyUnlessOffline(t *testing.T) {
	cfg := testConfig(t)

	_, err := runCLI(t, "", "analyze", "-c", cfg, "안녕")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")

	_, err = runCLI(t, "", "extract", "-c", cfg, "매일 아침 8시에 산책해")
	require.ErrorIs(t, err, config.ErrMissingAPIKey)

	_, err = runCLI(t, "", "analyze", "-c", cfg, "--offline")
	assert.Error(t, err, "empty stdin is not a message")
}

func TestGuide(t *testing.T) {
	out, err := runCLI(t, "", "guide", "--emotion", "sad", "--grief-stage", "denial", "--mode", "memorial", "--primary")
	require.NoError(t, err)
	assert.Equal(t, companion.GuideForStage(companion.Denial)+"\n", out)

	out, err = runCLI(t, "", "guide", "--emotion", "happy")
	require.NoError(t, err)
	var g companion.Guidance
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.Equal(t, companion.GuideForEmotion(companion.Happy, companion.DailyMode), g.Emotion)
	assert.Empty(t, g.Grief)

	_, err = runCLI(t, "", "guide", "--emotion", "bored")
	assert.Error(t, err)
}

func TestRememberAndContext(t *testing.T) {
	cfg := testConfig(t)

	_, err := runCLI(t, "", "remember", "-c", cfg, "-u", "u1", "--pet-id", "p1",
		"--type", "schedule", "--title", "아침 산책", "--content", "매일 아침 8시에 산책한다",
		"--importance", "8", "--recurrence", "daily", "--time", "아침 8시")
	require.NoError(t, err)
	_, err = runCLI(t, "", "remember", "-c", cfg, "-u", "u1", "--pet-id", "p1",
		"--type", "preference", "--title", "간식", "--content", "닭가슴살을 좋아한다", "--importance", "3")
	require.NoError(t, err)

	out, err := runCLI(t, "", "context", "-c", cfg, "--pet-id", "p1")
	require.NoError(t, err)
	assert.Equal(t, "- [schedule] 아침 산책: 매일 아침 8시에 산책한다 (daily 08:00)\n- [preference] 간식: 닭가슴살을 좋아한다\n", out)

	out, err = runCLI(t, "", "context", "-c", cfg, "--pet-id", "nobody")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = runCLI(t, "", "remember", "-c", cfg, "-u", "u1", "--pet-id", "p1", "--type", "mood", "--title", "t", "--content", "c")
	assert.Error(t, err)
}

func TestTurnAndTrajectory(t *testing.T) {
	cfg := testConfig(t)

	out, err := runCLI(t, "", "turn", "-c", cfg, "--offline", "-u", "u1", "--pet-id", "p1", "--mode", "memorial", "정말", "믿기지", "않아")
	require.NoError(t, err)

	var turn companion.TurnContext
	require.NoError(t, json.Unmarshal([]byte(out), &turn))
	assert.Equal(t, companion.Denial, turn.Analysis.GriefStage)
	assert.Equal(t, companion.GuideForStage(companion.Denial), turn.Guidance.Grief)
	require.NotNil(t, turn.Usage)
	assert.True(t, turn.Usage.Allowed)

	out, err = runCLI(t, "", "trajectory", "-c", cfg, "-u", "u1", "--pet-id", "p1")
	require.NoError(t, err)
	var readings []companion.GriefReading
	require.NoError(t, json.Unmarshal([]byte(out), &readings))
	require.Len(t, readings, 1)
	assert.Equal(t, companion.Denial, readings[0].Stage)

	out, err = runCLI(t, "", "trajectory", "-c", cfg, "-u", "u2", "--pet-id", "p1")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestInitConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("COMPANION_OPENAI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "companion.yaml")
	_, err := runCLI(t, "", "init-config", path)
	require.NoError(t, err)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = runCLI(t, "", "init-config", path)
	assert.Error(t, err)
}

func TestMetricsTextfile(t *testing.T) {
	cfg := testConfig(t)
	prom := filepath.Join(t.TempDir(), "companion.prom")

	_, err := runCLI(t, "", "analyze", "-c", cfg, "--offline", "--metrics-textfile", prom, "ㅋㅋ")
	require.NoError(t, err)

	b, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(b), `companion_classifications_total{path="offline"}`)
}

// modelConfig points the OpenAI capability at srvURL and reads the persona
// headers from files in the test's temp dir.
func modelConfig(t *testing.T, srvURL, analyzerHeader, extractorHeader string) string {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("COMPANION_OPENAI_API_KEY", "")
	t.Setenv("COMPANION_QUOTA_REDIS_ADDR", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "companion.yaml")
	body := "openai:\n  api_key: sk-test\n  base_url: " + srvURL + "\n" +
		"analyzer:\n  prompt_header_file: " + analyzerHeader + "\n" +
		"extractor:\n  prompt_header_file: " + extractorHeader + "\n" +
		"store:\n  db_path: " + filepath.Join(dir, "companion.db") + "\n" +
		"logging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestAnalyze_PromptHeaderFile(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		http.Error(w, `{"error":{"message":"unavailable"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	header := filepath.Join(t.TempDir(), "analyzer.txt")
	require.NoError(t, os.WriteFile(header, []byte("\n  You speak for Bori, a gentle old corgi.  \n"), 0o644))
	cfg := modelConfig(t, srv.URL+"/v1/", header, header)

	out, err := runCLI(t, "", "analyze", "-c", cfg, "안녕")
	require.NoError(t, err)

	var got companion.EmotionAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Degraded, "server error degrades to the keyword reading")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 1, "one attempt, no retries")
	assert.Contains(t, bodies[0], "You speak for Bori, a gentle old corgi.")
}

func TestExtract_MissingPromptHeaderFile(t *testing.T) {
	cfg := modelConfig(t, "http://127.0.0.1:1/v1/", "", filepath.Join(t.TempDir(), "missing.txt"))

	_, err := runCLI(t, "", "extract", "-c", cfg, "매일 아침 8시에 산책해")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extractor prompt header")
}

func TestReplyAndHistory(t *testing.T) {
	cfg := testConfig(t)

	_, err := runCLI(t, "", "turn", "-c", cfg, "--offline", "-u", "u1", "--pet-id", "p1", "너무", "보고싶어", "그리워")
	require.NoError(t, err)
	_, err = runCLI(t, "멍! 나도 보고 싶었어\n", "reply", "-c", cfg, "-u", "u1", "--pet-id", "p1")
	require.NoError(t, err)

	out, err := runCLI(t, "", "history", "-c", cfg, "--pet-id", "p1")
	require.NoError(t, err)
	var msgs []companion.Message
	require.NoError(t, json.Unmarshal([]byte(out), &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, companion.RoleUser, msgs[0].Role)
	assert.Equal(t, companion.Sad, msgs[0].Emotion)
	assert.Equal(t, companion.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "멍! 나도 보고 싶었어", msgs[1].Content)

	out, err = runCLI(t, "", "history", "-c", cfg, "--pet-id", "p1", "--limit", "1")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, companion.RoleAssistant, msgs[0].Role)

	out, err = runCLI(t, "", "history", "-c", cfg, "--pet-id", "nobody")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}
