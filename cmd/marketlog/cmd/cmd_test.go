package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
	"github.com/hugo-lorenzo-mato/marketlog/internal/history"
	"github.com/hugo-lorenzo-mato/marketlog/internal/testutil"
)

// resetFlags restores every flag to its default so runs do not leak into
// each other through the package-level command tree.
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

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	viper.Reset()
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// fakeMessages serves the Anthropic messages endpoint with scripted text.
type fakeMessages struct {
	mu      sync.Mutex
	replies []string
	calls   int
	status  int
}

func (f *fakeMessages) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"api_error","message":"boom"}}`)
		return
	}
	text := f.replies[min(f.calls, len(f.replies)-1)]
	f.calls++

	block, _ := json.Marshal(map[string]string{"type": "text", "text": text})
	fmt.Fprintf(w, `{"id":"msg_%d","type":"message","role":"assistant","model":"claude-sonnet-4-20250514",`+
		`"content":[%s],"stop_reason":"end_turn","stop_sequence":null,`+
		`"usage":{"input_tokens":1,"output_tokens":1}}`, f.calls, block)
}

type testEnv struct {
	dir         string
	configPath  string
	historyPath string
}

func newTestEnv(t *testing.T, baseURL, apiKey string) testEnv {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "")
	dir := t.TempDir()
	env := testEnv{
		dir:         dir,
		configPath:  filepath.Join(dir, "config.yaml"),
		historyPath: filepath.Join(dir, "data", "history.json"),
	}
	cfg := fmt.Sprintf(`log:
  level: error
  format: json
model:
  name: claude-sonnet-4-20250514
  api_key: %q
  base_url: %q
  timeout: 30s
history:
  backend: json
  path: %q
export:
  path: %q
`, apiKey, baseURL, env.historyPath, filepath.Join(dir, "out", "latest.md"))
	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0o600))
	return env
}

func seedHistory(t *testing.T, path string, n int) {
	t.Helper()
	require.NoError(t, history.NewJSONStore(path).Save(t.Context(), testutil.NewHistory(n)))
}

func TestRootCmd_Structure(t *testing.T) {
	assert.Equal(t, "marketlog", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)

	want := []string{"generate", "history", "export", "serve", "schedule", "init", "version"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "missing subcommand %s", name)
	}

	for _, flag := range []string{"config", "log-level", "log-format"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(flag), flag)
	}
	for _, flag := range []string{"tag", "context", "context-file", "model", "json"} {
		assert.NotNil(t, generateCmd.Flags().Lookup(flag), flag)
	}
}

func TestVersionCmd(t *testing.T) {
	SetVersion("1.2.3", "abc", "today")
	t.Cleanup(func() { SetVersion("dev", "none", "unknown") })

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "marketlog 1.2.3")
	assert.Contains(t, out, "commit: abc")
}

func TestGenerate_AppendsVersions(t *testing.T) {
	fake := &fakeMessages{replies: []string{
		`{"headline":"Risk-on week","analysis":"Equities up\nBonds flat","differences":[]}`,
		"Here you go:\n```json\n{\"headline\":\"Rates pause\",\"analysis\":\"Equities up\\nFed on hold\"}\n```",
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	env := newTestEnv(t, srv.URL+"/", "sk-ant-REDACTED")

	out, err := execute(t, "generate", "--config", env.configPath, "--tag", "week-1", "--json")
	require.NoError(t, err)

	var first generateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.Equal(t, 1, first.Record.Version)
	assert.Equal(t, "week-1", first.Record.Tag)
	assert.Equal(t, "Risk-on week", first.Record.Headline)
	assert.Equal(t, []string{core.DiffFirstVersion}, first.Record.Differences)
	assert.Equal(t, env.historyPath, first.Location)
	assert.NotEmpty(t, first.RunID)

	out, err = execute(t, "generate", "--config", env.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Version 2 recorded")
	assert.Contains(t, out, "Headline: Rates pause")
	assert.Contains(t, out, "New point: Fed on hold")

	doc, err := history.NewJSONStore(env.historyPath).Load(t.Context())
	require.NoError(t, err)
	require.Equal(t, 2, doc.Len())
	assert.Equal(t, "Rates pause", doc.LatestHeadline)
	assert.Equal(t, 2, fake.calls)
}

func TestGenerate_MissingKeyWritesNothing(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:1/", "")

	_, err := execute(t, "generate", "--config", env.configPath)
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatConfig), "got %v", err)

	_, statErr := os.Stat(env.historyPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerate_MissingKeyLeavesSQLiteUntouched(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:1/", "")
	dbPath := filepath.Join(env.dir, "data", "history.db")
	raw, err := os.ReadFile(env.configPath)
	require.NoError(t, err)
	cfg := strings.Replace(string(raw), "backend: json", "backend: sqlite", 1)
	cfg = strings.Replace(cfg, strconv.Quote(env.historyPath), strconv.Quote(dbPath), 1)
	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0o600))

	_, err = execute(t, "generate", "--config", env.configPath)
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatConfig), "got %v", err)

	_, statErr := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(statErr), "database should not be created")
	_, statErr = os.Stat(filepath.Dir(dbPath))
	assert.True(t, os.IsNotExist(statErr), "history directory should not be created")
}

func TestGenerate_TransportFailureWritesNothing(t *testing.T) {
	fake := &fakeMessages{status: http.StatusInternalServerError}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	env := newTestEnv(t, srv.URL+"/", "sk-ant-REDACTED")
	seedHistory(t, env.historyPath, 1)
	before, err := os.ReadFile(env.historyPath)
	require.NoError(t, err)

	_, err = execute(t, "generate", "--config", env.configPath)
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatTransport), "got %v", err)

	after, err := os.ReadFile(env.historyPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestGenerate_ContextFile(t *testing.T) {
	fake := &fakeMessages{replies: []string{`{"headline":"H","analysis":"A"}`}}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	env := newTestEnv(t, srv.URL+"/", "sk-ant-REDACTED")

	_, err := execute(t, "generate", "--config", env.configPath,
		"--context-file", filepath.Join(env.dir, "missing.md"))
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))

	notes := testutil.TempFile(t, env.dir, "notes.md", "CPI tomorrow")
	_, err = execute(t, "generate", "--config", env.configPath, "--context-file", notes)
	require.NoError(t, err)
}

func TestHistoryList(t *testing.T) {
	env := newTestEnv(t, "", "")

	out, err := execute(t, "history", "list", "--config", env.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No versions recorded yet.")

	seedHistory(t, env.historyPath, 3)
	out, err = execute(t, "history", "list", "--config", env.configPath)
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "Headline 3"), strings.Index(out, "Headline 1"))

	out, err = execute(t, "history", "list", "--config", env.configPath, "--json")
	require.NoError(t, err)
	var summaries []core.VersionSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	assert.Len(t, summaries, 3)
}

func TestHistoryShow(t *testing.T) {
	env := newTestEnv(t, "", "")
	seedHistory(t, env.historyPath, 2)

	out, err := execute(t, "history", "show", "--config", env.configPath, "--raw")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "---\n"))
	assert.Contains(t, out, "# Headline 2")

	out, err = execute(t, "history", "show", "v1", "--config", env.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Headline 1")

	_, err = execute(t, "history", "show", "7", "--config", env.configPath)
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))

	_, err = execute(t, "history", "show", "seven", "--config", env.configPath)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, "", "")
	seedHistory(t, env.historyPath, 2)

	out, err := execute(t, "export", "--config", env.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 versions")

	data, err := os.ReadFile(filepath.Join(env.dir, "out", "latest.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Headline 2")

	custom := filepath.Join(env.dir, "custom.md")
	_, err = execute(t, "export", "--config", env.configPath, "-o", custom)
	require.NoError(t, err)
	assert.FileExists(t, custom)
}

func TestInvalidConfigIsRejected(t *testing.T) {
	env := newTestEnv(t, "", "")
	_, err := execute(t, "history", "list", "--config", env.configPath, "--log-level", "loud")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatConfig))
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	out, err := execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, ".marketlog.yaml")

	data, err := os.ReadFile(filepath.Join(dir, ".marketlog.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "web_search")

	_, err = execute(t, "init")
	assert.Error(t, err)

	_, err = execute(t, "init", "--force")
	assert.NoError(t, err)
}
