package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podflow/internal/api"
	"podflow/internal/workflow"
)

const cliSeed = `
workflows:
  - id: 1
    title: Daily news
    code: "P1M2,R1SL3"
  - id: 2
    title: Paused
    code: PPU
    active: false
prompts:
  - id: 1
    text: Write a headline
models:
  - id: 1
    name: gpt-4o-mini
    default: true
  - id: 2
    name: gpt-4o
    web_search: true
locations:
  - id: 3
    kind: Folder
    path: podcasts/scripts/
`

type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	for _, key := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "ELEVENLABS_API_KEY", "NTFY_TOPIC", "WORKFLOW_ID", "CUSTOM_TOPIC", "GCS_BUCKET_NAME", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(key, "")
	}

	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
output_dir = %q

[storage]
backend = "local"

[workflow]
lock_dir = %q

[synthesis]
cache_dir = %q
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "objects"),
		filepath.Join(base, "locks"),
		filepath.Join(base, "cache"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	seedPath := filepath.Join(base, "seed.yaml")
	if err := os.WriteFile(seedPath, []byte(cliSeed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	env := &cliTestEnv{baseDir: base, configPath: configPath}
	out, err := env.run(t, "store", "import", seedPath)
	if err != nil {
		t.Fatalf("store import: %v (%s)", err, out)
	}
	if !strings.Contains(out, "Imported 2 workflows") {
		t.Fatalf("unexpected import output: %q", out)
	}
	return env
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--config", e.configPath}, args...)...)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestStepsClassifyNeedsNoConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out, err := runCLI(t, "steps", "classify", "PPU,P1M2,R1SL3T1,L3E1SL4,BAD,UM")
	if err != nil {
		t.Fatalf("steps classify: %v", err)
	}
	for _, want := range []string{"PostedPodcastRefresh", "PromptChain", "model=M2", "SaveOnly", "Synthesize", "voice=E1", "fault"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ModelCatalogRefresh") {
		t.Fatalf("classification should stop at the first fault:\n%s", out)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected target path in output, got %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateUsesConfigFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, env.configPath) || !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output: %q", out)
	}
}

func TestWorkflowsListJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "workflows", "list", "--active", "--json")
	if err != nil {
		t.Fatalf("workflows list: %v", err)
	}
	var resp api.WorkflowListResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode workflows: %v (%s)", err, out)
	}
	if len(resp.Workflows) != 1 || resp.Workflows[0].ID != 1 || resp.Workflows[0].Code != "P1M2,R1SL3" {
		t.Fatalf("unexpected workflows: %+v", resp.Workflows)
	}
}

func TestRunDryRunClassifiesWithoutRecording(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "run", "--dry-run", "--workflow", "1")
	if err != nil {
		t.Fatalf("run --dry-run: %v", err)
	}
	if !strings.Contains(out, "Daily news") || !strings.Contains(out, "SaveOnly") {
		t.Fatalf("unexpected plan output:\n%s", out)
	}

	out, err = env.run(t, "runs", "list")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	if !strings.Contains(out, "No runs recorded") {
		t.Fatalf("dry run should not record runs, got:\n%s", out)
	}
}

func TestRunDryRunUnknownWorkflow(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "run", "--dry-run", "--workflow", "42"); err == nil {
		t.Fatal("expected an error for a missing workflow")
	}
}

func TestModelsListShowsCatalog(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "models", "list")
	if err != nil {
		t.Fatalf("models list: %v", err)
	}
	if !strings.Contains(out, "gpt-4o-mini") || !strings.Contains(out, "gpt-4o") {
		t.Fatalf("unexpected models output:\n%s", out)
	}
}

func TestRenderBatchReportsBusy(t *testing.T) {
	out := renderBatch(workflow.BatchResult{Busy: []int64{7}}, false)
	if !strings.Contains(out, "busy") || !strings.Contains(out, "7") {
		t.Fatalf("busy workflow missing from table:\n%s", out)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-very-secret")

	out, err := env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "sk-very-secret") {
		t.Fatalf("api key leaked:\n%s", out)
	}
	if !strings.Contains(out, "********") || !strings.Contains(out, "[workflow]") {
		t.Fatalf("unexpected config output:\n%s", out)
	}
}
