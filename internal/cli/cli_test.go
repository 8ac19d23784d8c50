package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cvforge/internal/common"
	"cvforge/internal/config"
	"cvforge/internal/content"
	"cvforge/internal/errors"
	"cvforge/internal/formatters"
	"cvforge/internal/keys"
	"cvforge/internal/types"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{
			DefaultFormat:    "json",
			SupportedFormats: []string{"json", "text", "markdown"},
		},
		AI:     config.AIConfig{Provider: "mock"},
		Keys:   config.KeysConfig{UserFile: filepath.Join(t.TempDir(), "keys.json")},
		Export: config.ExportConfig{DefaultTemplate: "eu", Engine: "builtin"},
	}
}

// resetFlags puts every flag back to its default. Flag values are package
// globals and survive between Execute calls.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes the root command with args and returns what it printed.
func run(t *testing.T, cfg *config.Config, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	for _, cc := range []*common.CommandConfig{&sanitizeConfig, &extractConfig, &analyzeConfig, &previewConfig, &keysConfig} {
		*cc = common.CommandConfig{}
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := Execute(context.Background(), cfg, errors.NewDiscardLogger())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestSanitizeFromStdin(t *testing.T) {
	input := "Jane Doe" + content.PDFSentinel + "\n\nSkills"
	out, err := run(t, testConfig(t), input, "sanitize", "--format", "text")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Jane Doe\n"), out)
	assert.Contains(t, out, "Skills")
	assert.NotContains(t, out, content.PDFSentinel)
}

func TestPreviewMarkdownRoundTrip(t *testing.T) {
	path := writeFile(t, "cv.txt", "# Jane Doe\n\n## Skills\n- Go")

	out, err := run(t, testConfig(t), "", "preview", path, "--format", "markdown")
	require.NoError(t, err)
	assert.Equal(t, "# Jane Doe\n\n## Skills\n- Go\n", out)
}

func TestExportDOCX(t *testing.T) {
	path := writeFile(t, "jane.txt", "# Jane Doe\n- Go")
	target := filepath.Join(t.TempDir(), "out", "jane.docx")

	out, err := run(t, testConfig(t), "", "export", path, "--format", "docx", "--template", "worldbank", "--output", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	path := writeFile(t, "jane.txt", "# Jane Doe")
	_, err := run(t, testConfig(t), "", "export", path, "--format", "odt", "--output", filepath.Join(t.TempDir(), "x"))
	assert.Error(t, err)
}

func TestKeysLifecycle(t *testing.T) {
	cfg := testConfig(t)

	out, err := run(t, cfg, "", "keys", "set", "Claude", "sk-ant-abcdefgh12345678")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored key for claude")
	assert.NotContains(t, out, "abcdefgh12345678")

	out, err = run(t, cfg, "", "keys", "list", "--format", "json")
	require.NoError(t, err)
	var entries []keys.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, len(types.KnownModels))
	for _, e := range entries {
		if e.Model == types.ModelClaude {
			assert.Equal(t, keys.SourceUser, e.Source)
		}
	}
	assert.NotContains(t, out, "sk-ant-abcdefgh12345678")

	out, err = run(t, cfg, "", "keys", "remove", "claude")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed user key for claude")

	out, err = run(t, cfg, "", "keys", "remove", "claude")
	require.NoError(t, err)
	assert.Contains(t, out, "No user key stored for claude")
}

func TestKeysSetFromStdin(t *testing.T) {
	cfg := testConfig(t)

	_, err := run(t, cfg, "sk-qwen-0123456789\n", "keys", "set", "qwen")
	require.NoError(t, err)

	store, err := keys.NewStoreFromConfig(cfg, nil)
	require.NoError(t, err)
	key, source := store.Get(types.ModelQwen)
	assert.Equal(t, "sk-qwen-0123456789", key)
	assert.Equal(t, keys.SourceUser, source)
}

func TestAnalyzeWithRuleEngine(t *testing.T) {
	cv := writeFile(t, "jane.txt", "Jane Doe\n\nSkills\n- Go\n- SQL")
	tor := writeFile(t, "tor.txt", "Post-issuance review of green bonds.")

	out, err := run(t, testConfig(t), "", "analyze", cv, tor,
		"--format", "json", "--models", "OpenAI,gemini", "--competencies", "Climate finance")
	require.NoError(t, err)

	var report formatters.AnalysisReport
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	assert.Equal(t, "mock", report.Provider)
	assert.Equal(t, []types.ModelID{types.ModelOpenAI, types.ModelGemini}, report.ModelsUsed)
	assert.NotEmpty(t, report.ImprovedText)
	assert.NotNil(t, report.Warnings)
}

func TestAnalyzeRejectsUnknownModel(t *testing.T) {
	cv := writeFile(t, "jane.txt", "Jane Doe")
	_, err := run(t, testConfig(t), "", "analyze", cv, "--format", "json", "--models", "llama")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown model "llama"`)
}

func TestVersion(t *testing.T) {
	out, err := run(t, testConfig(t), "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cvforge version "+Version)
}
