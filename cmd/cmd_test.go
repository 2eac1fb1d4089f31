package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kris-hansen/versecraft/utils/models"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty working directory and home so no
// config or .env file leaks in
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())
	for _, env := range []string{"DEEPSEEK_API_KEY", "ARK_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(env, "")
	}
	return dir
}

// resetFlags restores every flag to its default; cobra keeps flag state
// between Execute calls
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

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// personaProvider poses as the deepseek backend and answers by persona
type personaProvider struct {
	mu      sync.Mutex
	prompts map[string][]string
}

func (p *personaProvider) Name() string              { return "deepseek" }
func (p *personaProvider) SupportsModel(string) bool { return true }
func (p *personaProvider) Configure(string) error    { return nil }
func (p *personaProvider) SetVerbose(bool)           {}

func (p *personaProvider) Chat(_ context.Context, _ string, messages []models.Message) (string, error) {
	persona := messages[0].Content
	p.mu.Lock()
	if p.prompts == nil {
		p.prompts = make(map[string][]string)
	}
	p.prompts[persona] = append(p.prompts[persona], messages[1].Content)
	n := len(p.prompts[persona])
	p.mu.Unlock()

	switch persona {
	case "You are DeepSeek 首脑AI.":
		if n == 1 {
			return "搜索最新数学成就\n写诗\n画图\n翻译", nil
		}
		return "润色后的作品", nil
	case "You are AI1_搜索.":
		return "[search]", nil
	case "You are AI2_整合诗句.":
		return "[poem]", nil
	case "You are AI3_图片生成提示.":
		return "[image]", nil
	case "You are AI4_翻译.":
		return "[translate]", nil
	}
	return "", nil
}

func useFakeProvider(t *testing.T) *personaProvider {
	t.Helper()
	fake := &personaProvider{}
	orig := models.DetectProvider
	models.DetectProvider = func(string) models.Provider { return fake }
	t.Cleanup(func() { models.DetectProvider = orig })
	return fake
}

func TestRunCommand(t *testing.T) {
	isolate(t)
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	fake := useFakeProvider(t)

	out, err := execute(t, "", "run", "--quiet", "生成一首诗")
	require.NoError(t, err)
	assert.Contains(t, out, "最终结果:\n润色后的作品")
	assert.NotContains(t, out, "任务进度")

	review := fake.prompts["You are DeepSeek 首脑AI."][1]
	assert.True(t, strings.HasSuffix(review,
		"=== 中文诗句 ===\n[poem]\n\n=== 英文诗句 ===\n[translate]\n\n=== 图像提示 ===\n[image]"))
	assert.Equal(t, []string{"请联网搜索以下主题的相关文章，并返回要点：\n搜索最新数学成就"}, fake.prompts["You are AI1_搜索."])
}

func TestRunCommandDefaultRequirementAndProgress(t *testing.T) {
	isolate(t)
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	fake := useFakeProvider(t)

	out, err := execute(t, "", "run", "--parallel", "--summary")
	require.NoError(t, err)
	assert.Contains(t, out, "任务进度")
	assert.Contains(t, out, "完成 翻译诗句")
	assert.Contains(t, out, "stages, total")

	plan := fake.prompts["You are DeepSeek 首脑AI."][0]
	assert.True(t, strings.HasSuffix(plan, DefaultRequirement))
}

func TestRunCommandReadsStdin(t *testing.T) {
	isolate(t)
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	fake := useFakeProvider(t)

	_, err := execute(t, "写一首关于海的诗\n", "run", "-q")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(fake.prompts["You are DeepSeek 首脑AI."][0], "\n写一首关于海的诗"))
}

func TestRunCommandInstructionRouting(t *testing.T) {
	isolate(t)
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	fake := useFakeProvider(t)

	_, err := execute(t, "", "run", "-q", "--plan-routing", "instruction", "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"请将以下中文诗句翻译为地道的英文：\n翻译"}, fake.prompts["You are AI4_翻译."])
}

func TestRunCommandRejectsBadRouting(t *testing.T) {
	isolate(t)
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	useFakeProvider(t)

	_, err := execute(t, "", "run", "-q", "--plan-routing", "broadcast", "x")
	assert.ErrorContains(t, err, "invalid plan_routing")
}

func TestRunCommandMissingKey(t *testing.T) {
	isolate(t)

	_, err := execute(t, "", "run", "-q", "x")
	require.Error(t, err)
	var authErr *models.AuthError
	assert.ErrorAs(t, err, &authErr)
	assert.Contains(t, err.Error(), "DEEPSEEK_API_KEY")
}

func TestReadRequirement(t *testing.T) {
	got, err := readRequirement([]string{"写", "诗"}, strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "写 诗", got)

	got, err = readRequirement(nil, strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRequirement, got)
}

func chatServer(t *testing.T, reply string, inspect func(body map[string]interface{})) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if inspect != nil {
			inspect(body)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   body["model"],
			"choices": []map[string]interface{}{
				{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCrispeCommand(t *testing.T) {
	dir := isolate(t)
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")

	var model string
	server := chatServer(t, "证明完毕", func(body map[string]interface{}) {
		model, _ = body["model"].(string)
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "versecraft.yaml"),
		[]byte("providers:\n  deepseek:\n    base_url: "+server.URL+"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "params.yaml"),
		[]byte("role: 数学家\nstatement: 证明勾股定理\n"), 0644))

	out, err := execute(t, "", "crispe", "params.yaml")
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", model)
	assert.Contains(t, out, "CRISPE 参数配置:")
	assert.Contains(t, out, "STATEMENT: 证明勾股定理")
	assert.Contains(t, out, "证明完毕")
	assert.Contains(t, out, "生成完成 | 耗时:")
}

func TestCrispeCommandMissingStatement(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "params.yaml"), []byte("role: x\n"), 0644))

	_, err := execute(t, "", "crispe", "params.yaml")
	assert.ErrorContains(t, err, "statement is required")
}

func TestDescribeCommand(t *testing.T) {
	dir := isolate(t)
	t.Setenv("ARK_API_KEY", "ark-test")

	var messages []interface{}
	server := chatServer(t, "这是西湖。", func(body map[string]interface{}) {
		messages, _ = body["messages"].([]interface{})
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "versecraft.yaml"),
		[]byte("providers:\n  ark:\n    base_url: "+server.URL+"\n"), 0644))

	out, err := execute(t, "", "describe", "https://example.com/lake.jpg")
	require.NoError(t, err)
	assert.Equal(t, "这是西湖。\n", out)

	require.Len(t, messages, 1)
	parts := messages[0].(map[string]interface{})["content"].([]interface{})
	require.Len(t, parts, 2)
	assert.Equal(t, "这是哪里？", parts[1].(map[string]interface{})["text"])
}

func TestDescribeCommandRejectsTextOnlyModel(t *testing.T) {
	isolate(t)
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")

	_, err := execute(t, "", "describe", "--model", "deepseek-chat", "https://example.com/a.png")
	assert.ErrorContains(t, err, "does not support image input")
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	version = "v1.2.3"
	t.Cleanup(func() { version = "" })

	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "Versecraft version: v1.2.3\n", out)
}
