package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/pkg/infra/app/cliflag"
)

type testOptions struct {
	Server struct {
		Addr    string        `mapstructure:"addr"`
		Timeout time.Duration `mapstructure:"timeout"`
		Origins []string      `mapstructure:"origins"`
	} `mapstructure:"server"`
	Model string `mapstructure:"model"`

	completed   bool
	validateErr error
}

func newTestOptions() *testOptions {
	o := &testOptions{Model: "llama3.1"}
	o.Server.Addr = "0.0.0.0:8000"
	o.Server.Timeout = 30 * time.Second
	return o
}

func (o *testOptions) Flags() (fss cliflag.NamedFlagSets) {
	fs := fss.FlagSet("server")
	fs.StringVar(&o.Server.Addr, "server.addr", o.Server.Addr, "Listen address.")
	fs.DurationVar(&o.Server.Timeout, "server.timeout", o.Server.Timeout, "Request timeout.")
	fs.StringSliceVar(&o.Server.Origins, "server.origins", o.Server.Origins, "Allowed origins.")
	fss.FlagSet("model").StringVar(&o.Model, "model", o.Model, "Model name.")
	return fss
}

func (o *testOptions) Complete() error {
	o.completed = true
	return nil
}

func (o *testOptions) Validate() error { return o.validateErr }

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app-test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(a *App, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := a.Command()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9000\"\n  timeout: 5s\n  origins: [\"http://a\"]\nmodel: ${TEST_CHAT_MODEL}\n")
	t.Setenv("TEST_CHAT_MODEL", "qwen2")

	opts := newTestOptions()
	ran := false
	a := NewApp(WithName("app-test"), WithOptions(opts), WithRunFunc(func() error {
		ran = true
		return nil
	}))

	_, err := execute(a, "--config", path, "--server.timeout", "9s", "--server.origins", "http://b,http://c")
	require.NoError(t, err)
	assert.True(t, ran)
	assert.True(t, opts.completed)
	assert.Equal(t, ":9000", opts.Server.Addr)
	assert.Equal(t, 9*time.Second, opts.Server.Timeout)
	assert.Equal(t, []string{"http://b", "http://c"}, opts.Server.Origins)
	assert.Equal(t, "qwen2", opts.Model)
	assert.Equal(t, path, a.Viper().ConfigFileUsed())
}

func TestEnvironmentOverridesConfigFile(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9000\"\n")
	t.Setenv("APP_TEST_SERVER_ADDR", ":7000")

	opts := newTestOptions()
	a := NewApp(WithName("app-test"), WithOptions(opts))
	_, err := execute(a, "--config", path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", opts.Server.Addr)
}

func TestMissingConfigFileKeepsDefaults(t *testing.T) {
	opts := newTestOptions()
	a := NewApp(WithName("app-test-no-such-config"), WithOptions(opts))
	_, err := execute(a)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8000", opts.Server.Addr)
	assert.Equal(t, "llama3.1", opts.Model)
}

func TestValidationErrorStopsRun(t *testing.T) {
	opts := newTestOptions()
	opts.validateErr = errors.New("bad options")
	a := NewApp(WithName("app-test-no-such-config"), WithOptions(opts), WithRunFunc(func() error {
		t.Fatal("run must not be called")
		return nil
	}))
	_, err := execute(a)
	assert.EqualError(t, err, "bad options")
}

func TestHelpPrintsSections(t *testing.T) {
	a := NewApp(WithName("app-test"), WithDescription("Test service\n\nLonger text."), WithOptions(newTestOptions()))
	assert.Equal(t, "Test service", a.Command().Short)

	out, err := execute(a, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Longer text.")
	assert.Contains(t, out, "Server flags:")
	assert.Contains(t, out, "--server.addr")
	assert.Contains(t, out, "Model flags:")
}

func TestConfigChangeHandler(t *testing.T) {
	path := writeConfig(t, "model: llama3.1\n")

	var (
		mu    sync.Mutex
		model string
	)
	a := NewApp(WithName("app-test"), WithOptions(newTestOptions()), WithConfigChange(func(v *viper.Viper) error {
		mu.Lock()
		defer mu.Unlock()
		model = v.GetString("model")
		return nil
	}))
	_, err := execute(a, "--config", path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("model: qwen2\n"), 0o600))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return model == "qwen2"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestEnvPrefix(t *testing.T) {
	assert.Equal(t, "SENTINEL_RAG", envPrefix("sentinel-rag"))
	assert.Contains(t, configPaths("sentinel-rag"), "/etc/sentinel-rag")
}
