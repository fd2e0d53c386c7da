package app

import (
	"bytes"
	"testing"

	"github.com/kart-io/logger/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 该测试二进制链接了全部后端，能运行即说明各依赖的 proto 注册没有冲突。
func TestNewAppHelp(t *testing.T) {
	var out bytes.Buffer
	cmd := NewApp().Command()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--help"})
	require.NoError(t, cmd.Execute())

	help := out.String()
	assert.Contains(t, help, "Sentinel RAG Service")
	assert.Contains(t, help, "--vector-store.type")
	assert.Contains(t, help, "--qdrant.protocol")
	assert.Contains(t, help, "--milvus.address")
	assert.Contains(t, help, "--cache.redis.host")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want core.Level
		ok   bool
	}{
		{"debug", core.DebugLevel, true},
		{" INFO ", core.InfoLevel, true},
		{"warning", core.WarnLevel, true},
		{"ERROR", core.ErrorLevel, true},
		{"fatal", core.FatalLevel, true},
		{"verbose", core.InfoLevel, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseLevel(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
