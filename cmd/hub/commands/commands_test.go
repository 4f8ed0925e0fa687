package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productivity-hub/pkg/idgen"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath = ""
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIDNext(t *testing.T) {
	out, err := run(t, "id", "next", "--worker", "4", "--datacenter", "2", "--count", "3")
	require.NoError(t, err)

	lines := strings.Fields(out)
	require.Len(t, lines, 3)
	for _, line := range lines {
		id, err := idgen.ParseID(line)
		require.NoError(t, err)
		info, err := id.Parse()
		require.NoError(t, err)
		assert.Equal(t, int64(4), info.WorkerID)
		assert.Equal(t, int64(2), info.DatacenterID)
	}
}

func TestIDNext_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"worker超出范围", []string{"id", "next", "-w", "99"}},
		{"数量为0", []string{"id", "next", "-n", "0"}},
		{"未知类型", []string{"id", "next", "-t", "uuid"}},
		{"sonyflake机器号超出", []string{"id", "next", "-t", "sonyflake", "--machine", "70000"}},
		{"解析非法ID", []string{"id", "parse", "xyz"}},
		{"解析缺少参数", []string{"id", "parse"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestIDNext_Sonyflake(t *testing.T) {
	out, err := run(t, "id", "next", "-t", "sonyflake", "--machine", "12", "-n", "4")
	require.NoError(t, err)

	lines := strings.Fields(out)
	require.Len(t, lines, 4)
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		seen[line] = struct{}{}
	}
	assert.Len(t, seen, 4)
}

func TestIDParse(t *testing.T) {
	out, err := run(t, "id", "next", "-w", "7")
	require.NoError(t, err)

	out, err = run(t, "id", "parse", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Contains(t, out, "worker:     7")
	assert.Contains(t, out, "datacenter: 0")
}

func TestToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jwt:\n  secret: cli-secret\nlog:\n  console: false\n  filename: "+filepath.Join(t.TempDir(), "hub.log")+"\n"), 0o600))

	out, err := run(t, "token", "u1", "-u", "alice", "--config", path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)
}
