package autostart

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_InstallRemove(t *testing.T) {
	e := Entry{
		Name:        "rfid-pos-bridge",
		DisplayName: "RFID POS Bridge",
		Exec:        "/opt/rfid bridge/rfid-pos-bridge",
		Args:        []string{"--config", "/etc/rfid_bridge.ini"},
		Dir:         t.TempDir(),
	}

	assert.False(t, e.IsInstalled())
	require.NoError(t, e.Remove(), "removing a missing launcher is fine")

	require.NoError(t, e.Install())
	assert.True(t, e.IsInstalled())

	path, err := e.Path()
	require.NoError(t, err)
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "rfid-pos-bridge")
	assert.Contains(t, string(body), "--config")

	require.NoError(t, e.Remove())
	assert.False(t, e.IsInstalled())
}

func TestEntry_Toggle(t *testing.T) {
	e := Entry{Name: "rfid-pos-bridge", Exec: "/usr/bin/rfid-pos-bridge", Dir: t.TempDir()}

	on, err := e.Toggle()
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, e.IsInstalled())

	on, err = e.Toggle()
	require.NoError(t, err)
	assert.False(t, on)
	assert.False(t, e.IsInstalled())
}

func TestEntry_InstallNeedsExec(t *testing.T) {
	e := Entry{Name: "rfid-pos-bridge", Dir: t.TempDir()}
	assert.Error(t, e.Install())
	assert.False(t, e.IsInstalled())
}
