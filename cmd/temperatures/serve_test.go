package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iver-wharf/temperatures/pkg/config"
	"github.com/iver-wharf/temperatures/pkg/readingstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSensorID = "28-00000a1b2c3d"

func newTestServeConfig(t *testing.T) config.Config {
	devicesDir := t.TempDir()
	sensorDir := filepath.Join(devicesDir, testSensorID)
	require.NoError(t, os.Mkdir(sensorDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sensorDir, "w1_slave"), []byte(
		"72 01 4b 46 7f ff 0e 10 57 : crc=57 YES\n"+
			"72 01 4b 46 7f ff 0e 10 57 t=23125\n"), 0o644))

	cfg := config.DefaultConfig
	cfg.OneWire.DevicesDir = devicesDir
	cfg.Poller.Interval = 10 * time.Millisecond
	cfg.HTTP.BindAddress = "127.0.0.1:0"
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	return cfg
}

func TestRunServe_StoresReadingsUntilCancelled(t *testing.T) {
	cfg := newTestServeConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- runServe(ctx, cfg)
	}()

	require.Eventually(t, func() bool {
		store, err := readingstore.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return false
		}
		defer store.Close()
		readings, err := store.List(testSensorID, 1)
		return err == nil && len(readings) == 1 && readings[0].Celsius == 23.125
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("runServe did not return after cancel")
	}
}

func TestRunServe_FailsWhenPortIsTaken(t *testing.T) {
	cfg := newTestServeConfig(t)
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()
	cfg.HTTP.BindAddress = taken.Addr().String()

	err = runServe(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRootCmd_ServesWithoutSubcommand(t *testing.T) {
	cmd, args, err := rootCmd.Find([]string{})
	require.NoError(t, err)
	assert.Same(t, rootCmd, cmd)
	assert.Empty(t, args)
	assert.True(t, cmd.Runnable(), "root command should be runnable")
	assert.NotNil(t, cmd.RunE)

	assert.NoError(t, cmd.Args(cmd, nil))
	assert.Error(t, cmd.Args(cmd, []string{"unexpected"}))
}
