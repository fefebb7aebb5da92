package supervisor

import (
	"context"
	"net"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	assert.True(t, PortInUse(port))
	ln.Close()
	assert.False(t, PortInUse(port))
}

func TestStartRefusesBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	s := New("true", ln.Addr().(*net.TCPAddr).Port, zerolog.Nop())
	assert.ErrorIs(t, s.Start(), ErrPortInUse)
	assert.False(t, s.Running())
}

func freePort(t *testing.T) int {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestStartStopRestart(t *testing.T) {
	sleep, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("no sleep binary")
	}
	// sleep rejects the flags, so wrap it in a shell that ignores them.
	script := t.TempDir() + "/fake-server"
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexec "+sleep+" 30\n"), 0o755))

	s := New(script, freePort(t), zerolog.Nop())
	require.NoError(t, s.Start())
	assert.True(t, s.Running())
	first := s.Done()
	require.NotNil(t, first)

	require.NoError(t, s.Restart(2*time.Second))
	<-first
	assert.True(t, s.Running())

	require.NoError(t, s.Stop(2*time.Second))
	assert.False(t, s.Running())
	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
	assert.NoError(t, s.Stop(time.Second))
}

func TestWatchParentSeesExit(t *testing.T) {
	cmd := exec.Command("true")
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid
	require.NoError(t, cmd.Wait())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := WatchParent(ctx, pid, 10*time.Millisecond)
	assert.ErrorContains(t, err, "exited")
}

func TestWatchParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, WatchParent(ctx, os.Getpid(), 10*time.Millisecond))
	assert.NoError(t, WatchParent(ctx, 0, time.Millisecond))
}
