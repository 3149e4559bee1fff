package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/kvbridge/connreq"
	"github.com/timzifer/kvbridge/internal/config"
	"github.com/timzifer/kvbridge/internal/reload"
)

func TestBuildRequest(t *testing.T) {
	req, err := buildRequest(options{
		addrs:    "127.0.0.1:7000, 127.0.0.1:7001",
		cluster:  true,
		tlsMode:  "insecure",
		password: "secret",
		resp2:    true,
	})
	require.NoError(t, err)
	require.Equal(t, []connreq.NodeAddress{{Host: "127.0.0.1", Port: 7000}, {Host: "127.0.0.1", Port: 7001}}, req.Addresses)
	require.Equal(t, connreq.TLSModeInsecure, req.TLSMode)
	require.Equal(t, connreq.ProtocolRESP2, req.Protocol)
	require.Equal(t, "secret", req.Authentication.Password)

	_, err = buildRequest(options{addrs: "localhost"})
	require.Error(t, err)
	_, err = buildRequest(options{addrs: "localhost:6379", tlsMode: "maybe"})
	require.Error(t, err)

	// standalone mode keeps every seed and connects to the first
	req, err = buildRequest(options{addrs: "a:1,b:2"})
	require.NoError(t, err)
	require.Len(t, req.Addresses, 2)
	require.False(t, req.ClusterModeEnabled)
}

func testOptions(addr string) options {
	return options{addrs: addr, resp2: true, requestType: "CustomCommand"}
}

func TestRunHealthcheck(t *testing.T) {
	srv := miniredis.RunT(t)
	opts := testOptions(srv.Addr())
	opts.healthcheck = true
	require.NoError(t, run(context.Background(), config.Default(), zerolog.Nop(), opts, nil, nil))
}

func TestRunCommand(t *testing.T) {
	srv := miniredis.RunT(t)
	opts := testOptions(srv.Addr())
	opts.requestType = "SetString"
	require.NoError(t, run(context.Background(), config.Default(), zerolog.Nop(), opts, []string{"k", "v"}, nil))

	got, err := srv.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", got)

	opts.requestType = "LPush"
	err = run(context.Background(), config.Default(), zerolog.Nop(), opts, []string{"k", "x"}, nil)
	require.ErrorContains(t, err, "WRONGTYPE")
}

func TestRunUnknownType(t *testing.T) {
	opts := testOptions("127.0.0.1:6379")
	opts.requestType = "NoSuchThing"
	require.Error(t, run(context.Background(), config.Default(), zerolog.Nop(), opts, nil, nil))
}

func TestRunRestartsOnConfigChange(t *testing.T) {
	srv := miniredis.RunT(t)
	path := filepath.Join(t.TempDir(), "kvbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\n"), 0o644))
	watcher, err := reload.NewWatcher(path)
	require.NoError(t, err)

	opts := testOptions(srv.Addr())
	opts.requestType = "Ping"
	opts.repeat = 10 * time.Millisecond

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(path, []byte("workers: 4\nmax_inflight: 10\n"), 0o644)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = run(ctx, config.Default(), zerolog.Nop(), opts, nil, watcher)
	require.ErrorIs(t, err, errConfigChanged)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv(config.EnvLogLevel, "")

	cfg, err := loadConfig("")
	require.NoError(t, err)
	require.Equal(t, config.DefaultMaxInflight, cfg.MaxInflight)
	require.Empty(t, config.SourceFiles(cfg))

	path := filepath.Join(t.TempDir(), "kvbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_inflight: 3\n"), 0o644))
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.MaxInflight)
	require.Equal(t, cfg.Workers*64, cfg.QueueSize)
	require.Equal(t, []string{path}, config.SourceFiles(cfg))

	t.Setenv(config.EnvConfigPath, path)
	cfg, err = loadConfig("")
	require.NoError(t, err)
	require.Equal(t, 3, cfg.MaxInflight)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
