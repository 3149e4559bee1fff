package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/timzifer/kvbridge/bridge"
	"github.com/timzifer/kvbridge/command"
	"github.com/timzifer/kvbridge/connreq"
	"github.com/timzifer/kvbridge/envelope"
	"github.com/timzifer/kvbridge/internal/config"
	"github.com/timzifer/kvbridge/internal/logging"
	"github.com/timzifer/kvbridge/internal/reload"
)

type options struct {
	configPath    string
	healthcheck   bool
	addrs         string
	cluster       bool
	tlsMode       string
	username      string
	password      string
	database      uint
	resp2         bool
	clientName    string
	requestType   string
	repeat        time.Duration
	metricsListen string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file (defaults to $"+config.EnvConfigPath+")")
	flag.BoolVar(&opts.healthcheck, "healthcheck", false, "Connect, send PING and exit")
	flag.StringVar(&opts.addrs, "addr", "localhost:6379", "Comma separated server addresses")
	flag.BoolVar(&opts.cluster, "cluster", false, "Enable cluster mode")
	flag.StringVar(&opts.tlsMode, "tls", "none", "TLS mode: none, secure or insecure")
	flag.StringVar(&opts.username, "user", "", "ACL username")
	flag.StringVar(&opts.password, "password", "", "Password")
	flag.UintVar(&opts.database, "db", 0, "Database index")
	flag.BoolVar(&opts.resp2, "resp2", false, "Negotiate RESP2 instead of RESP3")
	flag.StringVar(&opts.clientName, "name", "kvbridge-cli", "Client name")
	flag.StringVar(&opts.requestType, "type", "CustomCommand", "Request type name or number")
	flag.DurationVar(&opts.repeat, "repeat", 0, "Repeat the command at this interval until interrupted")
	flag.StringVar(&opts.metricsListen, "metrics-listen", "", "Serve Prometheus metrics on this address")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runWithReload(ctx, opts, flag.Args()); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// runWithReload runs the command and, in repeat mode with a configuration
// file, starts over with the new configuration whenever the file changes.
func runWithReload(ctx context.Context, opts options, args []string) error {
	var watcher *reload.Watcher
	if opts.repeat > 0 {
		w, err := reload.NewWatcher()
		if err != nil {
			return fmt.Errorf("create config watcher: %w", err)
		}
		watcher = w
	}

	for {
		cfg, err := loadConfig(opts.configPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if err := watcher.Update(config.SourceFiles(cfg)...); err != nil {
			return err
		}
		if opts.metricsListen != "" {
			cfg.Telemetry.Enabled = true
		}

		logger, cleanup, err := logging.Setup(cfg.Logging)
		if err != nil {
			return fmt.Errorf("setup logger: %w", err)
		}
		log.Logger = logger

		var stopMetrics func()
		if opts.metricsListen != "" {
			stopMetrics, err = serveMetrics(opts.metricsListen, logger)
			if err != nil {
				cleanup()
				return fmt.Errorf("start metrics endpoint: %w", err)
			}
		}

		err = run(ctx, cfg, logger, opts, args, watcher)
		if stopMetrics != nil {
			stopMetrics()
		}
		cleanup()
		if !errors.Is(err, errConfigChanged) {
			return err
		}
		logger.Info().Strs("files", config.SourceFiles(cfg)).Msg("configuration changed, restarting")
	}
}

// loadConfig reads path, or the file named by KVBRIDGE_CONFIG when path is
// empty. The result is always normalized.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		cfg, err = config.FromEnv()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

var errConfigChanged = errors.New("configuration changed")

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts options, args []string, watcher *reload.Watcher) error {
	request, err := buildRequest(opts)
	if err != nil {
		return err
	}
	requestType := command.Ping
	if !opts.healthcheck {
		requestType, err = command.Lookup(opts.requestType)
		if err != nil {
			return err
		}
	}

	rt, err := bridge.New(bridge.WithConfig(cfg), bridge.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.CloseTimeout.Duration)
		defer cancel()
		if err := rt.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("runtime shutdown")
		}
	}()

	results := make(resultChan, 1)
	resp := rt.CreateClient(connreq.Encode(request), results.success, results.failure)
	if resp.Error != nil {
		err := fmt.Errorf("connect: %s (%s)", resp.Error.Message(), resp.Error.Kind())
		bridge.FreeConnectionResponse(resp)
		return err
	}
	client := resp.Conn
	bridge.FreeConnectionResponse(resp)
	defer rt.CloseClient(client)

	var channel uintptr
	for {
		channel++
		client.Command(channel, requestType, args)
		var res result
		select {
		case res = <-results:
		case <-ctx.Done():
			return ctx.Err()
		}
		if res.err != nil {
			return res.err
		}
		if opts.healthcheck {
			if res.message != "PONG" {
				return fmt.Errorf("health check: unexpected reply %q", res.message)
			}
			logger.Info().Msg("health check passed")
			return nil
		}
		fmt.Println(res.render())

		if opts.repeat <= 0 {
			return nil
		}
		select {
		case <-time.After(opts.repeat):
		case <-ctx.Done():
			return ctx.Err()
		}
		changed, err := watcher.Check()
		if err != nil {
			return err
		}
		if len(changed) > 0 {
			return errConfigChanged
		}
	}
}

func buildRequest(opts options) (*connreq.ConnectionRequest, error) {
	req := &connreq.ConnectionRequest{
		ClusterModeEnabled: opts.cluster,
		DatabaseID:         uint32(opts.database),
		ClientName:         opts.clientName,
	}
	for _, raw := range strings.Split(opts.addrs, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		host, portStr, err := net.SplitHostPort(raw)
		if err != nil {
			return nil, fmt.Errorf("address %q: %w", raw, err)
		}
		port, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("address %q: invalid port", raw)
		}
		req.Addresses = append(req.Addresses, connreq.NodeAddress{Host: host, Port: uint32(port)})
	}
	switch strings.ToLower(opts.tlsMode) {
	case "", "none":
		req.TLSMode = connreq.TLSModeNone
	case "secure":
		req.TLSMode = connreq.TLSModeSecure
	case "insecure":
		req.TLSMode = connreq.TLSModeInsecure
	default:
		return nil, fmt.Errorf("unknown tls mode %q", opts.tlsMode)
	}
	if opts.resp2 {
		req.Protocol = connreq.ProtocolRESP2
	}
	if opts.password != "" || opts.username != "" {
		req.Authentication = &connreq.AuthenticationInfo{Username: opts.username, Password: opts.password}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func serveMetrics(listen string, logger zerolog.Logger) (func(), error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	logger.Info().Str("listen", ln.Addr().String()).Msg("metrics endpoint started")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

type result struct {
	message string
	isNil   bool
	err     error
}

func (r result) render() string {
	if r.isNil {
		return "(nil)"
	}
	return r.message
}

type resultChan chan result

func (c resultChan) success(_ uintptr, message []byte) {
	c <- result{message: string(message), isNil: message == nil}
}

func (c resultChan) failure(_ uintptr, err *envelope.Envelope) {
	defer bridge.FreeError(err)
	c <- result{err: fmt.Errorf("%s (%s)", err.Message(), err.Kind())}
}
