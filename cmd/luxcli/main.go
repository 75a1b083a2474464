// SPDX-License-Identifier: BSD-3-Clause

// luxcli is a command line client for lux APIs: login, logout, raw
// requests and directory resolution against any API described in the
// configuration file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/quantmind/lux-go/api"
	"github.com/quantmind/lux-go/auth"
	"github.com/quantmind/lux-go/config"
	"github.com/quantmind/lux-go/directory"
	"github.com/quantmind/lux-go/internal/log"
	"github.com/quantmind/lux-go/internal/telemetry"
	"github.com/quantmind/lux-go/tokenstore"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

const usageText = `usage: luxcli [flags] <command> [args]

commands:
  login                 authenticate with LUX_USERNAME / LUX_PASSWORD
  logout                end the session and clear the stored token
  get <path|name>       GET a path (/...) or a logical directory name
  post <path|name> <json>  POST a JSON body
  user                  print the claims of the stored token
  resolve <name>        print the URL a logical name resolves to

flags:
`

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	apiName := flag.String("api", "", "name of the configured API to talk to")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: "luxcli",
		Output:  os.Stderr,
	})
	logger := log.WithComponent("cli")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        os.Getenv("LUX_OTLP_ENDPOINT") != "",
		ServiceName:    "luxcli",
		ServiceVersion: version,
		Endpoint:       os.Getenv("LUX_OTLP_ENDPOINT"),
		SamplingRate:   1.0,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialise tracing")
		os.Exit(1)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	if err := run(ctx, cfg, *apiName, flag.Args()); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, apiName string, args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("no command given")
	}

	entry, err := pickAPI(cfg, apiName)
	if err != nil {
		return err
	}
	client, cleanup, err := buildClient(cfg, entry)
	if err != nil {
		return err
	}
	defer cleanup()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return cmdLogin(ctx, client)
	case "logout":
		return client.Logout(ctx)
	case "get":
		if len(rest) != 1 {
			return fmt.Errorf("usage: luxcli get <path|name>")
		}
		return cmdRequest(ctx, client, http.MethodGet, rest[0], nil)
	case "post":
		if len(rest) != 2 {
			return fmt.Errorf("usage: luxcli post <path|name> <json>")
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(rest[1]), &data); err != nil {
			return fmt.Errorf("invalid JSON body: %w", err)
		}
		return cmdRequest(ctx, client, http.MethodPost, rest[0], data)
	case "user":
		return cmdUser(client)
	case "resolve":
		if len(rest) != 1 {
			return fmt.Errorf("usage: luxcli resolve <name>")
		}
		return cmdResolve(ctx, client, rest[0])
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func pickAPI(cfg config.Config, name string) (config.API, error) {
	if name != "" {
		entry, ok := cfg.Find(name)
		if !ok {
			return config.API{}, fmt.Errorf("no API named %q in configuration", name)
		}
		return entry, nil
	}
	if len(cfg.APIs) == 0 {
		return config.API{}, fmt.Errorf("no APIs configured; set apis in the config file or LUX_API_URL")
	}
	return cfg.APIs[0], nil
}

func buildClient(cfg config.Config, entry config.API) (*auth.Client, func(), error) {
	keyring, cleanup, err := buildKeyring(cfg.TokenStore)
	if err != nil {
		return nil, nil, err
	}

	httpClient := &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	apiOpts := []api.ClientOption{
		api.WithHTTPClient(httpClient),
		api.WithResolver(directory.NewResolver(directory.WithHTTPClient(httpClient))),
	}
	if cfg.RateLimit.RPS > 0 {
		apiOpts = append(apiOpts, api.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	client := auth.New(entry.BaseURL, []auth.Option{
		auth.WithKeyring(keyring),
		auth.WithAuthName(entry.AuthName),
	}, apiOpts...)
	return client, cleanup, nil
}

// buildKeyring keeps session tokens in memory for the lifetime of the
// process and persistent tokens in the configured backend.
func buildKeyring(ts config.TokenStore) (*tokenstore.Keyring, func(), error) {
	cleanup := func() {}
	switch {
	case ts.RedisAddr != "":
		rs, err := tokenstore.NewRedis(tokenstore.RedisConfig{
			Addr: ts.RedisAddr,
			DB:   ts.RedisDB,
		}, log.WithComponent("tokenstore"))
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { _ = rs.Close() }
		return tokenstore.NewKeyring(tokenstore.NewMemory(), rs), cleanup, nil
	case ts.Path != "":
		return tokenstore.NewKeyring(tokenstore.NewMemory(), tokenstore.NewFile(ts.Path)), cleanup, nil
	default:
		return tokenstore.NewMemoryKeyring(), cleanup, nil
	}
}

func cmdLogin(ctx context.Context, client *auth.Client) error {
	username := os.Getenv("LUX_USERNAME")
	password := os.Getenv("LUX_PASSWORD")
	if username == "" || password == "" {
		return fmt.Errorf("login needs LUX_USERNAME and LUX_PASSWORD")
	}
	if err := client.Login(ctx, map[string]string{
		"username": username,
		"password": password,
	}); err != nil {
		return err
	}
	fmt.Println("logged in")
	return nil
}

func cmdRequest(ctx context.Context, client *auth.Client, method, target string, data any) error {
	opts := api.Options{}
	if strings.HasPrefix(target, "/") {
		opts.Path = target
	} else {
		opts.Name = target
	}
	res, err := client.Request(ctx, method, opts, data)
	if err != nil {
		return err
	}
	return printJSON(res.Body)
}

func cmdUser(client *auth.Client) error {
	u := client.User()
	if u == nil {
		return fmt.Errorf("not authenticated")
	}
	out, err := json.MarshalIndent(u.Extra, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func cmdResolve(ctx context.Context, client *auth.Client, name string) error {
	resolver := client.API().Resolver()
	url, err := resolver.Resolve(ctx, client.BaseURL(), name)
	if err != nil {
		return err
	}
	fmt.Println(url)
	return nil
}

// printJSON re-indents JSON bodies and passes everything else through.
func printJSON(body []byte) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Println(string(body))
		return nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
