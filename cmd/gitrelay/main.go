package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"gitrelay/internal/config"
	"gitrelay/internal/history"
	"gitrelay/internal/log"
	"gitrelay/internal/notify"
	"gitrelay/internal/registry"
	"gitrelay/internal/tui/watch"
	"gitrelay/internal/webhook"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	case "serve", "start":
		return runServe(args)
	case "repo":
		return runRepoNoun(args)
	case "history":
		return runHistory(args)
	case "watch":
		return runWatch(args)
	case "info":
		return runInfo(args)
	case "version", "--version":
		fmt.Printf("gitrelay %s (%s)\n", version, gitCommit)
		return 0
	case "help", "--help", "-h":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Print(`gitrelay: forge webhook to chat notification relay

Usage:
  gitrelay serve [--config path]            Run the webhook relay
  gitrelay repo add <url> <secret> <dest>   Register a repository
  gitrelay repo remove <url>                Unregister a repository
  gitrelay repo list                        List registrations
  gitrelay history [-n N]                   Show recent delivery outcomes
  gitrelay watch                            Live delivery monitor
  gitrelay info                             Webhook setup instructions
  gitrelay version                          Print version

All commands accept --config (default: config.yaml).
`)
}

// configFlag registers the shared --config flag on a flag set.
func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", "config.yaml", "Path to config file")
}

func loadConfig(path string) (*config.Config, int) {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, 1
	}
	return cfg, 0
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := configFlag(fs)
	_ = fs.Parse(args)

	cfg, code := loadConfig(*configPath)
	if cfg == nil {
		return code
	}

	log.Setup(cfg.LogLevel)
	logger := log.WithComponent("main")

	regs, err := registry.Open(cfg.Storage.RegistrationsPath)
	if err != nil {
		logger.Error("failed to open registrations", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ledger *history.Store
	if cfg.Storage.HistoryPath != "" {
		ledger, err = history.Open(ctx, cfg.Storage.HistoryPath)
		if err != nil {
			logger.Error("failed to open delivery history", "error", err)
			return 1
		}
		defer ledger.Close()
	}

	transport := notify.NewHTTPTransport(
		cfg.Transport.APIURL,
		cfg.Transport.AccessToken,
		time.Duration(cfg.Transport.TimeoutMS)*time.Millisecond,
	)
	dispatcher := notify.NewDispatcher(transport, cfg.Transport.Adapters)
	processor := webhook.NewProcessor(regs, dispatcher, ledger)
	server := webhook.NewServer(cfg.Server, processor)

	logger.Info("gitrelay starting", "version", version, "listen", cfg.Server.Listen)

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", "error", err)
		return 1
	}

	logger.Info("gitrelay stopped")
	return 0
}

func runRepoNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: gitrelay repo <add|remove|list> ...")
		return 1
	}

	verb := args[0]
	rest := args[1:]

	switch verb {
	case "add":
		return runRepoAdd(rest)
	case "remove":
		return runRepoRemove(rest)
	case "list":
		return runRepoList(rest)
	default:
		fmt.Fprintf(os.Stderr, "Unknown repo command: %s\n", verb)
		return 1
	}
}

func openRegistry(configPath string) (*registry.Store, int) {
	cfg, code := loadConfig(configPath)
	if cfg == nil {
		return nil, code
	}
	log.Setup(cfg.LogLevel)

	regs, err := registry.Open(cfg.Storage.RegistrationsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, 1
	}
	return regs, 0
}

func runRepoAdd(args []string) int {
	fs := flag.NewFlagSet("repo add", flag.ExitOnError)
	configPath := configFlag(fs)
	_ = fs.Parse(args)

	rest := fs.Args()
	if len(rest) != 3 {
		fmt.Fprintln(os.Stderr, "Usage: gitrelay repo add <repo_url> <secret> <destination>")
		return 1
	}
	repoURL, secret, destination := rest[0], rest[1], rest[2]

	regs, code := openRegistry(*configPath)
	if regs == nil {
		return code
	}

	if err := regs.Register(repoURL, secret, destination); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to register: %v\n", err)
		return 1
	}

	fmt.Printf("Registered %s -> %s\n", repoURL, destination)
	return 0
}

func runRepoRemove(args []string) int {
	fs := flag.NewFlagSet("repo remove", flag.ExitOnError)
	configPath := configFlag(fs)
	_ = fs.Parse(args)

	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: gitrelay repo remove <repo_url>")
		return 1
	}

	regs, code := openRegistry(*configPath)
	if regs == nil {
		return code
	}

	if err := regs.Unregister(rest[0]); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unregister: %v\n", err)
		return 1
	}

	fmt.Printf("Unregistered %s\n", rest[0])
	return 0
}

func runRepoList(args []string) int {
	fs := flag.NewFlagSet("repo list", flag.ExitOnError)
	configPath := configFlag(fs)
	_ = fs.Parse(args)

	regs, code := openRegistry(*configPath)
	if regs == nil {
		return code
	}

	entries := regs.List()
	if len(entries) == 0 {
		fmt.Println("No repositories registered.")
		return 0
	}

	for i, reg := range entries {
		fmt.Printf("%d. %s\n", i+1, reg.RepoURL)
		fmt.Printf("   destination: %s\n", reg.Destination)
		fmt.Printf("   secret:      %s (fingerprint)\n", registry.SecretFingerprint(reg.Secret))
		fmt.Printf("   created:     %s\n", reg.CreatedAt.Format(time.RFC3339))
	}
	return 0
}

func openHistory(configPath string) (*history.Store, int) {
	cfg, code := loadConfig(configPath)
	if cfg == nil {
		return nil, code
	}
	log.Setup(cfg.LogLevel)

	if cfg.Storage.HistoryPath == "" {
		fmt.Fprintln(os.Stderr, "Error: storage.history_path is not configured")
		return nil, 1
	}

	ledger, err := history.Open(context.Background(), cfg.Storage.HistoryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, 1
	}
	return ledger, 0
}

func runHistory(args []string) int {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := configFlag(fs)
	limit := fs.Int("n", 20, "Number of entries to show")
	_ = fs.Parse(args)

	ledger, code := openHistory(*configPath)
	if ledger == nil {
		return code
	}
	defer ledger.Close()

	recs, err := ledger.Recent(context.Background(), *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(recs) == 0 {
		fmt.Println("No deliveries recorded.")
		return 0
	}

	for _, rec := range recs {
		fmt.Printf("%s  %-8s %-12s %s  %s\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Status, rec.Event, rec.Repo, rec.Detail)
	}
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := configFlag(fs)
	_ = fs.Parse(args)

	ledger, code := openHistory(*configPath)
	if ledger == nil {
		return code
	}
	defer ledger.Close()

	program := tea.NewProgram(watch.New(ledger), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runInfo(args []string) int {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	configPath := configFlag(fs)
	_ = fs.Parse(args)

	cfg, code := loadConfig(*configPath)
	if cfg == nil {
		return code
	}

	fmt.Printf(`Webhook setup

URL:    http://<your-server>:%s/webhook
Method: POST, content type application/json

Forge configuration:
  1. Open the repository settings and add a webhook
  2. Set the URL above
  3. Set the secret to the one used with 'gitrelay repo add'
  4. Enable the Push, Pull Request and Issues events

Headers expected on each request:
  %s      event kind (push, pull_request, issues)
  %s  hex HMAC-SHA256 of the body

The destination passed to 'gitrelay repo add' is either a bare group ID
or a full session origin like aiocqhttp:GroupMessage:123456789.
`, portOf(cfg.Server.Listen), webhook.EventHeader, webhook.SignatureHeader)
	return 0
}

// portOf extracts the port from a listen address, for display only.
func portOf(listen string) string {
	_, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	return port
}
