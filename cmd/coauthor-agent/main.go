// Command coauthor-agent runs one or more editing agents against a shared
// document store and chat service until each reaches its edit limit, the
// document closes, the budget runs out, or the process is interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dusk-indust/coauthor/internal/agent"
	"github.com/dusk-indust/coauthor/internal/config"
	"github.com/dusk-indust/coauthor/internal/llm"
	"github.com/dusk-indust/coauthor/internal/remote"
	"github.com/dusk-indust/coauthor/internal/retry"
)

// CLI flags parsed from command line. Set flags override file and environment.
type cliFlags struct {
	ConfigPath string
	Agents     int
	Role       string
	MaxEdits   int
	DocumentID string
	LogLevel   string
	LogFormat  string
	Verbose    bool
	Version    bool
}

// version is set at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Getenv, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) error {
	var flags cliFlags

	fs := flag.NewFlagSet("coauthor-agent", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&flags.ConfigPath, "config", "", "optional YAML config file (default $AGENT_CONFIG)")
	fs.IntVar(&flags.Agents, "agents", 1, "number of agents to run in this process")
	fs.StringVar(&flags.Role, "role", "", "role name used until the document assigns one")
	fs.IntVar(&flags.MaxEdits, "max-edits", 0, "accepted edits per agent before stopping")
	fs.StringVar(&flags.DocumentID, "document-id", "", "target document (default: the store's current document)")
	fs.StringVar(&flags.LogLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&flags.LogFormat, "log-format", "", "text or json")
	fs.BoolVar(&flags.Verbose, "verbose", false, "print a status line per cycle")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Fprintln(stdout, version)
		return nil
	}

	cfg, err := config.Load(flags.ConfigPath, getenv)
	if err != nil {
		return err
	}
	applyFlags(fs, &flags, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}

	model, err := llm.NewOpenAI(llm.Settings{
		APIKey:      cfg.ModelAPIKey,
		BaseURL:     cfg.ModelBaseURL,
		Model:       cfg.Model,
		Temperature: cfg.ModelTemperature,
		MaxTokens:   cfg.ModelMaxTokens,
	})
	if err != nil {
		return err
	}

	var observe func(agent.Event)
	var wg sync.WaitGroup
	if flags.Verbose {
		reporter := agent.NewEventReporter()
		observe = reporter.Emit
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range reporter.Subscribe() {
				fmt.Fprintln(stdout, agent.FormatEvent(ev))
			}
		}()
		defer func() {
			reporter.Close()
			wg.Wait()
		}()
	}

	logger.Info("starting agents", "count", cfg.Agents, "model", cfg.Model,
		"text_service", cfg.TextServiceURL, "chat_service", cfg.ChatServiceURL)

	states, err := agent.RunSwarm(ctx, cfg.Agents, newFactory(cfg, model, logger, observe))
	for _, st := range states {
		if st.AgentID == "" {
			continue
		}
		logger.Info("agent summary",
			"agent_id", st.AgentID,
			"role", st.RoleName,
			"completed", st.CompletedEdits,
			"edit_limit", st.EditLimit,
			"cycles", st.Cycles,
			"reason", st.StopReason)
	}
	return err
}

// applyFlags copies explicitly set flags onto cfg.
func applyFlags(fs *flag.FlagSet, flags *cliFlags, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "agents":
			cfg.Agents = flags.Agents
		case "role":
			cfg.Role = flags.Role
		case "max-edits":
			cfg.MaxEdits = flags.MaxEdits
		case "document-id":
			cfg.DocumentID = flags.DocumentID
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		case "log-format":
			cfg.LogFormat = flags.LogFormat
		}
	})
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// newFactory builds each agent with its own identity, state and HTTP client.
// The model client is shared.
func newFactory(cfg *config.Config, model llm.Client, logger *slog.Logger, observe func(agent.Event)) agent.Factory {
	servicePolicy := retry.Policy{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
	}
	modelPolicy := servicePolicy
	modelPolicy.MaxDelay = cfg.ModelRetryMaxDelay

	return func(i int) (*agent.Controller, error) {
		id := agent.NewAgentID()
		agentLogger := logger.With("agent", i)

		client := remote.NewHTTPClient(cfg.TextServiceURL, cfg.ChatServiceURL,
			remote.WithToken(cfg.APIToken),
			remote.WithTimeout(cfg.HTTPTimeout),
			remote.WithRetryPolicy(servicePolicy),
			remote.WithLogger(agentLogger, id),
		)
		proposer := agent.NewProposer(model, modelPolicy, agentLogger.With("agent_id", id))

		opts := []agent.Option{agent.WithLogger(agentLogger)}
		if observe != nil {
			opts = append(opts, agent.WithObserver(observe))
		}
		return agent.NewController(
			agent.NewAgentState(id, cfg.Role, cfg.MaxEdits),
			client, client, proposer,
			agent.Settings{
				DocumentID:      cfg.DocumentID,
				CycleDelay:      cfg.CycleDelay,
				ChatFetchLimit:  cfg.ChatFetchLimit,
				SummaryMessages: cfg.ChatSummaryMax,
				ShutdownGrace:   cfg.ShutdownGrace,
			},
			opts...,
		)
	}
}
