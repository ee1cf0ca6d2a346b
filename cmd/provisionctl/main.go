package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/rservers/RightClaw-Build/internal/config"
	"github.com/rservers/RightClaw-Build/internal/db"
	"github.com/rservers/RightClaw-Build/internal/inventory"
	"github.com/rservers/RightClaw-Build/internal/logging"
	"github.com/rservers/RightClaw-Build/internal/model"
	"github.com/rservers/RightClaw-Build/internal/probe"
	"github.com/rservers/RightClaw-Build/internal/provisionctl"
	"github.com/rservers/RightClaw-Build/internal/remote"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "probe":
		fs := flag.NewFlagSet("probe", flag.ExitOnError)
		port := fs.Int("port", probe.DefaultPort, "TCP port to dial")
		maxWait := fs.Duration("max-wait", cfg.BootMaxWait, "Give up after this long")
		interval := fs.Duration("interval", cfg.BootPollInterval, "Delay between attempts")
		fs.Parse(os.Args[2:])

		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "Usage: provisionctl probe [-port N] [-max-wait D] [-interval D] <address>")
			os.Exit(1)
		}
		if *interval <= 0 || *maxWait <= 0 {
			fmt.Fprintln(os.Stderr, "Error: -interval and -max-wait must be positive")
			os.Exit(1)
		}

		logger := logging.New(os.Stderr, "provisionctl", cfg.LogLevel)
		p := probe.New(logger, probe.WithDialTimeout(cfg.ProbeDialTimeout))
		res := provisionctl.Probe(ctx, p, probe.Params{
			Address:  fs.Arg(0),
			Port:     *port,
			MaxWait:  *maxWait,
			Interval: *interval,
		}, os.Stdout)
		if !res.Ready {
			os.Exit(2)
		}

	case "exec":
		fs := flag.NewFlagSet("exec", flag.ExitOnError)
		password := fs.String("password", os.Getenv("RIGHTCLAW_PASSWORD"), "Password used when the deploy key is absent (default $RIGHTCLAW_PASSWORD)")
		timeout := fs.Duration("timeout", cfg.RemoteCommandTimeout, "Command timeout")
		transportKind := fs.String("transport", cfg.RemoteTransport, "Remote transport: exec or native")
		fs.Parse(os.Args[2:])

		if fs.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "Usage: provisionctl exec [-password P] [-timeout D] [-transport T] <address> <command>")
			os.Exit(1)
		}

		transport, err := remote.NewTransport(*transportKind, cfg.SSHConnectTimeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger := logging.New(os.Stderr, "provisionctl", cfg.LogLevel)
		cred := cfg.Credential().WithPassword(*password)

		code, err := provisionctl.Exec(ctx, remote.NewExecutor(transport, logger), fs.Arg(0), cred, fs.Arg(1), *timeout, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(code)

	case "seed":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: provisionctl seed <serviceid> <address>")
			os.Exit(1)
		}
		serviceID, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid service id %q\n", os.Args[2])
			os.Exit(1)
		}
		if cfg.CoreDatabaseURL == "" {
			fmt.Fprintln(os.Stderr, "Error: CORE_DATABASE_URL is required")
			os.Exit(1)
		}

		pool, err := db.NewCorePool(ctx, cfg.CoreDatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		addr, err := provisionctl.Seed(ctx, inventory.NewStore(pool), serviceID, os.Args[3])
		pool.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("service %d -> %s\n", serviceID, addr)

	case "replay":
		fs := flag.NewFlagSet("replay", flag.ExitOnError)
		file := fs.String("f", "", "Path to the hook payload JSON file (required)")
		kindFlag := fs.String("event", string(model.EventCreated), "Event kind: created, suspended or unsuspended")
		wait := fs.Bool("wait", true, "Wait for the workflow to finish")
		dump := fs.Bool("dump", cfg.DebugDumpEvents, "Dump the payload to the event log")
		fs.Parse(os.Args[2:])

		if *file == "" {
			fmt.Fprintln(os.Stderr, "Error: -f flag is required")
			fs.Usage()
			os.Exit(1)
		}
		kind, ok := model.ParseEventKind(*kindFlag)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown event %q\n", *kindFlag)
			os.Exit(1)
		}
		if err := cfg.Validate("provisionctl"); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid config: %v\n", err)
			os.Exit(1)
		}

		settings := cfg.Settings()
		settings.DumpEvent = *dump
		ev, err := provisionctl.LoadEvent(*file, kind, settings)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		dialOpts, err := cfg.TemporalClientOptions()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		tc, err := temporalclient.Dial(dialOpts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: connect to temporal: %v\n", err)
			os.Exit(1)
		}
		defer tc.Close()

		res, err := provisionctl.Replay(ctx, tc, ev, settings, *wait)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("workflow %s (run %s)\n", res.WorkflowID, res.RunID)
		if outcome := res.Outcome(); outcome != "" {
			fmt.Printf("outcome: %s\n", outcome)
		}

	case "send":
		fs := flag.NewFlagSet("send", flag.ExitOnError)
		file := fs.String("f", "", "Path to the hook payload JSON file (required)")
		apiURL := fs.String("api", "http://localhost"+cfg.HTTPListenAddr, "Event API base URL")
		kindFlag := fs.String("event", string(model.EventCreated), "Event kind: created, suspended or unsuspended")
		fs.Parse(os.Args[2:])

		if *file == "" {
			fmt.Fprintln(os.Stderr, "Error: -f flag is required")
			fs.Usage()
			os.Exit(1)
		}
		payload, err := os.ReadFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		started, err := provisionctl.NewClient(*apiURL, cfg.APIKey).SendEvent(*kindFlag, payload)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if started == nil {
			fmt.Println("ignored: not an OpenClaw product")
			return
		}
		fmt.Printf("started %s: %s (run %s)\n", started.Workflow, started.WorkflowID, started.RunID)

	case "migrate":
		fs := flag.NewFlagSet("migrate", flag.ExitOnError)
		dir := fs.String("dir", "", "Migration files directory (default: embedded)")
		fs.Parse(os.Args[2:])

		if cfg.CoreDatabaseURL == "" {
			fmt.Fprintln(os.Stderr, "Error: CORE_DATABASE_URL is required")
			os.Exit(1)
		}
		start := time.Now()
		if err := db.RunMigrations(cfg.CoreDatabaseURL, *dir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("migrations applied in %s\n", time.Since(start).Round(time.Millisecond))

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage:
  provisionctl probe [-port N] [-max-wait D] [-interval D] <address>
  provisionctl exec [-password P] [-timeout D] [-transport T] <address> <command>
  provisionctl replay -f <event.json> [-event kind] [-wait=false] [-dump]
  provisionctl send -f <event.json> [-event kind] [-api URL]
  provisionctl seed <serviceid> <address>
  provisionctl migrate [-dir path]

Commands:
  probe     Wait for an instance to accept SSH connections from this host
  exec      Run one command with the worker's key/password policy
  replay    Start a workflow directly from a saved hook payload
  send      Post a saved hook payload to a running event API
  seed      Record a service's VM address in fleet_instances
  migrate   Apply database migrations

Exit status of exec is the remote exit status, or 255 when the command
could not be run.`)
}
