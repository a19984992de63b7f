// Command swapctl talks to a running swapbox: it sends orders the way the
// kiosk does and tails the price and status publications.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/swapbox/internal/apm"
	"github.com/fd1az/swapbox/internal/config"
	"github.com/fd1az/swapbox/internal/logger"
)

var version = "dev"

const usage = `usage: swapctl <command> [flags]

commands:
  buy      send a buy order and print the reply
  sell     send a sell order and print the reply
  tail     print publications for a topic (priceticker, status or all)
  version  print the version
`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every command.
type globalFlags struct {
	transport string
	endpoint  string
	timeout   time.Duration
	trace     bool
	logLevel  string
}

func (g *globalFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.transport, "transport", envOr("SWAPBOX_TRANSPORT", config.TransportZMQ), "zmq or websocket")
	fs.StringVar(&g.endpoint, "endpoint", "", "broker endpoint (default depends on command and transport)")
	fs.DurationVar(&g.timeout, "timeout", 5*time.Minute, "how long to wait for a reply")
	fs.BoolVar(&g.trace, "trace", false, "print spans to stdout")
	fs.StringVar(&g.logLevel, "log-level", "warn", "log level")
}

func run(ctx context.Context, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "buy", "sell":
		return runOrder(ctx, cmd, args, out)
	case "tail":
		return runTail(ctx, args, out)
	case "version":
		fmt.Fprintf(out, "swapctl %s\n", version)
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runOrder(ctx context.Context, method string, args []string, out io.Writer) error {
	var g globalFlags
	fs := flag.NewFlagSet(method, flag.ContinueOnError)
	g.register(fs)
	amount := fs.String("amount", "", "token amount in whole units")
	minEth := fs.String("min-eth", "0", "minimum ETH to receive, e.g. 0.05")
	address := fs.String("address", "", "destination address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	payload, err := buildOrder(method, *amount, *minEth, *address)
	if err != nil {
		return err
	}

	log := logger.New(os.Stderr, logger.ParseLevel(g.logLevel), "swapctl", apm.TraceIDFromContext)
	stop := startTracing(g.trace)
	defer stop()

	client, err := dialRequester(ctx, g.transport, orEndpoint(g.endpoint, g.transport, "orders"))
	if err != nil {
		return err
	}
	defer client.Close()

	tracer := apm.NewTracer("swapctl")
	ctx, span := tracer.StartSpanFromContext(ctx, "swapctl."+method)
	defer span.End()

	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	log.Debug(reqCtx, "sending order", "transport", g.transport, "payload", string(payload))
	reply, err := client.Request(reqCtx, payload)
	if err != nil {
		span.NoticeError(err)
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("no reply within %s (the broker drops orders while the node is not ready)", g.timeout)
		}
		return err
	}

	fmt.Fprintln(out, string(reply))
	return nil
}

func runTail(ctx context.Context, args []string, out io.Writer) error {
	var g globalFlags
	fs := flag.NewFlagSet("tail", flag.ContinueOnError)
	g.register(fs)
	topic := fs.String("topic", "all", "priceticker, status or all")
	count := fs.Int("n", 0, "stop after n publications (0 = until interrupted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *topic == "all" {
		*topic = ""
	}

	log := logger.New(os.Stderr, logger.ParseLevel(g.logLevel), "swapctl", apm.TraceIDFromContext)
	stop := startTracing(g.trace)
	defer stop()

	pubs, closeFn, err := dialTail(ctx, g.transport, orEndpoint(g.endpoint, g.transport, *topic), *topic, log)
	if err != nil {
		return err
	}
	defer closeFn()

	seen := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case p, ok := <-pubs:
			if !ok {
				return nil
			}
			fmt.Fprintf(out, "%s %s\n", p.topic, p.payload)
			seen++
			if *count > 0 && seen >= *count {
				return nil
			}
		}
	}
}

func startTracing(enabled bool) func() {
	if !enabled {
		return func() {}
	}
	tp := apm.NewConsoleTraceProvider()
	return func() { _ = tp.Stop() }
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
