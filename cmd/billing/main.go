/*
main.go - Command-line client

PURPOSE:
  Loads the four collections from a billing server through the sync
  coordinator and prints views as JSON. A load that partly fails still
  prints, from whatever was loaded, and reports the stale collections on
  stderr.

COMMANDS:
  status                         Sync state of every collection
  dashboard                      Totals, recent jobs, top locations
  statistics                     Breakdowns and leaderboards
  report summary|detailed|invoice
  pay <assignment-id> [false]    Set (or clear) the paid flag
  watch                          Resync every -interval until interrupted

COMMAND-LINE FLAGS:
  -server       Base URL of the API (default: http://localhost:8080/api)
  -timeout      Per-request timeout (default: 5s)
  -interpreter  Interpreter id ("all" for everyone on dashboard/statistics)
  -start, -end  Report period, YYYY-MM-DD (end is inclusive)
  -interval     Resync interval for watch (default: 1m)

EXAMPLES:
  billing -interpreter=int-ana -start=2025-03-01 -end=2025-03-31 report invoice
  billing statistics

SEE ALSO:
  - reconcile/coordinator.go: Sync state machine
  - remote/client.go: HTTP client
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/warp/interpreter-billing/billing"
	"github.com/warp/interpreter-billing/reconcile"
	"github.com/warp/interpreter-billing/remote"
	"github.com/warp/interpreter-billing/wire"
)

type options struct {
	server      string
	timeout     time.Duration
	interpreter string
	start, end  string
	interval    time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.server, "server", "http://localhost:8080/api", "Base URL of the billing API")
	flag.DurationVar(&opts.timeout, "timeout", remote.DefaultTimeout, "Per-request timeout")
	flag.StringVar(&opts.interpreter, "interpreter", billing.AllInterpreters, "Interpreter id")
	flag.StringVar(&opts.start, "start", "", "Report start date (YYYY-MM-DD)")
	flag.StringVar(&opts.end, "end", "", "Report end date (YYYY-MM-DD, inclusive)")
	flag.DurationVar(&opts.interval, "interval", time.Minute, "Resync interval for watch")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	coord := reconcile.New(
		remote.New(opts.server, opts.timeout),
		billing.NewWorkingSet(),
		reconcile.Config{RemoteTimeout: opts.timeout},
	)
	defer coord.Close()

	ctx := context.Background()
	if err := run(ctx, coord, opts, args); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, coord *reconcile.Coordinator, opts options, args []string) error {
	if args[0] == "watch" {
		return watch(coord, opts.interval)
	}

	if _, err := coord.LoadAll(ctx); err != nil {
		var partial *billing.PartialSyncError
		if !errors.As(err, &partial) {
			return err
		}
		log.Printf("[Sync] Warning: %v", err)
	}
	ws := coord.WorkingSet()

	switch args[0] {
	case "status":
		return printJSON(statusView(coord))

	case "dashboard":
		d, err := ws.Engine().Dashboard(ws.Assignments(), opts.interpreter)
		if err != nil {
			return err
		}
		return printJSON(wire.FromDashboard(d))

	case "statistics":
		s, err := ws.Engine().Statistics(ws.Assignments(), opts.interpreter)
		if err != nil {
			return err
		}
		return printJSON(wire.FromStatistics(s))

	case "report":
		if len(args) < 2 {
			return errors.New("usage: report summary|detailed|invoice")
		}
		req, err := reportRequest(args[1], opts)
		if err != nil {
			return err
		}
		rep, err := ws.Engine().Generate(req, ws.Assignments())
		if err != nil {
			return err
		}
		return printJSON(wire.FromReport(rep))

	case "pay":
		if len(args) < 2 {
			return errors.New("usage: pay <assignment-id> [true|false]")
		}
		paid := true
		if len(args) > 2 {
			v, err := strconv.ParseBool(args[2])
			if err != nil {
				return fmt.Errorf("paid flag: %w", err)
			}
			paid = v
		}
		if err := coord.SetPaidStatus(ctx, args[1], paid); err != nil {
			return err
		}
		a, ok := ws.Assignment(args[1])
		if !ok {
			return &billing.RecordNotFoundError{Collection: billing.CollectionAssignments, ID: args[1]}
		}
		return printJSON(wire.FromAssignment(a))

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func reportRequest(kind string, opts options) (billing.ReportRequest, error) {
	k, err := billing.ParseReportKind(kind)
	if err != nil {
		return billing.ReportRequest{}, err
	}
	req := billing.ReportRequest{Kind: k, InterpreterID: opts.interpreter}
	if opts.start != "" {
		if req.StartDate, err = wire.ParseDate(opts.start); err != nil {
			return billing.ReportRequest{}, fmt.Errorf("start date: %w", err)
		}
	}
	if opts.end != "" {
		if req.EndDate, err = wire.ParseDate(opts.end); err != nil {
			return billing.ReportRequest{}, fmt.Errorf("end date: %w", err)
		}
	}
	return req, nil
}

// collectionStatus is the JSON form of reconcile.Status.
type collectionStatus struct {
	State    string `json:"state"`
	LoadedAt string `json:"loadedAt,omitempty"`
	Error    string `json:"error,omitempty"`
	Count    int    `json:"count"`
}

func statusView(coord *reconcile.Coordinator) map[billing.Collection]collectionStatus {
	out := make(map[billing.Collection]collectionStatus, len(billing.Collections))
	for _, coll := range billing.Collections {
		st := coord.Status(coll)
		cs := collectionStatus{State: string(st.State), Count: coord.WorkingSet().Len(coll)}
		if !st.LoadedAt.IsZero() {
			cs.LoadedAt = wire.FormatTime(st.LoadedAt)
		}
		if st.Err != nil {
			cs.Error = st.Err.Error()
		}
		out[coll] = cs
	}
	return out
}

func watch(coord *reconcile.Coordinator, interval time.Duration) error {
	s := reconcile.NewScheduler(coord)
	s.Interval = interval
	s.OnSync = func(_ billing.Snapshot, _ error) {
		if err := printJSON(statusView(coord)); err != nil {
			log.Printf("[Scheduler] %v", err)
		}
	}
	s.Start()
	defer s.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
