// ostimer-sim plays YAML scenarios against the OS timer on a simulated MK22
// and reports whether their expectations held.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"ostimer/host/monitor"
	"ostimer/host/scenario"
)

var (
	traceOut   = flag.String("trace", "", "Write the framed event trace to this file")
	check      = flag.Bool("check", false, "Check the event trace with the trace monitor")
	maxLate    = flag.Uint64("max-late", monitor.DefaultMaxLate, "Wake slack in ticks for -check")
	verbose    = flag.Bool("verbose", false, "Enable verbose output")
	noProgress = flag.Bool("no-progress", false, "Disable the progress bar")
)

// monitorWriter feeds written bytes to a trace monitor
type monitorWriter struct {
	mon *monitor.Monitor
}

func (w monitorWriter) Write(p []byte) (int, error) {
	w.mon.Feed(p)
	return len(p), nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] scenario.yaml...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var trace io.Writer
	if *traceOut != "" {
		f, err := os.Create(*traceOut)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		trace = f
	}

	failed := 0
	for _, path := range flag.Args() {
		ok, err := runFile(ctx, logger, path, trace)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			failed++
		}
	}

	if failed > 0 {
		fmt.Printf("%d of %d scenarios failed\n", failed, flag.NArg())
		os.Exit(1)
	}
}

func runFile(ctx context.Context, logger *slog.Logger, path string, trace io.Writer) (bool, error) {
	sc, err := scenario.LoadFile(path)
	if err != nil {
		return false, err
	}

	opts := scenario.Options{Trace: trace, Logger: logger}

	var mon *monitor.Monitor
	if *check {
		mon = monitor.New(logger, *maxLate)
		w := io.Writer(monitorWriter{mon})
		if trace != nil {
			w = io.MultiWriter(trace, w)
		}
		opts.Trace = w
	}

	// The bar only goes to an interactive stderr
	var bar *progressbar.ProgressBar
	if !*noProgress && term.IsTerminal(int(os.Stderr.Fd())) {
		opts.Progress = func(done, total uint64) {
			if bar == nil {
				bar = progressbar.Default(int64(total), sc.Name)
			}
			bar.Set64(int64(done))
		}
	}

	res, err := scenario.Run(ctx, sc, opts)
	if bar != nil {
		bar.Close()
	}
	if err != nil {
		return false, err
	}

	ok := res.OK()
	var report monitor.Report
	if mon != nil {
		report = mon.Report()
		ok = ok && report.OK()
	}

	status := "PASS"
	if !ok {
		status = "FAIL"
	}
	fmt.Printf("%s %s: time=%d wakes=%d overflows=%d forced=%d switches=%d\n",
		status, res.Name, res.Time, len(res.Wakes), res.Timer.Overflows, res.Timer.Forced, res.Switches)
	for _, f := range res.Failures {
		fmt.Printf("     %v\n", f)
	}
	if mon != nil {
		fmt.Printf("     trace: %v\n", report)
	}
	return ok, nil
}
