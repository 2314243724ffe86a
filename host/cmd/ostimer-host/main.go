package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"

	"github.com/google/shlex"

	"ostimer/host/mcu"
	"ostimer/host/monitor"
	"ostimer/host/serial"
	"ostimer/protocol"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", serial.DefaultBaud, "Baud rate of the trace UART")
	replay  = flag.String("replay", "", "Check a recorded trace file instead of a live board")
	record  = flag.String("record", "", "Save the raw trace received from the board to this file")
	maxLate = flag.Uint64("max-late", monitor.DefaultMaxLate, "Wake slack in ticks before a wake counts as late")
	verbose = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	mon := monitor.New(logger, *maxLate)

	if *replay != "" {
		if err := replayFile(ctx, mon, *replay); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		report := mon.Report()
		fmt.Println(report)
		if !report.OK() {
			os.Exit(1)
		}
		return
	}

	if err := runLive(ctx, logger, mon); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func replayFile(ctx context.Context, mon *monitor.Monitor, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening trace: %w", err)
	}
	defer f.Close()
	return mon.Run(ctx, f)
}

func runLive(ctx context.Context, logger *slog.Logger, mon *monitor.Monitor) error {
	fmt.Println("OS timer trace monitor")
	fmt.Println("======================")
	fmt.Println()

	conn := mcu.NewMCU(logger)
	fmt.Printf("Connecting to board on %s...\n", *device)
	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	if err := conn.ConnectWithConfig(cfg); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	if *record != "" {
		f, err := os.Create(*record)
		if err != nil {
			return fmt.Errorf("creating recording: %w", err)
		}
		defer f.Close()
		conn.RecordTo(f)
	}

	var watch atomic.Bool
	mon.OnEvent = func(ev protocol.Event) {
		if watch.Load() {
			fmt.Printf("  %v\n", ev)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	streamErr := make(chan error, 1)
	go func() {
		streamErr <- conn.Stream(ctx, mon)
		cancel()
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	for {
		fmt.Print("> ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Println()
			return <-streamErr
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}

		args, err := shlex.Split(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return nil

		case "help", "?":
			printHelp()

		case "stats":
			printReport(mon.Report())

		case "last":
			n := 10
			if len(args) > 1 {
				if n, err = strconv.Atoi(args[1]); err != nil || n <= 0 {
					fmt.Fprintf(os.Stderr, "Error: bad count %q\n", args[1])
					continue
				}
			}
			for _, ev := range mon.Recent(n) {
				fmt.Printf("  %v\n", ev)
			}

		case "watch":
			on := len(args) < 2 || args[1] == "on"
			watch.Store(on)
			fmt.Printf("Event display %s\n", map[bool]string{true: "on", false: "off"}[on])

		default:
			fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", args[0])
		}
	}
}

func printReport(r monitor.Report) {
	fmt.Println()
	fmt.Printf("  events:     %d (%d frames, %d bad, %d lost, %d invalid)\n", r.Events, r.Frames, r.BadFrames, r.Lost, r.Invalid)
	fmt.Printf("  overflows:  %d\n", r.Overflows)
	fmt.Printf("  deadlines:  %d (%d matched, %d forced)\n", r.Deadlines, r.Matches, r.Forced)
	fmt.Printf("  wakes:      %d (worst %d ticks late)\n", r.Wakes, r.MaxLate)
	fmt.Printf("  dropped:    %d\n", r.Dropped)
	fmt.Printf("  violations: %d\n", r.Violations)
	fmt.Println()
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  help           - Show this help message")
	fmt.Println("  stats          - Show trace counters and violations")
	fmt.Println("  last [n]       - Show the last n events (default 10)")
	fmt.Println("  watch [on|off] - Print events as they arrive")
	fmt.Println("  quit/exit/q    - Exit the program")
	fmt.Println()
}
