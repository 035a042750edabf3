package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/awksedgreep/snmpmgr/snmp"
)

// createEngine builds a request engine from the current configuration.
func createEngine() *snmp.Engine {
	return snmp.NewEngine(buildEngineOptions()...)
}

// buildEngineOptions builds engine options from the current configuration.
func buildEngineOptions() []snmp.EngineOption {
	opts := []snmp.EngineOption{
		snmp.WithPort(port),
		snmp.WithCommunity(community),
		snmp.WithTimeout(timeout),
		snmp.WithRetries(retries),
	}

	switch strings.ToLower(version) {
	case "1", "v1":
		opts = append(opts, snmp.WithVersion(snmp.Version1))
	default:
		opts = append(opts, snmp.WithVersion(snmp.Version2c))
	}

	if verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		opts = append(opts, snmp.WithLogger(logger))
	}

	return opts
}

// commandContext returns a context cancelled on SIGINT/SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// checkTarget verifies that a target is specified.
func checkTarget() error {
	if target == "" {
		return fmt.Errorf("target is required (use -t or --target)")
	}
	return nil
}

// resolveOIDName renders an OID symbolically unless numeric output was
// requested.
func resolveOIDName(oid snmp.OID) string {
	if numeric {
		return oid.String()
	}
	if name, ok := snmp.DefaultMIB().Reverse(oid); ok {
		return name
	}
	return oid.String()
}
