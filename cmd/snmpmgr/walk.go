// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/awksedgreep/snmpmgr/snmp"
	"github.com/spf13/cobra"
)

var walkCmd = &cobra.Command{
	Use:   "walk OID",
	Short: "Walk an SNMP MIB subtree",
	Long: `Walk an SNMP MIB subtree starting from the given OID.

For SNMPv1, this uses GET-NEXT requests.
For SNMPv2c, this uses GET-BULK requests with adaptive sizing.

Examples:
  # Walk the system group
  snmpmgr walk -t 192.168.1.1 1.3.6.1.2.1.1

  # Walk interface table
  snmpmgr walk -t 192.168.1.1 ifTable`,
	Args: cobra.ExactArgs(1),
	RunE: runWalk,
}

var bulkWalkCmd = &cobra.Command{
	Use:   "bulkwalk OID",
	Short: "Walk using GET-BULK (v2c)",
	Long: `Walk an SNMP MIB subtree using GET-BULK requests.
Only available for SNMPv2c.

This is more efficient than regular walk for large subtrees.

Examples:
  # Bulk walk interface table
  snmpmgr bulkwalk -t 192.168.1.1 1.3.6.1.2.1.2.2

  # Bulk walk with custom repetitions
  snmpmgr bulkwalk -t 192.168.1.1 --max-repetitions 50 1.3.6.1.2.1.2.2`,
	Args: cobra.ExactArgs(1),
	RunE: runBulkWalk,
}

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark OID",
	Short: "Probe a target for the best GET-BULK size",
	Long: `Probe a target with escalating GET-BULK sizes and report the largest
max-repetitions that answers within the latency budget. The result is a
good --max-repetitions for subsequent walks of that target.

Examples:
  snmpmgr benchmark -t 192.168.1.1 1.3.6.1.2.1.2.2`,
	Args: cobra.ExactArgs(1),
	RunE: runBenchmark,
}

var (
	walkMaxRepetitions int
	walkMaxEntries     int
	walkShowCount      bool
	benchmarkLatency   time.Duration
)

func init() {
	rootCmd.AddCommand(walkCmd)
	rootCmd.AddCommand(bulkWalkCmd)
	rootCmd.AddCommand(benchmarkCmd)

	walkCmd.Flags().IntVar(&walkMaxRepetitions, "max-repetitions", 10, "initial max-repetitions for bulk operations")
	walkCmd.Flags().IntVar(&walkMaxEntries, "max-entries", 10000, "maximum varbinds to retrieve")
	walkCmd.Flags().BoolVar(&walkShowCount, "count", false, "show count of variables at the end")

	bulkWalkCmd.Flags().IntVar(&walkMaxRepetitions, "max-repetitions", 10, "initial max-repetitions value")
	bulkWalkCmd.Flags().IntVar(&walkMaxEntries, "max-entries", 10000, "maximum varbinds to retrieve")
	bulkWalkCmd.Flags().BoolVar(&walkShowCount, "count", false, "show count of variables at the end")

	benchmarkCmd.Flags().DurationVar(&benchmarkLatency, "latency", 500*time.Millisecond, "per-call latency budget")
}

func runWalk(cmd *cobra.Command, args []string) error {
	if err := checkTarget(); err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	engine := createEngine()
	defer engine.Close()

	walker := snmp.NewWalker(engine,
		snmp.WithInitialRepetitions(walkMaxRepetitions),
		snmp.WithMaxEntries(walkMaxEntries))

	printVerbose("Walking from %s...", args[0])
	start := time.Now()

	formatter := NewFormatter(outputFormat)
	count := 0

	err := walker.WalkFunc(ctx, target, args[0], func(v snmp.Variable) error {
		formatter.FormatVariable(v)
		count++
		return nil
	})

	elapsed := time.Since(start)

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("walk failed: %w", err)
	}

	if walkShowCount || verbose {
		fmt.Fprintf(os.Stderr, "\n%d variables retrieved in %s\n", count, formatDuration(elapsed))
	}

	return nil
}

func runBulkWalk(cmd *cobra.Command, args []string) error {
	if err := checkTarget(); err != nil {
		return err
	}

	if version == "1" || version == "v1" {
		return fmt.Errorf("bulk walk is not available in SNMPv1, use 'walk' instead")
	}

	ctx, cancel := commandContext()
	defer cancel()

	engine := createEngine()
	defer engine.Close()

	walker := snmp.NewWalker(engine,
		snmp.WithInitialRepetitions(walkMaxRepetitions),
		snmp.WithMaxEntries(walkMaxEntries))

	printVerbose("Bulk walking from %s (max-repetitions=%d)...", args[0], walkMaxRepetitions)
	start := time.Now()

	formatter := NewFormatter(outputFormat)
	count := 0

	// Stream so very large subtrees render as they arrive.
	for item := range walker.WalkStream(ctx, target, args[0]) {
		if item.Err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("bulk walk failed: %w", item.Err)
		}
		formatter.FormatVariable(item.Varbind)
		count++
	}

	elapsed := time.Since(start)

	if walkShowCount || verbose {
		fmt.Fprintf(os.Stderr, "\n%d variables retrieved in %s\n", count, formatDuration(elapsed))
	}

	return nil
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	if err := checkTarget(); err != nil {
		return err
	}

	if version == "1" || version == "v1" {
		return fmt.Errorf("benchmark requires SNMPv2c")
	}

	ctx, cancel := commandContext()
	defer cancel()

	engine := createEngine()
	defer engine.Close()

	walker := snmp.NewWalker(engine, snmp.WithTargetLatency(benchmarkLatency))

	printVerbose("Benchmarking %s against %s...", target, args[0])

	best, err := walker.Benchmark(ctx, target, args[0])
	if err != nil {
		return fmt.Errorf("benchmark failed: %w", err)
	}

	fmt.Printf("recommended max-repetitions: %d\n", best)
	return nil
}
