package main

import (
	"fmt"
	"time"

	"github.com/awksedgreep/snmpmgr/snmp"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get OID [OID...]",
	Short: "Perform SNMP GET request",
	Long: `Perform an SNMP GET request to retrieve the value of one or more OIDs.

OIDs may be numeric or symbolic MIB-II names.

Examples:
  # Get system description
  snmpmgr get -t 192.168.1.1 1.3.6.1.2.1.1.1.0

  # Symbolic form
  snmpmgr get -t 192.168.1.1 sysDescr.0

  # Get multiple OIDs
  snmpmgr get -t 192.168.1.1 sysDescr.0 sysUpTime.0 sysName.0`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGet,
}

var getNextCmd = &cobra.Command{
	Use:   "getnext OID",
	Short: "Perform SNMP GET-NEXT request",
	Long: `Perform an SNMP GET-NEXT request to retrieve the next OID in the MIB tree.

Examples:
  # Get next OID after sysDescr
  snmpmgr getnext -t 192.168.1.1 1.3.6.1.2.1.1.1`,
	Args: cobra.ExactArgs(1),
	RunE: runGetNext,
}

var getBulkCmd = &cobra.Command{
	Use:   "getbulk OID",
	Short: "Perform SNMP GET-BULK request (v2c)",
	Long: `Perform an SNMP GET-BULK request to efficiently retrieve multiple OIDs.
Only available for SNMPv2c.

Examples:
  # Get bulk with default repetitions
  snmpmgr getbulk -t 192.168.1.1 1.3.6.1.2.1.2.2.1

  # Get bulk with custom repetitions
  snmpmgr getbulk -t 192.168.1.1 --max-repetitions 25 1.3.6.1.2.1.2.2.1`,
	Args: cobra.ExactArgs(1),
	RunE: runGetBulk,
}

var (
	maxRepetitions int
	nonRepeaters   int
)

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(getNextCmd)
	rootCmd.AddCommand(getBulkCmd)

	getBulkCmd.Flags().IntVar(&maxRepetitions, "max-repetitions", 10, "max-repetitions value")
	getBulkCmd.Flags().IntVar(&nonRepeaters, "non-repeaters", 0, "non-repeaters value")
}

func runGet(cmd *cobra.Command, args []string) error {
	if err := checkTarget(); err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	engine := createEngine()
	defer engine.Close()

	printVerbose("Sending GET request for %d OID(s)...", len(args))
	start := time.Now()

	vars, err := engine.GetMany(ctx, target, args)
	if err != nil {
		return fmt.Errorf("GET failed: %w", err)
	}

	printVerbose("Response received in %s", formatDuration(time.Since(start)))

	formatter := NewFormatter(outputFormat)
	formatter.FormatVariables(vars)

	return nil
}

func runGetNext(cmd *cobra.Command, args []string) error {
	if err := checkTarget(); err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	engine := createEngine()
	defer engine.Close()

	printVerbose("Sending GET-NEXT request...")
	start := time.Now()

	v, err := engine.GetNext(ctx, target, args[0])
	if err != nil {
		return fmt.Errorf("GET-NEXT failed: %w", err)
	}

	printVerbose("Response received in %s", formatDuration(time.Since(start)))

	formatter := NewFormatter(outputFormat)
	formatter.FormatVariable(v)

	return nil
}

func runGetBulk(cmd *cobra.Command, args []string) error {
	if err := checkTarget(); err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	engine := createEngine()
	defer engine.Close()

	printVerbose("Sending GET-BULK request (non-repeaters=%d, max-repetitions=%d)...",
		nonRepeaters, maxRepetitions)
	start := time.Now()

	vars, err := engine.GetBulk(ctx, target, args[0],
		snmp.NonRepeaters(nonRepeaters), snmp.MaxRepetitions(maxRepetitions))
	if err != nil {
		return fmt.Errorf("GET-BULK failed: %w", err)
	}

	printVerbose("Response received in %s (%d variables)", formatDuration(time.Since(start)), len(vars))

	formatter := NewFormatter(outputFormat)
	formatter.FormatVariables(vars)

	return nil
}
