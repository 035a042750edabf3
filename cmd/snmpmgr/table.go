package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/awksedgreep/snmpmgr/snmp"
	"github.com/spf13/cobra"
)

var tableCmd = &cobra.Command{
	Use:   "table OID",
	Short: "Retrieve an SNMP table as rows and columns",
	Long: `Walk a table subtree and render the varbinds as structured rows.

Examples:
  # Interface table
  snmpmgr table -t 192.168.1.1 1.3.6.1.2.1.2.2

  # Symbolic form, JSON output
  snmpmgr table -t 192.168.1.1 -o json ifTable`,
	Args: cobra.ExactArgs(1),
	RunE: runTable,
}

func init() {
	rootCmd.AddCommand(tableCmd)
}

func runTable(cmd *cobra.Command, args []string) error {
	if err := checkTarget(); err != nil {
		return err
	}

	base, err := snmp.ParseOID(args[0])
	if err != nil {
		return fmt.Errorf("invalid table OID: %w", err)
	}

	ctx, cancel := commandContext()
	defer cancel()

	engine := createEngine()
	defer engine.Close()

	walker := snmp.NewWalker(engine)

	printVerbose("Walking table %s...", base)
	start := time.Now()

	vars, err := walker.Walk(ctx, target, base.String())
	if err != nil {
		return fmt.Errorf("table walk failed: %w", err)
	}

	printVerbose("%d varbinds in %s", len(vars), formatDuration(time.Since(start)))

	table := snmp.BuildTable(vars, base)
	if len(table.Rows) == 0 {
		fmt.Println("(empty table)")
		return nil
	}

	if outputFormat == "json" {
		records := table.ToRecords(nil)
		data, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	renderTable(table)
	return nil
}

func renderTable(table *snmp.Table) {
	// Collect the column set across all rows.
	colSet := make(map[uint32]struct{})
	for _, row := range table.Rows {
		for col := range row {
			colSet[col] = struct{}{}
		}
	}
	cols := make([]uint32, 0, len(colSet))
	for col := range colSet {
		cols = append(cols, col)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })

	headers := []string{"index"}
	for _, col := range cols {
		headers = append(headers, strconv.FormatUint(uint64(col), 10))
	}

	tw := NewTableWriter(headers...)
	for _, index := range table.SortedIndexes() {
		row := table.Rows[index]
		values := []string{index}
		for _, col := range cols {
			if v, ok := row[col]; ok {
				values = append(values, fmt.Sprintf("%v", v))
			} else {
				values = append(values, "-")
			}
		}
		tw.AddRow(values...)
	}
	tw.Render()
}
