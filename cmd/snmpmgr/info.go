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
	"time"

	"github.com/awksedgreep/snmpmgr/snmp"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Get basic system information",
	Long: `Get basic system information from an SNMP agent.

Retrieves common system MIB objects:
  - sysDescr (1.3.6.1.2.1.1.1.0) - System description
  - sysObjectID (1.3.6.1.2.1.1.2.0) - System object identifier
  - sysUpTime (1.3.6.1.2.1.1.3.0) - Time since last reboot
  - sysContact (1.3.6.1.2.1.1.4.0) - Contact person
  - sysName (1.3.6.1.2.1.1.5.0) - System name
  - sysLocation (1.3.6.1.2.1.1.6.0) - Physical location

Examples:
  # Get system info
  snmpmgr info -t 192.168.1.1`,
	RunE: runInfo,
}

var infoShowStats bool

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().BoolVar(&infoShowStats, "stats", false, "print engine statistics after the query")
}

func runInfo(cmd *cobra.Command, args []string) error {
	if err := checkTarget(); err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	engine := createEngine()
	defer engine.Close()

	oids := []string{
		snmp.OIDSysDescr.String(),
		snmp.OIDSysObjectID.String(),
		snmp.OIDSysUpTime.String(),
		snmp.OIDSysContact.String(),
		snmp.OIDSysName.String(),
		snmp.OIDSysLocation.String(),
	}

	printVerbose("Retrieving system information...")
	start := time.Now()

	vars, err := engine.GetMany(ctx, target, oids)
	if err != nil {
		return fmt.Errorf("failed to get system info: %w", err)
	}

	printVerbose("Response received in %s", formatDuration(time.Since(start)))

	if outputFormat == "json" {
		formatter := NewFormatter(outputFormat)
		formatter.FormatVariables(vars)
		return nil
	}

	// Pretty print system info
	fmt.Println()
	fmt.Println(colorize("System Information", ColorBold))
	fmt.Println(colorize("==================", ColorBold))

	for _, v := range vars {
		name := getOIDName(v.OID)
		value := formatValue(v)

		// Special handling for uptime
		if v.OID.Equal(snmp.OIDSysUpTime) {
			if ticks, ok := v.Value.(uint32); ok {
				value = snmp.FormatTimeTicks(ticks)
			}
		}

		fmt.Printf("  %-15s %s\n", colorize(name+":", ColorCyan), value)
	}
	fmt.Println()

	if infoShowStats {
		printEngineStats(engine)
	}

	return nil
}

func printEngineStats(engine *snmp.Engine) {
	snap := engine.Metrics().Snapshot()
	stats := engine.Pool().Stats()

	PrintSection("Engine")
	for key, value := range snap.Counters {
		PrintKeyValue(key, fmt.Sprintf("%d", value))
	}
	if lat, ok := snap.Histograms[snmp.MetricRequestLatency]; ok {
		PrintKeyValue("latency avg ms", fmt.Sprintf("%.1f", lat.Avg))
	}

	PrintSection("Endpoint Pool")
	PrintKeyValue("available", fmt.Sprintf("%d", stats.Available))
	PrintKeyValue("in use", fmt.Sprintf("%d", stats.InUse))
	PrintKeyValue("created", fmt.Sprintf("%d", stats.Created))
	PrintKeyValue("evicted", fmt.Sprintf("%d", stats.Evicted))
	fmt.Println()
}

func getOIDName(oid snmp.OID) string {
	switch {
	case oid.Equal(snmp.OIDSysDescr):
		return "Description"
	case oid.Equal(snmp.OIDSysObjectID):
		return "Object ID"
	case oid.Equal(snmp.OIDSysUpTime):
		return "Uptime"
	case oid.Equal(snmp.OIDSysContact):
		return "Contact"
	case oid.Equal(snmp.OIDSysName):
		return "Name"
	case oid.Equal(snmp.OIDSysLocation):
		return "Location"
	case oid.Equal(snmp.OIDSysServices):
		return "Services"
	default:
		return oid.String()
	}
}
