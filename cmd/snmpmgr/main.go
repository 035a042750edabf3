// snmpmgr is a command-line SNMP manager for polling and controlling
// fleets of network devices.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
