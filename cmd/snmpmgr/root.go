package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global flags
	cfgFile   string
	target    string
	port      int
	community string
	version   string
	timeout   time.Duration
	retries   int

	// Output flags
	outputFormat string
	verbose      bool
	noColor      bool
	numeric      bool
)

var rootCmd = &cobra.Command{
	Use:   "snmpmgr",
	Short: "SNMP command-line manager",
	Long: `snmpmgr is an SNMP v1/v2c command-line manager for testing,
debugging, monitoring, and managing fleets of network devices.

Supports:
  - SNMPv1 and SNMPv2c
  - GET, GET-NEXT, GET-BULK, SET operations
  - WALK and BULK-WALK with adaptive tuning
  - Multi-target fan-out
  - Table retrieval

Examples:
  # Get system description
  snmpmgr get -t 192.168.1.1 1.3.6.1.2.1.1.1.0

  # Walk interface table
  snmpmgr walk -t 192.168.1.1 1.3.6.1.2.1.2.2

  # Set a value
  snmpmgr set -t 192.168.1.1 1.3.6.1.2.1.1.4.0 s "admin@example.com"

  # Poll many devices at once
  snmpmgr multiget -o json sysDescr.0 192.168.1.1 192.168.1.2`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Connection flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "", "", "config file (default is $HOME/.snmpmgr.yaml)")
	rootCmd.PersistentFlags().StringVarP(&target, "target", "t", "", "SNMP agent address (required)")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 161, "SNMP agent port")
	rootCmd.PersistentFlags().StringVarP(&community, "community", "c", "public", "community string")
	rootCmd.PersistentFlags().StringVarP(&version, "version", "V", "2c", "SNMP version (1, 2c)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	rootCmd.PersistentFlags().IntVarP(&retries, "retries", "r", 1, "number of retries")

	// Output flags
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, csv, raw")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&numeric, "numeric", false, "print OIDs numerically")

	// Bind flags to viper
	viper.BindPFlag("target", rootCmd.PersistentFlags().Lookup("target"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("community", rootCmd.PersistentFlags().Lookup("community"))
	viper.BindPFlag("version", rootCmd.PersistentFlags().Lookup("version"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("retries", rootCmd.PersistentFlags().Lookup("retries"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("no-color", rootCmd.PersistentFlags().Lookup("no-color"))
	viper.BindPFlag("numeric", rootCmd.PersistentFlags().Lookup("numeric"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		viper.AddConfigPath(home)
		viper.AddConfigPath(filepath.Join(home, ".config"))
		viper.SetConfigName(".snmpmgr")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SNMPMGR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}

	// Apply viper values to flags
	target = viper.GetString("target")
	port = viper.GetInt("port")
	community = viper.GetString("community")
	version = viper.GetString("version")
	timeout = viper.GetDuration("timeout")
	retries = viper.GetInt("retries")
	outputFormat = viper.GetString("output")
	verbose = viper.GetBool("verbose")
	noColor = viper.GetBool("no-color")
	numeric = viper.GetBool("numeric")
}
