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
	"strconv"
	"strings"
	"time"

	"github.com/awksedgreep/snmpmgr/snmp"
	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set OID TYPE VALUE",
	Short: "Perform SNMP SET request",
	Long: `Perform an SNMP SET request to modify the value of an OID.

Type specifiers:
  i - INTEGER
  u - Unsigned INTEGER (Gauge32)
  c - Counter32
  s - OCTET STRING (text)
  x - OCTET STRING (hex bytes, e.g., "DE AD BE EF")
  n - NULL
  o - OBJECT IDENTIFIER
  t - TimeTicks
  a - IP Address
  = - infer the type from the value

Examples:
  # Set system contact (string)
  snmpmgr set -t 192.168.1.1 1.3.6.1.2.1.1.4.0 s "admin@example.com"

  # Set system name
  snmpmgr set -t 192.168.1.1 sysName.0 s "switch01"

  # Set an integer value
  snmpmgr set -t 192.168.1.1 1.3.6.1.4.1.9.2.1.55.0 i 5`,
	Args: cobra.ExactArgs(3),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	if err := checkTarget(); err != nil {
		return err
	}

	oid, typeChar, raw := args[0], args[1], args[2]

	value, opts, err := parseSetValue(typeChar, raw)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	engine := createEngine()
	defer engine.Close()

	printVerbose("Sending SET request...")
	start := time.Now()

	result, err := engine.Set(ctx, target, oid, value, opts...)
	if err != nil {
		return fmt.Errorf("SET failed: %w", err)
	}

	printVerbose("Response received in %s", formatDuration(time.Since(start)))

	formatter := NewFormatter(outputFormat)
	formatter.FormatVariable(result)

	return nil
}

// parseSetValue maps a type character and text value to a host value plus
// the explicit-type request option.
func parseSetValue(typeChar, raw string) (interface{}, []snmp.ReqOption, error) {
	switch typeChar {
	case "i":
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid integer %q: %w", raw, err)
		}
		return int(n), []snmp.ReqOption{snmp.ExplicitType(snmp.TypeInteger)}, nil

	case "u":
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid unsigned %q: %w", raw, err)
		}
		return uint32(n), []snmp.ReqOption{snmp.ExplicitType(snmp.TypeGauge32)}, nil

	case "c":
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid counter %q: %w", raw, err)
		}
		return uint32(n), []snmp.ReqOption{snmp.ExplicitType(snmp.TypeCounter32)}, nil

	case "s":
		return raw, []snmp.ReqOption{snmp.ExplicitType(snmp.TypeOctetString)}, nil

	case "x":
		data, err := parseHexBytes(raw)
		if err != nil {
			return nil, nil, err
		}
		return data, []snmp.ReqOption{snmp.ExplicitType(snmp.TypeOctetString)}, nil

	case "n":
		return nil, []snmp.ReqOption{snmp.ExplicitType(snmp.TypeNull)}, nil

	case "o":
		oid, err := snmp.ParseOID(raw)
		if err != nil {
			return nil, nil, err
		}
		return oid, []snmp.ReqOption{snmp.ExplicitType(snmp.TypeObjectIdentifier)}, nil

	case "t":
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid timeticks %q: %w", raw, err)
		}
		return uint32(n), []snmp.ReqOption{snmp.ExplicitType(snmp.TypeTimeTicks)}, nil

	case "a":
		return raw, []snmp.ReqOption{snmp.ExplicitType(snmp.TypeIPAddress)}, nil

	case "=":
		return raw, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown type specifier %q", typeChar)
	}
}

// parseHexBytes parses "DE AD BE EF" style hex byte strings.
func parseHexBytes(s string) ([]byte, error) {
	fields := strings.Fields(s)
	data := make([]byte, len(fields))
	for i, f := range fields {
		b, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte %q: %w", f, err)
		}
		data[i] = byte(b)
	}
	return data, nil
}
