package snmp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// MIB is a registry of symbolic names for OIDs. Reads take a shared lock
// and never block each other; registrations serialize.
type MIB struct {
	mu     sync.RWMutex
	byName map[string]OID
	byOID  map[string]string
}

// Built-in MIB-II objects: system, interfaces, ip, icmp, tcp, udp, and
// snmp groups.
var builtinObjects = map[string]string{
	"mib-2": "1.3.6.1.2.1",

	"system":      "1.3.6.1.2.1.1",
	"sysDescr":    "1.3.6.1.2.1.1.1",
	"sysObjectID": "1.3.6.1.2.1.1.2",
	"sysUpTime":   "1.3.6.1.2.1.1.3",
	"sysContact":  "1.3.6.1.2.1.1.4",
	"sysName":     "1.3.6.1.2.1.1.5",
	"sysLocation": "1.3.6.1.2.1.1.6",
	"sysServices": "1.3.6.1.2.1.1.7",

	"interfaces":      "1.3.6.1.2.1.2",
	"ifNumber":        "1.3.6.1.2.1.2.1",
	"ifTable":         "1.3.6.1.2.1.2.2",
	"ifEntry":         "1.3.6.1.2.1.2.2.1",
	"ifIndex":         "1.3.6.1.2.1.2.2.1.1",
	"ifDescr":         "1.3.6.1.2.1.2.2.1.2",
	"ifType":          "1.3.6.1.2.1.2.2.1.3",
	"ifMtu":           "1.3.6.1.2.1.2.2.1.4",
	"ifSpeed":         "1.3.6.1.2.1.2.2.1.5",
	"ifPhysAddress":   "1.3.6.1.2.1.2.2.1.6",
	"ifAdminStatus":   "1.3.6.1.2.1.2.2.1.7",
	"ifOperStatus":    "1.3.6.1.2.1.2.2.1.8",
	"ifLastChange":    "1.3.6.1.2.1.2.2.1.9",
	"ifInOctets":      "1.3.6.1.2.1.2.2.1.10",
	"ifInUcastPkts":   "1.3.6.1.2.1.2.2.1.11",
	"ifInDiscards":    "1.3.6.1.2.1.2.2.1.13",
	"ifInErrors":      "1.3.6.1.2.1.2.2.1.14",
	"ifOutOctets":     "1.3.6.1.2.1.2.2.1.16",
	"ifOutUcastPkts":  "1.3.6.1.2.1.2.2.1.17",
	"ifOutDiscards":   "1.3.6.1.2.1.2.2.1.19",
	"ifOutErrors":     "1.3.6.1.2.1.2.2.1.20",

	"ip":                  "1.3.6.1.2.1.4",
	"ipForwarding":        "1.3.6.1.2.1.4.1",
	"ipDefaultTTL":        "1.3.6.1.2.1.4.2",
	"ipInReceives":        "1.3.6.1.2.1.4.3",
	"ipInHdrErrors":       "1.3.6.1.2.1.4.4",
	"ipInAddrErrors":      "1.3.6.1.2.1.4.5",
	"ipForwDatagrams":     "1.3.6.1.2.1.4.6",
	"ipInDiscards":        "1.3.6.1.2.1.4.8",
	"ipInDelivers":        "1.3.6.1.2.1.4.9",
	"ipOutRequests":       "1.3.6.1.2.1.4.10",
	"ipAddrTable":         "1.3.6.1.2.1.4.20",
	"ipRouteTable":        "1.3.6.1.2.1.4.21",
	"ipNetToMediaTable":   "1.3.6.1.2.1.4.22",

	"icmp":            "1.3.6.1.2.1.5",
	"icmpInMsgs":      "1.3.6.1.2.1.5.1",
	"icmpInErrors":    "1.3.6.1.2.1.5.2",
	"icmpOutMsgs":     "1.3.6.1.2.1.5.14",
	"icmpOutErrors":   "1.3.6.1.2.1.5.15",

	"tcp":              "1.3.6.1.2.1.6",
	"tcpActiveOpens":   "1.3.6.1.2.1.6.5",
	"tcpPassiveOpens":  "1.3.6.1.2.1.6.6",
	"tcpAttemptFails":  "1.3.6.1.2.1.6.7",
	"tcpEstabResets":   "1.3.6.1.2.1.6.8",
	"tcpCurrEstab":     "1.3.6.1.2.1.6.9",
	"tcpInSegs":        "1.3.6.1.2.1.6.10",
	"tcpOutSegs":       "1.3.6.1.2.1.6.11",
	"tcpRetransSegs":   "1.3.6.1.2.1.6.12",
	"tcpConnTable":     "1.3.6.1.2.1.6.13",

	"udp":             "1.3.6.1.2.1.7",
	"udpInDatagrams":  "1.3.6.1.2.1.7.1",
	"udpNoPorts":      "1.3.6.1.2.1.7.2",
	"udpInErrors":     "1.3.6.1.2.1.7.3",
	"udpOutDatagrams": "1.3.6.1.2.1.7.4",

	"snmp":                 "1.3.6.1.2.1.11",
	"snmpInPkts":           "1.3.6.1.2.1.11.1",
	"snmpOutPkts":          "1.3.6.1.2.1.11.2",
	"snmpInBadVersions":    "1.3.6.1.2.1.11.3",
	"snmpInBadCommunityNames": "1.3.6.1.2.1.11.4",
	"snmpInGetRequests":    "1.3.6.1.2.1.11.15",
	"snmpInGetNexts":       "1.3.6.1.2.1.11.16",
	"snmpInSetRequests":    "1.3.6.1.2.1.11.17",
	"snmpOutGetResponses":  "1.3.6.1.2.1.11.28",
}

// NewMIB creates a registry seeded with the built-in MIB-II objects.
func NewMIB() *MIB {
	m := &MIB{
		byName: make(map[string]OID, len(builtinObjects)),
		byOID:  make(map[string]string, len(builtinObjects)),
	}
	for name, dotted := range builtinObjects {
		oid := mustParseNumeric(dotted)
		m.byName[name] = oid
		m.byOID[oid.String()] = name
	}
	return m
}

// mustParseNumeric parses a dotted numeric OID without symbolic fallback;
// built-in table entries are trusted.
func mustParseNumeric(s string) OID {
	parts := strings.Split(s, ".")
	oid := make(OID, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			panic(fmt.Sprintf("bad builtin OID %q: %v", s, err))
		}
		oid[i] = uint32(n)
	}
	return oid
}

var (
	defaultMIB     *MIB
	defaultMIBOnce sync.Once
)

// DefaultMIB returns the process-wide registry created on first use.
// Components that want isolation take an explicit *MIB instead.
func DefaultMIB() *MIB {
	defaultMIBOnce.Do(func() {
		defaultMIB = NewMIB()
	})
	return defaultMIB
}

// Lookup resolves a symbolic name to its OID.
func (m *MIB) Lookup(name string) (OID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	oid, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return oid.Copy(), true
}

// resolveSymbolic resolves "name" or "name.idx1.idx2..." to an OID.
func (m *MIB) resolveSymbolic(s string) (OID, error) {
	name, suffix, _ := strings.Cut(s, ".")
	base, ok := m.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown name %q", ErrInvalidOID, name)
	}
	if suffix == "" {
		return base, nil
	}

	for _, p := range strings.Split(suffix, ".") {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: index component %q", ErrInvalidOID, p)
		}
		base = append(base, uint32(n))
	}
	return base, nil
}

// Register adds or replaces a symbolic name.
func (m *MIB) Register(name string, oid OID) error {
	if name == "" || len(oid) == 0 {
		return fmt.Errorf("%w: empty name or OID", ErrInvalidOID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := oid.Copy()
	m.byName[name] = c
	m.byOID[c.String()] = name
	return nil
}

// Reverse resolves an OID back to a name. When no exact match exists, the
// longest registered prefix yields "name.suffix".
func (m *MIB) Reverse(oid OID) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if name, ok := m.byOID[oid.String()]; ok {
		return name, true
	}

	for l := len(oid) - 1; l > 0; l-- {
		prefix := oid[:l]
		if name, ok := m.byOID[prefix.String()]; ok {
			return name + "." + oid[l:].String(), true
		}
	}
	return "", false
}

// Names returns all registered names, sorted.
func (m *MIB) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.byName))
	for name := range m.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Children returns the registered direct children of the given OID,
// sorted by OID order.
func (m *MIB) Children(parent OID) []OID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var children []OID
	for _, oid := range m.byName {
		if len(oid) == len(parent)+1 && oid.HasPrefix(parent) {
			children = append(children, oid.Copy())
		}
	}
	sort.Slice(children, func(i, j int) bool {
		return children[i].Compare(children[j]) < 0
	})
	return children
}
