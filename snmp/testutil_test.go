package snmp

import (
	"net"
	"sort"
	"sync/atomic"
	"testing"
)

// fakeAgent is an in-process SNMP agent bound to a loopback UDP port. It
// serves GET, GETNEXT, GETBULK, and SET from a sorted object list.
type fakeAgent struct {
	t         *testing.T
	conn      *net.UDPConn
	community string
	objects   []Variable

	// dropNext silently discards that many requests (for retry tests).
	dropNext int32
	// loopForever answers every GETNEXT, and every GETBULK repetition,
	// with the same varbind.
	loopForever atomic.Bool
	// alwaysTooBig answers every request with a tooBig error-status.
	alwaysTooBig atomic.Bool
	// received counts decoded requests.
	received int64

	done chan struct{}
}

func newFakeAgent(t *testing.T, community string, objects []Variable) *fakeAgent {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("fake agent listen: %v", err)
	}

	sorted := make([]Variable, len(objects))
	copy(sorted, objects)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].OID.Compare(sorted[j].OID) < 0
	})

	a := &fakeAgent{
		t:         t,
		conn:      conn,
		community: community,
		objects:   sorted,
		done:      make(chan struct{}),
	}
	go a.serve()
	t.Cleanup(a.close)
	return a
}

func (a *fakeAgent) addr() string {
	return a.conn.LocalAddr().String()
}

func (a *fakeAgent) drop(n int32) {
	atomic.StoreInt32(&a.dropNext, n)
}

func (a *fakeAgent) requests() int64 {
	return atomic.LoadInt64(&a.received)
}

func (a *fakeAgent) close() {
	select {
	case <-a.done:
	default:
		close(a.done)
		a.conn.Close()
	}
}

func (a *fakeAgent) serve() {
	buf := make([]byte, maxMessageSize)
	for {
		n, peer, err := a.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		msg, err := DecodeMessage(buf[:n])
		if err != nil {
			continue
		}
		atomic.AddInt64(&a.received, 1)

		if atomic.LoadInt32(&a.dropNext) > 0 {
			atomic.AddInt32(&a.dropNext, -1)
			continue
		}
		if msg.Community != a.community {
			// Real agents drop bad-community packets silently.
			continue
		}

		resp := a.respond(msg)
		if resp == nil {
			continue
		}
		data, err := resp.Encode()
		if err != nil {
			continue
		}
		a.conn.WriteToUDP(data, peer)
	}
}

func (a *fakeAgent) respond(msg *Message) *Message {
	req := msg.PDU
	resp := &PDU{
		Type:      PDUGetResponse,
		RequestID: req.RequestID,
	}

	if a.alwaysTooBig.Load() {
		resp.ErrorStatus = TooBig
		resp.ErrorIndex = 0
		resp.Variables = req.Variables
		return &Message{Version: msg.Version, Community: msg.Community, PDU: resp}
	}

	switch req.Type {
	case PDUGetRequest:
		for _, vb := range req.Variables {
			resp.Variables = append(resp.Variables, a.lookup(vb.OID, msg.Version))
		}

	case PDUGetNextRequest:
		for _, vb := range req.Variables {
			resp.Variables = append(resp.Variables, a.next(vb.OID))
		}

	case PDUGetBulkRequest:
		maxReps := req.MaxRepetitions
		if maxReps < 1 {
			maxReps = 1
		}
		for _, vb := range req.Variables {
			current := vb.OID
			for i := 0; i < maxReps; i++ {
				nv := a.next(current)
				resp.Variables = append(resp.Variables, nv)
				if nv.Type == TypeEndOfMibView {
					break
				}
				current = nv.OID
			}
		}

	case PDUSetRequest:
		resp.Variables = req.Variables

	default:
		return nil
	}

	return &Message{Version: msg.Version, Community: msg.Community, PDU: resp}
}

func (a *fakeAgent) lookup(oid OID, version SNMPVersion) Variable {
	for _, obj := range a.objects {
		if obj.OID.Equal(oid) {
			return obj
		}
	}
	if version == Version1 {
		return Variable{OID: oid, Type: TypeNull}
	}
	return Variable{OID: oid, Type: TypeNoSuchObject}
}

func (a *fakeAgent) next(oid OID) Variable {
	if a.loopForever.Load() && len(a.objects) > 0 {
		return a.objects[0]
	}
	for _, obj := range a.objects {
		if obj.OID.Compare(oid) > 0 {
			return obj
		}
	}
	return Variable{OID: oid, Type: TypeEndOfMibView}
}

// systemGroup is a small MIB-II system subtree fixture.
func systemGroup() []Variable {
	return []Variable{
		{OID: MustParseOID("1.3.6.1.2.1.1.1.0"), Type: TypeOctetString, Value: []byte("simulator description")},
		{OID: MustParseOID("1.3.6.1.2.1.1.2.0"), Type: TypeObjectIdentifier, Value: MustParseOID("1.3.6.1.4.1.8072.3.2.10")},
		{OID: MustParseOID("1.3.6.1.2.1.1.3.0"), Type: TypeTimeTicks, Value: uint32(123456)},
		{OID: MustParseOID("1.3.6.1.2.1.1.4.0"), Type: TypeOctetString, Value: []byte("ops@example.com")},
		{OID: MustParseOID("1.3.6.1.2.1.1.5.0"), Type: TypeOctetString, Value: []byte("sim01")},
		{OID: MustParseOID("1.3.6.1.2.1.1.6.0"), Type: TypeOctetString, Value: []byte("lab")},
		{OID: MustParseOID("1.3.6.1.2.1.1.7.0"), Type: TypeInteger, Value: 72},
	}
}
