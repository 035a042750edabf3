package snmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ifTableFixture() []Variable {
	return []Variable{
		{OID: MustParseOID("1.3.6.1.2.1.2.2.1.2.1"), Type: TypeOctetString, Value: "eth0"},
		{OID: MustParseOID("1.3.6.1.2.1.2.2.1.2.2"), Type: TypeOctetString, Value: "eth1"},
		{OID: MustParseOID("1.3.6.1.2.1.2.2.1.3.1"), Type: TypeInteger, Value: 6},
		{OID: MustParseOID("1.3.6.1.2.1.2.2.1.3.2"), Type: TypeInteger, Value: 6},
	}
}

func TestBuildTable(t *testing.T) {
	table := BuildTable(ifTableFixture(), MustParseOID("1.3.6.1.2.1.2.2"))

	require.Len(t, table.Rows, 2)
	assert.Equal(t, "eth0", table.Rows["1"][2])
	assert.Equal(t, 6, table.Rows["1"][3])
	assert.Equal(t, "eth1", table.Rows["2"][2])
	assert.Equal(t, 6, table.Rows["2"][3])
}

func TestBuildTableCompositeIndex(t *testing.T) {
	// ipNetToMediaTable-style rows indexed by ifIndex + IP address.
	vars := []Variable{
		{OID: MustParseOID("1.3.6.1.2.1.4.22.1.2.1.10.0.0.1"), Type: TypeOctetString, Value: "aa:bb"},
		{OID: MustParseOID("1.3.6.1.2.1.4.22.1.2.1.10.0.0.2"), Type: TypeOctetString, Value: "cc:dd"},
	}
	table := BuildTable(vars, MustParseOID("1.3.6.1.2.1.4.22"))

	require.Len(t, table.Rows, 2)
	assert.Equal(t, "aa:bb", table.Rows["1.10.0.0.1"][2])
	assert.Equal(t, "cc:dd", table.Rows["1.10.0.0.2"][2])
}

func TestBuildTableIgnoresForeignOIDs(t *testing.T) {
	vars := append(ifTableFixture(),
		Variable{OID: MustParseOID("1.3.6.1.2.1.1.1.0"), Type: TypeOctetString, Value: "sys"})
	table := BuildTable(vars, MustParseOID("1.3.6.1.2.1.2.2"))
	assert.Len(t, table.Rows, 2)
}

func TestToRecords(t *testing.T) {
	table := BuildTable(ifTableFixture(), MustParseOID("1.3.6.1.2.1.2.2"))

	records := table.ToRecords(map[uint32]string{2: "descr", 3: "type"})
	require.Len(t, records, 2)

	assert.Equal(t, "1", records[0]["index"])
	assert.Equal(t, "eth0", records[0]["descr"])
	assert.Equal(t, 6, records[0]["type"])
	assert.Equal(t, "2", records[1]["index"])
	assert.Equal(t, "eth1", records[1]["descr"])
}

func TestTableColumn(t *testing.T) {
	table := BuildTable(ifTableFixture(), MustParseOID("1.3.6.1.2.1.2.2"))

	col := table.Column(2)
	assert.Equal(t, map[string]interface{}{"1": "eth0", "2": "eth1"}, col)
}

func TestTableFilterRows(t *testing.T) {
	table := BuildTable(ifTableFixture(), MustParseOID("1.3.6.1.2.1.2.2"))

	filtered := table.FilterRows(func(index string, row map[uint32]interface{}) bool {
		return row[2] == "eth1"
	})
	require.Len(t, filtered.Rows, 1)
	assert.Equal(t, "eth1", filtered.Rows["2"][2])
}

func TestTableJoin(t *testing.T) {
	left := BuildTable(ifTableFixture(), MustParseOID("1.3.6.1.2.1.2.2"))

	right := BuildTable([]Variable{
		{OID: MustParseOID("1.3.6.1.2.1.2.2.1.10.1"), Type: TypeCounter32, Value: uint32(1000)},
		{OID: MustParseOID("1.3.6.1.2.1.2.2.1.10.3"), Type: TypeCounter32, Value: uint32(3000)},
	}, MustParseOID("1.3.6.1.2.1.2.2"))

	inner := left.Join(right, false)
	require.Len(t, inner.Rows, 1)
	assert.Equal(t, "eth0", inner.Rows["1"][2])
	assert.Equal(t, uint32(1000), inner.Rows["1"][10])

	outer := left.Join(right, true)
	require.Len(t, outer.Rows, 3)
	assert.Equal(t, uint32(3000), outer.Rows["3"][10])
	_, hasDescr := outer.Rows["3"][2]
	assert.False(t, hasDescr)
}

func TestTableAggregate(t *testing.T) {
	table := BuildTable([]Variable{
		{OID: MustParseOID("1.3.6.1.2.1.2.2.1.5.1"), Type: TypeGauge32, Value: uint32(100)},
		{OID: MustParseOID("1.3.6.1.2.1.2.2.1.5.2"), Type: TypeGauge32, Value: uint32(300)},
		{OID: MustParseOID("1.3.6.1.2.1.2.2.1.5.3"), Type: TypeGauge32, Value: uint32(200)},
	}, MustParseOID("1.3.6.1.2.1.2.2"))

	sum, err := table.Aggregate(5, AggSum)
	require.NoError(t, err)
	assert.Equal(t, 600.0, sum)

	avg, err := table.Aggregate(5, AggAvg)
	require.NoError(t, err)
	assert.Equal(t, 200.0, avg)

	min, err := table.Aggregate(5, AggMin)
	require.NoError(t, err)
	assert.Equal(t, 100.0, min)

	max, err := table.Aggregate(5, AggMax)
	require.NoError(t, err)
	assert.Equal(t, 300.0, max)

	count, err := table.Aggregate(5, AggCount)
	require.NoError(t, err)
	assert.Equal(t, 3.0, count)

	_, err = table.Aggregate(99, AggSum)
	require.Error(t, err)
}

func TestTableCountEqual(t *testing.T) {
	table := BuildTable(ifTableFixture(), MustParseOID("1.3.6.1.2.1.2.2"))
	assert.Equal(t, 2, table.CountEqual(3, 6))
	assert.Equal(t, 1, table.CountEqual(2, "eth0"))
	assert.Equal(t, 0, table.CountEqual(2, "eth9"))
}

func TestTableSortRows(t *testing.T) {
	table := BuildTable([]Variable{
		{OID: MustParseOID("1.3.6.1.2.1.2.2.1.5.1"), Type: TypeGauge32, Value: uint32(300)},
		{OID: MustParseOID("1.3.6.1.2.1.2.2.1.5.2"), Type: TypeGauge32, Value: uint32(100)},
		{OID: MustParseOID("1.3.6.1.2.1.2.2.1.5.10"), Type: TypeGauge32, Value: uint32(200)},
	}, MustParseOID("1.3.6.1.2.1.2.2"))

	// Numeric index order, not lexicographic.
	assert.Equal(t, []string{"1", "2", "10"}, table.SortedIndexes())

	// By column value.
	assert.Equal(t, []string{"2", "10", "1"}, table.SortRows(5))
}
