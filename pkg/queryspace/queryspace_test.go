package queryspace

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBase = Base{
	PageSize: 100,
	Criteria: "W",
	Offices:  []string{"US"},
	Fields:   []string{"ST13", "markImageURI"},
}

func allClasses() []int {
	classes := make([]int, 45)
	for i := range classes {
		classes[i] = i + 1
	}
	return classes
}

func TestEnumerateSize(t *testing.T) {
	statuses := []string{"Filed", "Registered"}
	types := []string{"3-D", "Colour", "Combined", "Figurative", "Other", "Position", "Word"}

	queries := Enumerate(testBase, statuses, allClasses(), types)
	require.Len(t, queries, 630)

	for i, q := range queries {
		assert.Equal(t, i, q.Index)
	}
}

func TestEnumerateOrder(t *testing.T) {
	statuses := []string{"Filed", "Registered"}
	types := []string{"3-D", "Colour", "Combined", "Figurative", "Other", "Position", "Word"}
	queries := Enumerate(testBase, statuses, allClasses(), types)

	assert.Equal(t, Query{Index: 0, Status: "Filed", NiceClass: 1, Type: "3-D", base: testBase}, queries[0])
	assert.Equal(t, "Filed", queries[1].Status)
	assert.Equal(t, 1, queries[1].NiceClass)
	assert.Equal(t, "Colour", queries[1].Type)
	assert.Equal(t, 2, queries[7].NiceClass)
	assert.Equal(t, "3-D", queries[7].Type)
	assert.Equal(t, "Registered", queries[315].Status)
	assert.Equal(t, "Registered/45/Word", queries[629].String())

	again := Enumerate(testBase, statuses, allClasses(), types)
	assert.Equal(t, queries, again)
}

func TestEnumerateEmptyAxis(t *testing.T) {
	assert.Empty(t, Enumerate(testBase, nil, allClasses(), []string{"Word"}))
}

func TestPayload(t *testing.T) {
	q := Enumerate(testBase, []string{"Registered"}, []int{9}, []string{"Figurative"})[0]

	data, err := json.Marshal(q.Payload(3))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "3", decoded["page"])
	assert.Equal(t, "100", decoded["pageSize"])
	assert.Equal(t, "W", decoded["criteria"])
	assert.Contains(t, decoded, "basicSearch")
	assert.Nil(t, decoded["basicSearch"])
	assert.Equal(t, []any{"US"}, decoded["fOffices"])
	assert.Equal(t, []any{"Registered"}, decoded["fTMStatus"])
	assert.Equal(t, []any{"9"}, decoded["fNiceClass"])
	assert.Equal(t, []any{"Figurative"}, decoded["fTMType"])

	// Rendering one page must not leak into another.
	assert.Equal(t, "1", q.Payload(1)["page"])
}
