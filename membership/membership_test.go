package membership_test

import (
	"encoding/json"
	"testing"
	"time"

	"f0oster/userreport/membership"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseState_KnownValues(t *testing.T) {
	tests := []struct {
		in   string
		want membership.State
	}{
		{"nonmember", membership.Nonmember},
		{"pending", membership.Pending},
		{"active", membership.Active},
		{"admin", membership.Admin},
		{"disabled", membership.Disabled},
	}

	for _, tt := range tests {
		got, err := membership.ParseState(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.in, got.String())
	}
}

func TestParseState_RejectsUnknown(t *testing.T) {
	for _, in := range []string{"", "Active", "suspended"} {
		_, err := membership.ParseState(in)
		assert.Error(t, err, in)
	}
}

func TestState_Added(t *testing.T) {
	assert.True(t, membership.Pending.Added())
	assert.True(t, membership.Active.Added())
	assert.False(t, membership.Admin.Added())
	assert.False(t, membership.Disabled.Added())
	assert.False(t, membership.Nonmember.Added())
}

func TestState_JSONBoundary(t *testing.T) {
	var groups map[string]membership.State
	err := json.Unmarshal([]byte(`{"root.osg":"pending","root.osg.x":"admin"}`), &groups)
	require.NoError(t, err)
	assert.Equal(t, membership.Pending, groups["root.osg"])
	assert.Equal(t, membership.Admin, groups["root.osg.x"])

	err = json.Unmarshal([]byte(`{"root.osg":"banned"}`), &groups)
	assert.ErrorContains(t, err, "banned")

	_, err = json.Marshal(membership.State(0))
	assert.Error(t, err)
}

func TestTimestamp_ParseAndFormat(t *testing.T) {
	ts, err := membership.ParseTimestamp("2021-Jan-01 04:46:25.868712 UTC")
	require.NoError(t, err)

	want := time.Date(2021, time.January, 1, 4, 46, 25, 868712000, time.UTC)
	assert.True(t, ts.Equal(want))
	assert.Equal(t, "2021-Jan-01 04:46:25.868712 UTC", ts.String())
}

func TestTimestamp_JSON(t *testing.T) {
	var doc struct {
		Date membership.Timestamp `json:"date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2021-Jan-07 00:00:00.000000 UTC"}`), &doc))
	assert.Equal(t, 7, doc.Date.Day())

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2021-Jan-07 00:00:00.000000 UTC"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"date":"2021-01-07"}`), &doc))
	assert.Error(t, json.Unmarshal([]byte(`{"date":17}`), &doc))
}
