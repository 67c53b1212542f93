package cache

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nostrwatch/relaymon/internal/store"
)

func sampleDoc() store.Doc {
	return store.Doc{
		"url":     "wss://relay.damus.io",
		"network": "clearnet",
		"online":  true,
		"info": map[string]any{
			"name":           "damus",
			"supported_nips": []any{float64(1), float64(11), float64(42)},
			"limitation": map[string]any{
				"payment_required":   false,
				"max_message_length": float64(65536),
			},
		},
	}
}

func TestLookupDottedPath(t *testing.T) {
	d := sampleDoc()

	v, ok := lookup(d, "info.limitation.payment_required")
	require.True(t, ok)
	require.Equal(t, false, v)

	_, ok = lookup(d, "info.limitation.nope")
	require.False(t, ok)

	_, ok = lookup(d, "online.nested")
	require.False(t, ok)
}

func TestEqNormalizesNumbers(t *testing.T) {
	d := sampleDoc()

	require.True(t, Eq("info.limitation.max_message_length", 65536)(d))
	require.True(t, Eq("info.limitation.max_message_length", float64(65536))(d))
	require.False(t, Eq("info.limitation.max_message_length", 1)(d))
	require.True(t, Eq("network", "clearnet")(d))
	require.False(t, Eq("missing", "x")(d))
}

func TestInDefinedUndefined(t *testing.T) {
	d := sampleDoc()

	require.True(t, In("network", "tor", "clearnet")(d))
	require.False(t, In("network", "tor", "i2p")(d))

	require.True(t, Defined("info.limitation")(d))
	require.False(t, Defined("geo")(d))
	require.True(t, Undefined("geo")(d))
	require.False(t, Undefined("info")(d))
}

func TestIsType(t *testing.T) {
	d := sampleDoc()

	require.True(t, IsType("info.name", TypeString)(d))
	require.True(t, IsType("online", TypeBool)(d))
	require.True(t, IsType("info", TypeObject)(d))
	require.True(t, IsType("info.supported_nips", TypeArray)(d))
	require.True(t, IsType("info.limitation.max_message_length", TypeNumber)(d))
	require.False(t, IsType("info.name", TypeNumber)(d))
}

func TestMatchesAndField(t *testing.T) {
	d := sampleDoc()

	require.True(t, Matches("url", regexp.MustCompile(`^wss://`))(d))
	require.False(t, Matches("url", regexp.MustCompile(`\.onion$`))(d))

	require.True(t, Field("online", func(v any) bool { return v == true })(d))
	// absent path hands the function nil
	require.True(t, Field("geo", func(v any) bool { return v == nil })(d))
}

func TestContainsNormalizesNumbers(t *testing.T) {
	d := sampleDoc()

	require.True(t, Contains("info.supported_nips", 11)(d))
	require.False(t, Contains("info.supported_nips", 99)(d))
	require.False(t, Contains("info.name", "damus")(d))
}

func TestCombinators(t *testing.T) {
	d := sampleDoc()

	require.True(t, And(Eq("online", true), Eq("network", "clearnet"))(d))
	require.False(t, And(Eq("online", true), Eq("network", "tor"))(d))
	require.True(t, And()(d))

	require.True(t, Or(Eq("network", "tor"), Eq("online", true))(d))
	require.False(t, Or()(d))

	require.True(t, Not(Eq("online", false))(d))
}
