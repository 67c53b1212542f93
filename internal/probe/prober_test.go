package probe

import (
	"testing"

	"github.com/nbd-wtf/go-nostr/nip11"
	"github.com/stretchr/testify/require"
)

func TestNipNumbers(t *testing.T) {
	// relays publish supported_nips as a mix of numbers and strings
	got := nipNumbers([]any{float64(1), "11", 42, "not-a-nip", true})
	require.Equal(t, []int{1, 11, 42}, got)

	require.Nil(t, nipNumbers(nil))
	require.Nil(t, nipNumbers([]any{"junk"}))
}

func TestConvertInfo(t *testing.T) {
	doc := nip11.RelayInformationDocument{
		Name:          "test relay",
		PubKey:        "deadbeef",
		Software:      "strfry",
		Version:       "1.0",
		SupportedNIPs: []any{float64(1), float64(11)},
		Limitation: &nip11.RelayLimitationDocument{
			AuthRequired:     true,
			PaymentRequired:  false,
			MaxMessageLength: 65536,
		},
		RelayCountries: []string{"DE"},
	}

	info := convertInfo(doc)
	require.Equal(t, "test relay", info.Name)
	require.Equal(t, "deadbeef", info.Pubkey)
	require.Equal(t, []int{1, 11}, info.SupportedNIPs)
	require.Equal(t, true, info.Limitation["auth_required"])
	require.Equal(t, false, info.Limitation["payment_required"])
	require.Equal(t, 65536, info.Limitation["max_message_length"])
	require.Equal(t, []string{"DE"}, info.RelayCountries)
}

func TestConvertInfoWithoutLimitation(t *testing.T) {
	info := convertInfo(nip11.RelayInformationDocument{Name: "bare"})
	require.Equal(t, "bare", info.Name)
	require.Nil(t, info.Limitation)
	require.Nil(t, info.SupportedNIPs)
}
