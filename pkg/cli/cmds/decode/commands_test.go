package decode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	testCases := []struct {
		args []string
		data []byte
	}{
		{[]string{"81110016"}, []byte{0x81, 0x11, 0x00, 0x16}},
		{[]string{"81", "11", "00"}, []byte{0x81, 0x11, 0x00}},
		{[]string{"0x81:0x11"}, []byte{0x81, 0x11}},
	}
	for _, tc := range testCases {
		data, err := parseHex(tc.args)
		require.NoError(t, err)
		require.Equal(t, tc.data, data)
	}
	_, err := parseHex(nil)
	require.Error(t, err)
	_, err = parseHex([]string{"8"})
	require.Error(t, err)
}
