package radio

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/wirefree.go/pkg/rm024"
)

func TestReadField(t *testing.T) {
	testCases := []struct {
		args  []string
		field rm024.Field
		err   bool
	}{
		{args: []string{"channel"}, field: rm024.FieldChannel},
		{args: []string{"0x40", "2"}, field: rm024.Field{Address: 0x40, Length: 2}},
		{args: []string{"bogus"}, err: true},
		{args: []string{"0x40", "300"}, err: true},
		{args: nil, err: true},
	}
	for _, tc := range testCases {
		f, err := readField(tc.args)
		if tc.err {
			require.Error(t, err, "%v", tc.args)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tc.field, f)
	}
}

func TestWriteField(t *testing.T) {
	f, err := writeField([]string{"channel", "0x07"})
	require.NoError(t, err)
	require.Equal(t, rm024.FieldChannel.With(0x07), f)

	f, err = writeField([]string{"0x76", "1", "2"})
	require.NoError(t, err)
	require.Equal(t, rm024.Field{Address: 0x76, Length: 2, Value: []byte{1, 2}}, f)

	_, err = writeField([]string{"channel", "1", "2"})
	require.Error(t, err)
	_, err = writeField([]string{"channel"})
	require.Error(t, err)
}

func TestFieldOutput(t *testing.T) {
	out := newFieldOutput(rm024.FieldChannel.With(0x05))
	require.Equal(t, "channel", out.Name)
	require.Equal(t, "channel 0x40+1: 0x05", out.String())
	require.Equal(t, "firmware 0x12, client (in range)", newStatusOutput(rm024.Status{Firmware: 0x12, Link: rm024.ClientInRange}).String())
}

func TestParseUpgradeArgs(t *testing.T) {
	opts, err := parseUpgradeArgs([]string{"-verify", "-chunk", "64", "a.bin", "b.bin"})
	require.NoError(t, err)
	require.True(t, opts.verify)
	require.Equal(t, 64, opts.chunkSize)
	require.Equal(t, []string{"a.bin", "b.bin"}, opts.files)

	opts, err = parseUpgradeArgs([]string{"a.bin"})
	require.NoError(t, err)
	require.Equal(t, rm024.DefaultChunkSize, opts.chunkSize)

	_, err = parseUpgradeArgs(nil)
	require.Error(t, err)
}
