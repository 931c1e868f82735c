package link

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/wirefree.go/pkg/gen2"
)

func parseAll(p *Parser, data []byte) (frames [][]byte, discarded int) {
	for _, b := range data {
		pr := p.Parse(b)
		if pr.Frame != nil {
			frames = append(frames, pr.Frame)
		}
		discarded += pr.Discarded
	}
	return
}

func TestParserBackToBackFrames(t *testing.T) {
	var stream []byte
	for _, s := range capturedFrames {
		stream = append(stream, mustHex(s)...)
	}
	var p Parser
	frames, discarded := parseAll(&p, stream)
	require.Zero(t, discarded)
	require.Len(t, frames, len(capturedFrames))
	for i, s := range capturedFrames {
		require.Equal(t, mustHex(s), frames[i])
	}
	require.Equal(t, StreamIdle, p.State())
}

func TestParserSkipsNoise(t *testing.T) {
	stream := append([]byte{0x00, 0xcc, 0x43, 0x4f, 0x4d}, mustHex(capturedFrames[1])...)
	var p Parser
	frames, discarded := parseAll(&p, stream)
	require.Equal(t, 5, discarded)
	require.Len(t, frames, 1)
	require.Equal(t, mustHex(capturedFrames[1]), frames[0])
}

func TestParserRejectsImplausibleLength(t *testing.T) {
	var p Parser
	pr := p.Parse(Marker)
	require.Equal(t, StreamReceiving, pr.State)
	require.Equal(t, TimerRestart, pr.WhatAboutTimer())
	pr = p.Parse(0xff)
	require.Equal(t, 2, pr.Discarded)
	require.Equal(t, StreamIdle, pr.State)
	require.Equal(t, TimerStop, pr.WhatAboutTimer())

	// a marker in place of the length restarts the frame.
	p.Parse(Marker)
	pr = p.Parse(Marker)
	require.Equal(t, 1, pr.Discarded)
	require.Equal(t, StreamReceiving, pr.State)
	frames, discarded := parseAll(&p, mustHex(capturedFrames[0])[1:])
	require.Zero(t, discarded)
	require.Len(t, frames, 1)
}

func TestParserTimeoutAbandonsPartialFrame(t *testing.T) {
	frame := mustHex(capturedFrames[0])
	var p Parser
	frames, _ := parseAll(&p, frame[:10])
	require.Empty(t, frames)
	require.Equal(t, StreamReceiving, p.State())

	pr := p.Timeout()
	require.Equal(t, 10, pr.Discarded)
	require.Equal(t, StreamIdle, pr.State)

	pr = p.Timeout()
	require.Zero(t, pr.Discarded)
	require.Equal(t, TimerNoChange, pr.WhatAboutTimer())

	frames, discarded := parseAll(&p, frame)
	require.Zero(t, discarded)
	require.Equal(t, [][]byte{frame}, frames)
}

func TestParserFrameIsNotReused(t *testing.T) {
	var p Parser
	first, _ := parseAll(&p, mustHex(capturedFrames[0]))
	second, _ := parseAll(&p, mustHex(capturedFrames[1]))
	require.Equal(t, mustHex(capturedFrames[0]), first[0])
	require.Equal(t, mustHex(capturedFrames[1]), second[0])
}

// parseChecked feeds data like Reader does, re-scanning frames refused by
// check.
func parseChecked(p *Parser, data []byte, check ValidateFunc) (frames [][]byte, discarded int) {
	var apply func(pr ParseResult)
	apply = func(pr ParseResult) {
		discarded += pr.Discarded
		if pr.Frame == nil {
			return
		}
		if check != nil && check(pr.Frame) != nil {
			for _, res := range p.Reject(pr.Frame) {
				apply(res)
			}
			return
		}
		frames = append(frames, pr.Frame)
	}
	for _, b := range data {
		apply(p.Parse(b))
	}
	return
}

func decodeFrame(frame []byte) error {
	_, payload, err := Split(RawFrame{Data: frame})
	if err == nil {
		_, err = gen2.Decode(payload)
	}
	return err
}

func TestParserRecoversFrameAfterTruncatedOne(t *testing.T) {
	quickAlert := Join(Envelope{
		Transmitter: [3]byte{0x00, byte(gen2.VariantQuickAlert), 0x07},
	}, []byte{0x00, 0x07, byte(gen2.VariantQuickAlert), 0x10, 0x00, 0x00, 0x00, 0x19})
	truncated := mustHex(capturedFrames[0])[:4]
	cut := append(append([]byte(nil), truncated...), mustHex(capturedFrames[1])...)

	cases := []struct {
		name      string
		stream    []byte
		check     ValidateFunc
		frames    [][]byte
		discarded int
	}{
		{
			name:      "length disagrees with variant",
			stream:    append(append([]byte(nil), truncated...), quickAlert...),
			frames:    [][]byte{quickAlert},
			discarded: 4,
		},
		{
			name:      "frame refused by consumer",
			stream:    cut,
			check:     decodeFrame,
			frames:    [][]byte{mustHex(capturedFrames[1])},
			discarded: 4,
		},
		{
			name:      "followed by more frames",
			stream:    append(append([]byte(nil), cut...), mustHex(capturedFrames[2])...),
			check:     decodeFrame,
			frames:    [][]byte{mustHex(capturedFrames[1]), mustHex(capturedFrames[2])},
			discarded: 4,
		},
		{
			name:      "refused frame without another inside",
			stream:    Join(Envelope{}, []byte{0x00, 0x01, 0x05, 0x00, 0x00, 0x00, 0x00, 0x00}),
			check:     decodeFrame,
			discarded: 15,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var p Parser
			frames, discarded := parseChecked(&p, c.stream, c.check)
			require.Equal(t, c.frames, frames)
			require.Equal(t, c.discarded, discarded)
			require.Equal(t, StreamIdle, p.State())
		})
	}
}
