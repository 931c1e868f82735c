package link

import "github.com/robotalks/wirefree.go/pkg/gen2"

// Parser finds telemetry frames in a byte stream.
type Parser struct {
	state parseState
	frame []byte
	need  int
}

// StreamState indicates the state of the stream.
type StreamState int

const (
	// StreamIdle means the parser is looking for a frame marker.
	StreamIdle StreamState = iota
	// StreamReceiving means a frame is partially received.
	StreamReceiving
)

// ParseResult indicates the result after one parsing step.
type ParseResult struct {
	State StreamState
	// Frame is set when a complete frame is received.
	Frame []byte
	// Discarded counts the bytes dropped in this step, either noise
	// outside of a frame or an abandoned partial frame.
	Discarded int
}

// TimerAction defines what to do with the inter-byte timer.
type TimerAction int

const (
	// TimerNoChange indicates keep the timer as-is.
	TimerNoChange TimerAction = iota
	// TimerRestart to restart the timer.
	TimerRestart
	// TimerStop to stop/cancel the timer.
	TimerStop
)

// WhatAboutTimer decides what to do with the inter-byte timer.
func (r ParseResult) WhatAboutTimer() TimerAction {
	if r.State == StreamReceiving {
		return TimerRestart
	}
	if r.Frame != nil || r.Discarded > 0 {
		return TimerStop
	}
	return TimerNoChange
}

type parseState int

const (
	stateMarker parseState = iota // waiting for Marker
	stateLength                   // waiting for length
	stateBody                     // collecting header and payload
)

// State gets the current stream state.
func (p *Parser) State() StreamState {
	if p.state == stateMarker {
		return StreamIdle
	}
	return StreamReceiving
}

// Reset drops any partial frame.
func (p *Parser) Reset() (pr ParseResult) {
	pr.Discarded = p.drop()
	pr.State = p.State()
	return
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) (pr ParseResult) {
	switch p.state {
	case stateMarker:
		if b != Marker {
			pr.Discarded = 1
			break
		}
		p.frame = append(p.frame[:0], b)
		p.state = stateLength
	case stateLength:
		if int(b) < minPayload || int(b) > MaxPayload {
			pr.Discarded = p.drop()
			// the byte may start the next frame.
			if b == Marker {
				p.frame = append(p.frame[:0], b)
				p.state = stateLength
			} else {
				pr.Discarded++
			}
			break
		}
		p.frame = append(p.frame, b)
		p.need = HeaderSize + int(b)
		p.state = stateBody
	case stateBody:
		p.frame = append(p.frame, b)
		if len(p.frame) == offProtocol+1 && !p.plausible() {
			pr.Discarded = p.rescan()
			break
		}
		if len(p.frame) >= p.need {
			pr.Frame = append([]byte(nil), p.frame...)
			p.frame, p.state = p.frame[:0], stateMarker
		}
	}
	pr.State = p.State()
	return
}

// Reject re-scans a frame the consumer refused, starting after its marker,
// as another frame may begin inside it. It must be called before any more
// bytes are parsed.
func (p *Parser) Reject(frame []byte) []ParseResult {
	if len(frame) == 0 {
		return nil
	}
	results := make([]ParseResult, 0, len(frame))
	results = append(results, ParseResult{State: p.State(), Discarded: 1})
	for _, b := range frame[1:] {
		results = append(results, p.Parse(b))
	}
	return results
}

// plausible reports whether the declared length agrees with the variant in
// the protocol byte. Unknown variants are left to the consumer.
func (p *Parser) plausible() bool {
	proto := p.frame[offProtocol]
	cat := Direct
	if proto&relayBit != 0 {
		cat = Relayed
	}
	size, ok := FrameSize(gen2.Variant(proto&^relayBit), cat)
	return !ok || size == p.need
}

// rescan drops the partial frame and parses it again from the byte after
// its marker. The partial frame is shorter than any frame so nothing can
// complete here.
func (p *Parser) rescan() int {
	rest := append([]byte(nil), p.frame[1:]...)
	p.frame, p.state, p.need = p.frame[:0], stateMarker, 0
	n := 1
	for _, b := range rest {
		n += p.Parse(b).Discarded
	}
	return n
}

// Timeout notifies the inter-byte timer expires, a partial frame is
// abandoned.
func (p *Parser) Timeout() (pr ParseResult) {
	pr.Discarded = p.drop()
	pr.State = p.State()
	return
}

func (p *Parser) drop() int {
	n := 0
	if p.state != stateMarker {
		n = len(p.frame)
	}
	p.frame, p.state, p.need = p.frame[:0], stateMarker, 0
	return n
}
