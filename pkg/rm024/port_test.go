package rm024

import (
	"testing"
	"time"
)

// scriptedPort answers every Write with the next scripted reply.
// A nil reply leaves the request unanswered.
type scriptedPort struct {
	writes     [][]byte
	script     [][]byte
	rx         []byte
	timeout    time.Duration
	resets     int
	shortWrite bool
	resetErr   error
	claims     int
	releases   int
}

func (p *scriptedPort) reply(resps ...[]byte) *scriptedPort {
	p.script = append(p.script, resps...)
	return p
}

func (p *scriptedPort) Write(b []byte) (int, error) {
	p.writes = append(p.writes, append([]byte(nil), b...))
	if p.shortWrite {
		return len(b) - 1, nil
	}
	if len(p.script) > 0 {
		p.rx = append(p.rx, p.script[0]...)
		p.script = p.script[1:]
	}
	return len(b), nil
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	if len(p.rx) == 0 {
		d := p.timeout
		if d > time.Millisecond {
			d = time.Millisecond
		}
		time.Sleep(d)
		return 0, nil
	}
	n := copy(b, p.rx)
	p.rx = p.rx[n:]
	return n, nil
}

func (p *scriptedPort) SetReadTimeout(d time.Duration) error {
	p.timeout = d
	return nil
}

func (p *scriptedPort) ResetInputBuffer() error {
	if p.resetErr != nil {
		return p.resetErr
	}
	p.rx = nil
	p.resets++
	return nil
}

type claimingPort struct {
	scriptedPort
	claimErr error
}

func (p *claimingPort) Claim() (func(), error) {
	if p.claimErr != nil {
		return nil, p.claimErr
	}
	p.claims++
	return func() { p.releases++ }, nil
}

var testTimeouts = Timeouts{
	Entry:       30 * time.Millisecond,
	Exit:        30 * time.Millisecond,
	Command:     30 * time.Millisecond,
	EEPROM:      30 * time.Millisecond,
	Flash:       30 * time.Millisecond,
	ResetSettle: time.Second,
}

func newTestLink(port Port) (*Link, *[]time.Duration) {
	l := NewLink(port, WithTimeouts(testTimeouts))
	var slept []time.Duration
	l.sleep = func(d time.Duration) { slept = append(slept, d) }
	return l, &slept
}

func mustEnter(t *testing.T, l *Link, p *scriptedPort) *Session {
	p.reply(enterAck)
	s, err := l.Enter()
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	return s
}
