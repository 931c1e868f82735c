// Package rm024 drives the binary command mode of a Laird RM024 radio.
package rm024

// The radio shares one serial link between transparent telemetry and
// command mode. Command mode is entered with "AT+++\r" and every response
// starts with 0xCC, a byte which never starts a telemetry frame.
//
// The radio abandons a request if consecutive bytes arrive more than
// InterfaceTimeout apart, so every request is handed to the port in a
// single Write.
//
// A Session is only obtained from a successful Link.Enter, and all
// command mode operations hang off it:
//
//	link := rm024.NewLink(port)
//	s, err := link.Enter()
//	if err != nil { ... }
//	defer s.Exit()
//	status, err := s.Status()
