package link

import (
	"encoding/hex"
)

// Frames captured from an RM024 receiving through a repeater.
var capturedFrames = []string{
	"81110016e0882b000f81000000000824060042e087e92377",
	"81110015e0882b000d8100000000082306003fc8afc03c71",
	"81120015e08849000487000000000018fde80008c8b1755fdd",
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
