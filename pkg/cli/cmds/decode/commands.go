package decode

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/wirefree.go/pkg/bus"
	"github.com/robotalks/wirefree.go/pkg/cli/sh"
	"github.com/robotalks/wirefree.go/pkg/link"
	"github.com/robotalks/wirefree.go/pkg/telemetry"
)

// parseHex accepts hex bytes split over any number of args.
func parseHex(args []string) ([]byte, error) {
	s := strings.Join(args, "")
	s = strings.NewReplacer(" ", "", ":", "", "0x", "").Replace(s)
	if s == "" {
		return nil, fmt.Errorf("HEX required")
	}
	return hex.DecodeString(s)
}

// DecodeCmd decodes a captured frame.
var DecodeCmd = ishell.Cmd{
	Name:    "decode",
	Aliases: []string{"dec"},
	Help:    "HEX",
	Func: func(c *ishell.Context) {
		data, err := parseHex(c.Args)
		if err != nil {
			c.Err(err)
			return
		}
		r, err := telemetry.Decode(link.RawFrame{Data: data, Received: time.Now()})
		if err != nil {
			c.Err(err)
			return
		}
		if sh.ShellFrom(c).OutputJSON {
			sh.Output(c, bus.NewMessage("", r))
			return
		}
		sh.Output(c, r)
	},
}

func init() {
	sh.AddCmds(&DecodeCmd)
}
