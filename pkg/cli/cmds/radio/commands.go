package radio

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/wirefree.go/pkg/cli/sh"
	"github.com/robotalks/wirefree.go/pkg/rm024"
)

type statusOutput struct {
	Firmware byte   `json:"firmware"`
	Link     string `json:"link"`
}

func (o statusOutput) String() string {
	return fmt.Sprintf("firmware 0x%02x, %s", o.Firmware, o.Link)
}

type fieldOutput struct {
	Address byte   `json:"address"`
	Length  byte   `json:"length"`
	Value   []int  `json:"value"`
	Name    string `json:"name,omitempty"`
}

func (o fieldOutput) String() string {
	vals := make([]string, len(o.Value))
	for n, v := range o.Value {
		vals[n] = fmt.Sprintf("0x%02x", v)
	}
	s := fmt.Sprintf("0x%02x+%d: %s", o.Address, o.Length, strings.Join(vals, " "))
	if o.Name != "" {
		s = o.Name + " " + s
	}
	return s
}

type upgradeOutput struct {
	Image string       `json:"image"`
	Final statusOutput `json:"final"`
}

func (o upgradeOutput) String() string {
	return fmt.Sprintf("%s upgraded, %v", o.Image, o.Final)
}

func newStatusOutput(st rm024.Status) statusOutput {
	return statusOutput{Firmware: st.Firmware, Link: st.Link.String()}
}

func newFieldOutput(f rm024.Field) fieldOutput {
	out := fieldOutput{Address: f.Address, Length: f.Length, Value: make([]int, len(f.Value))}
	for n, b := range f.Value {
		out.Value[n] = int(b)
	}
	for name, known := range rm024.NamedFields {
		if known.Address == f.Address && known.Length == f.Length {
			out.Name = name
		}
	}
	return out
}

func parseByte(s string) (byte, error) {
	val, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q", s)
	}
	return byte(val), nil
}

func parseBytes(args []string) ([]byte, error) {
	values := make([]byte, 0, len(args))
	for _, arg := range args {
		val, err := parseByte(arg)
		if err != nil {
			return nil, err
		}
		values = append(values, val)
	}
	return values, nil
}

// readField parses FIELD or ADDR LEN.
func readField(args []string) (rm024.Field, error) {
	if len(args) == 0 {
		return rm024.Field{}, fmt.Errorf("FIELD or ADDR LEN required")
	}
	if f, ok := rm024.NamedFields[args[0]]; ok {
		return f, nil
	}
	if len(args) < 2 {
		return rm024.Field{}, fmt.Errorf("unknown field %q, known: %s", args[0], strings.Join(rm024.FieldNames(), ", "))
	}
	vals, err := parseBytes(args[:2])
	if err != nil {
		return rm024.Field{}, err
	}
	return rm024.Field{Address: vals[0], Length: vals[1]}, nil
}

// writeField parses FIELD|ADDR VALUE...
func writeField(args []string) (rm024.Field, error) {
	if len(args) < 2 {
		return rm024.Field{}, fmt.Errorf("FIELD|ADDR VALUE... required")
	}
	values, err := parseBytes(args[1:])
	if err != nil {
		return rm024.Field{}, err
	}
	if f, ok := rm024.NamedFields[args[0]]; ok {
		if len(values) != int(f.Length) {
			return rm024.Field{}, fmt.Errorf("%s takes %d bytes", args[0], f.Length)
		}
		return f.With(values...), nil
	}
	addr, err := parseByte(args[0])
	if err != nil {
		return rm024.Field{}, err
	}
	return rm024.Field{Address: addr}.With(values...), nil
}

type upgradeOptions struct {
	verify    bool
	chunkSize int
	files     []string
}

func parseUpgradeArgs(args []string) (*upgradeOptions, error) {
	opts := &upgradeOptions{}
	fs := flag.NewFlagSet("upgrade", flag.ContinueOnError)
	fs.BoolVar(&opts.verify, "verify", false, "Read back every chunk.")
	fs.IntVar(&opts.chunkSize, "chunk", rm024.DefaultChunkSize, "Bytes per flash write.")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.files = fs.Args(); len(opts.files) == 0 {
		return nil, fmt.Errorf("FILE required")
	}
	return opts, nil
}

var (
	// EnterCmd enters command mode.
	EnterCmd = ishell.Cmd{
		Name: "enter",
		Help: "",
		Func: sh.WithSession(func(c *ishell.Context, s *rm024.Session) {
			c.Println("OK")
		}),
	}

	// ExitCmd leaves command mode, or the shell when not in command mode.
	ExitCmd = ishell.Cmd{
		Name:    "exit",
		Aliases: []string{"quit", "q"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			if s.Session == nil || s.Session.Closed() {
				c.Stop()
				return
			}
			err := s.Session.Exit()
			s.UpdatePrompt()
			if err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}

	// StatusCmd queries firmware version and link status.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: sh.WithSession(func(c *ishell.Context, s *rm024.Session) {
			st, err := s.Status()
			if err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, newStatusOutput(st))
		}),
	}

	// VerifyCmd asks whether the firmware image was fully loaded.
	VerifyCmd = ishell.Cmd{
		Name: "verify",
		Help: "",
		Func: sh.WithSession(func(c *ishell.Context, s *rm024.Session) {
			st, err := s.VerifyImage()
			if err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, newStatusOutput(st))
		}),
	}

	// EEPROMReadCmd reads an EEPROM field.
	EEPROMReadCmd = ishell.Cmd{
		Name:    "eeprom.read",
		Aliases: []string{"er"},
		Help:    "FIELD | ADDR LEN",
		Func: sh.WithSession(func(c *ishell.Context, s *rm024.Session) {
			f, err := readField(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if f, err = s.ReadEEPROM(f); err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, newFieldOutput(f))
		}),
	}

	// EEPROMWriteCmd writes an EEPROM field.
	EEPROMWriteCmd = ishell.Cmd{
		Name:    "eeprom.write",
		Aliases: []string{"ew"},
		Help:    "FIELD|ADDR VALUE...",
		Func: sh.WithSession(func(c *ishell.Context, s *rm024.Session) {
			f, err := writeField(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if err := s.WriteEEPROM(f); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// ParamCmd changes a live parameter.
	ParamCmd = ishell.Cmd{
		Name: "param",
		Help: "channel|server-client|power VALUE",
		Func: sh.WithSession(func(c *ishell.Context, s *rm024.Session) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("KIND VALUE required"))
				return
			}
			kind, ok := rm024.ParseParamKind(c.Args[0])
			if !ok {
				c.Err(fmt.Errorf("unknown parameter %q", c.Args[0]))
				return
			}
			val, err := parseByte(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			if err := s.SetLiveParameter(kind, val); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// ResetCmd soft resets the radio.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: sh.WithSession(func(c *ishell.Context, s *rm024.Session) {
			if err := s.Reset(); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// UpgradeCmd uploads firmware. Extra files are alternate images tried
	// when the radio rejects the previous one after reset.
	UpgradeCmd = ishell.Cmd{
		Name: "upgrade",
		Help: "[-verify] [-chunk N] FILE [ALTERNATE...]",
		Func: sh.WithSession(func(c *ishell.Context, s *rm024.Session) {
			opts, err := parseUpgradeArgs(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			jobs := make([]*rm024.FirmwareJob, 0, len(opts.files))
			for _, file := range opts.files {
				job, err := rm024.LoadFirmwareJob(file, opts.chunkSize)
				if err != nil {
					c.Err(err)
					return
				}
				job.Verify = opts.verify
				if !sh.ShellFrom(c).OutputJSON {
					name := job.Image
					job.OnProgress = func(written, total int) {
						c.Printf("%s: %d/%d\n", name, written, total)
					}
				}
				jobs = append(jobs, job)
			}
			job, err := s.Link().UpgradeFirmware(s, jobs...)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, upgradeOutput{Image: job.Image, Final: newStatusOutput(job.Final)})
		}),
	}
)

func init() {
	sh.AddCmds(
		&EnterCmd,
		&ExitCmd,
		&StatusCmd,
		&VerifyCmd,
		&EEPROMReadCmd,
		&EEPROMWriteCmd,
		&ParamCmd,
		&ResetCmd,
		&UpgradeCmd,
	)
}
