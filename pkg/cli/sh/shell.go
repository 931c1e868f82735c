package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/wirefree.go/pkg/rm024"
	"github.com/robotalks/wirefree.go/pkg/serial"
)

// Port is an opened radio port.
type Port interface {
	rm024.Port
	io.Closer
	Name() string
}

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell    *ishell.Shell
	Config   *serial.Config
	Timeouts rm024.Timeouts
	// OpenPort opens the port named in Config.
	OpenPort func(*serial.Config) (Port, error)

	Port    Port
	Link    *rm024.Link
	Session *rm024.Session
}

const (
	shellKey     = "$shell"
	closedPrompt = "[closed] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&PortsCmd,
		&OpenCmd,
		&CloseCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

func openSerial(conf *serial.Config) (Port, error) {
	return conf.Open()
}

// New creates a new shell.
func New(conf *serial.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:    ishell.New(),
		Config:   conf,
		Timeouts: rm024.DefaultTimeouts(),
		OpenPort: openSerial,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps command func requires an opened port. The configured
// port is opened when none is.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if s := ShellFrom(c); s.Link == nil {
			if err := s.Open(""); err != nil {
				c.Err(fmt.Errorf("open %s: %w", s.Config.Name, err))
				return
			}
		}
		fn(c)
	}
}

// WithSession wraps command func requires a command mode session, entering
// command mode when needed.
func WithSession(fn func(c *ishell.Context, session *rm024.Session)) func(c *ishell.Context) {
	return MustBeOpen(func(c *ishell.Context) {
		session, err := ShellFrom(c).Enter()
		if err != nil {
			c.Err(err)
			return
		}
		fn(c, session)
		ShellFrom(c).UpdatePrompt()
	})
}

// Output prints a result, as JSON when requested.
func Output(c *ishell.Context, v interface{}) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(v)
}

// Open opens the named port, or the configured one when name is empty.
func (s *Shell) Open(name string) error {
	conf := *s.Config
	if name != "" {
		conf.Name = name
	}
	port, err := s.OpenPort(&conf)
	if err != nil {
		return err
	}
	s.Close()
	s.Port = port
	s.Link = rm024.NewLink(port, rm024.WithTimeouts(s.Timeouts))
	s.UpdatePrompt()
	return nil
}

// Close leaves command mode and closes the port.
func (s *Shell) Close() {
	if s.Session != nil && !s.Session.Closed() {
		if err := s.Session.Exit(); err != nil {
			glog.Warningf("exit: %v", err)
		}
	}
	if s.Port != nil {
		s.Port.Close()
	}
	s.Port, s.Link, s.Session = nil, nil, nil
	s.UpdatePrompt()
}

// Enter enters command mode, reusing the open session.
func (s *Shell) Enter() (*rm024.Session, error) {
	if s.Link == nil {
		return nil, fmt.Errorf("port not open")
	}
	if s.Session != nil && !s.Session.Closed() {
		return s.Session, nil
	}
	session, err := s.Link.Enter()
	if err != nil {
		return nil, err
	}
	s.Session = session
	s.UpdatePrompt()
	return session, nil
}

// UpdatePrompt reflects the port and link state in the prompt.
func (s *Shell) UpdatePrompt() {
	if s.Shell == nil {
		return
	}
	s.Shell.SetPrompt(s.Prompt())
}

// Prompt renders the prompt.
func (s *Shell) Prompt() string {
	if s.Port == nil {
		return closedPrompt
	}
	if state := s.Link.State(); state != rm024.Transparent {
		return fmt.Sprintf("%s [%v] > ", s.Port.Name(), state)
	}
	return s.Port.Name() + " > "
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.Close()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			glog.Exit(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	glog.Exit("command expected")
}

var (
	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name: "ports",
		Help: "",
		Func: func(c *ishell.Context) {
			ports, err := serial.Ports()
			if err != nil {
				c.Err(err)
				return
			}
			if ShellFrom(c).OutputJSON {
				if ports == nil {
					ports = []string{}
				}
				Output(c, ports)
				return
			}
			if len(ports) == 0 {
				c.Println("No serial ports found")
				return
			}
			c.Println(strings.Join(ports, "\n"))
		},
	}

	// OpenCmd opens the radio port.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "[PORT]",
		Func: func(c *ishell.Context) {
			var name string
			if len(c.Args) > 0 {
				name = c.Args[0]
			}
			if err := ShellFrom(c).Open(name); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the radio port.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Close()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	defer glog.Flush()
	New(serial.Default()).Run(flag.Args()...)
}
