// Package all registers all shell commands.
package all

import (
	_ "github.com/robotalks/wirefree.go/pkg/cli/cmds/decode"
	_ "github.com/robotalks/wirefree.go/pkg/cli/cmds/radio"
)
