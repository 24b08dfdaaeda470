package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"qmunlock/internal/config"
)

// shouldPause decides whether to hold the console open before exiting. A
// drag-and-drop launch opens a console window that would otherwise close
// before the user can read the result.
func (c *commandContext) shouldPause(out io.Writer) bool {
	if c.noPause {
		return false
	}
	mode := config.PauseAuto
	if c.config != nil {
		mode = c.config.Interactive.PauseOnExit
	}
	switch mode {
	case config.PauseAlways:
		return true
	case config.PauseNever:
		return false
	default:
		return isTerminal(c.stdin) && isTerminal(out)
	}
}

func (c *commandContext) waitForEnter(out io.Writer) {
	if !c.shouldPause(out) || c.stdin == nil {
		return
	}
	fmt.Fprintln(out, "Press Enter to exit...")
	_, _ = bufio.NewReader(c.stdin).ReadString('\n')
}

func isTerminal(v any) bool {
	file, ok := v.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
