package command

import (
	"fmt"
	"io"
)

type commonOutputFormatter struct {
	stdout io.Writer
	stderr io.Writer

	errorOutput   error
	commandOutput CommandResult
}

func (c *commonOutputFormatter) SetError(err error) {
	c.errorOutput = err
}

func (c *commonOutputFormatter) SetCommandResult(result CommandResult) {
	c.commandOutput = result
}

// write prints either the error or the result, whichever is set
func (c *commonOutputFormatter) write(errorOutput func() string, commandOutput func() string) {
	if c.errorOutput != nil {
		_, _ = fmt.Fprintln(c.stderr, errorOutput())

		return
	}

	if c.commandOutput == nil {
		return
	}

	_, _ = fmt.Fprintln(c.stdout, commandOutput())
}
