package command

import (
	"io"
)

type CLIOutput struct {
	commonOutputFormatter
}

func newCLIOutput(stdout, stderr io.Writer) *CLIOutput {
	return &CLIOutput{
		commonOutputFormatter: commonOutputFormatter{stdout: stdout, stderr: stderr},
	}
}

func (cli *CLIOutput) WriteOutput() {
	cli.write(cli.getErrorOutput, cli.getCommandOutput)
}

func (cli *CLIOutput) WriteCommandResult(result CommandResult) {
	_, _ = io.WriteString(cli.stdout, result.GetOutput()+"\n")
}

func (cli *CLIOutput) getErrorOutput() string {
	return cli.errorOutput.Error()
}

func (cli *CLIOutput) getCommandOutput() string {
	return cli.commandOutput.GetOutput()
}
