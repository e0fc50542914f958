package command

import (
	"encoding/json"
	"io"
)

type JSONOutput struct {
	commonOutputFormatter
}

func newJSONOutput(stdout, stderr io.Writer) *JSONOutput {
	return &JSONOutput{
		commonOutputFormatter: commonOutputFormatter{stdout: stdout, stderr: stderr},
	}
}

func (jo *JSONOutput) WriteOutput() {
	jo.write(jo.getErrorOutput, jo.getCommandOutput)
}

func (jo *JSONOutput) WriteCommandResult(result CommandResult) {
	_, _ = io.WriteString(jo.stdout, marshalJSONToString(result)+"\n")
}

func (jo *JSONOutput) getErrorOutput() string {
	return marshalJSONToString(
		struct {
			Err string `json:"error"`
		}{
			Err: jo.errorOutput.Error(),
		},
	)
}

func (jo *JSONOutput) getCommandOutput() string {
	return marshalJSONToString(jo.commandOutput)
}

func marshalJSONToString(input interface{}) string {
	bytes, err := json.Marshal(input)
	if err != nil {
		return err.Error()
	}

	return string(bytes)
}
