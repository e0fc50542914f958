package command

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type testResult struct {
	Name string `json:"name"`
}

func (r *testResult) GetOutput() string {
	return "name = " + r.Name
}

func TestOutput_CLI(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	out := newCLIOutput(&stdout, &stderr)
	out.SetCommandResult(&testResult{Name: "chain"})
	out.WriteOutput()

	require.Equal(t, "name = chain\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestOutput_JSON(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	out := newJSONOutput(&stdout, &stderr)
	out.SetCommandResult(&testResult{Name: "chain"})
	out.WriteOutput()

	require.JSONEq(t, `{"name":"chain"}`, stdout.String())
	require.Empty(t, stderr.String())
}

func TestOutput_ErrorWins(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	out := newJSONOutput(&stdout, &stderr)
	out.SetCommandResult(&testResult{Name: "chain"})
	out.SetError(errors.New("boom"))
	out.WriteOutput()

	require.Empty(t, stdout.String())
	require.JSONEq(t, `{"error":"boom"}`, stderr.String())
}

func TestOutput_NothingSet(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	newCLIOutput(&stdout, &stderr).WriteOutput()

	require.Empty(t, stdout.String())
	require.Empty(t, stderr.String())
}
