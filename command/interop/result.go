package interop

import (
	"bytes"
	"fmt"

	"github.com/0xPolygon/interop-edge/command/helper"
	"github.com/0xPolygon/interop-edge/interop"
	"github.com/0xPolygon/interop-edge/types"
)

type rootResult struct {
	Title  string     `json:"-"`
	Fields []string   `json:"-"`
	Root   types.Hash `json:"root"`
}

func (r *rootResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString(fmt.Sprintf("\n[%s]\n", r.Title))
	buffer.WriteString(helper.FormatKV(append(r.Fields, fmt.Sprintf("Root|%s", r.Root))))
	buffer.WriteString("\n")

	return buffer.String()
}

type haltResult struct {
	Source uint64 `json:"source"`
	interop.Halt
}

type haltedResult []*haltResult

func (r haltedResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[HALTED SOURCES]\n")

	if len(r) == 0 {
		buffer.WriteString("No halted sources\n")

		return buffer.String()
	}

	rows := make([]string, 0, len(r)+1)
	rows = append(rows, "Source|Batch|Existing root|Conflicting root|Held events")

	for _, h := range r {
		rows = append(rows, fmt.Sprintf("%d|%d|%s|%s|%d",
			h.Source, h.Key.BatchNumber, h.Existing, h.Incoming, len(h.Held)))
	}

	buffer.WriteString(helper.FormatList(rows))
	buffer.WriteString("\n")

	return buffer.String()
}

type resumeResult struct {
	Destination uint64 `json:"destination"`
	Source      uint64 `json:"source"`
}

func (r *resumeResult) GetOutput() string {
	return fmt.Sprintf("\nSource %d resumed on chain %d\n", r.Source, r.Destination)
}
