package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

// RunRenderer renders the outcome of a deploy or verify run
type RunRenderer struct {
	out  io.Writer
	json bool
}

// NewRunRenderer creates a new run renderer
func NewRunRenderer(out io.Writer, jsonOutput bool) *RunRenderer {
	return &RunRenderer{out: out, json: jsonOutput}
}

type unitJSON struct {
	ContractID string `json:"contractId"`
	Contract   string `json:"contract"`
	Status     string `json:"status"`
	Address    string `json:"address,omitempty"`
	TxHash     string `json:"txHash,omitempty"`
	Attempts   int    `json:"attempts"`
	Retries    int    `json:"verificationRetries,omitempty"`
	Skipped    bool   `json:"skipped,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Render prints a summary table of every unit
func (r *RunRenderer) Render(result *usecase.OrchestrateResult) error {
	if r.json {
		return r.renderJSON(result)
	}

	if len(result.Units) == 0 {
		fmt.Fprintln(r.out, "Nothing to do")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Contract", "Status", "Address", "Tx", "Attempts", "Note"})

	for _, u := range result.Units {
		note := ""
		switch {
		case u.Err != nil:
			note = failedStyle.Sprint(u.Err.Error())
		case u.Skipped:
			note = faintStyle.Sprint("unchanged")
		case u.VerifyRetries > 0:
			note = fmt.Sprintf("verified after %d retries", u.VerifyRetries)
		}
		t.AppendRow(table.Row{
			u.ContractID,
			FormatStatus(u.Status),
			u.Address,
			shortHash(u.TxHash),
			u.Attempts,
			note,
		})
	}
	t.Render()

	fmt.Fprintln(r.out)
	failed := result.Failed()
	if len(failed) == 0 {
		fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("%d contract(s) done on %s", len(result.Units), result.Network)))
	} else {
		fmt.Fprintln(r.out, FormatError(fmt.Sprintf("%d of %d contract(s) failed on %s", len(failed), len(result.Units), result.Network)))
	}
	fmt.Fprintln(r.out, faintStyle.Sprintf("run %s", result.RunID))
	return nil
}

func (r *RunRenderer) renderJSON(result *usecase.OrchestrateResult) error {
	units := make([]unitJSON, 0, len(result.Units))
	for _, u := range result.Units {
		j := unitJSON{
			ContractID: u.ContractID,
			Contract:   u.Contract,
			Status:     string(u.Status),
			Address:    u.Address,
			TxHash:     u.TxHash,
			Attempts:   u.Attempts,
			Retries:    u.VerifyRetries,
			Skipped:    u.Skipped,
		}
		if u.Err != nil {
			j.Error = u.Err.Error()
		}
		units = append(units, j)
	}

	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"runId":   result.RunID,
		"network": result.Network,
		"success": result.Success(),
		"units":   units,
	})
}
