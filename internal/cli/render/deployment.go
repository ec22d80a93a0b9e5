package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

// DeploymentRenderer renders detailed information about a single record
type DeploymentRenderer struct {
	out  io.Writer
	json bool
}

// NewDeploymentRenderer creates a new deployment renderer
func NewDeploymentRenderer(out io.Writer, jsonOutput bool) *DeploymentRenderer {
	return &DeploymentRenderer{out: out, json: jsonOutput}
}

// Render renders detailed deployment information
func (r *DeploymentRenderer) Render(result *usecase.ShowDeploymentResult) error {
	if r.json {
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	rec := result.Record

	// Header
	headerStyle.Fprintf(r.out, "Deployment: %s\n", rec.ContractID)
	fmt.Fprintln(r.out, strings.Repeat("=", 80))

	fmt.Fprintf(r.out, "  Contract: %s\n", color.New(color.FgYellow).Sprint(rec.Contract))
	fmt.Fprintf(r.out, "  Network: %s\n", rec.Network)
	fmt.Fprintf(r.out, "  Status: %s\n", FormatStatus(rec.Status))
	if rec.Address != "" {
		fmt.Fprintf(r.out, "  Address: %s\n", rec.Address)
	}
	if rec.TxHash != "" {
		fmt.Fprintf(r.out, "  Transaction: %s\n", rec.TxHash)
	}
	if rec.BlockNumber != 0 {
		fmt.Fprintf(r.out, "  Block: %d\n", rec.BlockNumber)
	}
	if rec.Deployer != "" {
		fmt.Fprintf(r.out, "  Deployer: %s\n", rec.Deployer)
	}
	if len(rec.ConstructorArgs) > 0 {
		args, _ := json.Marshal(rec.ConstructorArgs)
		fmt.Fprintf(r.out, "  Constructor Args: %s\n", args)
	}
	fmt.Fprintf(r.out, "  Attempts: %d\n", rec.Attempts)
	if rec.LastError != "" {
		fmt.Fprintf(r.out, "  Last Error: %s\n", failedStyle.Sprint(rec.LastError))
	}
	fmt.Fprintf(r.out, "  Revision: %d\n", rec.Revision)
	if rec.RunID != "" {
		fmt.Fprintf(r.out, "  Run: %s\n", faintStyle.Sprint(rec.RunID))
	}
	fmt.Fprintf(r.out, "  Created: %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(r.out, "  Updated: %s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05 MST"))

	if len(result.History) > 0 {
		fmt.Fprintln(r.out, "\nHistory:")
		t := table.NewWriter()
		t.SetOutputMirror(r.out)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Rev", "Status", "Attempts", "Updated", "Error"})
		for _, h := range result.History {
			t.AppendRow(table.Row{
				h.Revision,
				FormatStatus(h.Status),
				h.Attempts,
				h.UpdatedAt.Format("2006-01-02 15:04:05"),
				h.LastError,
			})
		}
		t.Render()
	}
	return nil
}
