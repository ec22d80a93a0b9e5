package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

// DeploymentsRenderer renders ledger records as tables grouped by network
type DeploymentsRenderer struct {
	out  io.Writer
	json bool
}

// NewDeploymentsRenderer creates a new deployments renderer
func NewDeploymentsRenderer(out io.Writer, jsonOutput bool) *DeploymentsRenderer {
	return &DeploymentsRenderer{out: out, json: jsonOutput}
}

// Render renders the deployment list
func (r *DeploymentsRenderer) Render(result *usecase.DeploymentListResult) error {
	if r.json {
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Deployments)
	}

	if len(result.Deployments) == 0 {
		fmt.Fprintln(r.out, "No deployments found")
		return nil
	}

	// Records arrive sorted by network then id
	var network string
	var t table.Writer
	flush := func() {
		if t != nil {
			t.Render()
			fmt.Fprintln(r.out)
		}
	}
	for _, rec := range result.Deployments {
		if t == nil || rec.Network != network {
			flush()
			network = rec.Network
			headerStyle.Fprintf(r.out, "%s\n", network)
			t = table.NewWriter()
			t.SetOutputMirror(r.out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Contract", "Status", "Address", "Updated"})
		}
		t.AppendRow(table.Row{
			rec.ContractID,
			rec.Contract,
			FormatStatus(rec.Status),
			rec.Address,
			faintStyle.Sprint(rec.UpdatedAt.Format("2006-01-02 15:04:05")),
		})
	}
	flush()

	r.renderSummary(result.Summary)
	return nil
}

func (r *DeploymentsRenderer) renderSummary(summary usecase.DeploymentSummary) {
	statuses := make([]string, 0, len(summary.ByStatus))
	for status := range summary.ByStatus {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)

	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		parts = append(parts, fmt.Sprintf("%d %s", summary.ByStatus[models.DeploymentStatus(s)], strings.ToLower(s)))
	}
	fmt.Fprintf(r.out, "Total: %d (%s)\n", summary.Total, strings.Join(parts, ", "))
}
