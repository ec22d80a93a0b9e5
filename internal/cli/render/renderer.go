package render

import "github.com/trebuchet-org/treb-deploy/internal/usecase"

// Renderer writes a use case result to the terminal
type Renderer[T any] interface {
	Render(result T) error
}

var (
	_ Renderer[*usecase.OrchestrateResult]    = (*RunRenderer)(nil)
	_ Renderer[*usecase.DeploymentListResult] = (*DeploymentsRenderer)(nil)
	_ Renderer[*usecase.ShowDeploymentResult] = (*DeploymentRenderer)(nil)
)
