package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/trebuchet-org/treb-deploy/internal/domain/config"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the manifest looked up in the project root
const DefaultFile = "deploy.yaml"

// Loader reads deployment units from deploy.yaml
type Loader struct {
	path string
}

var _ usecase.DeploymentManifest = (*Loader)(nil)

// NewLoader creates a loader for the configured manifest path
func NewLoader(cfg *config.RuntimeConfig) *Loader {
	path := cfg.ManifestPath
	if path == "" {
		path = DefaultFile
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.ProjectRoot, path)
	}
	return &Loader{path: path}
}

// Load parses the manifest and validates the units
func (l *Loader) Load(ctx context.Context) ([]*models.DeploymentSpec, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes manifest YAML. Units without an id get "deploy_" plus the
// contract name in lower camel case, e.g. VotingSystem -> deploy_votingSystem.
func Parse(data []byte) ([]*models.DeploymentSpec, error) {
	var m document
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	seen := make(map[string]int, len(m.Units))
	specs := make([]*models.DeploymentSpec, 0, len(m.Units))
	for i, unit := range m.Units {
		id := strings.TrimSpace(unit.ID)
		contract := strings.TrimSpace(unit.Contract)
		if id == "" && contract == "" {
			return nil, fmt.Errorf("invalid manifest: unit %d needs an id or a contract", i+1)
		}
		if id == "" {
			id = DefaultID(contract)
		}
		if prev, ok := seen[id]; ok {
			return nil, fmt.Errorf("invalid manifest: duplicate id %q (units %d and %d)", id, prev, i+1)
		}
		seen[id] = i + 1

		specs = append(specs, &models.DeploymentSpec{
			ContractID:      id,
			Contract:        contract,
			From:            unit.From,
			ConstructorArgs: []any(unit.Args),
			Tags:            unit.Tags,
			Verify:          unit.Verify,
		})
	}
	return specs, nil
}

// DefaultID derives a contract id from an artifact name
func DefaultID(contract string) string {
	// drop a "path:" qualifier
	if i := strings.LastIndex(contract, ":"); i >= 0 {
		contract = contract[i+1:]
	}
	runes := []rune(contract)
	if len(runes) > 0 {
		runes[0] = unicode.ToLower(runes[0])
	}
	return "deploy_" + string(runes)
}
