package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sahilm/fuzzy"
	abicodec "github.com/trebuchet-org/treb-deploy/internal/adapters/abi"
	"github.com/trebuchet-org/treb-deploy/internal/domain"
	"github.com/trebuchet-org/treb-deploy/internal/domain/config"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

const buildInfoDir = "build-info"

// Repository discovers compiled artifacts in Hardhat (artifacts/) and Foundry (out/) output directories
type Repository struct {
	projectRoot string
	paths       []string
	log         *slog.Logger

	mu        sync.RWMutex
	indexed   bool
	byName    map[string][]*models.Artifact // key: contract name
	byFQN     map[string]*models.Artifact   // key: "source:Name"
	buildInfo map[string]*models.BuildInfo  // key: build-info file path
}

var _ usecase.ArtifactResolver = (*Repository)(nil)

// NewRepository creates a new artifact repository
func NewRepository(cfg *config.RuntimeConfig, log *slog.Logger) *Repository {
	paths := cfg.Artifacts.Paths
	if len(paths) == 0 {
		paths = config.DefaultArtifactPaths
	}
	return &Repository{
		projectRoot: cfg.ProjectRoot,
		paths:       paths,
		log:         log.With("component", "artifacts"),
		byName:      make(map[string][]*models.Artifact),
		byFQN:       make(map[string]*models.Artifact),
		buildInfo:   make(map[string]*models.BuildInfo),
	}
}

// Index discovers all artifacts once
func (r *Repository) Index() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexed {
		return nil
	}

	for _, p := range r.paths {
		dir := p
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(r.projectRoot, p)
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}

		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == buildInfoDir {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != ".json" || strings.HasSuffix(path, ".dbg.json") {
				return nil
			}
			return r.processArtifact(path)
		})
		if err != nil {
			return fmt.Errorf("failed to index artifacts in %s: %w", p, err)
		}
	}

	r.indexed = true
	return nil
}

// processArtifact records one artifact file if it is deployable
func (r *Repository) processArtifact(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	artifact, ok := parseHardhat(data)
	if !ok {
		artifact, ok = parseFoundry(data)
	}
	if !ok {
		return nil
	}
	artifact.Path = path

	// Interfaces and abstract contracts have no creation code
	if len(artifact.Bytecode) == 0 {
		return nil
	}

	r.log.Debug("indexed artifact", "name", artifact.Name, "source", artifact.SourceName, "format", artifact.Format)
	r.byName[artifact.Name] = append(r.byName[artifact.Name], artifact)
	r.byFQN[artifact.FullyQualifiedName()] = artifact
	return nil
}

func parseHardhat(data []byte) (*models.Artifact, bool) {
	var hh models.HardhatArtifact
	if err := json.Unmarshal(data, &hh); err != nil || !strings.HasPrefix(hh.Format, "hh-sol-artifact") {
		return nil, false
	}
	bytecode, err := hexutil.Decode(hh.Bytecode)
	if err != nil {
		return nil, false
	}
	return &models.Artifact{
		Name:       hh.ContractName,
		SourceName: hh.SourceName,
		Format:     models.ArtifactFormatHardhat,
		RawABI:     hh.ABI,
		Bytecode:   bytecode,
	}, true
}

func parseFoundry(data []byte) (*models.Artifact, bool) {
	var fa models.FoundryArtifact
	if err := json.Unmarshal(data, &fa); err != nil || len(fa.Metadata.Settings.CompilationTarget) == 0 {
		return nil, false
	}
	bytecode, err := hexutil.Decode(fa.Bytecode.Object)
	if err != nil {
		return nil, false
	}

	// There should only be one entry
	var source, name string
	for s, n := range fa.Metadata.Settings.CompilationTarget {
		source, name = s, n
	}
	return &models.Artifact{
		Name:            name,
		SourceName:      source,
		Format:          models.ArtifactFormatFoundry,
		RawABI:          fa.ABI,
		Bytecode:        bytecode,
		CompilerVersion: fa.Metadata.Compiler.Version,
	}, true
}

// Resolve returns the artifact for a contract name or "source:Name"
func (r *Repository) Resolve(ctx context.Context, contract string) (*models.Artifact, error) {
	if err := r.Index(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	artifact, err := r.lookup(contract)
	if err != nil {
		return nil, err
	}

	if artifact.ABI == nil {
		parsed, err := abicodec.Parse(artifact.RawABI)
		if err != nil {
			return nil, fmt.Errorf("invalid artifact %s: %w", artifact.Path, err)
		}
		artifact.ABI = parsed

		if err := r.attachBuildInfo(artifact); err != nil {
			// verification needs it, deployment does not
			r.log.Warn("no build info for artifact", "contract", artifact.FullyQualifiedName(), "error", err)
		}
	}

	return artifact, nil
}

func (r *Repository) lookup(contract string) (*models.Artifact, error) {
	if a, ok := r.byFQN[contract]; ok {
		return a, nil
	}

	matches := r.byName[contract]
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		names := make([]string, 0, len(r.byName))
		for n := range r.byName {
			names = append(names, n)
		}
		sort.Strings(names)

		var suggestions []string
		for _, m := range fuzzy.Find(contract, names) {
			suggestions = append(suggestions, m.Str)
			if len(suggestions) == 3 {
				break
			}
		}
		if len(suggestions) > 0 {
			return nil, fmt.Errorf("%w: %s (did you mean %s?)", domain.ErrArtifactNotFound, contract, strings.Join(suggestions, ", "))
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, contract)
	default:
		fqns := make([]string, 0, len(matches))
		for _, m := range matches {
			fqns = append(fqns, m.FullyQualifiedName())
		}
		sort.Strings(fqns)
		return nil, domain.AmbiguousArtifactErr{Contract: contract, Matches: fqns}
	}
}

// List returns the names of every deployable artifact
func (r *Repository) List(ctx context.Context) ([]string, error) {
	if err := r.Index(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// attachBuildInfo finds the solc standard JSON input the artifact was compiled from
func (r *Repository) attachBuildInfo(artifact *models.Artifact) error {
	var candidates []string
	switch artifact.Format {
	case models.ArtifactFormatHardhat:
		dbgPath := strings.TrimSuffix(artifact.Path, ".json") + ".dbg.json"
		data, err := os.ReadFile(dbgPath)
		if err != nil {
			return err
		}
		var dbg models.HardhatDebugFile
		if err := json.Unmarshal(data, &dbg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", dbgPath, err)
		}
		candidates = []string{filepath.Join(filepath.Dir(dbgPath), dbg.BuildInfo)}
	case models.ArtifactFormatFoundry:
		// out/X.sol/X.json -> out/build-info/*.json
		dir := filepath.Join(filepath.Dir(filepath.Dir(artifact.Path)), buildInfoDir)
		files, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil {
			return err
		}
		candidates = files
	}

	for _, path := range candidates {
		info, err := r.loadBuildInfo(path)
		if err != nil {
			return err
		}
		if _, ok := info.Output.Contracts[artifact.SourceName][artifact.Name]; !ok && artifact.Format == models.ArtifactFormatFoundry {
			continue
		}
		artifact.StandardJSONInput = info.Input
		if info.SolcLongVersion != "" {
			artifact.CompilerVersion = info.SolcLongVersion
		} else if artifact.CompilerVersion == "" {
			artifact.CompilerVersion = info.SolcVersion
		}
		return nil
	}
	return fmt.Errorf("no build info contains %s", artifact.FullyQualifiedName())
}

func (r *Repository) loadBuildInfo(path string) (*models.BuildInfo, error) {
	if info, ok := r.buildInfo[path]; ok {
		return info, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info models.BuildInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse build info %s: %w", path, err)
	}
	r.buildInfo[path] = &info
	return &info, nil
}
