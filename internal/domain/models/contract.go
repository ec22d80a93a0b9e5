package models

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ArtifactFormat identifies the toolchain that produced an artifact
type ArtifactFormat string

const (
	ArtifactFormatHardhat ArtifactFormat = "hardhat"
	ArtifactFormatFoundry ArtifactFormat = "foundry"
)

// Artifact represents a compiled contract ready for deployment
type Artifact struct {
	Name            string          `json:"name"`       // e.g. "VotingSystem"
	SourceName      string          `json:"sourceName"` // e.g. "contracts/VotingSystem.sol"
	Path            string          `json:"path"`       // artifact file on disk
	Format          ArtifactFormat  `json:"format"`
	RawABI          json.RawMessage `json:"abi"`
	Bytecode        []byte          `json:"-"`
	CompilerVersion string          `json:"compilerVersion,omitempty"` // e.g. "0.8.24+commit.e11b9ed9"

	// StandardJSONInput is the solc input the contract was compiled from.
	// Empty when no build-info was found next to the artifact.
	StandardJSONInput json.RawMessage `json:"-"`

	ABI *abi.ABI `json:"-"`
}

// FullyQualifiedName returns the "source:Name" form explorers expect
func (a *Artifact) FullyQualifiedName() string {
	if a.SourceName == "" {
		return a.Name
	}
	return fmt.Sprintf("%s:%s", a.SourceName, a.Name)
}

// HasSource reports whether the artifact carries enough to submit source verification
func (a *Artifact) HasSource() bool {
	return len(a.StandardJSONInput) > 0 && a.CompilerVersion != ""
}

// BytecodeObject represents bytecode information in a Foundry artifact
type BytecodeObject struct {
	Object string `json:"object"`
}

// FoundryArtifact represents a Foundry compilation artifact (out/X.sol/X.json)
type FoundryArtifact struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode BytecodeObject  `json:"bytecode"`
	Metadata struct {
		Compiler struct {
			Version string `json:"version"`
		} `json:"compiler"`
		Settings struct {
			CompilationTarget map[string]string `json:"compilationTarget"`
		} `json:"settings"`
	} `json:"metadata"`
}

// HardhatArtifact represents a Hardhat compilation artifact (artifacts/**/X.sol/X.json)
type HardhatArtifact struct {
	Format       string          `json:"_format"`
	ContractName string          `json:"contractName"`
	SourceName   string          `json:"sourceName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// HardhatDebugFile points a Hardhat artifact to its build-info
type HardhatDebugFile struct {
	BuildInfo string `json:"buildInfo"`
}

// BuildInfo is the solc build record written by both Hardhat and Foundry
type BuildInfo struct {
	SolcLongVersion string          `json:"solcLongVersion"`
	SolcVersion     string          `json:"solcVersion"`
	Input           json.RawMessage `json:"input"`
	Output          struct {
		Contracts map[string]map[string]json.RawMessage `json:"contracts"`
	} `json:"output"`
}
