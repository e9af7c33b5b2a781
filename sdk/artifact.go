package sdk

import (
	"fmt"
)

// Artifact is the compiled form of a contract as produced by the build
// toolchain.
type Artifact struct {
	ABI         string
	Bytecode    []byte
	BuildInfoID string
}

// ArtifactReader looks up compiled artifacts. The core treats this as a pure
// lookup and never triggers compilation itself.
type ArtifactReader interface {
	// GetArtifact returns the artifact for a fully qualified contract name,
	// e.g. "src/Token.sol:Token".
	GetArtifact(fullyQualifiedName string) (Artifact, error)
}

// ArtifactNotFoundError is returned when no compiled artifact exists for the
// requested fully qualified name.
type ArtifactNotFoundError struct {
	FullyQualifiedName string
}

// NewArtifactNotFoundError returns a new ArtifactNotFoundError.
func NewArtifactNotFoundError(fullyQualifiedName string) *ArtifactNotFoundError {
	return &ArtifactNotFoundError{FullyQualifiedName: fullyQualifiedName}
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("artifact not found: %s", e.FullyQualifiedName)
}
