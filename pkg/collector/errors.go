package collector

import "fmt"

// Stage names the per-server pipeline step that failed. Failures are scoped
// to one server and one cycle; they never abort siblings.
type Stage string

const (
	StageCredentials Stage = "credentials"
	StageProbe       Stage = "probe"
	StageDecode      Stage = "decode"
	StageNormalize   Stage = "normalize"
	StagePersist     Stage = "persist"
	StageAlert       Stage = "alert"
)

// StageError carries enough context to identify the server and stage in
// logs.
type StageError struct {
	Server string
	Stage  Stage
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("server %s, stage %s: %v", e.Server, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
