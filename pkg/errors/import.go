package errors

import "fmt"

// Stage names the step of an import at which a failure happened.
type Stage string

const (
	StageParse   Stage = "parse"
	StageResolve Stage = "resolve"
	StageInstall Stage = "install"
	StageLoad    Stage = "load"
)

// ImportError reports a failed import together with the reference and the stage.
type ImportError struct {
	Ref   string
	Stage Stage
	Err   error
}

// NewImportError returns nil when err is nil.
func NewImportError(ref string, stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &ImportError{Ref: ref, Stage: stage, Err: err}
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %q failed at %s stage: %v", e.Ref, e.Stage, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
