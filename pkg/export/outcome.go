package export

import (
	"errors"
	"fmt"
	"time"

	"github.com/ruslano69/symexport/pkg/adapters"
)

// State is a step of the per-run state machine.
type State int

const (
	StateInit State = iota
	StateLoadProcedures
	StateEmitSchema
	StatePopulateManifest
	StatePopulateTables
	StateCommit
	StateSuccess
	StateFailed
)

var stateNames = map[State]string{
	StateInit:             "init",
	StateLoadProcedures:   "load_procedures",
	StateEmitSchema:       "emit_schema",
	StatePopulateManifest: "populate_manifest",
	StatePopulateTables:   "populate_tables",
	StateCommit:           "commit",
	StateSuccess:          "success",
	StateFailed:           "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// BackendOutcome is the result of one backend for one run.
type BackendOutcome struct {
	Backend string `json:"backend"`
	State   State  `json:"state"`

	// FailedAt is the step that failed first. Meaningful only when State
	// is StateFailed.
	FailedAt State `json:"failed_at"`

	Files  []adapters.FileStat `json:"files,omitempty"`
	Errors []error             `json:"-"`
}

// Failed reports whether the backend hit any error.
func (o *BackendOutcome) Failed() bool { return o.State == StateFailed }

// Err joins the backend's errors.
func (o *BackendOutcome) Err() error { return errors.Join(o.Errors...) }

// Messages returns the error texts, for publication.
func (o *BackendOutcome) Messages() []string {
	out := make([]string, len(o.Errors))
	for i, err := range o.Errors {
		out[i] = err.Error()
	}
	return out
}

func (o *BackendOutcome) fail(at State, err error) {
	if o.State != StateFailed {
		o.State = StateFailed
		o.FailedAt = at
	}
	o.Errors = append(o.Errors, fmt.Errorf("%s: %s: %w", o.Backend, at, err))
}

// Outcome is the result of one run across all backends.
type Outcome struct {
	SourceID uint32           `json:"source_id"`
	State    State            `json:"state"`
	Started  time.Time        `json:"started"`
	Duration time.Duration    `json:"duration"`
	Backends []BackendOutcome `json:"backends"`

	// Fatal is set when the run stopped before any backend was touched.
	Fatal error `json:"-"`
}

// Failed reports whether the run or any backend failed.
func (o *Outcome) Failed() bool { return o.State == StateFailed }

// Err joins the fatal error and every backend error, nil on success.
func (o *Outcome) Err() error {
	errs := []error{o.Fatal}
	for i := range o.Backends {
		errs = append(errs, o.Backends[i].Errors...)
	}
	return errors.Join(errs...)
}

// Backend returns the outcome of the named backend.
func (o *Outcome) Backend(name string) (*BackendOutcome, bool) {
	for i := range o.Backends {
		if o.Backends[i].Backend == name {
			return &o.Backends[i], true
		}
	}
	return nil, false
}
