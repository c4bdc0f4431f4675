// Package diag provides the run-scoped diagnostics sink used by the
// reconciliation engine and source adapters. Warnings accumulate as
// structured records and are returned to the caller alongside the result
// instead of mutating shared process state.
package diag

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Class categorizes a warning within the error taxonomy.
type Class string

// Warning classes.
const (
	// AbsentValue records a lookup miss or an unparsable optional field;
	// processing continued with a sentinel.
	AbsentValue Class = "absent_value"

	// Coercion records a value that could not be coerced to the type a
	// caller needed; the value was treated as absent.
	Coercion Class = "coercion"

	// Consistency records conflicting identity values between trusted
	// sources; processing continued using the documented preference order.
	Consistency Class = "consistency"

	// Collaborator records a failed external collaborator call; the
	// affected field degraded to absent.
	Collaborator Class = "collaborator"
)

// Warning is one structured diagnostic record.
type Warning struct {
	Class   Class     `yaml:"class"`
	Field   string    `yaml:"field,omitempty"`
	Source  string    `yaml:"source,omitempty"`
	Message string    `yaml:"message"`
	At      time.Time `yaml:"at"`
	Err     error     `yaml:"-"`
}

// Sink collects warnings for a single dataset-processing run. A Sink is
// safe for concurrent use; manifest digest workers may warn in parallel.
type Sink struct {
	mu       sync.Mutex
	logger   *zerolog.Logger
	warnings []Warning
}

// Option configures a Sink.
type Option func(*Sink)

// WithLogger mirrors every warning to the given logger as it is recorded.
func WithLogger(logger *zerolog.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

// NewSink creates an empty diagnostics sink.
func NewSink(opts ...Option) *Sink {
	s := &Sink{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends a warning to the sink.
func (s *Sink) Record(w Warning) {
	if w.At.IsZero() {
		w.At = time.Now().UTC()
	}

	s.mu.Lock()
	s.warnings = append(s.warnings, w)
	logger := s.logger
	s.mu.Unlock()

	if logger != nil {
		logger.Warn().
			Str("class", string(w.Class)).
			Str("field", w.Field).
			Str("source", w.Source).
			Err(w.Err).
			Msg(w.Message)
	}
}

// Absent records an absent-value warning for a field.
func (s *Sink) Absent(field, message string) {
	s.Record(Warning{Class: AbsentValue, Field: field, Message: message})
}

// Coerce records a failed type coercion for a field.
func (s *Sink) Coerce(field, message string, err error) {
	s.Record(Warning{Class: Coercion, Field: field, Message: message, Err: err})
}

// Inconsistent records a consistency fault between trusted sources.
func (s *Sink) Inconsistent(field, source, message string, err error) {
	s.Record(Warning{Class: Consistency, Field: field, Source: source, Message: message, Err: err})
}

// CollaboratorFailed records a degraded external collaborator call.
func (s *Sink) CollaboratorFailed(source string, err error) {
	msg := "collaborator call failed"
	if err != nil {
		msg = err.Error()
	}
	s.Record(Warning{Class: Collaborator, Source: source, Message: msg, Err: err})
}

// Warnings returns a copy of all recorded warnings in recording order.
func (s *Sink) Warnings() []Warning {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Warning, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// Len returns the number of recorded warnings.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.warnings)
}

// Has reports whether any warning of the given class was recorded.
func (s *Sink) Has(class Class) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.warnings {
		if w.Class == class {
			return true
		}
	}
	return false
}
