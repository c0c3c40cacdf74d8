// Package store provides in-memory storage for the history of evaluations
// served by the REST, gRPC and web hosts.
package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lemonberrylabs/calc/pkg/calc"
)

// ErrNotFound is wrapped by lookups of unknown evaluations.
var ErrNotFound = errors.New("not found")

// EvaluationState represents the outcome of an evaluation.
type EvaluationState string

const (
	EvaluationSucceeded EvaluationState = "SUCCEEDED"
	EvaluationFailed    EvaluationState = "FAILED"
)

// Evaluation is a recorded evaluation of one expression.
type Evaluation struct {
	Name       string           `json:"name"`
	Expression string           `json:"expression"`
	State      EvaluationState  `json:"state"`
	Result     float64          `json:"result"`
	Error      *EvaluationError `json:"error,omitempty"`
	Tokens     int              `json:"tokens"`
	CreateTime time.Time        `json:"createTime"`
	EndTime    time.Time        `json:"endTime"`
}

// EvaluationError describes why an evaluation failed.
type EvaluationError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Stats summarizes the stored history.
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
}

// Store is a thread-safe in-memory history of evaluations.
type Store struct {
	mu          sync.RWMutex
	evaluations map[string]*Evaluation
	// order holds names oldest first.
	order []string
	limit int

	// Counter for generating unique IDs
	evalCounter int64
}

// New creates a new empty store. A positive limit caps the number of kept
// evaluations; the oldest are evicted first.
func New(limit int) *Store {
	return &Store{
		evaluations: make(map[string]*Evaluation),
		limit:       limit,
	}
}

// Record stores the outcome of evaluating expr. started is when evaluation
// began; tokens is the number of tokens the expression scanned to.
func (s *Store) Record(expr string, result float64, evalErr error, tokens int, started time.Time) *Evaluation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evalCounter++
	ev := &Evaluation{
		Name:       fmt.Sprintf("evaluations/eval-%d", s.evalCounter),
		Expression: expr,
		State:      EvaluationSucceeded,
		Result:     result,
		Tokens:     tokens,
		CreateTime: started,
		EndTime:    time.Now(),
	}
	if evalErr != nil {
		ev.State = EvaluationFailed
		ev.Result = 0
		ev.Error = &EvaluationError{Kind: calc.KindOf(evalErr).String(), Message: evalErr.Error()}
	}

	s.evaluations[ev.Name] = ev
	s.order = append(s.order, ev.Name)
	if s.limit > 0 && len(s.order) > s.limit {
		evict := s.order[:len(s.order)-s.limit]
		for _, name := range evict {
			delete(s.evaluations, name)
		}
		s.order = append([]string(nil), s.order[len(evict):]...)
	}
	return ev
}

// Evaluate runs expr through the calculator and records the outcome. strict
// rejects tokens left over after the expression.
func (s *Store) Evaluate(expr string, strict bool) *Evaluation {
	started := time.Now()
	tokens, err := calc.Tokenize(expr)
	if err != nil {
		return s.Record(expr, 0, err, 0, started)
	}
	var v float64
	if strict {
		v, err = calc.ParseAll(tokens)
	} else {
		v, err = calc.Parse(tokens)
	}
	return s.Record(expr, v, err, len(tokens), started)
}

// Get retrieves an evaluation by its full name ("evaluations/eval-N") or its
// bare ID ("eval-N").
func (s *Store) Get(name string) (*Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.evaluations[FullName(name)]
	if !ok {
		return nil, fmt.Errorf("evaluation '%s' %w", name, ErrNotFound)
	}
	return ev, nil
}

// List returns all stored evaluations, newest first.
func (s *Store) List() []*Evaluation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Evaluation, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		result = append(result, s.evaluations[s.order[i]])
	}
	return result
}

// Delete removes an evaluation.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	full := FullName(name)
	if _, ok := s.evaluations[full]; !ok {
		return fmt.Errorf("evaluation '%s' %w", name, ErrNotFound)
	}
	delete(s.evaluations, full)
	for i, n := range s.order {
		if n == full {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear removes every evaluation. IDs keep increasing afterwards.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evaluations = make(map[string]*Evaluation)
	s.order = nil
}

// Stats counts stored evaluations by state.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	for _, ev := range s.evaluations {
		st.Total++
		switch ev.State {
		case EvaluationSucceeded:
			st.Succeeded++
		case EvaluationFailed:
			st.Failed++
		}
	}
	return st
}

// FullName expands a bare evaluation ID to its full name.
func FullName(name string) string {
	const prefix = "evaluations/"
	if strings.HasPrefix(name, prefix) && len(name) > len(prefix) {
		return name
	}
	return prefix + name
}

// ID returns the last path segment of an evaluation name.
func ID(name string) string {
	return name[strings.LastIndexByte(name, '/')+1:]
}
