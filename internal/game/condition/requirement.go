// Package condition provides the requirement predicates that gate rule nodes
// and effect templates, plus the type registry content files build them from.
package condition

import "github.com/cory-johannsen/lootweight/internal/game/subject"

// Requirement is a predicate over a subject.
//
// Implementations MUST be pure and safe for concurrent use.
type Requirement interface {
	Satisfied(s subject.Subject) bool
}

// Func adapts a plain function to Requirement.
type Func func(s subject.Subject) bool

// Satisfied implements Requirement.
func (f Func) Satisfied(s subject.Subject) bool { return f(s) }

// AllSatisfied reports whether every requirement in reqs passes for s.
// Evaluation stops at the first failure.
//
// Postcondition: Returns true for an empty or nil reqs.
func AllSatisfied(s subject.Subject, reqs []Requirement) bool {
	for _, r := range reqs {
		if !r.Satisfied(s) {
			return false
		}
	}
	return true
}

// Always is a Requirement that is satisfied by every subject.
var Always Requirement = Func(func(subject.Subject) bool { return true })

// Never is a Requirement that no subject satisfies.
var Never Requirement = Func(func(subject.Subject) bool { return false })
