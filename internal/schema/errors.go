package schema

import "fmt"

// InvariantError reports a scoring invariant violation: a misconfigured schema
// or a record set that cannot be aligned with it. It indicates a programming
// error rather than bad input.
type InvariantError struct {
	Schema string
	Reason string
}

func (e *InvariantError) Error() string {
	if e.Schema == "" {
		return fmt.Sprintf("scoring invariant violated: %s", e.Reason)
	}
	return fmt.Sprintf("scoring invariant violated in schema %q: %s", e.Schema, e.Reason)
}
