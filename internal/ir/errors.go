package ir

import "fmt"

// SchemaError reports an invalid IR construction: duplicate IDs, malformed
// spans, out-of-range levels or confidences. It is fatal; a tree that fails
// validation never reaches generation.
type SchemaError struct {
	NodeID string
	Page   int
	Reason string
}

func (e *SchemaError) Error() string {
	if e.NodeID == "" {
		return "ir schema: " + e.Reason
	}
	if e.Page > 0 {
		return fmt.Sprintf("ir schema: node %s (page %d): %s", e.NodeID, e.Page, e.Reason)
	}
	return fmt.Sprintf("ir schema: node %s: %s", e.NodeID, e.Reason)
}

func schemaErrf(n *Node, format string, args ...any) *SchemaError {
	e := &SchemaError{Reason: fmt.Sprintf(format, args...)}
	if n != nil {
		e.NodeID = n.ID
		e.Page = n.Page
	}
	return e
}
