package commander

import "context"

// EdgePredicate evaluates a completed TaskNode to choose a route for
// AddConditionalEdge. It receives the node whose end event fired, so it
// can inspect Result, Exception, or Data.
type EdgePredicate func(node TaskNode) any

// AddEdge wires an unconditional successor: when from reaches a
// successful terminal state (its at_job_end/at_handler_end fires), to is
// started via CallHandler under the Commander root, not under from. If
// data is provided (non-nil), it is assigned to to.Data() before to
// starts, so the successor's body can read it via self.Data().
//
// Edges re-parent their successor to the Commander rather than to from
// so that completed predecessors can unlink from the tree (spec.md's
// node-unlinks-when-terminal-and-childless rule) without dragging their
// successors down with them — a chain of edges stays acyclic even when
// the edges themselves describe a cycle (A -> B -> A), since each hop
// is a fresh sibling of the root, not a descendant of the last one.
func AddEdge(from TaskNode, to Startable, data ...any) error {
	to.setReusable()
	edgeData := firstOrNil(data)
	return from.Callbacks().Add(endEventFor(from), CallbackDescriptor{
		InjectTaskNode: true,
		Func: func(ctx context.Context, node TaskNode, _ []any, _ map[string]any) error {
			if node.State() != Done {
				return nil
			}
			cmd := commanderOf(node)
			if cmd == nil {
				return nil
			}
			if edgeData != nil {
				to.SetData(edgeData)
			}
			_, err := cmd.CallHandler(cmd, to)
			return err
		},
	})
}

// AddConditionalEdge wires a branching successor: when from completes
// successfully, pick evaluates it and selects the route matching the
// returned key from routes. If no route matches, no successor starts. If
// data is provided (non-nil), it is assigned to the resolved route's
// Data() before it starts.
func AddConditionalEdge(from TaskNode, pick EdgePredicate, routes map[any]Startable, data ...any) error {
	for _, to := range routes {
		to.setReusable()
	}
	edgeData := firstOrNil(data)
	return from.Callbacks().Add(endEventFor(from), CallbackDescriptor{
		InjectTaskNode: true,
		Func: func(ctx context.Context, node TaskNode, _ []any, _ map[string]any) error {
			if node.State() != Done {
				return nil
			}
			to, ok := routes[pick(node)]
			if !ok {
				return nil
			}
			cmd := commanderOf(node)
			if cmd == nil {
				return nil
			}
			if edgeData != nil {
				to.SetData(edgeData)
			}
			_, err := cmd.CallHandler(cmd, to)
			return err
		},
	})
}

// firstOrNil returns the first element of data, or nil if data is empty.
// AddEdge/AddConditionalEdge take data as a trailing variadic so it stays
// optional while reading as a single argument at call sites.
func firstOrNil(data []any) any {
	if len(data) == 0 {
		return nil
	}
	return data[0]
}

// endEventFor picks the terminal-success event a node's Kind fires,
// falling back to EventJobEnd for any future node kind this package does
// not yet know about.
func endEventFor(node TaskNode) CallbackEvent {
	if node.Kind() == "handler" {
		return EventHandlerEnd
	}
	return EventJobEnd
}

func commanderOf(node TaskNode) *Commander {
	in, ok := node.(internalNode)
	if !ok {
		return nil
	}
	return in.commander()
}
