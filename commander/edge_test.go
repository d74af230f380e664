package commander

import (
	"context"
	"sync"
	"testing"
)

func TestAddEdge_StartsSuccessorOnlyAfterDone(t *testing.T) {
	cmd := New()

	var mu sync.Mutex
	var order []string

	from := NewJob(AcknowledgeNoBlocking, func(context.Context, *Job[int]) (int, error) {
		mu.Lock()
		order = append(order, "from")
		mu.Unlock()
		return 1, nil
	})
	to := NewHandler(AcknowledgeNoBlocking, func(context.Context, *HandlerCoroutine[int]) (int, error) {
		mu.Lock()
		order = append(order, "to")
		mu.Unlock()
		return 2, nil
	})

	if err := AddEdge(from, to); err != nil {
		t.Fatalf("AddEdge() error = %v", err)
	}
	if !to.reusable() {
		t.Fatal("AddEdge() successor not marked reusable")
	}

	if _, err := cmd.RunAuto(withTimeout(t), from); err != nil {
		t.Fatalf("RunAuto() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "from" || order[1] != "to" {
		t.Fatalf("execution order = %v, want [from to]", order)
	}
}

func TestAddEdge_DoesNotFireOnFailure(t *testing.T) {
	cmd := New()

	var toRan bool
	from := NewJob(AcknowledgeNoBlocking, func(context.Context, *Job[int]) (int, error) {
		return 0, errSentinelEdge
	})
	to := NewHandler(AcknowledgeNoBlocking, func(context.Context, *HandlerCoroutine[int]) (int, error) {
		toRan = true
		return 0, nil
	})

	if err := AddEdge(from, to); err != nil {
		t.Fatalf("AddEdge() error = %v", err)
	}

	if _, err := cmd.RunAuto(withTimeout(t), from); err != nil {
		t.Fatalf("RunAuto() error = %v", err)
	}

	if toRan {
		t.Fatal("edge successor ran after predecessor failed, want it skipped")
	}
}

func TestAddConditionalEdge_RoutesByPredicate(t *testing.T) {
	cmd := New()

	var ranLow, ranHigh bool
	low := NewHandler(AcknowledgeNoBlocking, func(context.Context, *HandlerCoroutine[struct{}]) (struct{}, error) {
		ranLow = true
		return struct{}{}, nil
	})
	high := NewHandler(AcknowledgeNoBlocking, func(context.Context, *HandlerCoroutine[struct{}]) (struct{}, error) {
		ranHigh = true
		return struct{}{}, nil
	})

	from := NewJob(AcknowledgeNoBlocking, func(context.Context, *Job[int]) (int, error) {
		return 7, nil
	})

	err := AddConditionalEdge(from,
		func(node TaskNode) any {
			if node.Result().(int) > 5 {
				return "high"
			}
			return "low"
		},
		map[any]Startable{"low": low, "high": high},
	)
	if err != nil {
		t.Fatalf("AddConditionalEdge() error = %v", err)
	}

	if _, err := cmd.RunAuto(withTimeout(t), from); err != nil {
		t.Fatalf("RunAuto() error = %v", err)
	}

	if ranHigh != true || ranLow != false {
		t.Fatalf("ranLow=%v ranHigh=%v, want only high to run", ranLow, ranHigh)
	}
}

func TestAddConditionalEdge_NoRouteMatchStartsNothing(t *testing.T) {
	cmd := New()

	var ran bool
	other := NewHandler(AcknowledgeNoBlocking, func(context.Context, *HandlerCoroutine[struct{}]) (struct{}, error) {
		ran = true
		return struct{}{}, nil
	})

	from := NewJob(AcknowledgeNoBlocking, func(context.Context, *Job[int]) (int, error) {
		return 0, nil
	})

	err := AddConditionalEdge(from,
		func(TaskNode) any { return "unmatched" },
		map[any]Startable{"other": other},
	)
	if err != nil {
		t.Fatalf("AddConditionalEdge() error = %v", err)
	}

	if _, err := cmd.RunAuto(withTimeout(t), from); err != nil {
		t.Fatalf("RunAuto() error = %v", err)
	}

	if ran {
		t.Fatal("unmatched conditional route started a handler, want none")
	}
}

func TestAddEdge_AssignsDataBeforeStart(t *testing.T) {
	cmd := New()

	var seen any
	from := NewJob(AcknowledgeNoBlocking, func(context.Context, *Job[int]) (int, error) {
		return 0, nil
	})
	to := NewHandler(AcknowledgeNoBlocking, func(_ context.Context, self *HandlerCoroutine[int]) (int, error) {
		seen = self.Data()
		return 0, nil
	})

	if err := AddEdge(from, to, "edge-payload"); err != nil {
		t.Fatalf("AddEdge() error = %v", err)
	}

	if _, err := cmd.RunAuto(withTimeout(t), from); err != nil {
		t.Fatalf("RunAuto() error = %v", err)
	}

	if seen != "edge-payload" {
		t.Fatalf("to.Data() = %v, want %q", seen, "edge-payload")
	}
}

func TestAddConditionalEdge_AssignsDataToResolvedRoute(t *testing.T) {
	cmd := New()

	var seen any
	from := NewJob(AcknowledgeNoBlocking, func(context.Context, *Job[int]) (int, error) {
		return 1, nil
	})
	to := NewHandler(AcknowledgeNoBlocking, func(_ context.Context, self *HandlerCoroutine[int]) (int, error) {
		seen = self.Data()
		return 0, nil
	})

	err := AddConditionalEdge(from,
		func(TaskNode) any { return "only" },
		map[any]Startable{"only": to},
		42,
	)
	if err != nil {
		t.Fatalf("AddConditionalEdge() error = %v", err)
	}

	if _, err := cmd.RunAuto(withTimeout(t), from); err != nil {
		t.Fatalf("RunAuto() error = %v", err)
	}

	if seen != 42 {
		t.Fatalf("to.Data() = %v, want 42", seen)
	}
}

func TestEndEventFor(t *testing.T) {
	job := NewJob(AcknowledgeNoBlocking, func(context.Context, *Job[int]) (int, error) { return 0, nil })
	handler := NewHandler(AcknowledgeNoBlocking, func(context.Context, *HandlerCoroutine[int]) (int, error) { return 0, nil })

	if got := endEventFor(job); got != EventJobEnd {
		t.Errorf("endEventFor(job) = %v, want EventJobEnd", got)
	}
	if got := endEventFor(handler); got != EventHandlerEnd {
		t.Errorf("endEventFor(handler) = %v, want EventHandlerEnd", got)
	}
}

var errSentinelEdge = &CommanderError{Message: "boom", Code: "EDGE_TEST"}
