package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/distrihub/mcp-proxy/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGetOrCreate_ConcurrentCallsYieldExactlyOneClient(t *testing.T) {
	m := New(nil)
	defer func() { _ = m.Close() }()

	spec := config.ServerSpec{Type: config.KindStdio, Command: "cat"}

	const n = 20
	results := make([]interface{}, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			c, err := m.GetOrCreate(context.Background(), "math", spec, nil)
			if err != nil {
				results[i] = err
				return
			}
			results[i] = c
		}(i)
	}
	wg.Wait()

	first := results[0]
	for i, r := range results {
		if err, ok := r.(error); ok {
			t.Fatalf("result[%d] error: %v", i, err)
		}
		if r != first {
			t.Errorf("result[%d] = %p, want same client as result[0] = %p", i, r, first)
		}
	}

	m.mu.Lock()
	n2 := len(m.clients)
	m.mu.Unlock()
	if n2 != 1 {
		t.Errorf("clients map has %d entries, want 1", n2)
	}
}

func TestGetOrCreate_EnvOverlayIgnoredAfterFirstCreate(t *testing.T) {
	m := New(nil)
	defer func() { _ = m.Close() }()

	spec := config.ServerSpec{Type: config.KindStdio, Command: "cat"}

	c1, err := m.GetOrCreate(context.Background(), "math", spec, map[string]string{"A": "1"})
	if err != nil {
		t.Fatalf("first GetOrCreate: %v", err)
	}

	c2, err := m.GetOrCreate(context.Background(), "math", spec, map[string]string{"A": "2"})
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}

	if c1 != c2 {
		t.Error("expected the same client to be reused regardless of the second call's overlay")
	}
}

func TestGetOrCreate_UnknownTypeReturnsError(t *testing.T) {
	m := New(nil)
	defer func() { _ = m.Close() }()

	spec := config.ServerSpec{Type: config.ServerKind("carrier-pigeon")}
	_, err := m.GetOrCreate(context.Background(), "mystery", spec, nil)
	if err == nil {
		t.Fatal("expected error for unknown server type, got nil")
	}
}

func TestGetOrCreate_SpawnFailureDoesNotPoisonLaterRetries(t *testing.T) {
	m := New(nil)
	defer func() { _ = m.Close() }()

	bad := config.ServerSpec{Type: config.KindStdio, Command: "/nonexistent/binary"}
	if _, err := m.GetOrCreate(context.Background(), "flaky", bad, nil); err == nil {
		t.Fatal("expected error for nonexistent command, got nil")
	}

	good := config.ServerSpec{Type: config.KindStdio, Command: "cat"}
	c, err := m.GetOrCreate(context.Background(), "flaky", good, nil)
	if err != nil {
		t.Fatalf("retry after failed create: %v", err)
	}
	if c == nil {
		t.Fatal("expected a client on retry, got nil")
	}
}

func TestManager_CloseClosesEveryClient(t *testing.T) {
	m := New(nil)
	spec := config.ServerSpec{Type: config.KindStdio, Command: "cat"}
	if _, err := m.GetOrCreate(context.Background(), "a", spec, nil); err != nil {
		t.Fatalf("GetOrCreate a: %v", err)
	}
	if _, err := m.GetOrCreate(context.Background(), "b", spec, nil); err != nil {
		t.Fatalf("GetOrCreate b: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- m.Close() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Close: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return in time")
	}
}
