package jobs

import (
	"errors"
	"sync"
	"testing"

	"github.com/hydrusband/fetchd/internal/shared"
)

func TestRegistryAtMostOnePerID(t *testing.T) {
	r := NewRegistry()

	if err := r.register("a", &entry{token: NewToken()}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := r.register("a", &entry{token: NewToken()}); !errors.Is(err, shared.ErrAlreadyRunning) {
		t.Errorf("second register = %v, want ErrAlreadyRunning", err)
	}

	if !r.Running("a") {
		t.Error("Running(a) = false after register")
	}

	r.unregister("a")
	r.unregister("a") // idempotent

	if r.Running("a") {
		t.Error("Running(a) = true after unregister")
	}
	if _, ok := r.token("a"); ok {
		t.Error("token lookup should fail after unregister")
	}
}

func TestRegistryConcurrentRegisterSingleWinner(t *testing.T) {
	r := NewRegistry()

	const attempts = 32
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.register("contested", &entry{token: NewToken()})
		}()
	}
	wg.Wait()
	close(errs)

	var winners int
	for err := range errs {
		if err == nil {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("got %d winners, want exactly 1", winners)
	}
}

func TestTokenIdempotentCancel(t *testing.T) {
	token := NewToken()

	if token.Cancelled() {
		t.Error("new token should not be cancelled")
	}

	token.Cancel()
	token.Cancel()

	if !token.Cancelled() {
		t.Error("token should be cancelled after Cancel")
	}
}
