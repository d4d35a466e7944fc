// Package reasoningtest provides a scripted reasoning.Invoker for tests.
package reasoningtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ShayCichocki/c4pm/internal/reasoning"
)

// Reply is one scripted response.
type Reply struct {
	Text string
	Err  error
}

// Invoker answers requests from a per-stage script and records every
// request it sees. A stage without a remaining reply fails the call.
type Invoker struct {
	mu       sync.Mutex
	script   map[string][]Reply
	requests []reasoning.Request
}

// New creates an empty scripted invoker.
func New() *Invoker {
	return &Invoker{script: make(map[string][]Reply)}
}

// Reply queues a text response for stage.
func (f *Invoker) Reply(stage, text string) *Invoker {
	return f.add(stage, Reply{Text: text})
}

// Fail queues an error for stage.
func (f *Invoker) Fail(stage string, err error) *Invoker {
	return f.add(stage, Reply{Err: err})
}

func (f *Invoker) add(stage string, r Reply) *Invoker {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script[stage] = append(f.script[stage], r)
	return f
}

// Invoke implements reasoning.Invoker.
func (f *Invoker) Invoke(ctx context.Context, req reasoning.Request) (reasoning.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if err := ctx.Err(); err != nil {
		return reasoning.Response{}, err
	}

	queue := f.script[req.Stage]
	if len(queue) == 0 {
		return reasoning.Response{}, fmt.Errorf("no scripted reply for stage %q", req.Stage)
	}
	next := queue[0]
	f.script[req.Stage] = queue[1:]
	if next.Err != nil {
		return reasoning.Response{}, next.Err
	}
	return reasoning.Response{Text: next.Text, Attempts: 1}, nil
}

// Requests returns the requests seen so far.
func (f *Invoker) Requests() []reasoning.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]reasoning.Request(nil), f.requests...)
}

// Calls returns how many requests targeted stage. An empty stage counts all.
func (f *Invoker) Calls(stage string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if stage == "" {
		return len(f.requests)
	}
	n := 0
	for _, r := range f.requests {
		if r.Stage == stage {
			n++
		}
	}
	return n
}
