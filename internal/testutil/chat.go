package testutil

import (
	"context"
	"sync"
)

// ChatCompleter is a scripted engine.ChatCompleter implementation.
type ChatCompleter struct {
	mu sync.Mutex

	// Response is returned from Complete when Err is nil.
	Response string

	// Err, when set, is returned from every Complete call.
	Err error

	calls      int
	lastSystem string
	lastPrompt string
}

// Complete records the call and returns the scripted response.
func (c *ChatCompleter) Complete(_ context.Context, system, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	c.lastSystem = system
	c.lastPrompt = prompt

	if c.Err != nil {
		return "", c.Err
	}
	return c.Response, nil
}

// Calls reports how many times Complete has been invoked.
func (c *ChatCompleter) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// LastSystem returns the system instruction of the most recent call.
func (c *ChatCompleter) LastSystem() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSystem
}

// LastPrompt returns the prompt of the most recent call.
func (c *ChatCompleter) LastPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPrompt
}
