// Package registry maps configured provider identifiers to client
// implementations.
package registry

import (
	"errors"
	"fmt"

	"github.com/conjugo/gateway/internal/provider"
	"github.com/conjugo/gateway/internal/provider/claude"
	"github.com/conjugo/gateway/internal/provider/gemini"
	"github.com/conjugo/gateway/internal/provider/grok"
	"github.com/conjugo/gateway/internal/provider/openai"
)

var ErrUnknownProvider = errors.New("unknown provider")

// New constructs the client for the named provider.
func New(name, apiKey string) (provider.Provider, error) {
	switch name {
	case "grok":
		return grok.New(apiKey), nil
	case "openai":
		return openai.New(apiKey), nil
	case "claude":
		return claude.New(apiKey), nil
	case "gemini":
		return gemini.New(apiKey), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// Names lists every provider identifier New accepts.
func Names() []string {
	return []string{"grok", "openai", "claude", "gemini"}
}
