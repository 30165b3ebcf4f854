package providerfactory

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"mercator-hq/polyglot/pkg/providers"
	"mercator-hq/polyglot/pkg/providers/openai"
)

// Backend types.
const (
	TypeOpenAI  = "openai"
	TypeGeneric = "generic"
)

type constructor func(providers.ProviderConfig) (providers.Provider, error)

var constructors = map[string]constructor{
	TypeOpenAI: func(c providers.ProviderConfig) (providers.Provider, error) { return openai.NewProvider(c) },
	TypeGeneric: func(c providers.ProviderConfig) (providers.Provider, error) {
		return openai.NewCompatibleProvider(c)
	},
}

// NewProvider builds the chat backend described by config.
//
// Type "openai" targets api.openai.com and requires an API key. Type
// "generic" targets any OpenAI-compatible server (vLLM, Ollama, LM Studio)
// and the key is optional. An empty Type is inferred from Name.
func NewProvider(config providers.ProviderConfig) (providers.Provider, error) {
	if config.Type == "" || config.Type == config.Name {
		config.Type = inferProviderType(config.Name)
	}

	build, ok := constructors[config.Type]
	if !ok {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "type",
			Message:  fmt.Sprintf("unsupported type %q (supported: %s)", config.Type, supportedTypes()),
		}
	}

	slog.Debug("creating provider", "name", config.Name, "type", config.Type, "base_url", config.BaseURL)

	p, err := build(config)
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", config.Name, err)
	}
	return p, nil
}

// inferProviderType maps a provider name to a backend type. Only the name
// "openai" selects the hosted API.
func inferProviderType(name string) string {
	if name == TypeOpenAI {
		return TypeOpenAI
	}
	return TypeGeneric
}

func supportedTypes() string {
	types := make([]string, 0, len(constructors))
	for t := range constructors {
		types = append(types, t)
	}
	sort.Strings(types)
	return strings.Join(types, ", ")
}
