// Package registry holds the static provider/model catalog. Descriptors are
// built once at startup and never mutated, so concurrent reads need no
// locking.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"panelbridge/internal/media"
)

// Provider identifies one of the three backends a chat request can target.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGemini Provider = "gemini"
	ProviderHost   Provider = "host"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrUnknownModel    = errors.New("unknown model")
)

// ParseProvider maps a wire tag to a Provider.
func ParseProvider(tag string) (Provider, error) {
	switch Provider(tag) {
	case ProviderLocal, ProviderGemini, ProviderHost:
		return Provider(tag), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, tag)
	}
}

// ModelDescriptor is the immutable metadata for a selectable model.
type ModelDescriptor struct {
	DisplayName   string
	WireCode      string
	Kinds         media.KindSet
	MaxInputBytes int64 // 0 means the validator's default ceiling applies
}

// Supports reports whether the model accepts the given media kind.
func (d ModelDescriptor) Supports(kind media.Kind) bool {
	return d.Kinds.Has(kind)
}

type modelKey struct {
	provider Provider
	key      string
}

// Registry maps (provider, model key) pairs to descriptors.
type Registry struct {
	models   map[modelKey]ModelDescriptor
	defaults map[Provider]string
}

// New returns a registry seeded with the built-in catalog.
func New() *Registry {
	r := &Registry{
		models:   make(map[modelKey]ModelDescriptor),
		defaults: make(map[Provider]string),
	}

	r.add(ProviderLocal, "llama", ModelDescriptor{
		DisplayName: "Llama 3.2",
		WireCode:    "llama3.2",
		Kinds:       media.NewKindSet(media.KindText),
	})
	r.add(ProviderLocal, "mistral", ModelDescriptor{
		DisplayName: "Mistral 7B",
		WireCode:    "mistral",
		Kinds:       media.NewKindSet(media.KindText),
	})
	r.add(ProviderGemini, "flash", ModelDescriptor{
		DisplayName: "Gemini 2.0 Flash",
		WireCode:    "gemini-2.0-flash",
		Kinds:       media.NewKindSet(media.KindText, media.KindImage, media.KindVideo, media.KindAudio),
	})
	r.add(ProviderGemini, "pro", ModelDescriptor{
		DisplayName: "Gemini 1.5 Pro",
		WireCode:    "gemini-1.5-pro",
		Kinds:       media.NewKindSet(media.KindText, media.KindImage, media.KindVideo, media.KindAudio),
	})
	r.add(ProviderHost, "default", ModelDescriptor{
		DisplayName: "Editor model",
		Kinds:       media.NewKindSet(media.KindText),
	})

	r.defaults[ProviderLocal] = "llama"
	r.defaults[ProviderGemini] = "flash"
	r.defaults[ProviderHost] = "default"
	return r
}

func (r *Registry) add(provider Provider, key string, desc ModelDescriptor) {
	r.models[modelKey{provider, key}] = desc
}

// Lookup resolves a descriptor. An empty key selects the provider's default
// model.
func (r *Registry) Lookup(provider Provider, key string) (ModelDescriptor, error) {
	if key == "" {
		key = r.defaults[provider]
	}
	desc, ok := r.models[modelKey{provider, key}]
	if !ok {
		return ModelDescriptor{}, fmt.Errorf("%w: %s:%s", ErrUnknownModel, provider, key)
	}
	return desc, nil
}

// Entry pairs a descriptor with its registry coordinates, for listing.
type Entry struct {
	Provider Provider
	Key      string
	Default  bool
	ModelDescriptor
}

// All returns every registered model, sorted by provider then key.
func (r *Registry) All() []Entry {
	entries := make([]Entry, 0, len(r.models))
	for mk, desc := range r.models {
		entries = append(entries, Entry{
			Provider:        mk.provider,
			Key:             mk.key,
			Default:         r.defaults[mk.provider] == mk.key,
			ModelDescriptor: desc,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Provider != entries[j].Provider {
			return entries[i].Provider < entries[j].Provider
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}
