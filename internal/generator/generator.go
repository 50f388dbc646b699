package generator

import (
	"github.com/google/uuid"
)

// Generator is an interface that defines a method to generate a new value of type T.
// Voice connect attempts and queued commands draw their ids from one.
type Generator[T any] interface {
	Next() (T, error)
}

// UUIDV4Generator is a generator that produces UUIDv4 strings.
type UUIDV4Generator struct{}

func (g *UUIDV4Generator) Next() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

var _ Generator[string] = &UUIDV4Generator{}

// PrefixedGenerator tags every id of an inner generator, so ids from
// different sources are told apart in logs.
type PrefixedGenerator struct {
	prefix string
	inner  Generator[string]
}

func NewPrefixedGenerator(prefix string, inner Generator[string]) *PrefixedGenerator {
	return &PrefixedGenerator{prefix: prefix, inner: inner}
}

func (g *PrefixedGenerator) Next() (string, error) {
	id, err := g.inner.Next()
	if err != nil {
		return "", err
	}
	return g.prefix + "-" + id, nil
}

var _ Generator[string] = &PrefixedGenerator{}
