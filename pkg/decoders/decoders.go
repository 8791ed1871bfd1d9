// Package decoders assembles the transit card factories into the registry
// used by the command line tools. Order matters: the first factory whose
// check accepts a card wins.
package decoders

import (
	"github.com/gregLibert/transit-card/pkg/transit"
	"github.com/gregLibert/transit-card/pkg/transit/blank"
)

// Factories returns every known factory in probing order.
func Factories() []transit.Factory {
	return []transit.Factory{
		// Must stay last.
		blank.Factory{},
	}
}

// Registry returns a registry over Factories.
func Registry() *transit.Registry {
	return transit.NewRegistry(Factories()...)
}
