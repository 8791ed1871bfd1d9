package transit

import (
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/gregLibert/transit-card/pkg/card"
)

var logger = logrus.StandardLogger().WithField("pkg", "transit")

// Registry tries factories in registration order.
type Registry struct {
	factories []Factory
}

// NewRegistry returns a registry probing factories in the given order.
func NewRegistry(factories ...Factory) *Registry {
	return &Registry{factories: slices.Clone(factories)}
}

// Factories returns the factories in priority order.
func (r *Registry) Factories() []Factory {
	return slices.Clone(r.factories)
}

// Match returns the first factory whose Check accepts the card.
func (r *Registry) Match(c *card.Card) (Factory, error) {
	for _, f := range r.factories {
		ok, err := f.Check(c)
		if err != nil {
			return nil, &CheckError{Factory: f.Name(), Err: err}
		}
		logger.WithField("factory", f.Name()).Tracef("check: %v", ok)
		if ok {
			logger.WithField("factory", f.Name()).Debug("card matched")
			return f, nil
		}
	}
	return nil, ErrClassification
}

// Identify classifies the card and returns its identity.
func (r *Registry) Identify(c *card.Card) (Identity, error) {
	f, err := r.Match(c)
	if err != nil {
		return Identity{}, err
	}
	id, err := f.ParseIdentity(c)
	if err != nil {
		return Identity{}, &DecodeError{Factory: f.Name(), Op: "identity", Err: err}
	}
	return id, nil
}

// Result is a fully decoded card.
type Result struct {
	Factory  string
	Identity Identity
	Data     Data
}

// Parse classifies the card and runs the full decode of the winning factory.
func (r *Registry) Parse(c *card.Card) (*Result, error) {
	f, err := r.Match(c)
	if err != nil {
		return nil, err
	}

	id, err := f.ParseIdentity(c)
	if err != nil {
		return nil, &DecodeError{Factory: f.Name(), Op: "identity", Err: err}
	}

	data, err := f.ParseData(c)
	if err != nil {
		return nil, &DecodeError{Factory: f.Name(), Op: "data", Err: err}
	}

	return &Result{Factory: f.Name(), Identity: id, Data: data}, nil
}
