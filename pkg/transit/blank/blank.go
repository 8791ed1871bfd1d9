// Package blank recognises MIFARE Ultralight and NTAG21x cards that hold
// nothing but factory default data.
//
// Pages 0 to 2 (serial number, internal and lock bytes) are never examined.
// Every other page must be readable and either all zero or a known factory
// default for the chip variant (see Resolve).
package blank

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gregLibert/transit-card/pkg/card"
	"github.com/gregLibert/transit-card/pkg/transit"
)

// CardName is the display name of a blank card.
const CardName = "Blank MIFARE Ultralight"

// lastSystemPage is the highest page that never holds user data.
const lastSystemPage = 2

// ErrPageWidth is returned when a page is not card.PageSize bytes wide.
var ErrPageWidth = errors.New("unexpected page width")

var logger = logrus.StandardLogger().WithField("pkg", "blank")

// TransitData is the decoded content of a blank card: nothing.
type TransitData struct{}

// CardName implements transit.Data.
func (TransitData) CardName() string { return CardName }

// SerialNumber implements transit.Data. Blank cards have none.
func (TransitData) SerialNumber() string { return "" }

// Factory implements transit.Factory for blank Ultralight cards.
type Factory struct{}

var _ transit.Factory = Factory{}

// Name implements transit.Factory.
func (Factory) Name() string { return "blank-ultralight" }

// Check reports whether every user page holds factory default content.
func (Factory) Check(c *card.Card) (bool, error) {
	pages := c.Pages()
	variant := Resolve(c.Model(), len(pages))
	log := logger.WithField("variant", variant.Name)

	for _, p := range pages {
		idx := p.Index()
		if idx <= lastSystemPage {
			continue
		}
		if !p.Authorized() {
			log.WithField("page", idx).Trace("page locked")
			return false, nil
		}
		if p.Data().Len() != card.PageSize {
			return false, fmt.Errorf("page %d is %d bytes: %w", idx, p.Data().Len(), ErrPageWidth)
		}
		if !variant.Accepts(idx, len(pages), p.Data()) {
			log.WithField("page", idx).Tracef("page holds %s", p.Data())
			return false, nil
		}
	}
	return true, nil
}

// ParseIdentity implements transit.Factory.
func (Factory) ParseIdentity(*card.Card) (transit.Identity, error) {
	return transit.Identity{Name: CardName}, nil
}

// ParseData implements transit.Factory.
func (Factory) ParseData(*card.Card) (transit.Data, error) {
	return TransitData{}, nil
}
