package ultralight

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/gregLibert/transit-card/pkg/buffer"
	"github.com/gregLibert/transit-card/pkg/card"
	"github.com/gregLibert/transit-card/pkg/pcsc"
)

var logger = logrus.StandardLogger().WithField("pkg", "ultralight")

// MaxPages bounds a read when the model, and so the size, is unknown.
const MaxPages = 256

const ccPage = 3

// ultralightC has no GET_VERSION and carries the same capability container
// as an NTAG213, so only the ATR tells them apart.
const ultralightC = "MF0ICU2"

// Reader dumps a card page by page.
type Reader struct {
	s pcsc.Sender

	// Name is the card name announced in the ATR, zero when unknown.
	Name pcsc.CardName
	// Report, when set, receives a report of every page read.
	Report io.Writer
}

// NewReader returns a Reader sending commands through s.
func NewReader(s pcsc.Sender) *Reader {
	return &Reader{s: s}
}

// Identify returns the chip model and page count, either of which may be
// unknown ("" and 0).
func (r *Reader) Identify() (string, int) {
	v, err := GetVersion(r.s)
	if err == nil {
		if m := v.Model(); m != "" {
			return m, PageCount(m)
		}
		logger.Debugf("unknown version %+v", v)
	} else {
		logger.WithError(err).Debug("GET_VERSION failed")
	}

	if r.Name == pcsc.CardUltralightC {
		return ultralightC, PageCount(ultralightC)
	}

	cc, err := pcsc.ReadBinary(r.s, ccPage, card.PageSize)
	if err != nil {
		logger.WithError(err).Debug("capability container unreadable")
		return "", 0
	}
	m := ModelFromCapabilityContainer(cc)
	return m, PageCount(m)
}

// Read identifies the card and reads all of its pages. Pages the reader
// refuses with a security status are kept as unauthorized.
func (r *Reader) Read() (*card.Card, error) {
	model, count := r.Identify()
	log := logger.WithFields(logrus.Fields{"model": model, "pages": count})
	log.Debug("reading card")

	limit := count
	if limit == 0 {
		limit = MaxPages
	}

	pages := make([]card.Page, 0, limit)
	for idx := 0; idx < limit; idx++ {
		data, err := r.readPage(idx)
		if err == nil {
			pages = append(pages, card.NewPage(idx, buffer.New(data)))
			continue
		}

		var se *pcsc.StatusError
		if !errors.As(err, &se) {
			return nil, fmt.Errorf("page %d: %w", idx, err)
		}
		if count == 0 && !se.Status.IsAccessDenied() {
			log.WithField("page", idx).Debugf("end of memory (%s)", se.Status)
			break
		}
		log.WithField("page", idx).Tracef("unauthorized (%s)", se.Status)
		pages = append(pages, card.NewUnauthorizedPage(idx, card.PageSize))
	}

	return card.New(model, pages)
}

func (r *Reader) readPage(idx int) ([]byte, error) {
	data, res, err := pcsc.ReadBinaryTrace(r.s, byte(idx), card.PageSize)
	if r.Report != nil && res != nil {
		fmt.Fprintf(r.Report, "%s\n\n", res.Describe())
	}
	return data, err
}
