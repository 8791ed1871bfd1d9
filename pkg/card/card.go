// Package card models a completed read of a page-addressed contactless card
// (MIFARE Ultralight, NTAG21x and similar): an optional chip model and the
// ordered list of pages that were read.
//
// Values are immutable once built and may be shared between goroutines.
package card

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/gregLibert/transit-card/pkg/buffer"
)

// PageSize is the width of an Ultralight page in bytes.
const PageSize = 4

var (
	// ErrUnauthorizedPage is returned when content is requested from a page
	// that could not be read.
	ErrUnauthorizedPage = errors.New("unauthorized page")
	// ErrPageIndex is returned for page lists that are not numbered 0..n-1.
	ErrPageIndex = errors.New("invalid page index")
)

// Page is one addressable unit of card memory.
type Page struct {
	index        int
	data         buffer.Buffer
	unauthorized bool
}

// NewPage returns a readable page.
func NewPage(index int, data buffer.Buffer) Page {
	return Page{index: index, data: data}
}

// NewUnauthorizedPage returns a page whose content could not be read. Its
// data is width zero bytes and must not be interpreted.
func NewUnauthorizedPage(index, width int) Page {
	return Page{index: index, data: buffer.Zero(width), unauthorized: true}
}

// Index returns the physical page number.
func (p Page) Index() int { return p.index }

// Data returns the raw page content.
func (p Page) Data() buffer.Buffer { return p.data }

// Authorized reports whether the page content was read.
func (p Page) Authorized() bool { return !p.unauthorized }

// Card is a read-only dump of a page-addressed card.
type Card struct {
	model string
	pages []Page
}

// New validates the page list and returns a Card owning a copy of it.
// Pages must be ordered and numbered contiguously from 0.
func New(model string, pages []Page) (*Card, error) {
	for i, p := range pages {
		if p.index != i {
			return nil, fmt.Errorf("page at position %d has index %d: %w", i, p.index, ErrPageIndex)
		}
	}
	return &Card{model: model, pages: slices.Clone(pages)}, nil
}

// FromHexPages builds a card from hex page contents, all pages readable.
// Intended for fixtures and dump files.
func FromHexPages(model string, pages ...string) (*Card, error) {
	list := make([]Page, 0, len(pages))
	for i, h := range pages {
		data, err := buffer.FromHex(h)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		list = append(list, NewPage(i, data))
	}
	return New(model, list)
}

// Model returns the chip model identifier, or "" when unknown.
func (c *Card) Model() string { return c.model }

// HasModel reports whether the reader identified the chip model.
func (c *Card) HasModel() bool { return c.model != "" }

// PageCount returns the number of pages in the dump.
func (c *Card) PageCount() int { return len(c.pages) }

// Pages returns a copy of the page list.
func (c *Card) Pages() []Page { return slices.Clone(c.pages) }

// Page returns page i.
func (c *Card) Page(i int) (Page, error) {
	if i < 0 || i >= len(c.pages) {
		return Page{}, fmt.Errorf("page %d of %d: %w", i, len(c.pages), buffer.ErrOutOfRange)
	}
	return c.pages[i], nil
}

// ReadPages concatenates the content of count pages starting at start.
// Every covered page must be readable.
func (c *Card) ReadPages(start, count int) (buffer.Buffer, error) {
	if start < 0 || count < 0 || start > len(c.pages)-count {
		return buffer.Buffer{}, fmt.Errorf("pages %d+%d of %d: %w", start, count, len(c.pages), buffer.ErrOutOfRange)
	}
	var out buffer.Buffer
	for _, p := range c.pages[start : start+count] {
		if !p.Authorized() {
			return buffer.Buffer{}, fmt.Errorf("page %d: %w", p.index, ErrUnauthorizedPage)
		}
		out = out.Concat(p.data)
	}
	return out, nil
}

// UID returns the 7 byte NFC-A UID stored in pages 0 and 1 (the two check
// bytes BCC0 and BCC1 are dropped).
func (c *Card) UID() (buffer.Buffer, error) {
	raw, err := c.ReadPages(0, 2)
	if err != nil {
		return buffer.Buffer{}, err
	}
	head, err := raw.SliceOffLen(0, 3)
	if err != nil {
		return buffer.Buffer{}, err
	}
	tail, err := raw.SliceOffLen(4, 4)
	if err != nil {
		return buffer.Buffer{}, err
	}
	return head.Concat(tail), nil
}

type pageJSON struct {
	Index        int           `json:"index"`
	Data         buffer.Buffer `json:"data"`
	Unauthorized bool          `json:"unauthorized,omitempty"`
}

type cardJSON struct {
	Model string     `json:"model,omitempty"`
	Pages []pageJSON `json:"pages"`
}

// MarshalJSON encodes the dump with hex page data.
func (c *Card) MarshalJSON() ([]byte, error) {
	out := cardJSON{Model: c.model, Pages: make([]pageJSON, 0, len(c.pages))}
	for _, p := range c.pages {
		out.Pages = append(out.Pages, pageJSON{Index: p.index, Data: p.data, Unauthorized: p.unauthorized})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a dump written by MarshalJSON and validates it.
func (c *Card) UnmarshalJSON(raw []byte) error {
	var in cardJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return err
	}
	pages := make([]Page, 0, len(in.Pages))
	for _, p := range in.Pages {
		if p.Unauthorized {
			pages = append(pages, NewUnauthorizedPage(p.Index, p.Data.Len()))
			continue
		}
		pages = append(pages, NewPage(p.Index, p.Data))
	}
	decoded, err := New(in.Model, pages)
	if err != nil {
		return err
	}
	*c = *decoded
	return nil
}
