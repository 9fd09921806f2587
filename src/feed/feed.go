// Package feed rebuilds the render model from the raw siv log. Nothing here
// is persisted: every read replays the full log and reclassifies each entry.
package feed

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/notemoire/sociva/src/chain"
	"github.com/notemoire/sociva/src/codec"
)

// sanitizer strips any markup smuggled into post bodies before render.
var sanitizer = bluemonday.StrictPolicy()

// Item is one feed row, rebuilt on every projection pass and discarded after
// render.
type Item struct {
	Index         uint64      `json:"index"`
	Author        string      `json:"author"`
	DisplayText   string      `json:"displayText"`
	IsPoll        bool        `json:"isPoll"`
	Poll          *codec.Poll `json:"poll,omitempty"`
	OwnedByViewer bool        `json:"ownedByViewer"`
	CID           string      `json:"cid,omitempty"`
}

// Project replays the ordered log into a reverse-chronological feed for the
// given viewer. Deleted entries are dropped outright. A malformed payload
// degrades that one entry to plain text and never disturbs its neighbours.
// Ownership is a case-insensitive address comparison and only ever gates the
// delete affordance.
func Project(entries []chain.Entry, viewer string) []Item {
	items := make([]Item, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Deleted {
			continue
		}
		p := codec.Decode(e.Index, e.Text)
		items = append(items, Item{
			Index:         e.Index,
			Author:        e.Author,
			DisplayText:   sanitizer.Sanitize(p.Body),
			IsPoll:        p.IsPoll(),
			Poll:          p.Poll,
			OwnedByViewer: strings.EqualFold(e.Author, viewer),
			CID:           e.CID,
		})
	}
	return items
}
