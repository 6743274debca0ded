// Package lookup computes derived result sets over the semantic store.
//
// Every lookup exposes a stable identity (Hash) built from its kind and all
// parameters that can change the result, so callers can cache results and
// tell fresh computations from cached ones.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/starford/semwiki/internal/checksum"
	"github.com/starford/semwiki/internal/dataitem"
	"github.com/starford/semwiki/internal/sqlstore"
)

// Resolution errors. They are not retryable and are never turned into an
// empty result.
var (
	ErrMissingRequestOptions = errors.New("lookup: missing request options")
	ErrUnknownPropertyTable  = errors.New("lookup: unknown property table")
)

// Entry is one row of a lookup result. Item is a property, or an error
// marker when the stored name fails validation.
type Entry struct {
	Item  dataitem.DataItem
	Count int
}

// ListLookup is a derived, possibly cached computation over the store.
type ListLookup interface {
	// Lookup runs the derivation. Store errors are returned unchanged.
	Lookup(ctx context.Context) ([]Entry, error)
	// Timestamp is the unix time, in seconds, of construction or of the
	// last computation.
	Timestamp() string
	// IsFromCache reports whether the last result came from a cache.
	IsFromCache() bool
	// Hash identifies the lookup kind and all of its parameters.
	Hash() string
}

// Store is the part of the semantic store lookups read from.
type Store interface {
	FindTypeTableID(typeID string) string
	PropertyTables() map[string]*sqlstore.TableDefinition
	Connection(kind string) sqlstore.Connection
}

var now = time.Now

type clock struct {
	at time.Time
}

func newClock() clock { return clock{at: now()} }

func (c *clock) touch() { c.at = now() }

func (c *clock) Timestamp() string {
	return strconv.FormatInt(c.at.Unix(), 10)
}

type identity struct {
	Kind    string            `json:"kind"`
	Params  map[string]string `json:"params,omitempty"`
	Options *optionsKey       `json:"options"`
}

// hashOf derives the identity string of a lookup of the given kind.
func hashOf(kind string, params map[string]string, opts *RequestOptions) string {
	id := identity{Kind: kind, Params: params, Options: opts.key()}
	sum, err := checksum.Of(id)
	if err != nil {
		// Unreachable: identity holds only strings and ints.
		sum = checksum.Sum([]byte(fmt.Sprintf("%#v", id)))
	}
	return kind + "#" + sum
}

// toEntry classifies a stored property name.
func toEntry(row sqlstore.CountRow) Entry {
	p, err := dataitem.NewProperty(row.Name)
	if err != nil {
		return Entry{Item: dataitem.NewError(row.Name, err.Error()), Count: row.Count}
	}
	return Entry{Item: p, Count: row.Count}
}

func toEntries(rows []sqlstore.CountRow) []Entry {
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, toEntry(r))
	}
	return out
}
