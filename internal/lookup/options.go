package lookup

import (
	"fmt"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/semwiki/internal/sqlstore"
)

// StringMatch selects how a string condition matches a name.
type StringMatch int

// String match kinds.
const (
	MatchPrefix StringMatch = iota
	MatchContains
	MatchSuffix
)

// StringCondition filters result names by a substring.
type StringCondition struct {
	Value string      `json:"value"`
	Match StringMatch `json:"match"`
	// Disjunctive conditions are OR-ed together; the others are AND-ed.
	Disjunctive bool `json:"disjunctive"`
}

// RequestOptions carries filtering, sorting and paging for a lookup. A
// lookup copies the options it is built from; later changes to the caller's
// value do not affect it.
type RequestOptions struct {
	// Limit caps the number of rows; 0 means no limit.
	Limit  int
	Offset int
	// Sort orders by name instead of by usage count.
	Sort      bool
	Ascending bool

	extraConditions  []sqlstore.Condition
	stringConditions []StringCondition
}

// NewRequestOptions returns options with no limit and ascending order.
func NewRequestOptions() *RequestOptions {
	return &RequestOptions{Ascending: true}
}

// AddExtraCondition appends a raw WHERE fragment.
func (o *RequestOptions) AddExtraCondition(expr string, args ...any) {
	o.extraConditions = append(o.extraConditions, sqlstore.Condition{Expr: expr, Args: args})
}

// ExtraConditions returns a copy of the raw WHERE fragments.
func (o *RequestOptions) ExtraConditions() []sqlstore.Condition {
	return slices.Clone(o.extraConditions)
}

// AddStringCondition adds a name filter.
func (o *RequestOptions) AddStringCondition(value string, match StringMatch, disjunctive bool) {
	o.stringConditions = append(o.stringConditions, StringCondition{Value: value, Match: match, Disjunctive: disjunctive})
}

// StringConditions returns a copy of the name filters.
func (o *RequestOptions) StringConditions() []StringCondition {
	return slices.Clone(o.stringConditions)
}

// Clone returns a deep copy; nil stays nil.
func (o *RequestOptions) Clone() *RequestOptions {
	if o == nil {
		return nil
	}
	c := *o
	c.extraConditions = make([]sqlstore.Condition, len(o.extraConditions))
	for i, cond := range o.extraConditions {
		c.extraConditions[i] = sqlstore.Condition{Expr: cond.Expr, Args: slices.Clone(cond.Args)}
	}
	c.stringConditions = slices.Clone(o.stringConditions)
	return &c
}

// Validate validates the options.
func (o *RequestOptions) Validate() error {
	if err := validation.ValidateStruct(o,
		validation.Field(&o.Limit, validation.Min(0)),
		validation.Field(&o.Offset, validation.Min(0)),
	); err != nil {
		return err
	}
	for i, sc := range o.stringConditions {
		if err := validation.ValidateStruct(&sc,
			validation.Field(&sc.Value, validation.Required),
			validation.Field(&sc.Match, validation.In(MatchPrefix, MatchContains, MatchSuffix)),
		); err != nil {
			return fmt.Errorf("string condition %d: %w", i, err)
		}
	}
	return nil
}

func (o *RequestOptions) orderBy(nameField, countField string) string {
	if o.Sort {
		if o.Ascending {
			return nameField + " ASC"
		}
		return nameField + " DESC"
	}
	return countField + " DESC, " + nameField + " ASC"
}

func (o *RequestOptions) selectOptions(joins []sqlstore.Join, groupBy, orderBy string) sqlstore.SelectOptions {
	return sqlstore.SelectOptions{
		Joins:   joins,
		GroupBy: groupBy,
		OrderBy: orderBy,
		Limit:   o.Limit,
		Offset:  o.Offset,
	}
}

// conditions renders the extra and string conditions against field.
func (o *RequestOptions) conditions(field string) []sqlstore.Condition {
	conds := slices.Clone(o.extraConditions)

	var disj []string
	var disjArgs []any
	for _, sc := range o.stringConditions {
		expr := field + ` LIKE ? ESCAPE '\'`
		arg := likePattern(sc)
		if sc.Disjunctive {
			disj = append(disj, expr)
			disjArgs = append(disjArgs, arg)
			continue
		}
		conds = append(conds, sqlstore.Condition{Expr: expr, Args: []any{arg}})
	}
	if len(disj) > 0 {
		conds = append(conds, sqlstore.Condition{Expr: strings.Join(disj, " OR "), Args: disjArgs})
	}
	return conds
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(sc StringCondition) string {
	v := likeEscaper.Replace(strings.ReplaceAll(sc.Value, " ", "_"))
	switch sc.Match {
	case MatchPrefix:
		return v + "%"
	case MatchSuffix:
		return "%" + v
	default:
		return "%" + v + "%"
	}
}

type conditionKey struct {
	Expr string   `json:"expr"`
	Args []string `json:"args"`
}

type optionsKey struct {
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
	Sort      bool              `json:"sort"`
	Ascending bool              `json:"ascending"`
	Extra     []conditionKey    `json:"extra"`
	Strings   []StringCondition `json:"strings"`
}

// key is the canonical form of the options used for hashing. Condition
// arguments are rendered with their type so 1 and "1" stay distinct.
func (o *RequestOptions) key() *optionsKey {
	if o == nil {
		return nil
	}
	k := &optionsKey{
		Limit:     o.Limit,
		Offset:    o.Offset,
		Sort:      o.Sort,
		Ascending: o.Ascending,
	}
	if len(o.stringConditions) > 0 {
		k.Strings = slices.Clone(o.stringConditions)
	}
	for _, c := range o.extraConditions {
		ck := conditionKey{Expr: c.Expr}
		for _, a := range c.Args {
			ck.Args = append(ck.Args, fmt.Sprintf("%T:%v", a, a))
		}
		k.Extra = append(k.Extra, ck)
	}
	return k
}
