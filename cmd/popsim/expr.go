package main

import (
	"strings"

	"github.com/edwinsyarief/jotai"
	"github.com/pkg/errors"
)

var ErrBadExpr = errors.New("bad query expression")

// ParsePredicate turns a query expression into a predicate.
//
//	expr := term { "or" term }
//	term := atom { "and" atom }
//	atom := [ "not" ] ( Prop | Prop=- | Prop=v | Prop!=v | Prop>=v | Prop<=v )
//
// A bare Prop matches set values and Prop=- matches unset ones. "and" binds
// tighter than "or".
func (m *Model) ParsePredicate(expr string) (jotai.Predicate[Person], error) {
	words := strings.Fields(expr)
	if len(words) == 0 {
		return nil, errors.Wrap(ErrBadExpr, "empty")
	}
	var alts []jotai.Predicate[Person]
	for _, group := range split(words, "or") {
		var all []jotai.Predicate[Person]
		for _, atom := range split(group, "and") {
			p, err := m.parseAtom(atom)
			if err != nil {
				return nil, err
			}
			all = append(all, p)
		}
		if len(all) == 1 {
			alts = append(alts, all[0])
		} else {
			alts = append(alts, jotai.And(all...))
		}
	}
	if len(alts) == 1 {
		return alts[0], nil
	}
	return jotai.Or(alts...), nil
}

func split(words []string, sep string) [][]string {
	var out [][]string
	var cur []string
	for _, w := range words {
		if strings.EqualFold(w, sep) {
			out = append(out, cur)
			cur = nil
			continue
		}
		cur = append(cur, w)
	}
	return append(out, cur)
}

func (m *Model) parseAtom(words []string) (jotai.Predicate[Person], error) {
	negate := false
	if len(words) > 0 && strings.EqualFold(words[0], "not") {
		negate = true
		words = words[1:]
	}
	if len(words) != 1 {
		return nil, errors.Wrapf(ErrBadExpr, "expected one comparison, got %q", strings.Join(words, " "))
	}
	p, err := m.comparison(words[0])
	if err != nil {
		return nil, err
	}
	if negate {
		return jotai.Not(p), nil
	}
	return p, nil
}

func (m *Model) comparison(word string) (jotai.Predicate[Person], error) {
	i := strings.IndexAny(word, "=!<>")
	if i < 0 {
		c, err := m.column(word)
		if err != nil {
			return nil, err
		}
		return c.isSet(), nil
	}
	name, rest := word[:i], word[i:]
	c, err := m.column(name)
	if err != nil {
		return nil, err
	}
	switch {
	case rest == "=-":
		return c.isUnset(), nil
	case strings.HasPrefix(rest, "!="):
		p, err := c.eq(rest[2:])
		if err != nil {
			return nil, err
		}
		return jotai.Not(p), nil
	case strings.HasPrefix(rest, ">="):
		if c.ge == nil {
			return nil, errors.Wrapf(ErrUnsupportedOp, "%s >=", c.name)
		}
		return c.ge(rest[2:])
	case strings.HasPrefix(rest, "<="):
		if c.le == nil {
			return nil, errors.Wrapf(ErrUnsupportedOp, "%s <=", c.name)
		}
		return c.le(rest[2:])
	case strings.HasPrefix(rest, "="):
		return c.eq(rest[1:])
	}
	return nil, errors.Wrapf(ErrBadExpr, "%q", word)
}
