package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coregx/polysql/internal/cache"
	"github.com/coregx/polysql/internal/dialects"
)

// TranslatorVersion is the cache version token for persisted translation memos.
// Bump it whenever translation output changes so stale memos are ignored.
const TranslatorVersion = "polysql-translator-1"

const (
	dateFormatCacheKey = "polysql:translator:dateformat"
	identifierCacheKey = "polysql:translator:identifiers"
)

// Translator memoizes date-format translation and identifier unescaping.
// Memos are loaded from the cache on construction and written back by Flush.
// It is not safe for concurrent use.
type Translator struct {
	cache  cache.Cache
	dates  map[string]string
	idents map[string]string
	dirty  bool
}

// NewTranslator loads persisted memos from c. Unreadable entries are
// discarded and reported through the returned error; the translator is
// usable either way.
func NewTranslator(c cache.Cache) (*Translator, error) {
	if c == nil {
		c = cache.Nop{}
	}
	t := &Translator{
		cache:  c,
		dates:  map[string]string{},
		idents: map[string]string{},
	}

	err := errors.Join(
		t.load(dateFormatCacheKey, &t.dates),
		t.load(identifierCacheKey, &t.idents),
	)
	if err != nil {
		return t, fmt.Errorf("load translation memos: %w", err)
	}
	return t, nil
}

func (t *Translator) load(key string, into *map[string]string) error {
	data, ok := t.cache.Valid(key, TranslatorVersion)
	if !ok {
		return nil
	}
	loaded := map[string]string{}
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*into = loaded
	return nil
}

// DateFormat translates format from one dialect's tokens to another's.
func (t *Translator) DateFormat(format string, from, to dialects.Kind) string {
	if from == to {
		return format
	}
	key := string(to) + "|" + string(from) + "|" + format
	if v, ok := t.dates[key]; ok {
		return v
	}
	v := dialects.TranslateDateFormat(format, from, to)
	t.dates[key] = v
	t.dirty = true
	return v
}

// Unescape strips identifier quoting from s.
func (t *Translator) Unescape(s string) string {
	if v, ok := t.idents[s]; ok {
		return v
	}
	v := dialects.UnescapeIdentifier(s)
	t.idents[s] = v
	t.dirty = true
	return v
}

// Len returns the number of memoized date formats and identifiers.
func (t *Translator) Len() (dates, identifiers int) {
	return len(t.dates), len(t.idents)
}

// Flush writes the memos to the cache if anything changed since the last flush.
func (t *Translator) Flush() error {
	if !t.dirty {
		return nil
	}
	for key, memo := range map[string]map[string]string{
		dateFormatCacheKey: t.dates,
		identifierCacheKey: t.idents,
	} {
		data, err := json.Marshal(memo)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		if err := t.cache.Update(key, TranslatorVersion, data); err != nil {
			return fmt.Errorf("store %s: %w", key, err)
		}
	}
	t.dirty = false
	return nil
}
