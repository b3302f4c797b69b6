package fetch

import (
	"bytes"
	"maps"
	"slices"

	"github.com/goccy/go-json"

	"github.com/matzehuels/jet/pkg/errors"
	"github.com/matzehuels/jet/pkg/loader"
)

// Exports is the decoded body of a script module.
type Exports map[string]any

// Decode parses a script body. The body must be a JSON object. Numbers are
// decoded as json.Number so that large integers survive.
func Decode(body []byte) (Exports, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var e Exports
	if err := dec.Decode(&e); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode module exports")
	}
	if e == nil {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "module exports must be a JSON object")
	}
	return e, nil
}

// Factory returns a loader factory that sets every export on the namespace.
func (e Exports) Factory() loader.Factory {
	keys := slices.Sorted(maps.Keys(e))
	return func(ns *loader.Namespace) {
		for _, k := range keys {
			ns.Set(k, e[k])
		}
	}
}
