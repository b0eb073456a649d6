package tabular

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// parseJSON accepts a single object or a list of objects. Object keys become
// record keys directly; there is no header row.
func parseJSON(data []byte, o options) (*Table, error) {
	root, err := oj.Parse(data)
	if err != nil {
		return nil, &FormatError{Format: FormatJSON, Err: err}
	}

	if o.recordPath != "" {
		root, err = selectPath(root, o.recordPath)
		if err != nil {
			return nil, &FormatError{Format: FormatJSON, Err: err}
		}
	}

	var objects []any
	switch v := root.(type) {
	case map[string]any:
		objects = []any{v}
	case []any:
		objects = v
	default:
		return nil, &FormatError{Format: FormatJSON, Err: errors.New("expected an object or a list of objects")}
	}

	var (
		headers []string
		seen    = make(map[string]bool)
		records = make([]RawRecord, 0, len(objects))
	)

	for i, item := range objects {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &FormatError{Format: FormatJSON, Err: fmt.Errorf("element %d is not an object", i)}
		}

		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		rec := NewRawRecord(len(keys))
		for _, k := range keys {
			s, err := stringify(obj[k])
			if err != nil {
				return nil, &FormatError{Format: FormatJSON, Err: fmt.Errorf("element %d key %q: %w", i, k, err)}
			}
			rec.Set(k, s)
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, &FormatError{Format: FormatJSON, Err: ErrNoRecords}
	}

	return &Table{Headers: headers, Records: records}, nil
}

// selectPath narrows a document to the value found at a JSONPath expression.
func selectPath(root any, path string) (any, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid record path %q: %w", path, err)
	}
	results := x.Get(root)
	if len(results) == 0 {
		return nil, fmt.Errorf("record path %q matched nothing", path)
	}
	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}

// HasArrayAt reports whether data is a JSON object holding an array under key.
// It is used to detect bundle files that group records by kind.
func HasArrayAt(data []byte, key string) bool {
	root, err := oj.Parse(data)
	if err != nil {
		return false
	}
	obj, ok := root.(map[string]any)
	if !ok {
		return false
	}
	_, ok = obj[key].([]any)
	return ok
}

func stringify(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10), nil
		}
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case []any, map[string]any:
		return oj.JSON(t, &oj.Options{Sort: true}), nil
	default:
		return fmt.Sprint(t), nil
	}
}
