// Package parser extracts a scalar string from a response byte buffer
// under a Parse Rule (Number, Regex, or JsonPath).
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/ormasoftchile/catengine/pkg/model"
)

var numberPattern = regexp.MustCompile(`-?\d+\.?\d*(?:[eE][-+]?\d+)?`)

// Parse extracts a scalar string from data under rule. A nil rule means
// "no parsing" and is not handled here; callers check for nil before
// calling Parse.
func Parse(rule model.ParseRule, data []byte) (string, error) {
	switch rule.Kind {
	case model.ParseNumber:
		return parseNumber(data)
	case model.ParseRegex:
		return parseRegex(rule, data)
	case model.ParseJSONPath:
		return parseJSONPath(rule, data)
	default:
		return "", model.NewError(model.ErrParse, "unknown parse rule kind")
	}
}

func parseNumber(data []byte) (string, error) {
	trimmed := strings.TrimSpace(string(data))
	match := numberPattern.FindString(trimmed)
	if match == "" {
		return "", model.NewError(model.ErrParse, "no number found in response")
	}
	return match, nil
}

func parseRegex(rule model.ParseRule, data []byte) (string, error) {
	re, err := regexp.Compile(rule.Pattern)
	if err != nil {
		return "", model.NewError(model.ErrParse, fmt.Sprintf("invalid regex pattern: %v", err))
	}
	groups := re.FindSubmatch(data)
	if groups == nil {
		return "", model.NewError(model.ErrParse, "pattern did not match response")
	}
	if rule.Group < 0 || rule.Group >= len(groups) {
		return "", model.NewError(model.ErrParse, fmt.Sprintf("capture group %d not present", rule.Group))
	}
	return string(groups[rule.Group]), nil
}

// parseJSONPath evaluates a dotted/bracket JSONPath-like expression
// (e.g. "a.b[0].c") against data using jsonparser, returning the first
// result. Strings are unquoted; scalars are stringified.
func parseJSONPath(rule model.ParseRule, data []byte) (string, error) {
	keys, err := splitJSONPath(rule.Path)
	if err != nil {
		return "", model.NewError(model.ErrParse, fmt.Sprintf("invalid json path: %v", err))
	}
	value, valueType, _, err := jsonparser.Get(data, keys...)
	if err != nil {
		return "", model.NewError(model.ErrParse, fmt.Sprintf("json path evaluation failed: %v", err))
	}
	switch valueType {
	case jsonparser.String:
		unescaped, err := jsonparser.ParseString(value)
		if err != nil {
			return "", model.NewError(model.ErrParse, "invalid json string value")
		}
		return unescaped, nil
	case jsonparser.Null:
		return "", model.NewError(model.ErrParse, "json path resolved to null")
	default:
		return string(value), nil
	}
}

// splitJSONPath turns "a.b[0].c" or "$.a.b[0]" into jsonparser's
// variadic key-path form: []string{"a","b","[0]","c"}.
func splitJSONPath(path string) ([]string, error) {
	path = strings.TrimPrefix(path, "$.")
	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}
	var keys []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			keys = append(keys, cur.String())
			cur.Reset()
		}
	}
	i := 0
	for i < len(path) {
		c := path[i]
		switch c {
		case '.':
			flush()
			i++
		case '[':
			flush()
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated '[' in path")
			}
			idx := path[i+1 : i+end]
			idx = strings.Trim(idx, `"'`)
			if _, err := strconv.Atoi(idx); err == nil {
				keys = append(keys, "["+idx+"]")
			} else {
				keys = append(keys, idx)
			}
			i += end + 1
		default:
			cur.WriteByte(c)
			i++
		}
	}
	flush()
	if len(keys) == 0 {
		return nil, fmt.Errorf("empty path")
	}
	return keys, nil
}
