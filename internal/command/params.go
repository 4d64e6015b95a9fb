package command

import (
	"errors"
	"strconv"
	"strings"
)

type ParamKind int

const (
	KindString ParamKind = iota
	KindInt
	KindUser
	// KindRest consumes every remaining argument, joined by single spaces.
	KindRest
)

func (k ParamKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindUser:
		return "User"
	case KindRest:
		return "str"
	default:
		return "str"
	}
}

type Param struct {
	Name        string
	Description string
	Kind        ParamKind
	Optional    bool
	Default     string
}

var errUnbalancedQuote = errors.New("Expected closing \".")

// splitArgs splits on whitespace, keeping double-quoted runs together.
func splitArgs(input string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range input {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case !quoted && (r == ' ' || r == '\n' || r == '\t' || r == '\r'):
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, errUnbalancedQuote
	}
	if started {
		args = append(args, current.String())
	}
	return args, nil
}

func convertArgs(params []Param, args []string) (map[string]any, error) {
	values := make(map[string]any, len(params))
	idx := 0
	for _, param := range params {
		var raw string
		switch {
		case param.Kind == KindRest && idx < len(args):
			raw = strings.Join(args[idx:], " ")
			idx = len(args)
		case idx < len(args):
			raw = args[idx]
			idx++
		case param.Optional:
			if param.Default == "" {
				continue
			}
			raw = param.Default
		default:
			return nil, &MissingArgumentError{Param: param}
		}

		value, err := convert(param, raw)
		if err != nil {
			return nil, err
		}
		values[param.Name] = value
	}
	return values, nil
}

func convert(param Param, raw string) (any, error) {
	switch param.Kind {
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &BadArgumentError{Param: param, Value: raw, Err: err}
		}
		return n, nil
	case KindUser:
		id := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(raw, "<@"), "!"), ">")
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			return nil, &BadArgumentError{Param: param, Value: raw, Err: err}
		}
		return id, nil
	default:
		return raw, nil
	}
}
