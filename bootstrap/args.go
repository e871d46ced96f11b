package bootstrap

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformedArgs is returned for parameter strings that are not a list of
// integers of the expected length.
var ErrMalformedArgs = errors.New("malformed parameters")

// DecodeArgs decodes an underscore-delimited parameter string such as
// "_20_1000000_" into its integer fields. Empty tokens produced by leading
// or trailing underscores are ignored. A non-negative n is the required
// number of fields.
func DecodeArgs(s string, n int) ([]int64, error) {
	tokens := strings.Split(s, "_")
	if len(tokens) > 0 && tokens[0] == "" {
		tokens = tokens[1:]
	}
	if len(tokens) > 0 && tokens[len(tokens)-1] == "" {
		tokens = tokens[:len(tokens)-1]
	}
	return parseInts(s, tokens, n)
}

// ParseArgs decodes command line parameters: either a single underscore
// string or one integer per argument. No arguments yield nil.
func ParseArgs(args []string, n int) ([]int64, error) {
	switch {
	case len(args) == 0:
		return nil, nil
	case len(args) == 1 && strings.Contains(args[0], "_"):
		return DecodeArgs(args[0], n)
	default:
		return parseInts(strings.Join(args, " "), args, n)
	}
}

func parseInts(input string, tokens []string, n int) ([]int64, error) {
	if n >= 0 && len(tokens) != n {
		return nil, errors.Wrapf(ErrMalformedArgs, "%q: want %d fields, got %d", input, n, len(tokens))
	}
	values := make([]int64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedArgs, "%q: field %d is not an integer: %q", input, i+1, tok)
		}
		values[i] = v
	}
	return values, nil
}
