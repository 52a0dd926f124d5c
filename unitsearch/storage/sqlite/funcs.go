package sqlite

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"sync"

	"modernc.org/sqlite"

	"github.com/nonibytes/unitsearch/unitsearch/planner"
)

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction("regexp", 2, regexpFunc); err != nil {
		panic(fmt.Sprintf("sqlite: register regexp: %v", err))
	}
	if err := sqlite.RegisterDeterministicScalarFunction("casefold", 1, casefoldFunc); err != nil {
		panic(fmt.Sprintf("sqlite: register casefold: %v", err))
	}
}

// X REGEXP Y calls regexp(Y, X).
func regexpFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	pattern, ok1 := asString(args[0])
	value, ok2 := asString(args[1])
	if !ok1 || !ok2 {
		return nil, nil
	}
	ok, err := matchRegexp(pattern, value)
	if err != nil {
		return nil, err
	}
	if ok {
		return int64(1), nil
	}
	return int64(0), nil
}

func casefoldFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	s, ok := asString(args[0])
	if !ok {
		return args[0], nil
	}
	return planner.Fold(s), nil
}

func asString(v driver.Value) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

const maxCachedPatterns = 128

var patterns = struct {
	sync.Mutex
	byText map[string]*regexp.Regexp
}{byText: make(map[string]*regexp.Regexp)}

// matchRegexp compiles pattern once per process and reports whether it
// matches anywhere in value.
func matchRegexp(pattern, value string) (bool, error) {
	patterns.Lock()
	re, ok := patterns.byText[pattern]
	patterns.Unlock()
	if !ok {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("invalid regex %q: %w", pattern, err)
		}
		patterns.Lock()
		if len(patterns.byText) >= maxCachedPatterns {
			clear(patterns.byText)
		}
		patterns.byText[pattern] = re
		patterns.Unlock()
	}
	return re.MatchString(value), nil
}
