package stdhost

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// funcRegistry holds Go funcs that class schemas bind to members by name.
//
// Thread-safe: registration happens at startup; lookups happen from any
// goroutine loading a schema.
var funcRegistry = struct {
	mu    sync.RWMutex
	funcs map[string]any
}{
	funcs: make(map[string]any),
}

// Register makes fn available to schemas under name. fn must be a func;
// registering a name twice replaces the earlier func.
func Register(name string, fn any) {
	funcRegistry.mu.Lock()
	defer funcRegistry.mu.Unlock()
	funcRegistry.funcs[name] = fn
}

// Func returns the func registered under name.
func Func(name string) (any, error) {
	funcRegistry.mu.RLock()
	defer funcRegistry.mu.RUnlock()
	fn, ok := funcRegistry.funcs[name]
	if !ok {
		return nil, fmt.Errorf("no function registered as %q", name)
	}
	return fn, nil
}

// FuncNames returns the registered names, sorted.
func FuncNames() []string {
	funcRegistry.mu.RLock()
	defer funcRegistry.mu.RUnlock()
	names := make([]string, 0, len(funcRegistry.funcs))
	for name := range funcRegistry.funcs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func init() {
	for name, fn := range map[string]any{
		"strings.ToUpper":   strings.ToUpper,
		"strings.ToLower":   strings.ToLower,
		"strings.TrimSpace": strings.TrimSpace,
		"strings.Repeat":    strings.Repeat,
		"strings.Contains":  strings.Contains,
		"strings.HasPrefix": strings.HasPrefix,
		"strings.HasSuffix": strings.HasSuffix,
		"strings.Index":     strings.Index,
		"strconv.Itoa":      strconv.Itoa,
		"strconv.Atoi":      strconv.Atoi,
		"strconv.Quote":     strconv.Quote,
		"math.Abs":          math.Abs,
		"math.Max":          math.Max,
		"math.Min":          math.Min,
		"math.Sqrt":         math.Sqrt,
		"uuid.NewString":    uuid.NewString,
		"uuid.Parse":        uuid.Parse,
		"fmt.Sprint":        fmt.Sprint,
	} {
		Register(name, fn)
	}
}
