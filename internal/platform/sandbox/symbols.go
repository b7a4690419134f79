package sandbox

import (
	"reflect"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/phrazzld/boxpack-api/internal/domain/placement"
)

// ModelImportPath is the import path under which candidates see the
// placement model types.
const ModelImportPath = "boxpack/model"

// stdlibAllowlist maps an import path to the symbols exposed from it. A nil
// set exposes the whole package.
var stdlibAllowlist = map[string]map[string]bool{
	"errors":  nil,
	"math":    nil,
	"sort":    nil,
	"strconv": nil,
	"strings": nil,
	"fmt": {
		"Errorf":   true,
		"Sprint":   true,
		"Sprintf":  true,
		"Sprintln": true,
		"Stringer": true,
	},
}

var modelSymbols = interp.Exports{
	ModelImportPath + "/model": {
		"Dimensions": reflect.ValueOf((*placement.Dimensions)(nil)),
		"Item":       reflect.ValueOf((*placement.Item)(nil)),
		"PlacedItem": reflect.ValueOf((*placement.PlacedItem)(nil)),
		"Position":   reflect.ValueOf((*placement.Position)(nil)),
		"Space":      reflect.ValueOf((*placement.Space)(nil)),
	},
}

var allowedSymbols = sync.OnceValue(func() interp.Exports {
	out := make(interp.Exports, len(stdlibAllowlist))
	for key, syms := range stdlib.Symbols {
		path := key
		if i := strings.LastIndex(key, "/"); i >= 0 {
			path = key[:i]
		}
		allow, ok := stdlibAllowlist[path]
		if !ok {
			continue
		}
		filtered := make(map[string]reflect.Value, len(syms))
		for name, v := range syms {
			if allow == nil || allow[name] {
				filtered[name] = v
			}
		}
		out[key] = filtered
	}
	return out
})
