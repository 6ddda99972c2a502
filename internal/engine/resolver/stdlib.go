package resolver

import (
	"bufio"
	_ "embed"
	"strings"
	"sync"
)

//go:embed stdlib/node.txt
var nodeBuiltinList string

// nodeBuiltins is the set of Node.js core module names, loaded on first use.
var nodeBuiltins = sync.OnceValue(func() map[string]struct{} {
	set := make(map[string]struct{}, 80)
	sc := bufio.NewScanner(strings.NewReader(nodeBuiltinList))
	for sc.Scan() {
		name := strings.TrimSpace(sc.Text())
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		set[name] = struct{}{}
	}
	return set
})

func isNodeBuiltin(name string) bool {
	_, ok := nodeBuiltins()[name]
	return ok
}
