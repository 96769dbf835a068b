// Package editor holds the sequence editor: step editing, template
// substitution, settings merge, recipient selection and the draft/publish
// state machine, plus the sessions that expose them over HTTP.
package editor

import (
	"sort"
	"strings"
)

// Substitute replaces every literal occurrence of each token key in
// template with its value. The output is produced in a single left to
// right pass, so a replacement value is never scanned again. Unknown
// tokens stay verbatim.
func Substitute(template string, vars map[string]string) string {
	if template == "" || len(vars) == 0 {
		return template
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
