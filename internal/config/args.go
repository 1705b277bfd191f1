package config

import "strings"

// valueFlags are texdiff flags that consume the following argument.
var valueFlags = map[string]bool{
	"--main":         true,
	"--pdf-viewer":   true,
	"--cleanup":      true,
	"--latexopt":     true,
	"-o":             true,
	"--output":       true,
	"--tmpdirprefix": true,
	"--prepare":      true,
	"--latexpand":    true,
	"-c":             true,
	"--config":       true,
}

// boolFlags are texdiff flags that stand alone.
var boolFlags = map[string]bool{
	"--view":                true,
	"--no-view":             true,
	"-b":                    true,
	"--bibtex":              true,
	"--biber":               true,
	"--bbl":                 true,
	"--no-cleanup":          true,
	"--no-flatten":          true,
	"--latexmk":             true,
	"-v":                    true,
	"--verbose":             true,
	"--quiet":               true,
	"--ln-untracked":        true,
	"--no-ln-untracked":     true,
	"--subtree":             true,
	"--whole-tree":          true,
	"--ignore-latex-errors": true,
	"--ignore-makefile":     true,
	"--latexdiff-flatten":   true,
	"-h":                    true,
	"--help":                true,
}

// SplitPassthrough separates the raw argument list into arguments texdiff
// itself understands and unrecognized leading-dash arguments destined for
// latexdiff, preserving the original order of the latter.
//
// The literal "--" is the working-tree revision sentinel, not an option
// terminator, so it is kept with the positional arguments.
func SplitPassthrough(args []string) (own, passthrough []string) {
	own = make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == WorktreeRev:
			own = append(own, arg)
		case strings.HasPrefix(arg, "-"):
			name := arg
			if eq := strings.IndexByte(arg, '='); eq >= 0 {
				name = arg[:eq]
			}
			switch {
			case boolFlags[name]:
				own = append(own, arg)
			case valueFlags[name]:
				own = append(own, arg)
				if name == arg && i+1 < len(args) { // separate value form
					i++
					own = append(own, args[i])
				}
			default:
				passthrough = append(passthrough, arg)
			}
		default:
			own = append(own, arg)
		}
	}
	return own, passthrough
}

// ExtractRevisions pulls the positional revision arguments out of own,
// returning the remaining flag arguments and the positionals in order.
// This happens before command-line parsing because a bare "--" would
// otherwise be consumed as an option terminator instead of reaching the
// NEW revision slot.
func ExtractRevisions(own []string) (flags, revs []string) {
	flags = make([]string, 0, len(own))
	for i := 0; i < len(own); i++ {
		arg := own[i]
		switch {
		case arg == WorktreeRev:
			revs = append(revs, arg)
		case strings.HasPrefix(arg, "-"):
			flags = append(flags, arg)
			name := arg
			if eq := strings.IndexByte(arg, '='); eq >= 0 {
				name = arg[:eq]
			}
			if valueFlags[name] && name == arg && i+1 < len(own) {
				i++
				flags = append(flags, own[i])
			}
		default:
			revs = append(revs, arg)
		}
	}
	return flags, revs
}
