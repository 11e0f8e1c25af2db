// Package flagx helps several independent flag sets share os.Args.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns the subset of args that belong to allowedFlags,
// keeping each flag together with its value.
//
// Both "-d dsn" and "-d=dsn" forms are recognized. A token following an
// allowed flag is treated as its value unless it starts with "-".
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// JsonConfigFlags returns the config file path given via -c or -config,
// or "" when neither is present. Other arguments are ignored so callers can
// parse their own flags independently.
func JsonConfigFlags() string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(os.Args[1:], []string{"-c", "-config"}))

	return path
}

// StripArgs is the complement of FilterArgs: it returns args with every
// flag in knownFlags (and its value) removed, leaving positional arguments.
func StripArgs(args []string, knownFlags []string) []string {
	kept := make([]string, 0, len(args))
	skip := make(map[int]struct{})
	filtered := FilterArgs(args, knownFlags)

	j := 0
	for i := 0; i < len(args) && j < len(filtered); i++ {
		if args[i] == filtered[j] {
			skip[i] = struct{}{}
			j++
		}
	}
	for i, arg := range args {
		if _, ok := skip[i]; !ok {
			kept = append(kept, arg)
		}
	}
	return kept
}
