package fsutil

import "github.com/mgutz/str"

// Tokenize splits a shell-style command line into argv, honoring quotes.
// Nothing in this module calls it: the environment snapshot runs its vendor
// activation line as a single string through the platform shell.
func Tokenize(s string) []string {
	return str.ToArgv(s)
}
