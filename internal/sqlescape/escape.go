// Package sqlescape makes untrusted strings safe to splice into SQL text.
//
// The constraint name handed to the inspector comes from a language model
// and the table names come from rows a previous query returned — both are
// treated as adversarial. Every value the inspector interpolates into raw
// SQL (as opposed to passing as a bound parameter) must go through exactly
// one of these two functions first.
package sqlescape

import "strings"

// Identifier quotes name for use in a SQL identifier position (table or
// column name). Embedded backticks are doubled, which is how MySQL escapes
// them inside a backtick-quoted identifier.
func Identifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Literal quotes value for use in a SQL string-literal position. Embedded
// single quotes are doubled. Backslashes are doubled as well, which keeps
// the result injection-safe under either backslash-escape server mode; the
// value round-trips exactly only under the default mode — with
// NO_BACKSLASH_ESCAPES enabled a backslash-bearing name arrives with its
// backslashes doubled and matches nothing in the catalog.
func Literal(value string) string {
	v := strings.ReplaceAll(value, `\`, `\\`)
	v = strings.ReplaceAll(v, "'", "''")
	return "'" + v + "'"
}
