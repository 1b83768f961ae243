package htmlutil

import (
	"strings"

	"github.com/k3a/html2text"
)

var spaceReplacer = strings.NewReplacer("\u00a0", " ", "\u2009", " ", "\u202f", " ")

// ToText converts HTML to plain text using a proper HTML parser.
// Non-breaking and thin spaces become plain spaces so that patterns using \s
// match text the Bureau lays out with &nbsp;.
func ToText(s string) string {
	return spaceReplacer.Replace(html2text.HTML2Text(s))
}
