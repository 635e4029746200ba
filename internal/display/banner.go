// Package display holds console presentation helpers: the startup banner and
// human-readable formatting of sizes, durations and percentages.
package display

import (
	"io"

	"github.com/fatih/color"
)

const banner = `     _
 ___| |_ _ __ ___  __ _ _ __ ___  _ __   ___  _ __ _ __ ___
/ __| __| '__/ _ \/ _` + "`" + ` | '_ ` + "`" + ` _ \| '_ \ / _ \| '__| '_ ` + "`" + ` _ \
\__ \ |_| | |  __/ (_| | | | | | | | | | (_) | |  | | | | | |
|___/\__|_|  \___|\__,_|_| |_| |_|_| |_|\___/|_|  |_| |_| |_|
`

var bannerColor = color.New(color.FgHiMagenta, color.Bold)

// PrintBanner writes the ASCII art banner to w, in magenta when colors are
// enabled.
func PrintBanner(w io.Writer) {
	_, _ = bannerColor.Fprint(w, banner)
	_, _ = io.WriteString(w, "\n")
}
