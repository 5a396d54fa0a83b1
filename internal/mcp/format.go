package mcp

import (
	"fmt"
	"strings"
)

// FormatSearchResults renders a search output as markdown. Snippets keep
// their <mark> tags.
func FormatSearchResults(out SearchOutput) string {
	if len(out.Results) == 0 {
		msg := fmt.Sprintf("No results found for \"%s\"", out.Query)
		if out.Notice != "" {
			msg += "\n\n" + out.Notice
		}
		return msg
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\"\n\n", out.Query)
	fmt.Fprintf(&sb, "Found %d result", len(out.Results))
	if len(out.Results) != 1 {
		sb.WriteString("s")
	}
	fmt.Fprintf(&sb, " (alpha %.2f)\n\n", out.Alpha)
	if out.Degraded != "" {
		fmt.Fprintf(&sb, "> The %s backend was unavailable; its scores count as 0.\n\n", out.Degraded)
	}

	for i, r := range out.Results {
		fmt.Fprintf(&sb, "### %d. %s", i+1, r.Source)
		if r.Page > 0 {
			fmt.Fprintf(&sb, ", page %d", r.Page)
		}
		fmt.Fprintf(&sb, " (score: %.2f)\n", r.Score)
		fmt.Fprintf(&sb, "**%s** · %s\n\n", r.Heading, r.Category)
		sb.WriteString(r.Snippet)
		sb.WriteString("\n\n")
	}

	if len(out.Diagnostics) > 0 {
		sb.WriteString("| Snippet | Sparse | Dense | Hybrid |\n|---|---|---|---|\n")
		for _, d := range out.Diagnostics {
			fmt.Fprintf(&sb, "| %s | %.4f | %.4f | %.4f |\n",
				strings.ReplaceAll(d.Snippet, "|", `\|`), d.Sparse, d.Dense, d.Hybrid)
		}
	}
	return sb.String()
}
