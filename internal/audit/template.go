package audit

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spigell/resume-keeper/internal/resume"
)

const placeholder = "[KEEP|EDIT|DELETE]"

// WriteTemplate writes a review document listing every achievement without
// provenance. It returns how many achievements were listed.
func WriteTemplate(w io.Writer, res *resume.Resume) (int, error) {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "# Achievement Audit")
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "Replace each decision placeholder with KEEP, EDIT or DELETE. For EDIT, put the new text under the EDIT line.")
	fmt.Fprintln(bw, "Apply with `resume-keeper audit apply`.")

	n := 0
	for _, ref := range res.Positions() {
		entries := unreviewed(ref.Position)
		if len(entries) == 0 {
			continue
		}

		fmt.Fprintln(bw)
		fmt.Fprintf(bw, "## %s / %s (%s)\n", companyName(ref.Employer), ref.Position.Title, period(ref.Position))

		for _, e := range entries {
			n++
			fmt.Fprintln(bw)
			fmt.Fprintf(bw, "#### Achievement %d\n", n)
			if e.category != "" {
				fmt.Fprintf(bw, "**Category:** %s\n", e.category)
			}
			fmt.Fprintf(bw, "**Text:** %s\n", oneLine(e.item.ItemText()))
			if tags := resume.Normalize(e.item).Tags; len(tags) > 0 {
				fmt.Fprintf(bw, "**Tags:** %s\n", strings.Join(tags, ", "))
			}
			fmt.Fprintln(bw)
			fmt.Fprintf(bw, "**DECISION:** %s\n", placeholder)
			fmt.Fprintln(bw)
			fmt.Fprintln(bw, "**EDIT (if applicable):**")
			fmt.Fprintln(bw)
			fmt.Fprintln(bw, "---")
		}
	}

	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("write audit template: %w", err)
	}
	return n, nil
}

type entry struct {
	category string
	item     resume.Item
}

func unreviewed(pos *resume.Position) []entry {
	var out []entry
	for _, t := range pos.Legacy {
		out = append(out, entry{item: t})
	}
	for _, g := range pos.Groups {
		for _, it := range g.Items {
			if !hasProvenance(it) {
				out = append(out, entry{category: g.Category, item: it})
			}
		}
	}
	return out
}

func companyName(e *resume.Employer) string {
	if e.Company != "" {
		return e.Company
	}
	return e.ID
}

func period(p *resume.Position) string {
	end := p.EndDate
	if end == "" {
		end = "present"
	}
	return p.StartDate + " - " + end
}

// oneLine keeps multi-line text on the Text line. Such items will not match
// on apply since matching is exact.
func oneLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ").Replace(s)
}
