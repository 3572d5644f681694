// Package audit applies human review decisions to stored achievements.
package audit

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

type Kind string

const (
	Keep   Kind = "KEEP"
	Edit   Kind = "EDIT"
	Delete Kind = "DELETE"
)

// Decision is one reviewed achievement, keyed by its exact text.
type Decision struct {
	OriginalText string
	Kind         Kind
	EditedText   string
}

var (
	blockStart   = regexp.MustCompile(`^####\s+Achievement\s+\d+`)
	textLine     = regexp.MustCompile(`^\*\*Text:\*\*\s?(.*)$`)
	decisionLine = regexp.MustCompile(`(?i)^\*\*DECISION:\*\*\s*\[?\s*(KEEP|EDIT|DELETE)\s*\]?\s*$`)
	editLine     = regexp.MustCompile(`^\*\*EDIT \(if applicable\):\*\*\s*(.*)$`)
)

// ParseMarkdown reads review blocks of the form written by WriteTemplate.
// Blocks missing the text or a filled-in decision are skipped, which also
// covers untouched "[KEEP|EDIT|DELETE]" placeholders.
func ParseMarkdown(r io.Reader) ([]Decision, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		decisions []Decision
		current   *block
	)
	flush := func() {
		if current == nil {
			return
		}
		if d, ok := current.decision(); ok {
			decisions = append(decisions, d)
		}
		current = nil
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		if blockStart.MatchString(trimmed) {
			flush()
			current = &block{}
			continue
		}
		if current == nil {
			continue
		}
		current.feed(trimmed)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit file: %w", err)
	}
	flush()

	return decisions, nil
}

type block struct {
	text     string
	hasText  bool
	kind     Kind
	edit     []string
	inEdit   bool
	editDone bool
}

func (b *block) feed(line string) {
	if b.inEdit {
		if line == "---" {
			b.inEdit = false
			b.editDone = true
			return
		}
		if line != "" {
			b.edit = append(b.edit, line)
		}
		return
	}

	if m := textLine.FindStringSubmatch(line); m != nil && !b.hasText {
		b.text = strings.TrimSpace(m[1])
		b.hasText = b.text != ""
		return
	}
	if m := decisionLine.FindStringSubmatch(line); m != nil && b.kind == "" {
		b.kind = Kind(strings.ToUpper(m[1]))
		return
	}
	if m := editLine.FindStringSubmatch(line); m != nil && !b.editDone {
		b.inEdit = true
		if first := strings.TrimSpace(m[1]); first != "" {
			b.edit = append(b.edit, first)
		}
	}
}

func (b *block) decision() (Decision, bool) {
	if !b.hasText || b.kind == "" {
		return Decision{}, false
	}
	d := Decision{OriginalText: b.text, Kind: b.kind}
	if b.kind == Edit {
		d.EditedText = strings.Join(b.edit, "\n")
	}
	return d, true
}

// Counts returns how many decisions of each kind the set holds.
func Counts(decisions []Decision) map[Kind]int {
	counts := map[Kind]int{Keep: 0, Edit: 0, Delete: 0}
	for _, d := range decisions {
		counts[d.Kind]++
	}
	return counts
}
