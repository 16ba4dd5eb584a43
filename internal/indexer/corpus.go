package indexer

import (
	"strings"

	"smartnotex/internal/storage"
)

// BuildCorpus assembles the indexable text of a note from its title and its
// text-like content blocks, in stored block order. Text blocks are authored
// as markdown and reduced to plain text first; web link descriptions and
// video captions contribute verbatim. Binary kinds contribute nothing.
//
// An empty result means "nothing to index", not an error.
func BuildCorpus(title string, blocks []storage.ContentRecord) string {
	var parts []string

	if strings.TrimSpace(title) != "" {
		parts = append(parts, "Title: "+strings.TrimSpace(title))
	}

	for _, block := range blocks {
		if !block.Kind.Indexable() {
			continue
		}

		var text string
		switch block.Kind {
		case storage.KindText:
			text = markdownToText([]byte(block.Content))
		default:
			text = strings.TrimSpace(block.Content)
		}

		if text == "" {
			continue
		}
		parts = append(parts, text)
	}

	return strings.Join(parts, "\n\n")
}
