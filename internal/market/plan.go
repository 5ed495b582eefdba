package market

import (
	"fmt"
	"io"

	"github.com/serverkit/addonctl/internal/catalog"
)

type planNode struct {
	entry    ReviewEntry
	children []*planNode
}

// PrintPlan prints the review as a tree with box-drawing characters:
// selected items at the top level and every dependency under the item that
// introduced it.
func PrintPlan(w io.Writer, review *Review) {
	entries := review.Entries()

	nodes := make(map[catalog.Key]*planNode, len(entries))
	var roots []*planNode
	for _, e := range entries {
		n := &planNode{entry: e}
		nodes[e.Item.Key()] = n
		if e.Origin == OriginSelected {
			roots = append(roots, n)
			continue
		}
		if parent, ok := nodes[e.Parent]; ok {
			parent.children = append(parent.children, n)
		} else {
			roots = append(roots, n)
		}
	}

	for _, n := range roots {
		printNode(w, n, "", true, true)
	}
	fmt.Fprintln(w)

	var selected, required, optional, skipped int
	for _, e := range entries {
		if !e.Chosen {
			skipped++
			continue
		}
		switch e.Origin {
		case OriginSelected:
			selected++
		case OriginRequired:
			required++
		case OriginOptional:
			optional++
		}
	}
	fmt.Fprintf(w, "  Install: %d selected, %d required, %d optional (%d %s)\n",
		selected, required, optional, selected+required+optional, pluralize("item", selected+required+optional))
	if skipped > 0 {
		fmt.Fprintf(w, "  (%d %s skipped)\n", skipped, pluralize("item", skipped))
	}
	if err := review.ResolutionErr(); err != nil {
		fmt.Fprintf(w, "\n  Warning: %v\n  Only the selected items are listed.\n", err)
	}
}

func printNode(w io.Writer, n *planNode, prefix string, isLast, isRoot bool) {
	label := fmt.Sprintf("%s (%s)", n.entry.Item.Name(), n.entry.Item.Key())
	if n.entry.Origin == OriginOptional {
		label += " (optional)"
	}
	if !n.entry.Chosen {
		label += " (skipped)"
	}

	connector := "├── "
	if isLast {
		connector = "└── "
	}
	if isRoot {
		fmt.Fprintf(w, "  %s\n", label)
	} else {
		fmt.Fprintf(w, "  %s%s%s\n", prefix, connector, label)
	}

	childPrefix := prefix
	if !isRoot {
		if isLast {
			childPrefix += "    "
		} else {
			childPrefix += "│   "
		}
	}
	for i, c := range n.children {
		printNode(w, c, childPrefix, i == len(n.children)-1, false)
	}
}

func pluralize(noun string, n int) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}
