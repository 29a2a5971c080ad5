// ABOUTME: Traversal helpers over a built tag forest.
// ABOUTME: Used by the CLI, API, and MCP surfaces to size, search, and total trees.

package tagtree

import (
	"github.com/google/uuid"
	"github.com/harper/marknote/internal/models"
)

// Walk visits nodes depth-first in display order. depth is 0 for the given
// nodes. Returning false from fn skips that node's children.
func Walk(nodes []*models.TagNode, fn func(node *models.TagNode, depth int) bool) {
	walk(nodes, 0, fn)
}

func walk(nodes []*models.TagNode, depth int, fn func(*models.TagNode, int) bool) {
	for _, n := range nodes {
		if fn(n, depth) {
			walk(n.Children, depth+1, fn)
		}
	}
}

// Size returns the total number of nodes in the forest.
func Size(nodes []*models.TagNode) int {
	total := 0
	Walk(nodes, func(*models.TagNode, int) bool {
		total++
		return true
	})
	return total
}

// Find returns the node with the given tag id, or nil.
func Find(nodes []*models.TagNode, id uuid.UUID) *models.TagNode {
	var found *models.TagNode
	Walk(nodes, func(n *models.TagNode, _ int) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// SubtreeCount sums the direct note counts of node and all of its descendants.
// A note tagged with both a parent and a child is counted once per tag.
func SubtreeCount(node *models.TagNode) int {
	if node == nil {
		return 0
	}
	total := node.NoteCount
	for _, c := range node.Children {
		total += SubtreeCount(c)
	}
	return total
}
