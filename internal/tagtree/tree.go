// ABOUTME: Builds a user's tag forest from flat tag rows and per-tag note counts.
// ABOUTME: Hierarchy comes from tag paths, never from stored parent ids.

// Package tagtree assembles the nested tag view rendered by every surface.
//
// A tag's parent is the tag whose name equals its own name with the last path
// segment removed. Tags whose parent path is missing from the input (orphans)
// are shown at the root rather than dropped. Every level is sorted by name.
package tagtree

import (
	"sort"

	"github.com/google/uuid"
	"github.com/harper/marknote/internal/models"
)

// Build returns the sorted forest for tags. counts maps tag ids to the number of
// notes linked directly to that tag; missing ids count as zero.
//
// Names are expected to be unique. When they are not, the last tag with a given
// name is the one children attach to, and every input tag still gets a node.
func Build(tags []*models.Tag, counts map[uuid.UUID]int) []*models.TagNode {
	nodes := make([]*models.TagNode, len(tags))
	byName := make(map[string]*models.TagNode, len(tags))
	for i, tag := range tags {
		node := &models.TagNode{
			Tag:       tag,
			Children:  []*models.TagNode{},
			NoteCount: counts[tag.ID],
		}
		nodes[i] = node
		byName[tag.Name] = node
	}

	roots := []*models.TagNode{}
	for _, node := range nodes {
		parentName, ok := models.ParentName(node.Name)
		if !ok {
			roots = append(roots, node)
			continue
		}
		parent, found := byName[parentName]
		if !found {
			// Orphan: the parent path was deleted or never created.
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	sortLevel(roots)
	return roots
}

func sortLevel(nodes []*models.TagNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Name < nodes[j].Name
	})
	for _, n := range nodes {
		sortLevel(n.Children)
	}
}
