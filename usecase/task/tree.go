package task

import "github.com/fastygo/sitetasks/domain"

// TreeNode is a task with its children resolved.
type TreeNode struct {
	Task     domain.Task `json:"task"`
	Children []*TreeNode `json:"children,omitempty"`
}

// BuildTree nests a flat list by parent id. Tasks whose parent is not in the
// list become roots. Sibling order follows the input order.
func BuildTree(tasks []domain.Task) []*TreeNode {
	nodes := make(map[string]*TreeNode, len(tasks))
	for _, t := range tasks {
		if _, dup := nodes[t.ID]; dup {
			continue
		}
		nodes[t.ID] = &TreeNode{Task: t.Clone()}
	}

	var roots []*TreeNode
	placed := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if placed[t.ID] {
			continue
		}
		placed[t.ID] = true
		node := nodes[t.ID]
		parent, ok := nodes[t.ParentTaskID]
		if !ok || t.ParentTaskID == t.ID || closesCycle(nodes, t) {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}
	return roots
}

// closesCycle reports whether walking up from t returns to t.
func closesCycle(nodes map[string]*TreeNode, t domain.Task) bool {
	seen := map[string]bool{t.ID: true}
	for parent := t.ParentTaskID; parent != ""; {
		if seen[parent] {
			return parent == t.ID
		}
		seen[parent] = true
		n, ok := nodes[parent]
		if !ok {
			return false
		}
		parent = n.Task.ParentTaskID
	}
	return false
}

// Flatten walks a forest in pre-order.
func Flatten(roots []*TreeNode) []domain.Task {
	var out []domain.Task
	var walk func(nodes []*TreeNode)
	walk = func(nodes []*TreeNode) {
		for _, n := range nodes {
			out = append(out, n.Task)
			walk(n.Children)
		}
	}
	walk(roots)
	return out
}
