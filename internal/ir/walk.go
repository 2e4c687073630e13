package ir

import "iter"

// Walk yields every node of the document in pre-order: a node before its
// children, children in original order, table cell content in row-major
// cell order. The sequence is lazy and restartable; breaking out of the
// range loop stops the traversal.
func (d *Document) Walk() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, n := range d.Body {
			if !walk(n, yield) {
				return
			}
		}
	}
}

// WalkNodes is Walk for a bare node slice, used for cell content subtrees.
func WalkNodes(nodes []*Node) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, n := range nodes {
			if !walk(n, yield) {
				return
			}
		}
	}
}

func walk(n *Node, yield func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !yield(n) {
		return false
	}
	if n.Variant == Table && n.Table != nil {
		for i := range n.Table.Cells {
			for _, cn := range n.Table.Cells[i].Content {
				if !walk(cn, yield) {
					return false
				}
			}
		}
	}
	for _, c := range n.Children {
		if !walk(c, yield) {
			return false
		}
	}
	return true
}
