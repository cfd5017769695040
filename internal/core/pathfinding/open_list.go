package pathfinding

import "container/heap"

type openItem struct {
	cell  *Cell
	seq   uint64
	index int
}

// openList is a min-heap on F. Equal F values pop in insertion order.
type openList []*openItem

var _ heap.Interface = (*openList)(nil)

func (o openList) Len() int { return len(o) }

func (o openList) Less(i, j int) bool {
	if o[i].cell.F != o[j].cell.F {
		return o[i].cell.F < o[j].cell.F
	}
	return o[i].seq < o[j].seq
}

func (o openList) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}

func (o *openList) Push(x any) {
	item := x.(*openItem)
	item.index = len(*o)
	*o = append(*o, item)
}

func (o *openList) Pop() any {
	old := *o
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*o = old[:n-1]
	return item
}
