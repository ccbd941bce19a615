package graph

import (
	"fmt"
	"sync"
)

// NodeID identifies a node in the graph. Index addresses the arena slot
// and Gen is incremented every time the slot is reused, so a stale id
// never resolves to a different node. The zero value is not a valid id.
type NodeID struct {
	Index uint32
	Gen   uint32
}

// IsZero returns true for the zero id.
func (id NodeID) IsZero() bool {
	return id.Gen == 0
}

// Less orders ids by their arena index.
func (id NodeID) Less(other NodeID) bool {
	if id.Index != other.Index {
		return id.Index < other.Index
	}
	return id.Gen < other.Gen
}

func (id NodeID) String() string {
	return fmt.Sprintf("%d.%d", id.Index, id.Gen)
}

// IDs allocates node ids on the control goroutine. An index is reused
// only after it was both dropped by the control side and recycled after
// the render side confirmed the node is gone.
type IDs struct {
	sync.Mutex
	gens    []uint32
	live    []bool
	dropped []bool
	free    []uint32
}

// Allocate returns a new live id.
func (ids *IDs) Allocate() NodeID {
	ids.Lock()
	defer ids.Unlock()
	var index uint32
	if n := len(ids.free); n > 0 {
		index = ids.free[n-1]
		ids.free = ids.free[:n-1]
	} else {
		index = uint32(len(ids.gens))
		ids.gens = append(ids.gens, 0)
		ids.live = append(ids.live, false)
		ids.dropped = append(ids.dropped, false)
	}
	ids.gens[index]++
	ids.live[index] = true
	ids.dropped[index] = false
	return NodeID{Index: index, Gen: ids.gens[index]}
}

// Live returns true if id is allocated and not dropped.
func (ids *IDs) Live(id NodeID) bool {
	ids.Lock()
	defer ids.Unlock()
	return ids.valid(id) && !ids.dropped[id.Index]
}

// Drop marks id as no longer referenced by the control side. Dropped
// ids can't be connected anymore, but the index stays reserved until
// Recycle is called.
func (ids *IDs) Drop(id NodeID) bool {
	ids.Lock()
	defer ids.Unlock()
	if !ids.valid(id) || ids.dropped[id.Index] {
		return false
	}
	ids.dropped[id.Index] = true
	return true
}

// Recycle releases the index of id after the render side stopped
// referencing it. Unknown or stale ids are ignored.
func (ids *IDs) Recycle(id NodeID) {
	ids.Lock()
	defer ids.Unlock()
	if !ids.valid(id) {
		return
	}
	ids.live[id.Index] = false
	ids.dropped[id.Index] = false
	ids.free = append(ids.free, id.Index)
}

func (ids *IDs) valid(id NodeID) bool {
	return !id.IsZero() &&
		int(id.Index) < len(ids.gens) &&
		ids.gens[id.Index] == id.Gen &&
		ids.live[id.Index]
}
