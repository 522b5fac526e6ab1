package kernel

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

type taskNode struct {
	r   ref
	pid PID
}

func (n taskNode) ID() int64 { return int64(n.r) }

// waitCycle reports the tasks that would deadlock if waiter blocked on a
// mutex held by owner, or nil if blocking is safe. Edges of the wait-for
// graph run from each blocked task to the owner of the mutex it wants.
func (k *Kernel) waitCycle(waiter, owner ref) []PID {
	g := simple.NewDirectedGraph()
	node := func(r ref) graph.Node {
		if n := g.Node(int64(r)); n != nil {
			return n
		}
		n := taskNode{r: r, pid: k.tasks.get(r).pid}
		g.AddNode(n)
		return n
	}

	for i := 0; i < idleSlot; i++ {
		t := &k.tasks.tcbs[i]
		if t.state != Blocked {
			continue
		}
		o := k.mutexes[t.blockedOn-1].owner
		g.SetEdge(g.NewEdge(node(refOf(i)), node(o)))
	}
	g.SetEdge(g.NewEdge(node(waiter), node(owner)))

	_, err := topo.Sort(g)
	cycles, ok := err.(topo.Unorderable)
	if !ok {
		return nil
	}
	for _, scc := range cycles {
		var pids []PID
		found := false
		for _, n := range scc {
			tn := n.(taskNode)
			found = found || tn.r == waiter
			pids = append(pids, tn.pid)
		}
		if found {
			return pids
		}
	}
	return nil
}
