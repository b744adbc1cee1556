package table

import (
	"fmt"
	"slices"
	"sync"

	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/ndn"
)

// RouteEntry is a served prefix and its handler.
type RouteEntry[H any] struct {
	Prefix  enc.Name
	Handler H
}

type routerNode[H any] struct {
	component enc.Component
	name      enc.Name
	depth     int
	parent    *routerNode[H]
	children  []*routerNode[H]

	handler H
	has     bool
}

// Router maps name prefixes to handlers with longest-prefix match.
// Registration is idempotent: re-registering a prefix replaces its handler.
type Router[H any] struct {
	root  *routerNode[H]
	count int

	// mutex is held for writing only by (un)registration
	mutex sync.RWMutex
}

func NewRouter[H any]() *Router[H] {
	return &Router[H]{
		root: &routerNode[H]{name: enc.Name{}},
	}
}

func (r *Router[H]) String() string {
	return "router"
}

// findLongestPrefix returns the deepest node on the path of name.
func (n *routerNode[H]) findLongestPrefix(name enc.Name) *routerNode[H] {
	if len(name) > n.depth {
		for _, child := range n.children {
			if name[child.depth-1].Equal(child.component) {
				return child.findLongestPrefix(name)
			}
		}
	}
	return n
}

func (r *Router[H]) fillTreeToPrefix(name enc.Name) *routerNode[H] {
	entry := r.root.findLongestPrefix(name)
	for depth := entry.depth; depth < len(name); depth++ {
		component := name[depth].Clone()
		child := &routerNode[H]{
			component: component,
			name:      entry.name.Append(component),
			depth:     depth + 1,
			parent:    entry,
		}
		entry.children = append(entry.children, child)
		entry = child
	}
	return entry
}

// Register inserts or replaces the handler for prefix.
func (r *Router[H]) Register(prefix enc.Name, handler H) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	node := r.fillTreeToPrefix(prefix)
	if !node.has {
		r.count++
	}
	node.handler = handler
	node.has = true
}

// Unregister removes the handler for prefix. It returns false if the
// prefix was not registered.
func (r *Router[H]) Unregister(prefix enc.Name) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	node := r.root.findLongestPrefix(prefix)
	if node.depth != len(prefix) || !node.has {
		return false
	}
	var zero H
	node.handler = zero
	node.has = false
	r.count--

	// Prune empty branches
	for node.parent != nil && !node.has && len(node.children) == 0 {
		parent := node.parent
		for i, child := range parent.children {
			if child == node {
				parent.children = append(parent.children[:i], parent.children[i+1:]...)
				break
			}
		}
		node = parent
	}
	return true
}

// Match returns the entry of the longest registered prefix of name.
func (r *Router[H]) Match(name enc.Name) (RouteEntry[H], error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for node := r.root.findLongestPrefix(name); node != nil; node = node.parent {
		if node.has {
			return RouteEntry[H]{Prefix: node.name, Handler: node.handler}, nil
		}
	}
	return RouteEntry[H]{}, fmt.Errorf("%w: %s", ndn.ErrNoRoute, name)
}

// Routes lists all registered entries in canonical name order.
func (r *Router[H]) Routes() []RouteEntry[H] {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ret := make([]RouteEntry[H], 0, r.count)
	var walk func(n *routerNode[H])
	walk = func(n *routerNode[H]) {
		if n.has {
			ret = append(ret, RouteEntry[H]{Prefix: n.name, Handler: n.handler})
		}
		children := make([]*routerNode[H], len(n.children))
		copy(children, n.children)
		slices.SortFunc(children, func(a, b *routerNode[H]) int {
			return a.component.Compare(b.component)
		})
		for _, c := range children {
			walk(c)
		}
	}
	walk(r.root)
	return ret
}

func (r *Router[H]) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.count
}
