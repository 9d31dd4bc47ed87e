package morph

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Derivative is a word attributed to a root through a pattern.
type Derivative struct {
	Word      string `json:"word"`
	Pattern   string `json:"pattern"`
	Frequency int    `json:"frequency"`
}

// RootEntry is one root in the Index with its usage statistics.
type RootEntry struct {
	Root        string
	Occurrences int
	derivatives []Derivative
}

// AddDerivative records (word, pattern). A repeated pair increments its
// frequency; a new pair is appended. Returns the pair's frequency.
func (e *RootEntry) AddDerivative(word, pattern string) int {
	for i := range e.derivatives {
		d := &e.derivatives[i]
		if d.Word == word && d.Pattern == pattern {
			d.Frequency++
			return d.Frequency
		}
	}
	e.derivatives = append(e.derivatives, Derivative{Word: word, Pattern: pattern, Frequency: 1})
	return 1
}

// RemoveDerivative deletes every derivative with the given word, restricted
// to pattern unless pattern is empty. Reports whether anything was removed.
func (e *RootEntry) RemoveDerivative(word, pattern string) bool {
	kept := e.derivatives[:0]
	removed := false
	for _, d := range e.derivatives {
		if d.Word == word && (pattern == "" || d.Pattern == pattern) {
			removed = true
			continue
		}
		kept = append(kept, d)
	}
	e.derivatives = kept
	return removed
}

// ClearDerivatives removes every derivative.
func (e *RootEntry) ClearDerivatives() {
	e.derivatives = nil
}

// Derivatives returns a copy of the derivatives in first-insertion order.
func (e *RootEntry) Derivatives() []Derivative {
	out := make([]Derivative, len(e.derivatives))
	copy(out, e.derivatives)
	return out
}

// DerivativeCount returns the number of distinct (word, pattern) pairs.
func (e *RootEntry) DerivativeCount() int {
	return len(e.derivatives)
}

func (e *RootEntry) clone() RootEntry {
	return RootEntry{Root: e.Root, Occurrences: e.Occurrences, derivatives: e.Derivatives()}
}

// NewRootEntry builds a detached entry, typically to pass to Index.Restore.
func NewRootEntry(root string, occurrences int, derivatives []Derivative) RootEntry {
	e := RootEntry{Root: root, Occurrences: occurrences}
	e.derivatives = append(e.derivatives, derivatives...)
	return e
}

type node struct {
	entry  *RootEntry
	left   *node
	right  *node
	height int
}

// Index is an AVL tree of roots ordered by code point. Keys are normalized
// with NormalizeRoot before every insert and lookup.
type Index struct {
	mu     sync.RWMutex
	root   *node
	size   int
	logger *slog.Logger
}

// NewIndex creates an empty index. A nil logger discards output.
func NewIndex(logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Index{logger: logger}
}

// Insert normalizes and adds a root. An existing root has its occurrence
// count incremented instead. Returns the stored key.
func (ix *Index) Insert(root string) (string, error) {
	key, ok := NormalizeRoot(root)
	if !ok {
		ix.logger.Debug("root rejected", "root", root, "normalized", key)
		return "", fmt.Errorf("%w: %q", ErrInvalidRoot, root)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.root = ix.insert(ix.root, key, nil)
	return key, nil
}

// Restore inserts a persisted entry. A new root takes the entry's counts and
// derivatives; an existing root has the occurrences added and the
// derivative frequencies merged.
func (ix *Index) Restore(entry RootEntry) error {
	key, ok := NormalizeRoot(entry.Root)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidRoot, entry.Root)
	}
	if entry.Occurrences < 1 {
		entry.Occurrences = 1
	}
	entry.Root = key

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.root = ix.insert(ix.root, key, &entry)
	return nil
}

// insert is the recursive AVL insert (caller must hold lock). restore, when
// set, seeds or merges into the entry instead of counting one occurrence.
func (ix *Index) insert(n *node, key string, restore *RootEntry) *node {
	if n == nil {
		ix.size++
		if restore != nil {
			e := restore.clone()
			return &node{entry: &e, height: 1}
		}
		return &node{entry: &RootEntry{Root: key, Occurrences: 1}, height: 1}
	}

	switch cmp := strings.Compare(key, n.entry.Root); {
	case cmp < 0:
		n.left = ix.insert(n.left, key, restore)
	case cmp > 0:
		n.right = ix.insert(n.right, key, restore)
	default:
		if restore == nil {
			n.entry.Occurrences++
			return n
		}
		n.entry.Occurrences += restore.Occurrences
		for _, d := range restore.derivatives {
			n.entry.AddDerivative(d.Word, d.Pattern)
			if d.Frequency > 1 {
				n.entry.addFrequency(d.Word, d.Pattern, d.Frequency-1)
			}
		}
		return n
	}

	return rebalance(n)
}

func (e *RootEntry) addFrequency(word, pattern string, delta int) {
	for i := range e.derivatives {
		if e.derivatives[i].Word == word && e.derivatives[i].Pattern == pattern {
			e.derivatives[i].Frequency += delta
			return
		}
	}
}

func height(n *node) int {
	if n == nil {
		return 0
	}
	return n.height
}

func balanceFactor(n *node) int {
	if n == nil {
		return 0
	}
	return height(n.left) - height(n.right)
}

func (n *node) update() {
	n.height = 1 + max(height(n.left), height(n.right))
}

// rebalance restores the AVL property at n after an insert below it.
func rebalance(n *node) *node {
	n.update()
	switch bf := balanceFactor(n); {
	case bf > 1:
		if balanceFactor(n.left) < 0 { // left-right
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n) // left-left
	case bf < -1:
		if balanceFactor(n.right) > 0 { // right-left
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n) // right-right
	}
	return n
}

//	    y              x
//	   / \            / \
//	  x   T3   =>   T1   y
//	 / \                / \
//	T1  T2             T2  T3
func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	y.update()
	x.update()
	return x
}

//	  x                  y
//	 / \                / \
//	T1  y      =>      x   T3
//	   / \            / \
//	  T2  T3         T1  T2
func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	x.update()
	y.update()
	return y
}

// find locates a normalized key (caller must hold lock).
func (ix *Index) find(key string) *RootEntry {
	n := ix.root
	for n != nil {
		switch cmp := strings.Compare(key, n.entry.Root); {
		case cmp == 0:
			return n.entry
		case cmp < 0:
			n = n.left
		default:
			n = n.right
		}
	}
	return nil
}

// Search returns a copy of the entry for root.
func (ix *Index) Search(root string) (RootEntry, bool) {
	key, ok := NormalizeRoot(root)
	if !ok {
		return RootEntry{}, false
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if e := ix.find(key); e != nil {
		return e.clone(), true
	}
	return RootEntry{}, false
}

// Contains reports whether root is stored.
func (ix *Index) Contains(root string) bool {
	_, ok := ix.Search(root)
	return ok
}

// AddDerivative records a derivative on an existing root and returns its
// new frequency. ok is false if the root is not stored.
func (ix *Index) AddDerivative(root, word, pattern string) (frequency int, ok bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	e := ix.lookup(root)
	if e == nil {
		return 0, false
	}
	return e.AddDerivative(word, pattern), true
}

// RemoveDerivative removes derivatives of root with the given word, and
// pattern unless it is empty.
func (ix *Index) RemoveDerivative(root, word, pattern string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	e := ix.lookup(root)
	if e == nil {
		return false
	}
	return e.RemoveDerivative(word, pattern)
}

// ClearDerivatives removes every derivative of root. Reports whether the
// root exists.
func (ix *Index) ClearDerivatives(root string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	e := ix.lookup(root)
	if e == nil {
		return false
	}
	e.ClearDerivatives()
	return true
}

func (ix *Index) lookup(root string) *RootEntry {
	key, ok := NormalizeRoot(root)
	if !ok {
		return nil
	}
	return ix.find(key)
}

// InOrder returns every stored root in ascending order.
func (ix *Index) InOrder() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]string, 0, ix.size)
	walk(ix.root, func(e *RootEntry) { out = append(out, e.Root) })
	return out
}

// Entries returns copies of every entry in ascending root order.
func (ix *Index) Entries() []RootEntry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]RootEntry, 0, ix.size)
	walk(ix.root, func(e *RootEntry) { out = append(out, e.clone()) })
	return out
}

func walk(n *node, fn func(*RootEntry)) {
	if n == nil {
		return
	}
	walk(n.left, fn)
	fn(n.entry)
	walk(n.right, fn)
}

// Height returns the tree height; 0 when empty.
func (ix *Index) Height() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return height(ix.root)
}

// Count returns the number of distinct roots.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.size
}

// TreeNode is a read-only snapshot of one Index node.
type TreeNode struct {
	Root            string    `json:"root"`
	Height          int       `json:"height"`
	Balance         int       `json:"balance"`
	Occurrences     int       `json:"occurrences"`
	DerivativeCount int       `json:"derivative_count"`
	Left            *TreeNode `json:"left,omitempty"`
	Right           *TreeNode `json:"right,omitempty"`
}

// Structure returns a snapshot of the tree shape, nil when empty.
func (ix *Index) Structure() *TreeNode {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return snapshot(ix.root)
}

func snapshot(n *node) *TreeNode {
	if n == nil {
		return nil
	}
	return &TreeNode{
		Root:            n.entry.Root,
		Height:          n.height,
		Balance:         balanceFactor(n),
		Occurrences:     n.entry.Occurrences,
		DerivativeCount: n.entry.DerivativeCount(),
		Left:            snapshot(n.left),
		Right:           snapshot(n.right),
	}
}

// RenderASCII draws the tree sideways: right subtree above, left below.
func (ix *Index) RenderASCII() string {
	t := ix.Structure()
	if t == nil {
		return "(empty)"
	}
	var lines []string
	renderNode(t, "", true, &lines)
	return strings.Join(lines, "\n")
}

func renderNode(t *TreeNode, prefix string, isLeft bool, lines *[]string) {
	if t == nil {
		return
	}
	upper, lower := "    ", "│   "
	if isLeft {
		upper, lower = "│   ", "    "
	}
	renderNode(t.Right, prefix+upper, false, lines)

	branch := "┌── "
	if isLeft {
		branch = "└── "
	}
	line := fmt.Sprintf("%s%s%s (h=%d, bal=%d)", prefix, branch, t.Root, t.Height, t.Balance)
	if t.DerivativeCount > 0 {
		line += fmt.Sprintf(" [derivatives: %d]", t.DerivativeCount)
	}
	*lines = append(*lines, line)

	renderNode(t.Left, prefix+lower, true, lines)
}
