package prism

import (
	"slices"
)

// rootState is the trie root. Slot 0 is never a state, so a zero check
// entry marks a free slot.
const rootState = 1

// doubleArray is a frozen double-array trie over a dense byte alphabet.
//
//   - Transition: t := base[s] + code(c); valid if check[t] == s.
//   - value[s] >= 0 marks s as terminal and holds the key's rank.
//   - codes maps a byte to its dense id in [1..len(alphabet)]; 0 means the
//     byte does not occur in any key.
type doubleArray struct {
	base     []int32
	check    []int32
	value    []int32
	alphabet []byte
	codes    [256]uint16
}

func newAlphabet(keys []string) []byte {
	var seen [256]bool
	for _, k := range keys {
		for i := 0; i < len(k); i++ {
			seen[k[i]] = true
		}
	}
	var a []byte
	for c, ok := range seen {
		if ok {
			a = append(a, byte(c))
		}
	}
	return a
}

func (d *doubleArray) setAlphabet(a []byte) {
	d.alphabet = a
	d.codes = [256]uint16{}
	for i, c := range a {
		d.codes[c] = uint16(i + 1)
	}
}

// buildNode is the temporary pointer trie used during construction.
type buildNode struct {
	codes    []uint16
	children []*buildNode
	value    int32
}

func (n *buildNode) child(code uint16) *buildNode {
	i, ok := slices.BinarySearch(n.codes, code)
	if ok {
		return n.children[i]
	}
	c := &buildNode{value: -1}
	n.codes = slices.Insert(n.codes, i, code)
	n.children = slices.Insert(n.children, i, c)
	return c
}

// buildDoubleArray compiles sorted, unique keys. Key i gets value i.
func buildDoubleArray(keys []string) *doubleArray {
	d := &doubleArray{}
	d.setAlphabet(newAlphabet(keys))

	root := &buildNode{value: -1}
	for i, k := range keys {
		n := root
		for j := 0; j < len(k); j++ {
			n = n.child(d.codes[k[j]])
		}
		n.value = int32(i)
	}

	d.grow(rootState + 1)
	d.check[rootState] = -1
	d.value[rootState] = root.value

	type pending struct {
		state int32
		node  *buildNode
	}
	queue := []pending{{rootState, root}}
	nextFree := int32(rootState + 1)
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if len(p.node.codes) == 0 {
			continue
		}
		for nextFree < int32(len(d.check)) && d.check[nextFree] != 0 {
			nextFree++
		}
		b := d.findBase(p.node.codes, nextFree)
		d.base[p.state] = b
		for i, code := range p.node.codes {
			t := b + int32(code)
			d.check[t] = p.state
			d.value[t] = p.node.children[i].value
			queue = append(queue, pending{t, p.node.children[i]})
		}
	}
	return d
}

// findBase returns the smallest base such that every child slot is free.
// Slot search starts at the first free slot so the arrays stay dense.
func (d *doubleArray) findBase(codes []uint16, firstFree int32) int32 {
	for b := max(firstFree-int32(codes[0]), 1); ; b++ {
		fits := true
		for _, code := range codes {
			t := b + int32(code)
			if int(t) < len(d.check) && d.check[t] != 0 {
				fits = false
				break
			}
		}
		if fits {
			d.grow(int(b) + int(codes[len(codes)-1]) + 1)
			return b
		}
	}
}

func (d *doubleArray) grow(n int) {
	for len(d.check) < n {
		d.base = append(d.base, 0)
		d.check = append(d.check, 0)
		d.value = append(d.value, -1)
	}
}

func (d *doubleArray) transition(state int32, c byte) (int32, bool) {
	code := d.codes[c]
	if code == 0 {
		return 0, false
	}
	t := d.base[state] + int32(code)
	if t <= rootState || int(t) >= len(d.check) || d.check[t] != state {
		return 0, false
	}
	return t, true
}

func (d *doubleArray) walk(key string) (int32, bool) {
	if len(d.check) <= rootState {
		return 0, false
	}
	s := int32(rootState)
	for i := 0; i < len(key); i++ {
		var ok bool
		if s, ok = d.transition(s, key[i]); !ok {
			return 0, false
		}
	}
	return s, true
}

// keys enumerates all keys in ascending byte order.
func (d *doubleArray) keys() []string {
	if len(d.check) <= rootState {
		return nil
	}
	var out []string
	var buf []byte
	var visit func(s int32)
	visit = func(s int32) {
		if d.value[s] >= 0 {
			out = append(out, string(buf))
		}
		for _, c := range d.alphabet {
			if t, ok := d.transition(s, c); ok {
				buf = append(buf, c)
				visit(t)
				buf = buf[:len(buf)-1]
			}
		}
	}
	visit(rootState)
	return out
}
