// Package ring implements a growable FIFO ring buffer, used for wait and
// ready queues.
package ring

// Ring is a FIFO queue backed by a power-of-2 sized buffer (minimum 8), which doubles in
// size when full. The zero value is an empty ring, ready for use. It is not
// safe for concurrent use.
type Ring[E any] struct {
	s    []E
	r, w uint
}

func (x *Ring[E]) mask(val uint) uint {
	return val & (uint(len(x.s)) - 1)
}

// Len returns the number of elements in the ring.
func (x *Ring[E]) Len() int {
	return int(x.w - x.r)
}

// Get returns the element at index i, where 0 is the front.
func (x *Ring[E]) Get(i int) E {
	if i < 0 || i >= x.Len() {
		panic(`ring: get: index out of range`)
	}
	return x.s[x.mask(x.r+uint(i))]
}

// PushBack appends value to the back of the ring.
func (x *Ring[E]) PushBack(value E) {
	l := x.Len()
	if l == len(x.s) {
		x.grow()
	} else if l == 0 {
		x.r = 0
		x.w = 0
	}
	x.s[x.mask(x.w)] = value
	x.w++
}

// PopFront removes and returns the element at the front of the ring. The
// second return value is false if the ring was empty.
func (x *Ring[E]) PopFront() (value E, ok bool) {
	if x.r == x.w {
		return value, false
	}
	i := x.mask(x.r)
	value = x.s[i]
	var zero E
	x.s[i] = zero
	x.r++
	return value, true
}

func (x *Ring[E]) grow() {
	size := uint(len(x.s)) << 1
	if size == 0 {
		size = 8
	}
	s := make([]E, size)
	l := x.Len()
	for i := 0; i < l; i++ {
		s[i] = x.s[x.mask(x.r+uint(i))]
	}
	x.s = s
	x.r = 0
	x.w = uint(l)
}
