package program

import (
	"slices"
	"strconv"
	"strings"
)

const free = -1

// State is an immutable snapshot of a running model program.
type State struct {
	pcs    []int
	vars   []int
	owners []int
	regs   []map[string]int
	key    string
}

func newState(pcs, vars, owners []int, regs []map[string]int) *State {
	s := &State{pcs: pcs, vars: vars, owners: owners, regs: regs}
	s.key = s.computeKey()
	return s
}

// Key implements core.State.
func (s *State) Key() string { return s.key }

// PC returns the index of the next step of process p.
func (s *State) PC(p int) int { return s.pcs[p] }

// Reg returns register reg of process p.
func (s *State) Reg(p int, reg string) (int, bool) {
	v, ok := s.regs[p][reg]
	return v, ok
}

func (s *State) clone() *State {
	regs := make([]map[string]int, len(s.regs))
	copy(regs, s.regs)
	return &State{
		pcs:    slices.Clone(s.pcs),
		vars:   slices.Clone(s.vars),
		owners: slices.Clone(s.owners),
		regs:   regs,
	}
}

func (s *State) computeKey() string {
	var b strings.Builder
	writeInts(&b, s.pcs)
	b.WriteByte('|')
	writeInts(&b, s.vars)
	b.WriteByte('|')
	writeInts(&b, s.owners)
	for p, regs := range s.regs {
		names := make([]string, 0, len(regs))
		for name := range regs {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			b.WriteString("|" + strconv.Itoa(p) + "." + name + "=" + strconv.Itoa(regs[name]))
		}
	}
	return b.String()
}

func writeInts(b *strings.Builder, xs []int) {
	for i, x := range xs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(x))
	}
}
