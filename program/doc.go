// Package program provides a reference Session for the explorer: small model
// programs made of processes that share integer variables and mutexes.
//
// A program is described by a Spec, usually loaded from YAML:
//
//	name: lost-update
//	variables: {x: 0}
//	mutexes: [m]
//	processes:
//	  - name: p1
//	    steps:
//	      - {op: lock, mutex: m}
//	      - {op: add, var: x, value: 1}
//	      - {op: unlock, mutex: m}
//
// Every step becomes a transition named "<process>#<index>". Two transitions
// are dependent when they belong to the same process, touch the same variable
// with at least one write, or use the same mutex.
package program
