// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sched

import "fmt"

// Node is a failure-time generator standing in for one machine.
type Node struct {
	ID int
	// Partner is the next node in the bundle, or -1.
	Partner int
	// Active is the bundle's primary node; a primary is its own Active.
	Active int
	Dead   bool
	// TOD is the scheduled time of death.
	TOD float64
	// Rebirth is when an in-progress soft reboot completes, or -1.
	Rebirth float64
	// PendingTOD is the time of death drawn for a rebooting node but not yet
	// committed, or -1.
	PendingTOD float64
}

func (n *Node) String() string {
	return fmt.Sprintf("node %d (bundle %d, tod %.3f, dead %v)", n.ID, n.Active, n.TOD, n.Dead)
}

// aliveAt reports whether the node can keep its bundle running at t.
func (n *Node) aliveAt(t float64) bool {
	return n.TOD > t || (n.PendingTOD > t && n.Rebirth < t)
}
