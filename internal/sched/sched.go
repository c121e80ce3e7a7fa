// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sched

import (
	"github.com/petenewcomb/appmodel-go/internal/faultlog"
	"github.com/petenewcomb/appmodel-go/internal/pending"
	"github.com/petenewcomb/appmodel-go/internal/stats"
	"github.com/petenewcomb/appmodel-go/internal/todindex"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// maxRedraws bounds the draws spent finding a unique time of death for one
// node before giving up.
const maxRedraws = 1000

// DefaultMaxReboots keeps fully redundant bundles with certain reboots from
// postponing an interrupt forever.
const DefaultMaxReboots = 100000

// Source supplies failure times and reboot probabilities.
type Source interface {
	// NextFailure returns anchor plus a freshly drawn wait.
	NextFailure(anchor float64) float64
	// Probability returns a uniform draw from [0, 1).
	Probability() float64
}

// Interrupter yields the instants at which the application is interrupted.
type Interrupter interface {
	// Advance accounts for the faults of the phase that just ended at
	// elapsed and returns the next interrupt. Results never decrease.
	Advance(elapsed float64) (float64, error)
	// CountDeadNodes accounts for nodes that failed during the final phase
	// and reports how many there were.
	CountDeadNodes(elapsed float64) (int, error)
}

type Params struct {
	Active    int
	Redundant int

	// SoftRebootRate is the percentage of soft reboots that succeed. A
	// negative rate disables soft reboots.
	SoftRebootRate float64
	// SoftRebootTime is how long a rebooting node stays in a coma.
	SoftRebootTime float64
	// Hotswap draws a rebooted node's next failure from the end of its coma
	// rather than from time zero.
	Hotswap bool
	// MaxReboots bounds the successful soft reboots within one Advance call.
	// Once exhausted, failing nodes are queued as if their reboot failed.
	// Zero selects DefaultMaxReboots.
	MaxReboots int
	// LegacyOrder re-arms pending nodes in ascending ID order instead of the
	// order in which they died.
	LegacyOrder bool
}

func (p Params) Validate() error {
	if p.Active < 1 {
		return errors.Wrapf(ErrConfig, "need at least one active node, got %d", p.Active)
	}
	if p.Redundant < 0 {
		return errors.Wrapf(ErrConfig, "redundant node count %d is negative", p.Redundant)
	}
	if p.Redundant > p.Active {
		return errors.Wrapf(ErrRedundancyDepth, "%d redundant nodes for %d active nodes", p.Redundant, p.Active)
	}
	if p.SoftRebootRate > 100 {
		return errors.Wrapf(ErrConfig, "soft reboot success rate %v%% exceeds 100%%", p.SoftRebootRate)
	}
	if p.SoftRebootTime < 0 {
		return errors.Wrapf(ErrConfig, "soft reboot time %v is negative", p.SoftRebootTime)
	}
	if p.MaxReboots < 0 {
		return errors.Wrapf(ErrConfig, "reboot budget %d is negative", p.MaxReboots)
	}
	return nil
}

type options struct {
	sink   faultlog.Sink
	logger *zap.Logger
}

type Option func(*options)

// WithSink directs interrupt and fault records to sink.
func WithSink(sink faultlog.Sink) Option {
	return func(o *options) {
		if sink != nil {
			o.sink = sink
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		sink:   faultlog.Discard,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Scheduler draws node failures and reports when a whole bundle, and with it
// the application, goes down.
type Scheduler struct {
	params  Params
	src     Source
	stats   *stats.Stats
	sink    faultlog.Sink
	logger  *zap.Logger
	nodes   []Node
	index   *todindex.Index
	pending pending.Queue

	started  bool
	previous float64
	reboots  int
}

var _ Interrupter = (*Scheduler)(nil)

func New(params Params, src Source, st *stats.Stats, opts ...Option) (*Scheduler, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.MaxReboots == 0 {
		params.MaxReboots = DefaultMaxReboots
	}
	o := buildOptions(opts)
	total := params.Active + params.Redundant
	s := &Scheduler{
		params: params,
		src:    src,
		stats:  st,
		sink:   o.sink,
		logger: o.logger,
		nodes:  make([]Node, total),
		index:  todindex.New(total),
	}
	for i := range s.nodes {
		s.nodes[i] = Node{ID: i, Partner: -1, Active: i, Rebirth: -1, PendingTOD: -1}
	}
	// Spares are handed out round robin. Validate has already ruled out a
	// second spare for any active node.
	for i := params.Active; i < total; i++ {
		active := &s.nodes[(i-params.Active)%params.Active]
		if active.Partner >= 0 {
			return nil, errors.Wrapf(ErrRedundancyDepth, "active node %d already has node %d as its spare", active.ID, active.Partner)
		}
		active.Partner = i
		s.nodes[i].Active = active.ID
		s.logger.Debug("assigned spare", zap.Int("active", active.ID), zap.Int("spare", i))
	}
	for i := range s.nodes {
		if err := s.arm(&s.nodes[i], 0); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Nodes exposes the node table for inspection. Callers must not modify it.
func (s *Scheduler) Nodes() []Node {
	return s.nodes
}

func (s *Scheduler) Advance(elapsed float64) (float64, error) {
	if s.started {
		if err := s.rejuvenate(elapsed); err != nil {
			return 0, err
		}
	}
	s.started = true
	s.reboots = 0

	var next float64
	for {
		tod, id, ok := s.index.PopMin()
		if !ok {
			return 0, errors.Wrap(ErrInvariant, "no live node left to fail")
		}
		n := &s.nodes[id]
		if n.TOD != tod || n.Dead {
			return 0, errors.Wrapf(ErrInvariant, "index entry %.3f is stale for %v", tod, n)
		}
		revive, err := s.softReboot(n)
		if err != nil {
			return 0, err
		}
		next = n.TOD
		bundleDead := s.bundleDeadAt(n.Active, next)
		if revive {
			if err := s.revive(n); err != nil {
				return 0, err
			}
		}
		if bundleDead {
			break
		}
	}

	if next < s.previous {
		return 0, errors.Wrapf(ErrInvariant, "next interrupt %.3f precedes previous %.3f", next, s.previous)
	}
	s.previous = next
	if ce := s.logger.Check(zap.DebugLevel, "next interrupt"); ce != nil {
		ce.Write(zap.Float64("at", next), zap.Float64("elapsed", elapsed), zap.Int("pending", s.pending.Len()))
	}
	return next, nil
}

func (s *Scheduler) CountDeadNodes(elapsed float64) (int, error) {
	count := 0
	for _, id := range s.drain() {
		n := &s.nodes[id]
		if n.TOD <= elapsed {
			s.stats.Faults++
			s.stats.NodeFailures++
			s.sink.Fault(n.TOD)
			count++
		}
	}
	return count, nil
}

// rejuvenate re-arms every node that died since the previous interrupt.
func (s *Scheduler) rejuvenate(elapsed float64) error {
	ids := s.drain()
	if len(ids) == 0 {
		return errors.Wrapf(ErrInvariant, "interrupt at %.3f carried no failed nodes", s.previous)
	}
	// Anchoring no earlier than the previous interrupt keeps results
	// ascending when bursts are coalesced before elapsed catches up.
	anchor := max(elapsed, s.previous)
	for _, id := range ids {
		n := &s.nodes[id]
		if !n.Dead {
			return errors.Wrapf(ErrInvariant, "pending %v is not dead", n)
		}
		s.stats.NodeFailures++
		s.stats.Faults++
		s.sink.Fault(n.TOD)

		s.index.Release(n.TOD)
		if err := s.arm(n, anchor); err != nil {
			return err
		}
		n.Dead = false
		n.Rebirth = -1
		n.PendingTOD = -1
		s.stats.Repaired++
	}
	s.sink.Interrupt(s.previous, len(ids))
	return nil
}

func (s *Scheduler) drain() []int {
	if s.params.LegacyOrder {
		return s.pending.DrainByID()
	}
	return s.pending.Drain()
}

// arm draws a unique time of death for n and inserts it into the index.
func (s *Scheduler) arm(n *Node, anchor float64) error {
	for range maxRedraws {
		tod := s.src.NextFailure(anchor)
		if s.index.Insert(tod, n.ID) {
			n.TOD = tod
			return nil
		}
	}
	return errors.Wrapf(ErrKeyCollision, "%d draws from %.3f for node %d", maxRedraws, anchor, n.ID)
}

// softReboot decides the fate of n as it fails. It reports whether n should
// be revived with its PendingTOD. Otherwise n is queued for rejuvenation at
// the next interrupt. Either way n is marked dead.
func (s *Scheduler) softReboot(n *Node) (bool, error) {
	n.Dead = true
	if s.params.SoftRebootRate < 0 || !s.hasLivePartner(n) {
		return false, s.enqueue(n)
	}
	if s.reboots >= s.params.MaxReboots {
		s.stats.Faults++
		s.stats.SoftRebootFailures++
		return false, s.enqueue(n)
	}

	s.stats.Faults++
	if s.src.Probability()*100 > s.params.SoftRebootRate {
		s.stats.SoftRebootFailures++
		return false, s.enqueue(n)
	}

	n.Rebirth = n.TOD + s.params.SoftRebootTime
	anchor := 0.0
	if s.params.Hotswap {
		anchor = n.Rebirth
	}
	candidate, err := s.drawUnique(anchor, n.ID)
	if err != nil {
		return false, err
	}
	if candidate <= n.Rebirth {
		// The replacement life would already be over when the coma ends.
		s.stats.SoftRebootFailures++
		n.Rebirth = -1
		return false, s.enqueue(n)
	}
	n.PendingTOD = candidate
	s.stats.SoftRebootSuccesses++
	s.reboots++
	if ce := s.logger.Check(zap.DebugLevel, "soft reboot"); ce != nil {
		ce.Write(zap.Int("node", n.ID), zap.Float64("tod", n.TOD), zap.Float64("rebirth", n.Rebirth), zap.Float64("next_tod", candidate))
	}
	return true, nil
}

func (s *Scheduler) drawUnique(anchor float64, id int) (float64, error) {
	for range maxRedraws {
		tod := s.src.NextFailure(anchor)
		if !s.index.Contains(tod) {
			return tod, nil
		}
	}
	return 0, errors.Wrapf(ErrKeyCollision, "%d reboot draws from %.3f for node %d", maxRedraws, anchor, id)
}

func (s *Scheduler) enqueue(n *Node) error {
	if err := s.pending.Push(n.ID); err != nil {
		return errors.Wrapf(ErrInvariant, "queueing %v: %v", n, err)
	}
	return nil
}

func (s *Scheduler) hasLivePartner(n *Node) bool {
	for id := n.Active; id >= 0; id = s.nodes[id].Partner {
		if id != n.ID && !s.nodes[id].Dead {
			return true
		}
	}
	return false
}

func (s *Scheduler) bundleDeadAt(active int, t float64) bool {
	for id := active; id >= 0; id = s.nodes[id].Partner {
		if s.nodes[id].aliveAt(t) {
			return false
		}
	}
	return true
}

func (s *Scheduler) revive(n *Node) error {
	s.index.Release(n.TOD)
	if !s.index.Insert(n.PendingTOD, n.ID) {
		return errors.Wrapf(ErrInvariant, "revived %v collides at %.3f", n, n.PendingTOD)
	}
	n.Dead = false
	n.TOD = n.PendingTOD
	n.Rebirth = -1
	n.PendingTOD = -1
	return nil
}
