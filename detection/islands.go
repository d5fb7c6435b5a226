package detection

import (
	"math"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/constraint"
	"github.com/akmonengine/impulse/signal"
	"github.com/go-logr/logr"
)

const (
	DefaultWakeThreshold   = 1.0
	DefaultSleepThreshold  = 0.01
	DefaultBlendRatio      = 0.05
	DefaultHysteresisSteps = 30
)

// IslandActivationManager puts islands of bodies to sleep once all of them
// have been quiet for a while, and wakes the sleeping bodies touched by an
// active one.
//
// Islands are the connected components of the graph whose edges are the
// constraints of the step. Static bodies do not link islands.
type IslandActivationManager struct {
	// WakeThreshold is the energy given to a body that wakes up
	WakeThreshold float64
	// SleepThreshold is the energy under which a body is quiet
	SleepThreshold float64
	// BlendRatio is the weight of the current step in the energy average
	BlendRatio float64
	// HysteresisSteps is the number of quiet steps before sleeping
	HysteresisSteps int

	bodies []*actor.RigidBody
	index  map[*actor.RigidBody]int
	parent []int
	rank   []int

	// Scratch
	members [][]int

	events *signal.Emitter
	id     signal.SubscriberID
	log    logr.Logger
}

func NewIslandActivationManager(events *signal.Emitter, wakeThreshold, sleepThreshold float64, log logr.Logger) *IslandActivationManager {
	m := &IslandActivationManager{
		WakeThreshold:   wakeThreshold,
		SleepThreshold:  sleepThreshold,
		BlendRatio:      DefaultBlendRatio,
		HysteresisSteps: DefaultHysteresisSteps,
		index:           make(map[*actor.RigidBody]int),
		events:          events,
		id:              events.NewSubscriber(),
		log:             log.WithName("islands"),
	}

	events.OnConstraintAdded(m.id, m.wakeJointBodies)

	return m
}

func (m *IslandActivationManager) Close() {
	m.events.UnsubscribeAll(m.id)
}

func (m *IslandActivationManager) Priority() float64 { return 75 }

func (m *IslandActivationManager) Add(body actor.Body) {
	rb, ok := body.(*actor.RigidBody)
	if !ok || !rb.CanMove() {
		return
	}
	if _, exists := m.index[rb]; exists {
		return
	}
	if rb.IsActive() {
		rb.SetEnergy(m.WakeThreshold)
		rb.SetLowEnergySteps(0)
	}
	m.index[rb] = len(m.bodies)
	m.bodies = append(m.bodies, rb)
}

func (m *IslandActivationManager) Remove(body actor.Body) {
	rb, ok := body.(*actor.RigidBody)
	if !ok {
		return
	}
	i, exists := m.index[rb]
	if !exists {
		return
	}

	copy(m.bodies[i:], m.bodies[i+1:])
	m.bodies[len(m.bodies)-1] = nil
	m.bodies = m.bodies[:len(m.bodies)-1]
	delete(m.index, rb)
	for j := i; j < len(m.bodies); j++ {
		m.index[m.bodies[j]] = j
	}
}

func (m *IslandActivationManager) wakeJointBodies(joint constraint.Joint) {
	a, b := joint.Bodies()
	a.WakeUp()
	if b != nil {
		b.WakeUp()
	}
}

// Update blends the kinetic energy of the last step into the moving average
// of every active body.
func (m *IslandActivationManager) Update() {
	ceiling := 4 * m.WakeThreshold

	for _, body := range m.bodies {
		if !body.IsActive() {
			continue
		}

		energy := math.Min(body.PreviousKineticEnergy(), ceiling)
		average := (1-m.BlendRatio)*body.Energy() + m.BlendRatio*energy
		body.SetEnergy(average)

		if average < m.SleepThreshold {
			body.SetLowEnergySteps(body.LowEnergySteps() + 1)
		} else {
			body.SetLowEnergySteps(0)
		}
	}
}

// Interferences wakes the bodies that asked for it and the sleeping members
// of islands with an active body, then puts the quiet islands to sleep.
// Constraints of woken bodies are appended to out.
func (m *IslandActivationManager) Interferences(out *[]constraint.Constraint) {
	for _, body := range m.bodies {
		if body.TakeWakeRequest() && !body.IsActive() {
			m.wake(body, out)
		}
	}

	m.resetIslands()

	// Waking a body emits its constraints, which may reach more sleeping
	// bodies: loop until the islands are stable
	processed := 0
	for {
		for _, c := range (*out)[processed:] {
			a, b := c.Bodies()
			m.union(a, b)
		}
		processed = len(*out)

		woken := false
		for _, island := range m.islands() {
			if !m.hasActive(island) {
				continue
			}
			for _, i := range island {
				if body := m.bodies[i]; !body.IsActive() {
					m.wake(body, out)
					woken = true
				}
			}
		}
		if !woken {
			break
		}
	}

	for _, island := range m.islands() {
		if m.isQuiet(island) {
			m.sleep(island)
		}
	}
}

func (m *IslandActivationManager) wake(body *actor.RigidBody, out *[]constraint.Constraint) {
	body.Activate(m.WakeThreshold)
	m.log.V(1).Info("body woken up", "body", body.Handle())
	m.events.EmitBodyActivated(body, out)
}

func (m *IslandActivationManager) sleep(island []int) {
	for _, i := range island {
		body := m.bodies[i]
		body.Deactivate()
		m.log.V(1).Info("body put to sleep", "body", body.Handle())
		m.events.EmitBodyDeactivated(body)
	}
}

func (m *IslandActivationManager) hasActive(island []int) bool {
	for _, i := range island {
		if m.bodies[i].IsActive() {
			return true
		}
	}
	return false
}

// isQuiet reports whether every member is awake, may sleep and has been
// under the sleep threshold long enough.
func (m *IslandActivationManager) isQuiet(island []int) bool {
	for _, i := range island {
		body := m.bodies[i]
		if body.Activation() != actor.Active {
			return false
		}
		if body.LowEnergySteps() < m.HysteresisSteps {
			return false
		}
	}
	return true
}

// ============================================================================
// Union-find
// ============================================================================

func (m *IslandActivationManager) resetIslands() {
	n := len(m.bodies)
	m.parent = m.parent[:0]
	m.rank = m.rank[:0]
	for i := 0; i < n; i++ {
		m.parent = append(m.parent, i)
		m.rank = append(m.rank, 0)
	}
}

func (m *IslandActivationManager) find(i int) int {
	for m.parent[i] != i {
		m.parent[i] = m.parent[m.parent[i]]
		i = m.parent[i]
	}
	return i
}

// union links two dynamic bodies; static or unknown bodies are ignored
func (m *IslandActivationManager) union(a, b *actor.RigidBody) {
	if a == nil || b == nil {
		return
	}
	i, okA := m.index[a]
	j, okB := m.index[b]
	if !okA || !okB {
		return
	}

	ri, rj := m.find(i), m.find(j)
	if ri == rj {
		return
	}
	switch {
	case m.rank[ri] < m.rank[rj]:
		m.parent[ri] = rj
	case m.rank[ri] > m.rank[rj]:
		m.parent[rj] = ri
	default:
		m.parent[rj] = ri
		m.rank[ri]++
	}
}

// islands groups the bodies by root, in body order. The returned slices are
// reused by the next call.
func (m *IslandActivationManager) islands() [][]int {
	for i := range m.members {
		m.members[i] = m.members[i][:0]
	}
	for len(m.members) < len(m.bodies) {
		m.members = append(m.members, nil)
	}

	for i := range m.bodies {
		root := m.find(i)
		m.members[root] = append(m.members[root], i)
	}

	islands := m.members[:0:0]
	for i := range m.bodies {
		if len(m.members[i]) > 0 {
			islands = append(islands, m.members[i])
		}
	}
	return islands
}
