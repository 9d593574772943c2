package entity

import "github.com/go-gl/mathgl/mgl64"

// Kinematic constants, applied after AI each tick.
const (
	gravityAccel   = 0.08
	verticalDrag   = 0.98
	horizontalDrag = 0.91
	// movedEpsilon is the squared speed under which no movement event is
	// emitted.
	movedEpsilon = 1e-8
)

// stepKinematics integrates one tick of motion: gravity and drag on the
// velocity, position integration and floor collision.
func (s *Store) stepKinematics(m *Mob) {
	t := &m.Transform

	t.Vel[1] -= gravityAccel
	t.Vel[1] *= verticalDrag

	t.Pos = t.Pos.Add(t.Vel)

	t.Vel[0] *= horizontalDrag
	t.Vel[2] *= horizontalDrag

	floor := s.floor(t.Pos[0], t.Pos[2])
	if t.Pos[1] <= floor {
		t.Pos[1] = floor
		t.Vel[1] = 0
		t.OnGround = true
	} else {
		t.OnGround = false
	}

	if t.Vel.Dot(t.Vel) > movedEpsilon {
		s.emit(MobMoved{
			ID:       m.ID,
			Pos:      t.Pos,
			Vel:      t.Vel,
			Yaw:      t.Yaw,
			HeadYaw:  t.HeadYaw,
			OnGround: t.OnGround,
		})
	}
}

// ApplyKnockback adds an impulse to a mob, used when a player lands a
// melee hit.
func (s *Store) ApplyKnockback(id Handle, impulse mgl64.Vec3) {
	if m, ok := s.mobs[id]; ok {
		m.Transform.Vel = m.Transform.Vel.Add(impulse)
		m.Transform.OnGround = false
	}
}
