package rigid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/AaronLay10/SentientSim/internal/physics"
)

// contact is one touching pair seen from the body being queried.
// normal points from other toward that body; negative distance is penetration.
type contact struct {
	other    *body
	link     int
	normal   mgl64.Vec3
	distance float64
	position mgl64.Vec3
}

func (c contact) point() physics.ContactPoint {
	return physics.ContactPoint{
		Other:    c.other.id,
		Link:     c.link,
		Position: c.position,
		Normal:   c.normal,
		Distance: c.distance,
	}
}

// edgeAxisBias keeps face normals preferred over edge-edge axes of equal depth,
// so resting boxes get axis-aligned normals.
const edgeAxisBias = 1e-6

// parallelEpsilon is the cross-product length below which two edges count as parallel.
const parallelEpsilon = 1e-9

// obb is an oriented box: its center, half extents and local axes in world space.
type obb struct {
	center mgl64.Vec3
	half   mgl64.Vec3
	axes   [3]mgl64.Vec3
}

func newOBB(center, half mgl64.Vec3, orn mgl64.Quat) obb {
	m := orn.Mat4().Mat3()
	return obb{
		center: center,
		half:   half,
		axes:   [3]mgl64.Vec3{m.Col(0), m.Col(1), m.Col(2)},
	}
}

// radius is the half-length of the box projected onto a unit axis.
func (o obb) radius(axis mgl64.Vec3) float64 {
	r := 0.0
	for i := 0; i < 3; i++ {
		r += o.half[i] * math.Abs(o.axes[i].Dot(axis))
	}
	return r
}

// extents is the half-size of the axis-aligned box enclosing o.
func (o obb) extents() mgl64.Vec3 {
	var ext mgl64.Vec3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			ext[i] += math.Abs(o.axes[j][i]) * o.half[j]
		}
	}
	return ext
}

// contacts returns every collider within the contact margin of b. Pairs where
// neither side is dynamic are never reported.
func (w *World) contacts(b *body) []contact {
	if b.kind == kindMulti {
		return nil
	}
	box := newOBB(b.pose.Position, b.half, b.pose.Orientation)

	var out []contact
	for _, o := range w.bodies {
		if o == b {
			continue
		}
		if b.kind != kindDynamic && o.kind != kindDynamic {
			continue
		}
		if o.kind == kindMulti {
			if c, ok := w.groundContact(box, o); ok {
				out = append(out, c)
			}
			for i, l := range o.links {
				lc, lorn := linkPose(o, l)
				if c, ok := w.boxContact(box, newOBB(lc, l.def.HalfExtents, lorn)); ok {
					c.other = o
					c.link = i
					out = append(out, c)
				}
			}
			continue
		}
		if c, ok := w.boxContact(box, newOBB(o.pose.Position, o.half, o.pose.Orientation)); ok {
			c.other = o
			c.link = -1
			out = append(out, c)
		}
	}
	return out
}

func (w *World) groundContact(box obb, ground *body) (contact, bool) {
	planeZ := ground.pose.Position[2]
	gap := box.center[2] - box.extents()[2] - planeZ
	if gap > w.opts.ContactMargin {
		return contact{}, false
	}
	return contact{
		other:    ground,
		link:     -1,
		normal:   mgl64.Vec3{0, 0, 1},
		distance: gap,
		position: mgl64.Vec3{box.center[0], box.center[1], planeZ},
	}, true
}

// boxContact runs a separating-axis test of box a against box b over the 15
// candidate axes: three face normals of each box and the nine edge-edge cross
// products. The normal is the axis of least penetration and points toward a.
func (w *World) boxContact(a, b obb) (contact, bool) {
	margin := w.opts.ContactMargin
	d := a.center.Sub(b.center)
	ea, eb := a.extents(), b.extents()
	for i := 0; i < 3; i++ {
		if math.Abs(d[i])-(ea[i]+eb[i]) > margin {
			return contact{}, false
		}
	}

	var normal mgl64.Vec3
	maxGap := math.Inf(-1)
	separated := false
	test := func(axis mgl64.Vec3, bias float64) {
		n := axis.Len()
		if n < parallelEpsilon {
			return
		}
		axis = axis.Mul(1 / n)
		gap := math.Abs(d.Dot(axis)) - a.radius(axis) - b.radius(axis)
		if gap > margin {
			separated = true
			return
		}
		if gap > maxGap+bias {
			maxGap = gap
			normal = axis
		}
	}
	for i := 0; i < 3 && !separated; i++ {
		test(a.axes[i], 0)
	}
	for i := 0; i < 3 && !separated; i++ {
		test(b.axes[i], 0)
	}
	for i := 0; i < 3 && !separated; i++ {
		for j := 0; j < 3 && !separated; j++ {
			test(a.axes[i].Cross(b.axes[j]), edgeAxisBias)
		}
	}
	if separated {
		return contact{}, false
	}
	if d.Dot(normal) < 0 {
		normal = normal.Mul(-1)
	}

	var pos mgl64.Vec3
	for i := 0; i < 3; i++ {
		lo := math.Max(a.center[i]-ea[i], b.center[i]-eb[i])
		hi := math.Min(a.center[i]+ea[i], b.center[i]+eb[i])
		pos[i] = (lo + hi) / 2
	}
	return contact{normal: normal, distance: maxGap, position: pos}, true
}

// resolve pushes b out of penetration and removes approaching normal velocity.
func (w *World) resolve(b *body, c contact) {
	o := c.other
	n := c.normal
	invA := b.invMass
	invO := 0.0
	var vo mgl64.Vec3
	if o.kind == kindDynamic {
		invO = o.invMass
		vo = o.lin
	}
	total := invA + invO
	if total == 0 {
		return
	}

	if pen := -c.distance; pen > 0 {
		b.pose.Position = b.pose.Position.Add(n.Mul(pen * invA / total))
		if invO > 0 {
			o.pose.Position = o.pose.Position.Sub(n.Mul(pen * invO / total))
		}
	}

	vrel := b.lin.Sub(vo)
	vn := vrel.Dot(n)
	if vn >= 0 {
		return
	}
	e := b.mat.Restitution * o.mat.Restitution
	if -vn < w.restitutionThreshold() {
		e = 0
	}
	j := -(1 + e) * vn / total
	b.lin = b.lin.Add(n.Mul(j * invA))
	if invO > 0 {
		o.lin = o.lin.Sub(n.Mul(j * invO))
	}

	vt := vrel.Sub(n.Mul(vn))
	speed := vt.Len()
	if speed < 1e-12 {
		return
	}
	mu := b.mat.Friction * o.mat.Friction
	jt := math.Min(speed/total, mu*j)
	if jt <= 0 {
		return
	}
	dir := vt.Mul(1 / speed)
	b.lin = b.lin.Sub(dir.Mul(jt * invA))
	if invO > 0 {
		o.lin = o.lin.Add(dir.Mul(jt * invO))
	}
}

// restitutionThreshold is the approach speed below which contacts do not bounce,
// so bodies resting under gravity stay at rest.
func (w *World) restitutionThreshold() float64 {
	return math.Max(2*w.opts.Gravity.Len()*w.opts.Timestep, 1e-6)
}
