package layout

import "math"

// link is a resolved spring between two active bodies.
type link struct {
	source, target *Body
	distance       float64
	bias           float64
}

// step advances the simulation by one tick. Callers hold s.mu.
func (s *Simulation) step() {
	s.alpha += (s.alphaTarget - s.alpha) * s.cfg.AlphaDecay

	s.applyLinks()
	s.applyCharge()
	s.applyCenter()
	for range s.cfg.CollideIterations {
		s.applyCollide()
	}

	decay := 1 - s.cfg.VelocityDecay
	for _, b := range s.active {
		if b.FX != nil {
			b.X, b.VX = *b.FX, 0
		} else {
			b.VX *= decay
			b.X += b.VX
		}
		if b.FY != nil {
			b.Y, b.VY = *b.FY, 0
		} else {
			b.VY *= decay
			b.Y += b.VY
		}
	}
}

func (s *Simulation) applyLinks() {
	for _, l := range s.links {
		x := l.target.X + l.target.VX - l.source.X - l.source.VX
		y := l.target.Y + l.target.VY - l.source.Y - l.source.VY
		if x == 0 {
			x = s.jiggle()
		}
		if y == 0 {
			y = s.jiggle()
		}
		d := math.Sqrt(x*x + y*y)
		k := (d - l.distance) / d * s.alpha * s.cfg.LinkStrength
		x, y = x*k, y*k
		l.target.VX -= x * l.bias
		l.target.VY -= y * l.bias
		l.source.VX += x * (1 - l.bias)
		l.source.VY += y * (1 - l.bias)
	}
}

// applyCharge computes the exact all-pairs many-body force.
func (s *Simulation) applyCharge() {
	min2 := s.cfg.DistanceMin * s.cfg.DistanceMin
	strength := s.cfg.ChargeStrength * s.alpha
	for i, a := range s.active {
		for j, b := range s.active {
			if i == j {
				continue
			}
			x, y := b.X-a.X, b.Y-a.Y
			if x == 0 {
				x = s.jiggle()
			}
			if y == 0 {
				y = s.jiggle()
			}
			l := x*x + y*y
			if l < min2 {
				l = math.Sqrt(min2 * l)
			}
			w := strength / l
			a.VX += x * w
			a.VY += y * w
		}
	}
}

func (s *Simulation) applyCenter() {
	cx, cy := s.cfg.Width/2, s.cfg.Height/2
	k := s.cfg.CenterStrength * s.alpha
	for _, b := range s.active {
		b.VX += (cx - b.X) * k
		b.VY += (cy - b.Y) * k
	}
}

func (s *Simulation) applyCollide() {
	pad := s.cfg.CollidePadding
	for i, a := range s.active {
		ra := a.Radius + pad
		xi, yi := a.X+a.VX, a.Y+a.VY
		for _, b := range s.active[i+1:] {
			rb := b.Radius + pad
			r := ra + rb
			x := xi - b.X - b.VX
			y := yi - b.Y - b.VY
			l := x*x + y*y
			if l >= r*r {
				continue
			}
			if x == 0 {
				x = s.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l += y * y
			}
			l = math.Sqrt(l)
			k := (r - l) / l
			x, y = x*k, y*k
			share := rb * rb / (ra*ra + rb*rb)
			a.VX += x * share
			a.VY += y * share
			b.VX -= x * (1 - share)
			b.VY -= y * (1 - share)
		}
	}
}

func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}
