// Package layout runs the force-directed simulation that positions the
// visible graph.
//
// A [Simulation] keeps one [Body] per node id for its whole lifetime, so a
// node that is hidden and shown again returns to where it was. Each call to
// [Simulation.SetGraph] replaces the active node and link sets; new bodies
// spawn near their parent (or on a spiral around the center when there is
// none) and existing bodies keep their coordinates.
//
// # Forces
//
// Every tick applies, in order:
//
//   - link springs: distance 120 to depth-1 targets, 80 otherwise
//   - many-body repulsion between all pairs (strength -350)
//   - weak x/y pull toward the canvas center (strength 0.03)
//   - collision between node radii plus padding
//
// then integrates velocities with decay 0.4. Alpha cools from 1 by
// AlphaDecay per tick toward AlphaTarget; the run loop stops on its own once
// alpha falls below AlphaMin and [Simulation.Reheat] restarts it.
//
// # Running
//
// Hosts either drive the simulation by hand:
//
//	sim.RunUntilCool(1000)
//
// or start the background loop and receive positions through OnTick:
//
//	sim.OnTick(func(pos []layout.Position) { surface.Move(pos) })
//	sim.Start(ctx)
//	defer sim.Stop()
//
// There is at most one loop goroutine; Start and Reheat on a running
// simulation only reset alpha.
package layout
