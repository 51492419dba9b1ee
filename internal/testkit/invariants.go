// Package testkit holds checks shared by tests of the analysis packages.
package testkit

import (
	"errors"
	"fmt"
	"slices"

	"fortio.org/safecast"

	"mirlean/internal/mir"
	"mirlean/internal/region"
)

// CheckComponentInvariants runs the structural invariants of an analysed component:
// 1) NonlocalDefs and NonlocalUses never mention a dropped local
// 2) every nested loop is sorted, lies inside Blocks and is disjoint from its siblings
// 3) exits exist in the body and lie outside a loop component
// 4) State is written in the component and Params are only read there
func CheckComponentInvariants(body *mir.Body, c *region.Component) error {
	if body == nil || c == nil {
		return fmt.Errorf("nil body or component")
	}
	n, err := safecast.Conv[int32](len(body.Blocks))
	if err != nil {
		return fmt.Errorf("block count overflow: %w", err)
	}
	nblocks := mir.BlockID(n)
	var errs []error

	// 1) drops are local
	for _, l := range c.NonlocalDefs {
		if c.Drops.Has(l) {
			errs = append(errs, fmt.Errorf("nonlocal def L%d is dropped", l))
		}
	}
	for _, l := range c.NonlocalUses {
		if c.Drops.Has(l) {
			errs = append(errs, fmt.Errorf("nonlocal use L%d is dropped", l))
		}
		if l == mir.ReturnLocal {
			errs = append(errs, errors.New("return slot listed as nonlocal use"))
		}
	}

	// 2) loop partition
	seen := make(map[mir.BlockID]int)
	for i, loop := range c.Loops {
		if len(loop) == 0 {
			errs = append(errs, fmt.Errorf("loop %d is empty", i))
			continue
		}
		if !slices.IsSorted(loop) {
			errs = append(errs, fmt.Errorf("loop %d is not sorted", i))
		}
		for _, b := range loop {
			if !c.Contains(b) {
				errs = append(errs, fmt.Errorf("loop %d block bb%d is outside the component", i, b))
			}
			if j, dup := seen[b]; dup {
				errs = append(errs, fmt.Errorf("bb%d belongs to loops %d and %d", b, j, i))
			}
			seen[b] = i
		}
	}

	// 3) exits
	for _, e := range c.Exits {
		if e < 0 || e >= nblocks {
			errs = append(errs, fmt.Errorf("exit bb%d does not exist", e))
			continue
		}
		if c.IsLoop() && c.Contains(e) {
			errs = append(errs, fmt.Errorf("exit bb%d lies inside the loop", e))
		}
	}

	// 4) loop state
	defs := mir.NewLocalSet(c.NonlocalDefs...)
	for _, l := range c.State {
		if !defs.Has(l) {
			errs = append(errs, fmt.Errorf("state L%d is not written in the loop", l))
		}
	}
	for _, l := range c.Params {
		if c.Defs.Has(l) {
			errs = append(errs, fmt.Errorf("param L%d is written in the loop", l))
		}
		if slices.Contains(c.State, l) {
			errs = append(errs, fmt.Errorf("L%d is both state and param", l))
		}
	}
	return errors.Join(errs...)
}

// WalkComponents visits the function component and every nested loop
// component depth-first. A loop is entered at its first block reached
// from the enclosing header.
func WalkComponents(body *mir.Body, a *region.Analyzer, visit func(*region.Component) error) error {
	fn, err := a.Function()
	if err != nil {
		return err
	}
	return walk(body, a, fn, visit)
}

func walk(body *mir.Body, a *region.Analyzer, c *region.Component, visit func(*region.Component) error) error {
	if err := visit(c); err != nil {
		return err
	}
	for _, loop := range c.Loops {
		header, ok := firstReached(body, c, loop)
		if !ok {
			return fmt.Errorf("loop at bb%d is unreachable from bb%d", loop[0], c.Header)
		}
		sub, err := a.Loop(c, header, loop)
		if err != nil {
			return err
		}
		if err := walk(body, a, sub, visit); err != nil {
			return err
		}
	}
	return nil
}

func firstReached(body *mir.Body, c *region.Component, loop []mir.BlockID) (mir.BlockID, bool) {
	visited := map[mir.BlockID]bool{c.Header: true}
	queue := []mir.BlockID{c.Header}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		if _, in := slices.BinarySearch(loop, b); in {
			return b, true
		}
		for _, succ := range body.Block(b).Term.Successors() {
			if visited[succ] || !c.Contains(succ) {
				continue
			}
			visited[succ] = true
			queue = append(queue, succ)
		}
	}
	return mir.NoBlockID, false
}
