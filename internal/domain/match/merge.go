package match

import (
	"sort"
)

// merge turns the raw matches of all stages and runs into the final,
// non-overlapping list ordered by query position.
func (e *Engine) merge(raw []*LicenseMatch) []*LicenseMatch {
	ms := e.mergeSameRule(raw)

	kept := ms[:0]
	for _, m := range ms {
		if keep(m) {
			kept = append(kept, m)
		}
	}
	ms = resolveOverlaps(kept)

	final := ms[:0]
	for _, m := range ms {
		if !m.Rule.IsFalsePositive {
			final = append(final, m)
		}
	}
	sortByQuery(final)
	return final
}

// keep reports whether a match passes its rule's minimum coverage and is
// not too small to trust.
func keep(m *LicenseMatch) bool {
	return m.Coverage() >= float64(m.Rule.MinimumCoverage) && !m.IsSmall()
}

// mergeSameRule joins matches of one rule that follow each other in both
// query and rule order, no farther apart than MaxMergeDistance.
func (e *Engine) mergeSameRule(raw []*LicenseMatch) []*LicenseMatch {
	var order []string
	groups := make(map[string][]*LicenseMatch)
	for _, m := range raw {
		id := m.Rule.Identifier
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], m)
	}

	maxDist := e.opts.MaxMergeDistance
	var out []*LicenseMatch
	for _, id := range order {
		group := groups[id]
		sortByQuery(group)
		cur := group[0]
		for _, next := range group[1:] {
			if next.QSpan.IsAfter(cur.QSpan) && next.ISpan.IsAfter(cur.ISpan) &&
				cur.QSpan.Distance(next.QSpan) <= maxDist &&
				cur.ISpan.Distance(next.ISpan) <= maxDist {
				cur = cur.combine(next)
				continue
			}
			out = append(out, cur)
			cur = next
		}
		out = append(out, cur)
	}
	return out
}

// resolveOverlaps repeatedly settles the first pair of intersecting
// matches: the better one stays whole, the other loses the shared query
// positions and is dropped if what remains no longer qualifies.
func resolveOverlaps(ms []*LicenseMatch) []*LicenseMatch {
	ms = append([]*LicenseMatch(nil), ms...)
	for {
		sortByQuery(ms)
		i, j := firstOverlap(ms)
		if i < 0 {
			return ms
		}
		winner, loser, li := ms[i], ms[j], j
		if better(ms[j], ms[i]) {
			winner, loser, li = ms[j], ms[i], i
		}
		clipped := loser.clip(winner.QSpan)
		if clipped == nil || !keep(clipped) {
			ms = append(ms[:li], ms[li+1:]...)
			continue
		}
		ms[li] = clipped
	}
}

func firstOverlap(ms []*LicenseMatch) (int, int) {
	for i := range ms {
		for j := i + 1; j < len(ms); j++ {
			if ms[j].QSpan.Start() > ms[i].QSpan.End() {
				break
			}
			if ms[i].QSpan.Intersects(ms[j].QSpan) {
				return i, j
			}
		}
	}
	return -1, -1
}

// better reports whether a wins an overlap against b: higher score, then
// matcher priority, then larger query span.
func better(a, b *LicenseMatch) bool {
	if sa, sb := a.Score(), b.Score(); sa != sb {
		return sa > sb
	}
	if pa, pb := a.Matcher.priority(), b.Matcher.priority(); pa != pb {
		return pa > pb
	}
	if la, lb := a.QSpan.Len(), b.QSpan.Len(); la != lb {
		return la > lb
	}
	return a.Rule.Identifier < b.Rule.Identifier
}

// sortByQuery orders by start, then larger span first, then rule.
func sortByQuery(ms []*LicenseMatch) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if as, bs := a.QSpan.Start(), b.QSpan.Start(); as != bs {
			return as < bs
		}
		if al, bl := a.QSpan.Len(), b.QSpan.Len(); al != bl {
			return al > bl
		}
		return a.Rule.Identifier < b.Rule.Identifier
	})
}
