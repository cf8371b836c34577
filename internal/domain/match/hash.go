package match

// matchHash matches a whole run that is exactly one gap-free rule.
func (e *Engine) matchHash(st *runState) *LicenseMatch {
	rid, ok := e.idx.HashMatch(st.q.RunTokens(st.run))
	if !ok {
		return nil
	}
	r := e.idx.Rule(rid)
	qpos := make([]int, r.Length)
	ipos := make([]int, r.Length)
	for i := range qpos {
		qpos[i] = st.run.Start + i
		ipos[i] = i
	}
	return newMatch(r, qpos, ipos, KindHash, e.idx.Vocabulary())
}
