package asset

// Requirements is the ordered requirement graph of one asset: what is
// concatenated before its own body and what follows it. Until require_self
// is seen every requirement lands in the before bucket.
type Requirements struct {
	asset     *Asset
	before    []*Asset
	after     []*Asset
	selfAdded bool

	flat []*Asset
}

func newRequirements(a *Asset) *Requirements {
	return &Requirements{asset: a}
}

// Add appends r to the current bucket. Adding the owning asset itself marks
// the require_self boundary.
func (r *Requirements) Add(req *Asset) {
	if req.AbsolutePath == r.asset.AbsolutePath {
		r.AddSelf()
		return
	}
	r.flat = nil
	if r.selfAdded {
		r.after = append(r.after, req)
	} else {
		r.before = append(r.before, req)
	}
}

// AddSelf switches subsequent requirements to the after bucket.
func (r *Requirements) AddSelf() {
	r.flat = nil
	r.selfAdded = true
}

// Before returns the assets concatenated ahead of the owner's body.
func (r *Requirements) Before() []*Asset { return append([]*Asset(nil), r.before...) }

// After returns the assets concatenated after the owner's body.
func (r *Requirements) After() []*Asset { return append([]*Asset(nil), r.after...) }

// All flattens the graph depth first: each before asset's own flattening,
// the owner, then each after asset's flattening. An absolute path appears
// once, at its first position.
func (r *Requirements) All() []*Asset {
	if r.flat != nil {
		return r.flat
	}
	seen := make(map[string]bool)
	var out []*Asset
	emit := func(a *Asset) {
		if !seen[a.AbsolutePath] {
			seen[a.AbsolutePath] = true
			out = append(out, a)
		}
	}
	for _, b := range r.before {
		for _, x := range b.Requirements.All() {
			emit(x)
		}
	}
	emit(r.asset)
	for _, b := range r.after {
		for _, x := range b.Requirements.All() {
			emit(x)
		}
	}
	r.flat = out
	return out
}
