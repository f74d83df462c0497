package scan

// Plan is the work set for one run.
type Plan struct {
	Found   int      // files enumerated
	Skipped int      // already in the processing log
	Pending []string // left to evaluate, in enumeration order
}

// Membership answers whether a path has already been processed.
type Membership interface {
	Contains(path string) bool
}

// Resume returns all minus the paths already logged.
func Resume(all []string, logged Membership) Plan {
	p := Plan{Found: len(all)}
	p.Pending = make([]string, 0, len(all))
	for _, path := range all {
		if logged != nil && logged.Contains(path) {
			p.Skipped++
			continue
		}
		p.Pending = append(p.Pending, path)
	}
	return p
}
