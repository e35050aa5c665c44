package entity

// Merge combines freshly enriched data into an existing record and returns
// the result as a new record; neither input is modified. Scalar fields are
// overwritten only when the update carries a non-empty value, so enrichment
// runs that come back partial never erase known data. Subsidiaries and
// relationships are unioned, preserving the order of first appearance;
// relationship identity is the (target, type) pair.
func Merge(base, update *Record) *Record {
	merged := base.Clone()

	if update.Name != "" {
		merged.Name = update.Name
	}
	if update.Type != "" {
		merged.Type = update.Type
	}
	if update.Parent != "" {
		merged.Parent = update.Parent
	}
	if update.Revenue != "" {
		merged.Revenue = update.Revenue
	}

	seenSubs := make(map[string]bool, len(merged.Subsidiaries))
	for _, s := range merged.Subsidiaries {
		seenSubs[s] = true
	}
	for _, s := range update.Subsidiaries {
		if s == "" || seenSubs[s] {
			continue
		}
		seenSubs[s] = true
		merged.Subsidiaries = append(merged.Subsidiaries, s)
	}

	type relKey struct {
		target string
		typ    string
	}
	seenRels := make(map[relKey]bool, len(merged.Relationships))
	for _, rel := range merged.Relationships {
		seenRels[relKey{rel.Target, rel.Type}] = true
	}
	for _, rel := range update.Relationships {
		if rel.Target == "" {
			continue
		}
		k := relKey{rel.Target, rel.Type}
		if seenRels[k] {
			continue
		}
		seenRels[k] = true
		merged.Relationships = append(merged.Relationships, rel)
	}

	return merged
}
