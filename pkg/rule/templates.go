package rule

// Templates holds the type-level rules keyed by control type attribute
// ("tel", "email", "number"...). Valid rules decide validity; Blocked rules
// gate keystrokes before they are committed.
type Templates struct {
	Valid   map[string]Rule
	Blocked map[string]Rule
}

// DefaultTemplates returns a fresh copy of the built-in type-level rules.
func DefaultTemplates() Templates {
	return Templates{
		Valid: map[string]Rule{
			"tel":      MustPattern(`^[0-9\+\-\(\)]{8,16}$`),
			"email":    MustPattern(`^\w+([\.-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,3})+$`),
			"password": MustPattern(`^[a-zA-Z0-9]{6,}$`),
		},
		Blocked: map[string]Rule{
			"number": MustPattern(`^[0-9]+$`),
			"tel":    MustPattern(`^[0-9\+\-\(\)]+$`),
		},
	}
}

// ValidFor returns the type-level validity rule for a control type.
func (t Templates) ValidFor(controlType string) (Rule, bool) {
	r, ok := t.Valid[controlType]
	if !ok || r.IsZero() {
		return Rule{}, false
	}
	return r, true
}

// BlockedFor returns the type-level admission rule for a control type.
func (t Templates) BlockedFor(controlType string) (Rule, bool) {
	r, ok := t.Blocked[controlType]
	if !ok || r.IsZero() {
		return Rule{}, false
	}
	return r, true
}

// Merge overlays other on top of t. Zero rules in other remove the type.
func (t Templates) Merge(other Templates) Templates {
	out := Templates{
		Valid:   make(map[string]Rule, len(t.Valid)+len(other.Valid)),
		Blocked: make(map[string]Rule, len(t.Blocked)+len(other.Blocked)),
	}
	for k, v := range t.Valid {
		out.Valid[k] = v
	}
	for k, v := range t.Blocked {
		out.Blocked[k] = v
	}
	for k, v := range other.Valid {
		if v.IsZero() {
			delete(out.Valid, k)
			continue
		}
		out.Valid[k] = v
	}
	for k, v := range other.Blocked {
		if v.IsZero() {
			delete(out.Blocked, k)
			continue
		}
		out.Blocked[k] = v
	}
	return out
}
