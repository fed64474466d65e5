package rules

// NameRule renames a measurement or field name. Measurement and field
// renames use independent rule lists with identical semantics.
type NameRule struct {
	Matcher Matcher
}

// TagRule rewrites the value of the tag named Key. Tag keys themselves are
// never renamed, only values.
type TagRule struct {
	Key     string
	Matcher Matcher
}

// InjectRule adds a new tag to every transformed point. A static rule always
// adds NewKey=Value. A derived rule reads the source tag named SourceKey and
// applies Matcher to its value; when the source tag is absent the rule is
// silently skipped.
type InjectRule struct {
	NewKey string

	// Static injection
	Static bool
	Value  string

	// Derived injection
	SourceKey string
	Matcher   Matcher
}

// MapName scans rules in declaration order and returns the first rewrite
// that fires. When no rule fires the name is returned unmodified.
func MapName(name string, ruleList []NameRule) string {
	for _, r := range ruleList {
		if out, ok := r.Matcher.Apply(name); ok {
			return out
		}
	}
	return name
}

// MapTagValue scans rules in declaration order, considering only rules
// scoped to the given tag key, and returns the first rewrite that fires.
func MapTagValue(key, value string, ruleList []TagRule) string {
	for _, r := range ruleList {
		if r.Key != key {
			continue
		}
		if out, ok := r.Matcher.Apply(value); ok {
			return out
		}
	}
	return value
}

// InjectTags evaluates every injection rule against the record's existing
// tags and returns the set of additions. Rules targeting different new keys
// fire independently; repeated rules for the same new key are processed in
// order, so a later successful rule overwrites an earlier one.
func InjectTags(tags map[string]string, ruleList []InjectRule) map[string]string {
	additions := make(map[string]string)
	for _, r := range ruleList {
		if r.Static {
			additions[r.NewKey] = r.Value
			continue
		}
		src, ok := tags[r.SourceKey]
		if !ok {
			continue
		}
		if out, ok := r.Matcher.Apply(src); ok {
			additions[r.NewKey] = out
		}
	}
	return additions
}
