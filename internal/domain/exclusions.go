package domain

// ExclusionSet is the do-not-interact list for one cycle.
type ExclusionSet struct {
	Users map[string]struct{}
	Tags  map[string]struct{}
}

// NewExclusionSet builds a set from user handles and tags. Duplicates collapse.
func NewExclusionSet(users, tags []string) ExclusionSet {
	es := ExclusionSet{
		Users: make(map[string]struct{}, len(users)),
		Tags:  make(map[string]struct{}, len(tags)),
	}
	for _, u := range users {
		es.Users[u] = struct{}{}
	}
	for _, t := range tags {
		es.Tags[t] = struct{}{}
	}
	return es
}

// ExcludesAuthor reports whether posts by blogName must be ignored.
func (es ExclusionSet) ExcludesAuthor(blogName string) bool {
	_, ok := es.Users[blogName]
	return ok
}

// BlockedTags returns the tags of a post that appear on the exclusion list,
// in the order the post lists them.
func (es ExclusionSet) BlockedTags(tags []string) []string {
	if len(es.Tags) == 0 {
		return nil
	}
	var hit []string
	seen := make(map[string]struct{})
	for _, t := range tags {
		if _, ok := es.Tags[t]; !ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		hit = append(hit, t)
	}
	return hit
}
