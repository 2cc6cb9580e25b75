package device

import "sort"

// Tags returns every distinct location tag in the registry, sorted.
func (r *Registry) Tags() []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, name := range r.order {
		for _, tag := range r.devices[name].Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}

// ByType returns the devices of the given type in declaration order.
func (r *Registry) ByType(t Type) []Device {
	var out []Device
	for _, name := range r.order {
		if d := r.devices[name]; d.Type == t {
			out = append(out, d.Clone())
		}
	}
	return out
}
