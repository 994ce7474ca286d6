package selection

import "slices"

// Toggle flips id in sel under mode and returns the new selection.
//
// A selected id is removed. An unselected id replaces the whole selection in
// chat mode; in the multi-model modes it is appended, evicting the oldest
// entry first when the selection is already at the limit.
func Toggle(sel []string, mode Mode, id string) []string {
	if slices.Contains(sel, id) {
		return remove(sel, id)
	}

	limit := mode.Limit()
	if limit <= 1 {
		return []string{id}
	}

	next := slices.Clone(sel)
	if len(next) >= limit {
		next = next[len(next)-limit+1:]
	}

	return append(next, id)
}

// SwitchMode returns the selection to keep when moving into mode to.
// Entering chat with more than one model keeps only the oldest one; every
// other switch leaves the selection as it is.
func SwitchMode(sel []string, to Mode) []string {
	if to.Limit() == 1 && len(sel) > 1 {
		return []string{sel[0]}
	}
	return slices.Clone(sel)
}

// Normalize drops duplicate and empty ids and truncates sel to the limit of
// mode, keeping the oldest entries. It is used for selections that come from
// outside the state machine, such as a persisted file.
func Normalize(sel []string, mode Mode) []string {
	out := make([]string, 0, len(sel))
	for _, id := range sel {
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}

	if limit := mode.Limit(); len(out) > limit {
		out = out[:limit]
	}

	return out
}

// ToggleFavorite flips id in favs. Favorites have no cardinality limit.
func ToggleFavorite(favs []string, id string) []string {
	if slices.Contains(favs, id) {
		return remove(favs, id)
	}
	return append(slices.Clone(favs), id)
}

func remove(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
