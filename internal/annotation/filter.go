package annotation

import "strings"

// FilterHeldBack drops every row whose image is in heldBack. Held-back images
// are reserved outside the generated dataset and must not reach any split.
func FilterHeldBack(rows []Row, heldBack []int64) []Row {
	if len(heldBack) == 0 {
		return rows
	}
	skip := make(map[int64]struct{}, len(heldBack))
	for _, id := range heldBack {
		skip[id] = struct{}{}
	}

	out := make([]Row, 0, len(rows))
	for i := range rows {
		if _, held := skip[rows[i].ImageID]; held {
			continue
		}
		out = append(out, rows[i])
	}
	return out
}

// FilterSpecialCategory keeps rows of the special class only where their center
// lies inside a container-class box of the same image.
//
// A row is a container when its class code equals a container code or carries
// one as prefix, so suffix variants such as SOLTU1 count as SOLTU.
//
// The result holds all other rows in input order followed by the surviving
// special rows in input order. Rows are copied unchanged. Special rows or
// containers without a complete box never match.
func FilterSpecialCategory(rows []Row, special string, containers []string) []Row {

	var (
		others   = make([]Row, 0, len(rows))
		specials []Row
		boxes    = make(map[int64][]Box)
	)
	for i := range rows {
		r := rows[i]
		if r.ClassCode == special {
			specials = append(specials, r)
			continue
		}
		others = append(others, r)
		if !isContainerCode(r.ClassCode, containers) {
			continue
		}
		if b, ok := r.Box(); ok {
			boxes[r.ImageID] = append(boxes[r.ImageID], b)
		}
	}

	for i := range specials {
		if enclosedByAny(&specials[i], boxes[specials[i].ImageID]) {
			others = append(others, specials[i])
		}
	}
	return others
}

func enclosedByAny(r *Row, containers []Box) bool {
	inner, ok := r.Box()
	if !ok {
		return false
	}
	for _, outer := range containers {
		if IsCenterEnclosed(inner, outer) {
			return true
		}
	}
	return false
}

func isContainerCode(code string, containers []string) bool {
	for _, c := range containers {
		if c != "" && strings.HasPrefix(code, c) {
			return true
		}
	}
	return false
}
