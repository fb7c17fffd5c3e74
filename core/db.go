package core

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// FilterOrderings keeps only the orderings whose field is in `allowed` (json name -> column name),
// translated to their column names.
func FilterOrderings(ords []DBOrdering, allowed map[string]string) []DBOrdering {
	out := make([]DBOrdering, 0, len(ords))
	for _, ord := range ords {
		if col, ok := allowed[ord.Field]; ok {
			out = append(out, DBOrdering{Field: col, Ascending: ord.Ascending})
		}
	}
	return out
}
