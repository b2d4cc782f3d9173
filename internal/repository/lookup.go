package repository

// clause returns the deleted_at predicate for a lookup
func (l Lookup) clause(column string) string {
	switch l {
	case OnlyTrashed:
		return column + " IS NOT NULL"
	case WithTrashed:
		return "TRUE"
	default:
		return column + " IS NULL"
	}
}
