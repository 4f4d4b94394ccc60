package postgres

import "github.com/covionstudio/billing/internal/types"

// sortColumn whitelists sortable columns; anything unrecognized falls
// back to created_at so filter input never reaches SQL verbatim.
func sortColumn(sort string) string {
	switch sort {
	case "created_at", "updated_at", "amount_due", "amount", "currency":
		return sort
	default:
		return "created_at"
	}
}

func sortOrder(order string) string {
	if order == types.OrderAsc {
		return "ASC"
	}
	return "DESC"
}
