package migration

import "github.com/smallbiznis/shopfinder/pkg/db"

// Table groups let callers gate on only the storage a code path touches.
var (
	ShopTables       = []string{"shops", "locations", "shop_locations", "shop_categories"}
	BrandTables      = []string{"brands", "brand_actions"}
	SubmissionTables = []string{"shop_submissions"}
)

// Requirements are the tables and columns the enforcement pipeline touches.
func Requirements() []db.Requirement {
	return []db.Requirement{
		{Table: "shops", Columns: []string{"brand_key", "content_status", "hidden_source", "created_by_user_id", "created_at"}},
		{Table: "locations", Columns: []string{"id"}},
		{Table: "shop_locations", Columns: []string{"shop_id", "location_id"}},
		{Table: "shop_categories", Columns: []string{"shop_id", "category_id"}},
		{Table: "brands", Columns: []string{"brand_key", "status", "known_location_count", "last_chain_score", "last_signals"}},
		{Table: "brand_actions", Columns: []string{"brand_key", "action", "payload"}},
		{Table: "shop_submissions", Columns: []string{"status", "brand_key", "chain_score", "signals", "payload", "approved_shop_id"}},
	}
}

// Tables joins table groups for a SchemaGate.Ready call.
func Tables(groups ...[]string) []string {
	var out []string
	for _, group := range groups {
		out = append(out, group...)
	}
	return out
}
