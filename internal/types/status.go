package types

// Status tracks the lifecycle of a persisted resource and determines
// whether it should be included in queries. Any change here requires a
// schema migration.
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)
