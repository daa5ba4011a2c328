package database

import (
	"github.com/gocql/gocql"
)

// InitSchema creates the keyspace and tables the verifier persists into.
// All statements are idempotent.
func InitSchema(session *gocql.Session) error {
	if err := session.Query(`
		CREATE KEYSPACE IF NOT EXISTS attestx
		WITH replication = {
			'class': 'SimpleStrategy',
			'replication_factor': 1
		}`).Exec(); err != nil {
		return err
	}

	// One row per task; the snapshot is frozen at creation except for the
	// open -> completed transition.
	if err := session.Query(`
		CREATE TABLE IF NOT EXISTS attestx.task_metadata (
			registry text,
			task_id bigint,
			power_required text,
			status text,
			created_checkpoint bigint,
			expires_at bigint,
			PRIMARY KEY ((registry, task_id))
		)`).Exec(); err != nil {
		return err
	}

	// One row per (task, operator); inserts use IF NOT EXISTS so the
	// at-most-one-vote invariant holds at the storage layer.
	if err := session.Query(`
		CREATE TABLE IF NOT EXISTS attestx.operator_votes (
			registry text,
			task_id bigint,
			operator text,
			power text,
			result text,
			price text,
			PRIMARY KEY ((registry, task_id), operator)
		)`).Exec(); err != nil {
		return err
	}

	if err := session.Query(`
		CREATE TABLE IF NOT EXISTS attestx.slashed_operators (
			operator text PRIMARY KEY,
			flagged boolean
		)`).Exec(); err != nil {
		return err
	}

	return nil
}
