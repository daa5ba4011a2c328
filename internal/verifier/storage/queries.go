package storage

const (
	getTaskQuery = `SELECT power_required, status, created_checkpoint, expires_at
		FROM attestx.task_metadata WHERE registry = ? AND task_id = ?`

	saveTaskQuery = `INSERT INTO attestx.task_metadata
		(registry, task_id, power_required, status, created_checkpoint, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	listOpenTasksQuery = `SELECT registry, task_id, power_required, status, created_checkpoint, expires_at
		FROM attestx.task_metadata WHERE status = 'open' ALLOW FILTERING`

	getVoteQuery = `SELECT power, result, price
		FROM attestx.operator_votes WHERE registry = ? AND task_id = ? AND operator = ?`

	saveVoteQuery = `INSERT INTO attestx.operator_votes
		(registry, task_id, operator, power, result, price)
		VALUES (?, ?, ?, ?, ?, ?) IF NOT EXISTS`

	listVotesQuery = `SELECT operator, power, result, price
		FROM attestx.operator_votes WHERE registry = ? AND task_id = ?`

	flagOperatorQuery = `INSERT INTO attestx.slashed_operators (operator, flagged) VALUES (?, true)`

	listFlaggedQuery = `SELECT operator FROM attestx.slashed_operators`
)
