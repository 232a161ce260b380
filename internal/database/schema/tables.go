package schema

// TableDefinitions contains the DDL for every table, applied in order on
// startup. Statements are idempotent so re-running them is safe.
var TableDefinitions = []string{
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id UUID PRIMARY KEY,
		target_url VARCHAR(255) NOT NULL,
		secret_key VARCHAR(255),
		event_types TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS webhook_logs (
		id UUID PRIMARY KEY,
		delivery_id UUID NOT NULL,
		subscription_id UUID NOT NULL,
		target_url VARCHAR(255),
		event_type VARCHAR(100),
		payload JSONB NOT NULL,
		attempt_number INTEGER NOT NULL DEFAULT 1,
		status_code INTEGER,
		status VARCHAR(50) NOT NULL,
		error_details TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_logs_delivery_id ON webhook_logs (delivery_id)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_logs_subscription_id ON webhook_logs (subscription_id)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_logs_created_at ON webhook_logs (created_at)`,
	`CREATE TABLE IF NOT EXISTS delivery_queue (
		id UUID PRIMARY KEY,
		delivery_id UUID NOT NULL,
		subscription_id UUID NOT NULL,
		payload JSONB NOT NULL,
		attempt_number INTEGER NOT NULL DEFAULT 1,
		event_type VARCHAR(100),
		scheduled_at TIMESTAMPTZ NOT NULL,
		locked_until TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_queue_scheduled_at ON delivery_queue (scheduled_at)`,
}
