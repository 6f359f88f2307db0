package postgresql

// migrations returns the schema migrations by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS automation_workflows (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				enabled BOOLEAN NOT NULL DEFAULT FALSE,
				trigger_entity_type TEXT NOT NULL,
				trigger_event_types TEXT[] NOT NULL,
				trigger_from_stage_id TEXT NOT NULL DEFAULT '',
				trigger_to_stage_id TEXT NOT NULL DEFAULT '',
				conditions JSONB,
				actions JSONB NOT NULL DEFAULT '[]',
				tenant_id TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_automation_workflows_trigger
				ON automation_workflows (trigger_entity_type, enabled);
		`,
		2: `
			CREATE TABLE IF NOT EXISTS automation_runs (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL,
				event_id TEXT NOT NULL DEFAULT '',
				tenant_id TEXT NOT NULL DEFAULT '',
				primary_entity_type TEXT NOT NULL,
				primary_entity_id TEXT NOT NULL,
				conditions_matched BOOLEAN NOT NULL DEFAULT FALSE,
				status TEXT NOT NULL,
				error_message TEXT NOT NULL DEFAULT '',
				triggered_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				finished_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_automation_runs_entity
				ON automation_runs (primary_entity_type, primary_entity_id);

			CREATE TABLE IF NOT EXISTS automation_step_runs (
				id UUID PRIMARY KEY,
				run_id UUID NOT NULL REFERENCES automation_runs (id),
				action_id TEXT NOT NULL DEFAULT '',
				action_type TEXT NOT NULL,
				step_order INTEGER NOT NULL,
				status TEXT NOT NULL,
				output JSONB,
				error_message TEXT NOT NULL DEFAULT '',
				executed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_automation_step_runs_run
				ON automation_step_runs (run_id, step_order);
		`,
		3: `
			CREATE TABLE IF NOT EXISTS crm_entities (
				entity_type TEXT NOT NULL,
				id TEXT NOT NULL,
				tenant_id TEXT NOT NULL DEFAULT '',
				data JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (entity_type, id)
			);
		`,
	}
}
