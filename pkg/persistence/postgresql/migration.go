package postgresql

// migrations returns the schema migrations in version order. Pipelines and
// run results are stored as JSONB documents with the columns the API
// queries by lifted out.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS pipelines (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS run_results (
				id TEXT PRIMARY KEY,
				job_id TEXT NOT NULL,
				status TEXT NOT NULL,
				document JSONB NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_run_results_job_id ON run_results (job_id);
			CREATE INDEX IF NOT EXISTS idx_run_results_started_at ON run_results (started_at DESC);
		`,
	}
}
