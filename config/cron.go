package config

// CronSchedules maps built-in job names to their cron expressions. An empty
// expression disables the job.
func (c *Config) CronSchedules() map[string]string {
	return map[string]string{
		"sheets:export":       c.ExportSchedule,
		"stock:reconcile":     c.ReconcileSchedule,
		"notifications:purge": c.PurgeSchedule,
	}
}
