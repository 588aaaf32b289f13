package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"warehouse.GO/cron"
)

var jobName string

var cronStartCmd = &cobra.Command{
	Use:   "cron:start",
	Short: "Start the cron scheduler or run a single job by name",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, done, err := bootstrap()
		if err != nil {
			return err
		}
		defer done()
		if jobName != "" {
			name := strings.ToLower(jobName)
			fmt.Fprintf(cmd.OutOrStdout(), "Running cron job: %s\n", name)
			return cron.RunJob(cmd.Context(), a, name, args...)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Starting cron scheduler...")
		c, err := cron.StartCron(a)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cron scheduler started. Press Ctrl+C to exit.")
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		<-c.Stop().Done()
		return nil
	},
}

func init() {
	cronStartCmd.Flags().StringVarP(&jobName, "job", "j", "", "Run a single cron job by name and exit")
	rootCmd.AddCommand(cronStartCmd)
}
