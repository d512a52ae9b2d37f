package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/store"
)

var (
	jobsState string
	jobsLimit int
)

// jobsCmd groups background job tooling
var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and retry background jobs",
	Long: `Background jobs (notification fan-out) are persisted with their state,
attempt count and last error.

Example:
  fillahole jobs list --state failed
  fillahole jobs retry 6f1c2b9e-...`,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runJobsList,
}

var jobsRetryCmd = &cobra.Command{
	Use:   "retry <job-id>",
	Short: "Re-run a failed job and wait for it to finish",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsRetry,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsRetryCmd)

	jobsListCmd.Flags().StringVar(&jobsState, "state", "", "filter by state (pending, running, succeeded, failed)")
	jobsListCmd.Flags().IntVar(&jobsLimit, "limit", 50, "maximum jobs to list")
}

func runJobsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Database, newLogger(cfg.Log))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	jobs, err := st.ListJobs(context.Background(), model.JobState(strings.ToLower(jobsState)), jobsLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tKEY\tSTATE\tATTEMPTS\tUPDATED\tLAST ERROR")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			j.ID, j.Kind, j.Key, j.State, j.Attempts, j.UpdatedAt.UTC().Format(time.RFC3339), j.LastError)
	}
	return w.Flush()
}

func runJobsRetry(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg, newLogger(cfg.Log))
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := a.queue.Retry(ctx, args[0]); err != nil {
		_ = a.Close()
		return err
	}

	// Close drains the queue, so the job has finished once it returns
	a.queue.Close()
	job, err := a.store.GetJob(ctx, args[0])
	if closeErr := a.store.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "job %s: %s (attempts: %d)\n", job.ID, job.State, job.Attempts)
	if job.State == model.JobFailed {
		return fmt.Errorf("job failed again: %s", job.LastError)
	}
	return nil
}
