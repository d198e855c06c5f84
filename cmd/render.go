package cmd

import (
	"errors"
	"fmt"
	"time"

	"newsreel/internal/app"
	"newsreel/internal/app/model"
	"newsreel/internal/jobs"
	"newsreel/pkg/config"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var renderPoll time.Duration

var (
	stateStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Width(22)
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

var renderCmd = &cobra.Command{
	Use:   "render <job.yaml>",
	Short: "Render a video from a job file",
	Long: `Render a single video from a YAML or JSON job file containing the script,
sentiment, price and collectible snapshots, and topics.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().DurationVar(&renderPoll, "poll", 500*time.Millisecond, "Status poll interval")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req, err := model.LoadRequest(args[0])
	if err != nil {
		return err
	}

	cfg, err := config.LoadFile(ctx, configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	service, err := app.BuildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	id, err := app.NewPipeline(service).Start(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println(infoStyle.Render("Job " + id))

	st, err := waitForJob(service.Jobs(), id, renderPoll)
	if err != nil {
		return err
	}

	if st.State == jobs.StateError {
		fmt.Println(errorStyle.Render("✗ " + st.Message))
		return errors.New(st.Message)
	}

	fmt.Println(successStyle.Render("✓ " + st.Message))
	fmt.Println(st.VideoPath)
	return nil
}

func waitForJob(store *jobs.Store, id string, poll time.Duration) (jobs.Status, error) {
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var last jobs.Status
	for {
		st, err := store.Get(id)
		if err != nil {
			return jobs.Status{}, err
		}
		if st.State != last.State || st.Progress != last.Progress {
			printStatus(st)
			last = st
		}
		if st.State.Terminal() {
			return st, nil
		}
		<-ticker.C
	}
}

func printStatus(st jobs.Status) {
	fmt.Printf("%s %3d%%  %s\n", stateStyle.Render(string(st.State)), st.Progress, st.Message)
}
