package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/emergent-mind/internal/agent"
)

func init() {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a day of scheduled cycles",
		Long:  "Spread SCHEDULE_POSTS cycles over SCHEDULE_HOURS and run them. With TESTING set, cycles run back to back.",
		Run:   runRun,
	}
	runCmd.Flags().Int("posts", 0, "Override the number of scheduled cycles")
	runCmd.Flags().Float64("hours", 0, "Override the scheduling window in hours")
	runCmd.Flags().Bool("now", false, "Run cycles back to back without sleeping")

	cycleCmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run one perceive, reflect and post cycle",
		Run:   runCycle,
	}

	perceiveCmd := &cobra.Command{
		Use:   "perceive",
		Short: "Journal the next item of the perception feed",
		Run:   runPerceive,
	}

	reflectCmd := &cobra.Command{
		Use:   "reflect",
		Short: "Rewrite the identity from recent memories",
		Run:   runReflect,
	}
	reflectCmd.Flags().Bool("force", false, "Reflect even if no reflection is due")

	tweetCmd := &cobra.Command{
		Use:   "tweet",
		Short: "Compose, store and publish one post",
		Run:   runTweet,
	}

	RootCmd.AddCommand(runCmd, cycleCmd, perceiveCmd, reflectCmd, tweetCmd)
}

// agentContext cancels on SIGINT or SIGTERM.
func agentContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func openAgent(ctx context.Context, e *env) *agent.Agent {
	a, err := e.agent(ctx)
	if err != nil {
		e.Close()
		exitErr("open agent", err)
	}
	return a
}

func runRun(cmd *cobra.Command, args []string) {
	posts, _ := cmd.Flags().GetInt("posts")
	hours, _ := cmd.Flags().GetFloat64("hours")
	now, _ := cmd.Flags().GetBool("now")

	ctx, cancel := agentContext(cmd)
	defer cancel()

	e := mustEnv()
	defer e.Close()
	a := openAgent(ctx, e)
	if posts > 0 {
		a.Settings.SchedulePosts = posts
	}
	if hours > 0 {
		a.Settings.ScheduleHours = hours
	}
	if now {
		a.Settings.Testing = true
	}

	reports, err := a.Run(ctx)
	if errors.Is(err, context.Canceled) {
		e.log.Info().Int("cycles", len(reports)).Msg("interrupted")
		err = nil
	}
	if err != nil {
		e.Close()
		exitErr("run", err)
	}
	printJSON(reports)
}

func runCycle(cmd *cobra.Command, args []string) {
	ctx, cancel := agentContext(cmd)
	defer cancel()

	e := mustEnv()
	defer e.Close()
	a := openAgent(ctx, e)

	rep, err := a.Cycle(ctx)
	if err != nil {
		e.Close()
		exitErr("cycle", err)
	}
	printJSON(rep)
}

func runPerceive(cmd *cobra.Command, args []string) {
	e := mustEnv()
	defer e.Close()
	a := openAgent(cmd.Context(), e)

	note, err := a.Perceive(cmd.Context())
	if errors.Is(err, agent.ErrNoInput) {
		printJSON(map[string]any{"ok": false, "reason": err.Error()})
		return
	}
	if err != nil {
		e.Close()
		exitErr("perceive", err)
	}
	printTexts([]string{note})
}

func runReflect(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")

	e := mustEnv()
	defer e.Close()
	a := openAgent(cmd.Context(), e)

	summary, ok, err := a.Reflect(cmd.Context(), force)
	if err != nil {
		e.Close()
		exitErr("reflect", err)
	}
	printJSON(map[string]any{"reflected": ok, "summary": summary})
}

func runTweet(cmd *cobra.Command, args []string) {
	e := mustEnv()
	defer e.Close()
	a := openAgent(cmd.Context(), e)

	res, err := a.Tweet(cmd.Context(), "manual")
	if err != nil {
		e.Close()
		exitErr("tweet", err)
	}
	if formatFlag == "text" {
		fmt.Println(res.Post)
		return
	}
	printJSON(res)
}
