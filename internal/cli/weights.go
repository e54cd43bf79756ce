package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/emergent-mind/internal/weights"
)

func init() {
	wCmd := &cobra.Command{
		Use:   "weights",
		Short: "Inspect and steer the mood, curiosity and style weights",
	}

	showCmd := &cobra.Command{
		Use:   "show [mood|curiosity|style]",
		Short: "Print weights, heaviest first",
		Args:  cobra.MaximumNArgs(1),
		Run:   runWeightsShow,
	}

	drawCmd := &cobra.Command{
		Use:   "draw <mood|curiosity|style>",
		Short: "Draw a label in proportion to its weight",
		Long:  "Draw a label. With --update the draw decays every weight and boosts the chosen label, as a cycle does.",
		Args:  cobra.ExactArgs(1),
		Run:   runWeightsDraw,
	}
	drawCmd.Flags().Bool("update", false, "Apply decay and boost after drawing")

	boostCmd := &cobra.Command{
		Use:   "boost <mood|curiosity|style> <label>",
		Short: "Decay every weight and boost one label",
		Args:  cobra.ExactArgs(2),
		Run:   runWeightsBoost,
	}

	addCmd := &cobra.Command{
		Use:   "add <mood|curiosity|style> <label>",
		Short: "Add a new label",
		Args:  cobra.ExactArgs(2),
		Run:   runWeightsAdd,
	}
	addCmd.Flags().Float64("weight", 1, "Initial weight")

	wCmd.AddCommand(showCmd, drawCmd, boostCmd, addCmd)
	RootCmd.AddCommand(wCmd)
}

func openWeights(name string) (*env, *weights.Store) {
	e := mustEnv()
	ws, err := e.weights()
	if err != nil {
		e.Close()
		exitErr("open weights", err)
	}
	s, ok := ws[name]
	if !ok {
		e.Close()
		exitErr("weights", fmt.Errorf("unknown weights %q (valid: %s)", name, strings.Join(weightNames, ", ")))
	}
	return e, s
}

func printWeights(w weights.Weights) {
	if formatFlag != "text" {
		printJSON(w)
		return
	}
	labels := w.Labels()
	sort.SliceStable(labels, func(i, j int) bool { return w[labels[i]] > w[labels[j]] })
	for _, l := range labels {
		fmt.Printf("%-24s %.4f\n", l, w[l])
	}
}

func runWeightsShow(cmd *cobra.Command, args []string) {
	if len(args) == 1 {
		e, s := openWeights(args[0])
		defer e.Close()
		printWeights(s.Snapshot())
		return
	}

	e := mustEnv()
	defer e.Close()
	ws, err := e.weights()
	if err != nil {
		e.Close()
		exitErr("open weights", err)
	}
	if formatFlag == "text" {
		for _, name := range weightNames {
			fmt.Printf("# %s\n", name)
			printWeights(ws[name].Snapshot())
			fmt.Println()
		}
		return
	}
	all := make(map[string]weights.Weights, len(ws))
	for name, s := range ws {
		all[name] = s.Snapshot()
	}
	printJSON(all)
}

func runWeightsDraw(cmd *cobra.Command, args []string) {
	update, _ := cmd.Flags().GetBool("update")

	e, s := openWeights(args[0])
	defer e.Close()

	var (
		label string
		err   error
	)
	if update {
		label, _, err = s.Process("")
	} else {
		label, err = s.Draw()
	}
	if err != nil {
		e.Close()
		exitErr("draw", err)
	}
	fmt.Println(label)
}

func runWeightsBoost(cmd *cobra.Command, args []string) {
	e, s := openWeights(args[0])
	defer e.Close()

	_, w, err := s.Process(args[1])
	if err != nil {
		e.Close()
		exitErr("boost", err)
	}
	printWeights(w)
}

func runWeightsAdd(cmd *cobra.Command, args []string) {
	weight, _ := cmd.Flags().GetFloat64("weight")

	e, s := openWeights(args[0])
	defer e.Close()

	added, err := s.AddLabel(args[1], weight)
	if err != nil {
		e.Close()
		exitErr("add label", err)
	}
	printJSON(map[string]any{"ok": true, "added": added, "label": args[1]})
}
