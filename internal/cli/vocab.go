package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/emergent-mind/internal/model"
	"github.com/rcliao/emergent-mind/internal/vocab"
)

func init() {
	vCmd := &cobra.Command{
		Use:   "vocab",
		Short: "Ban-lists and coined terms",
	}

	banCmd := &cobra.Command{
		Use:   "banlist",
		Short: "Print the words overused in recent posts",
		Run:   runVocabBanlist,
	}
	banCmd.Flags().IntP("limit", "l", vocab.DefaultBanlistK, "Number of words")
	banCmd.Flags().Int("window", 20, "Number of recent posts to scan")

	addCmd := &cobra.Command{
		Use:   "add-term <term> <definition>",
		Short: "Coin a term",
		Args:  cobra.MinimumNArgs(2),
		Run:   runVocabAddTerm,
	}

	termsCmd := &cobra.Command{
		Use:   "terms",
		Short: "List coined terms",
		Run:   runVocabTerms,
	}

	vCmd.AddCommand(banCmd, addCmd, termsCmd)
	RootCmd.AddCommand(vCmd)
}

func openVocab() (*env, *vocab.Store) {
	e := mustEnv()
	v, err := e.vocabulary()
	if err != nil {
		e.Close()
		exitErr("open vocabulary", err)
	}
	return e, v
}

func runVocabBanlist(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	window, _ := cmd.Flags().GetInt("window")

	e, mem := openMemory(cmd)
	defer e.Close()
	v, err := e.vocabulary()
	if err != nil {
		e.Close()
		exitErr("open vocabulary", err)
	}
	printTexts(v.BuildBanlist(mem.Recent(model.KindTweet, window), limit))
}

func runVocabAddTerm(cmd *cobra.Command, args []string) {
	e, v := openVocab()
	defer e.Close()

	if err := v.AddInventedTerm(args[0], strings.Join(args[1:], " ")); err != nil {
		e.Close()
		exitErr("add term", err)
	}
	printJSON(map[string]any{"ok": true, "term": args[0]})
}

func runVocabTerms(cmd *cobra.Command, args []string) {
	e, v := openVocab()
	defer e.Close()
	printJSON(v.Terms())
}
