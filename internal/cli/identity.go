package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/emergent-mind/internal/identity"
)

func init() {
	idCmd := &cobra.Command{
		Use:   "identity",
		Short: "Read and rewrite the self-summary",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current identity",
		Run:   runIdentityShow,
	}

	setCmd := &cobra.Command{
		Use:   "set <summary>",
		Short: "Replace the summary, keeping followed topics",
		Args:  cobra.MinimumNArgs(1),
		Run:   runIdentitySet,
	}

	updateCmd := &cobra.Command{
		Use:   "update [json]",
		Short: "Apply a structured {summary, topics} update",
		Long:  "Apply a structured update from the argument or stdin. Malformed updates are rejected and the identity is left unchanged.",
		Run:   runIdentityUpdate,
	}

	idCmd.AddCommand(showCmd, setCmd, updateCmd)
	RootCmd.AddCommand(idCmd)
}

func openIdentity() (*env, *identity.Store) {
	e := mustEnv()
	id, err := e.identity()
	if err != nil {
		e.Close()
		exitErr("open identity", err)
	}
	return e, id
}

func runIdentityShow(cmd *cobra.Command, args []string) {
	e, id := openIdentity()
	defer e.Close()

	if formatFlag == "text" {
		got := id.Get()
		fmt.Println(got.Summary)
		if len(got.FollowedTopics) > 0 {
			fmt.Println("topics:", strings.Join(got.FollowedTopics, ", "))
		}
		return
	}
	printJSON(id.Get())
}

func runIdentitySet(cmd *cobra.Command, args []string) {
	e, id := openIdentity()
	defer e.Close()

	if err := id.SetSummary(strings.Join(args, " ")); err != nil {
		e.Close()
		exitErr("set", err)
	}
	printJSON(id.Get())
}

func runIdentityUpdate(cmd *cobra.Command, args []string) {
	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		text = string(b)
	}

	payload, err := identity.ParseStructured(text)
	if err != nil {
		exitErr("parse", err)
	}

	e, id := openIdentity()
	defer e.Close()

	if _, err := id.UpdateFromStructured(payload); err != nil {
		e.Close()
		exitErr("update", err)
	}
	printJSON(id.Get())
}
