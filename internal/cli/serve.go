package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/emergent-mind/internal/identity"
	"github.com/rcliao/emergent-mind/internal/logging"
	"github.com/rcliao/emergent-mind/internal/mcpserver"
	"github.com/rcliao/emergent-mind/internal/recall"
	"github.com/rcliao/emergent-mind/internal/server"
	"github.com/rcliao/emergent-mind/internal/store"
	"github.com/rcliao/emergent-mind/internal/weights"
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the journal, identity and weights over HTTP",
		Run:   runServe,
	}
	serveCmd.Flags().String("addr", "", "Listen address (default: $HTTP_ADDR)")

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the journal as MCP tools over stdio",
		Run:   runMCP,
	}

	RootCmd.AddCommand(serveCmd, mcpCmd)
}

// openReadStores opens the stores the servers expose.
func openReadStores(cmd *cobra.Command) (*env, *store.VectorStore, *identity.Store, map[string]*weights.Store, recall.RankOptions) {
	e, mem := openMemory(cmd)
	id, err := e.identity()
	if err != nil {
		e.Close()
		exitErr("open identity", err)
	}
	ws, err := e.weights()
	if err != nil {
		e.Close()
		exitErr("open weights", err)
	}
	decay, err := recall.ParseDecay(e.cfg.RankDecay)
	if err != nil {
		e.Close()
		exitErr("decay", err)
	}
	rank := recall.RankOptions{
		SimWeight:     e.cfg.RankSimWeight,
		RecencyWeight: e.cfg.RankRecencyWeight,
		Decay:         decay,
		Lambda:        recall.DefaultLambda,
	}
	return e, mem, id, ws, rank
}

func runServe(cmd *cobra.Command, args []string) {
	addr, _ := cmd.Flags().GetString("addr")

	ctx, cancel := agentContext(cmd)
	defer cancel()

	e, mem, id, ws, rank := openReadStores(cmd)
	defer e.Close()
	if addr == "" {
		addr = e.cfg.HTTPAddr
	}

	srv := server.New(server.Options{
		Memory:   mem,
		Identity: id,
		Weights:  ws,
		Rank:     rank,
		Log:      logging.Component(e.log, "server"),
	})
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		e.Close()
		exitErr("serve", err)
	}
}

func runMCP(cmd *cobra.Command, args []string) {
	e, mem, id, ws, rank := openReadStores(cmd)
	defer e.Close()

	s := mcpserver.New("emergent-mind", Version, mcpserver.NewTools(mem, id, ws, rank))
	if err := mcpserver.Serve(s); err != nil {
		e.Close()
		exitErr("mcp", err)
	}
}
