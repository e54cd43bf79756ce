package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/emergent-mind/internal/model"
	"github.com/rcliao/emergent-mind/internal/perception"
	"github.com/rcliao/emergent-mind/internal/recall"
	"github.com/rcliao/emergent-mind/internal/store"
)

func init() {
	memCmd := &cobra.Command{
		Use:   "memory",
		Short: "Read and write the vector journal",
	}

	addCmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Store a memory",
		Long:  "Store a memory. Text can be a positional arg or piped via stdin.",
		Run:   runMemoryAdd,
	}
	addCmd.Flags().String("kind", "other", "Kind: perception, reflection, tweet, other")

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Find memories similar to a query",
		Args:  cobra.MinimumNArgs(1),
		Run:   runMemorySearch,
	}
	searchCmd.Flags().String("kind", "", "Filter by kind")
	searchCmd.Flags().IntP("limit", "l", store.DefaultRetrieveK, "Max results")

	recentCmd := &cobra.Command{
		Use:   "recent",
		Short: "List the newest memories",
		Run:   runMemoryRecent,
	}
	recentCmd.Flags().String("kind", "", "Filter by kind")
	recentCmd.Flags().IntP("limit", "l", 10, "Max results")

	sampleCmd := &cobra.Command{
		Use:   "sample",
		Short: "Pick memories at random",
		Run:   runMemorySample,
	}
	sampleCmd.Flags().String("kind", "", "Filter by kind")
	sampleCmd.Flags().IntP("limit", "l", 2, "Max results")

	diverseCmd := &cobra.Command{
		Use:   "diverse",
		Short: "Pick recent memories that are not near-duplicates",
		Run:   runMemoryDiverse,
	}
	diverseCmd.Flags().IntP("limit", "l", recall.DefaultDiverseN, "Number of memories")
	diverseCmd.Flags().Float64("ceiling", recall.DefaultCeiling, "Max similarity between picks")

	topCmd := &cobra.Command{
		Use:   "top [query]",
		Short: "Rank memories by similarity and recency",
		Long:  "Rank memories by a weighted mix of similarity to the query and recency. The most relevant is printed last.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runMemoryTop,
	}
	topCmd.Flags().IntP("limit", "l", recall.DefaultTopK, "Max results")
	topCmd.Flags().String("decay", "", "Recency decay: linear or exp (default: $RANK_DECAY)")
	topCmd.Flags().Bool("scores", false, "Print scores with each memory")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export memories as JSON lines",
		Run:   runMemoryExport,
	}
	exportCmd.Flags().String("kind", "", "Filter by kind")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import memories from JSON lines on stdin",
		Long:  "Import memories from stdin. Expects the format produced by export. Every text is embedded again.",
		Run:   runMemoryImport,
	}

	bootstrapCmd := &cobra.Command{
		Use:   "bootstrap [feed files...]",
		Short: "Seed the journal from perception feed files",
		Long:  "Store the text of every complete feed item as a memory. Defaults to the configured feed. Refuses a non-empty store unless --force is given.",
		Run:   runMemoryBootstrap,
	}
	bootstrapCmd.Flags().String("kind", "perception", "Kind to store items as")
	bootstrapCmd.Flags().Bool("force", false, "Bootstrap even if the store already has memories")

	memCmd.AddCommand(addCmd, searchCmd, recentCmd, sampleCmd, diverseCmd, topCmd, exportCmd, importCmd, bootstrapCmd)
	RootCmd.AddCommand(memCmd)
}

func kindFlag(cmd *cobra.Command) model.Kind {
	s, _ := cmd.Flags().GetString("kind")
	if s == "" {
		return ""
	}
	k, err := model.ParseKind(s)
	if err != nil {
		exitErr("kind", err)
	}
	return k
}

// openMemory returns the env and its store; callers defer e.Close.
func openMemory(cmd *cobra.Command) (*env, *store.VectorStore) {
	e := mustEnv()
	mem, err := e.memory(cmd.Context())
	if err != nil {
		e.Close()
		exitErr("open store", err)
	}
	return e, mem
}

func runMemoryAdd(cmd *cobra.Command, args []string) {
	kind := kindFlag(cmd)

	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			text = string(b)
		}
	}
	if strings.TrimSpace(text) == "" {
		exitErr("add", fmt.Errorf("text is required (positional arg or stdin)"))
	}

	e, mem := openMemory(cmd)
	defer e.Close()

	rec, err := mem.AddMemory(cmd.Context(), text, kind)
	if err != nil {
		e.Close()
		exitErr("add", err)
	}
	b, _ := json.Marshal(rec)
	fmt.Println(string(b))
}

func runMemorySearch(cmd *cobra.Command, args []string) {
	kind := kindFlag(cmd)
	limit, _ := cmd.Flags().GetInt("limit")

	e, mem := openMemory(cmd)
	defer e.Close()

	matches, err := mem.Search(cmd.Context(), store.RetrieveParams{
		Query: strings.Join(args, " "),
		K:     limit,
		Kind:  kind,
	})
	if err != nil {
		e.Close()
		exitErr("search", err)
	}
	if formatFlag == "text" {
		for _, m := range matches {
			fmt.Printf("[%.3f] (%s) %s\n\n", m.Score, m.Kind, m.Text)
		}
		return
	}
	printJSON(matches)
}

func runMemoryRecent(cmd *cobra.Command, args []string) {
	kind := kindFlag(cmd)
	limit, _ := cmd.Flags().GetInt("limit")

	e, mem := openMemory(cmd)
	defer e.Close()
	printTexts(mem.Recent(kind, limit))
}

func runMemorySample(cmd *cobra.Command, args []string) {
	kind := kindFlag(cmd)
	limit, _ := cmd.Flags().GetInt("limit")

	e, mem := openMemory(cmd)
	defer e.Close()
	printTexts(mem.Sample(limit, kind))
}

func runMemoryDiverse(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	ceiling, _ := cmd.Flags().GetFloat64("ceiling")

	e, mem := openMemory(cmd)
	defer e.Close()
	printTexts(recall.SelectDiverse(mem, limit, ceiling))
}

func runMemoryTop(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	decayFlag, _ := cmd.Flags().GetString("decay")
	scores, _ := cmd.Flags().GetBool("scores")

	e, mem := openMemory(cmd)
	defer e.Close()

	opts := recall.RankOptions{
		SimWeight:     e.cfg.RankSimWeight,
		RecencyWeight: e.cfg.RankRecencyWeight,
		Lambda:        recall.DefaultLambda,
	}
	if decayFlag == "" {
		decayFlag = e.cfg.RankDecay
	}
	decay, err := recall.ParseDecay(decayFlag)
	if err != nil {
		e.Close()
		exitErr("decay", err)
	}
	opts.Decay = decay

	ranked, err := recall.Rank(cmd.Context(), mem, strings.Join(args, " "), limit, opts)
	if err != nil {
		e.Close()
		exitErr("top", err)
	}
	if scores {
		printJSON(ranked)
		return
	}
	texts := make([]string, len(ranked))
	for i, r := range ranked {
		texts[i] = r.Text
	}
	printTexts(texts)
}

func runMemoryExport(cmd *cobra.Command, args []string) {
	kind := kindFlag(cmd)

	e, mem := openMemory(cmd)
	defer e.Close()

	w := bufio.NewWriter(os.Stdout)
	n, err := mem.Export(w, kind)
	if ferr := w.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		e.Close()
		exitErr("export", err)
	}
	e.log.Info().Int("records", n).Msg("exported")
}

func runMemoryImport(cmd *cobra.Command, args []string) {
	e, mem := openMemory(cmd)
	defer e.Close()

	dec := json.NewDecoder(os.Stdin)
	imported := 0
	for {
		var rec model.Record
		err := dec.Decode(&rec)
		if err == io.EOF {
			break
		}
		if err != nil {
			e.Close()
			exitErr("parse json", err)
		}
		if rec.Kind == "" {
			rec.Kind = model.KindOther
		}
		added, err := mem.AddMemory(cmd.Context(), rec.Text, rec.Kind)
		if err != nil {
			e.Close()
			exitErr("import", err)
		}
		if added != nil {
			imported++
		}
	}
	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}

func runMemoryBootstrap(cmd *cobra.Command, args []string) {
	kind := kindFlag(cmd)
	force, _ := cmd.Flags().GetBool("force")

	e, mem := openMemory(cmd)
	defer e.Close()
	if mem.Len() > 0 && !force {
		e.Close()
		exitErr("bootstrap", fmt.Errorf("store already holds %d memories (use --force)", mem.Len()))
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{e.cfg.Feed()}
	}
	texts, err := perception.Texts(paths...)
	if err != nil {
		e.Close()
		exitErr("read feed", err)
	}
	n, err := mem.Import(cmd.Context(), texts, kind)
	if err != nil {
		e.Close()
		exitErr("bootstrap", err)
	}
	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", n)
}
