package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kestrelia/promptweave/pkg/varstore"
	"github.com/kestrelia/promptweave/pkg/wildcard"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "./config.json", "path to the JSON config file")
		templateArg = flag.String("template", "", "template text; overrides -file and stdin")
		filePath    = flag.String("file", "", "read the template from this file ('-' for stdin)")
		seed        = flag.Uint64("seed", 0, "base seed for deterministic resolution")
		batch       = flag.Int("n", 1, "number of outputs to produce (seed advances by one each)")
		loadCtx     = flag.String("context", "", "load this saved variable context before resolving")
		saveCtx     = flag.String("save-context", "", "save the resulting variable context under this name")
		deleteCtx   = flag.String("delete-context", "", "delete this saved variable context and exit")
		listCtx     = flag.Bool("list-contexts", false, "list saved variable contexts and exit")
		showVersion = flag.Bool("version", false, "print version information and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("promptweave %s (%s, built %s)\n", Version, Commit, BuildDate)
		return
	}

	if err := run(*configPath, *templateArg, *filePath, *seed, *batch, *loadCtx, *saveCtx, *deleteCtx, *listCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, templateArg, filePath string, seed uint64, batch int, loadCtx, saveCtx, deleteCtx string, listCtx bool) error {
	config, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(config.LogLevel)}))

	var store *varstore.Store
	if listCtx || loadCtx != "" || saveCtx != "" || deleteCtx != "" {
		db, err := initDB(config.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() {
			_ = db.Close()
		}()
		if err = varstore.SetupSchema(db); err != nil {
			return fmt.Errorf("failed to set up schema: %w", err)
		}
		if store, err = varstore.NewStore(db); err != nil {
			return fmt.Errorf("failed to create context store: %w", err)
		}
		defer store.Close()
		store.SetLogger(logger)
	}

	if listCtx {
		infos, err := store.List(context.Background())
		if err != nil {
			return err
		}
		for _, info := range infos {
			fmt.Printf("%s\t%d bindings\n", info.Name, info.Bindings)
		}
		return nil
	}

	if deleteCtx != "" {
		if err = store.Delete(context.Background(), deleteCtx); err != nil {
			return fmt.Errorf("failed to delete context %q: %w", deleteCtx, err)
		}
		logger.Info("Deleted variable context", "name", deleteCtx)
		return nil
	}

	template, err := readTemplate(templateArg, filePath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(template) == "" {
		return errors.New("no template given; use -template, -file, or pipe text to stdin")
	}

	vars := wildcard.NewVarStore()
	if loadCtx != "" {
		vars, err = store.Load(context.Background(), loadCtx)
		if err != nil {
			return fmt.Errorf("failed to load context %q: %w", loadCtx, err)
		}
		logger.Info("Loaded variable context", "name", loadCtx, "variables", vars.Len())
	}

	opts := []wildcard.Option{
		wildcard.WithLogger(logger),
		wildcard.WithOverflow(config.AllowOverflow),
	}
	if config.FallbackDir != "" {
		opts = append(opts, wildcard.WithFallbackRoot(config.FallbackDir))
	}
	resolver := wildcard.NewResolver(config.WildcardDir, opts...)

	if batch < 1 {
		batch = 1
	}
	for i := 0; i < batch; i++ {
		out := resolver.ResolveDocument(template, seed+uint64(i), vars, config.HideComments)
		fmt.Println(out)
	}

	if saveCtx != "" {
		if err = store.Save(context.Background(), saveCtx, vars); err != nil {
			return fmt.Errorf("failed to save context %q: %w", saveCtx, err)
		}
		logger.Info("Saved variable context", "name", saveCtx, "variables", vars.Len())
	}
	return nil
}

// readTemplate picks the template source: the -template flag wins, then
// -file, then stdin when it is piped.
func readTemplate(templateArg, filePath string) (string, error) {
	if templateArg != "" {
		return templateArg, nil
	}
	if filePath == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read template file: %w", err)
		}
		return string(data), nil
	}
	if stat, err := os.Stdin.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	return "", nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
