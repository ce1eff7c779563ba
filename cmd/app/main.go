package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/specdesk/internal"
	"github.com/starford/specdesk/internal/models"
	"github.com/starford/specdesk/internal/registry"
	"github.com/starford/specdesk/internal/specservice"
	"github.com/starford/specdesk/internal/validation"
	pkgconfig "github.com/starford/specdesk/pkg/config"
)

// offlineProject is the project id offline commands pass to the service.
const offlineProject = "local"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}
	if dir := cmd.String("project"); dir != "" {
		opts = append(opts, internal.WithProjectRoot(dir))
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}
	if dir := cmd.String("dir"); dir != "" {
		opts = append(opts, internal.WithSpecsDir(dir))
	}

	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// offline builds a service over the --dir specs directory. Diagnostics go
// to stderr so stdout stays machine-readable.
func offline(cmd *cli.Command) *specservice.Service {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return specservice.NewService(specservice.Dir(cmd.String("dir")), logger, specservice.Options{
		StrictDependencies: cmd.Bool("strict"),
	})
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func listSpecs(ctx context.Context, cmd *cli.Command) error {
	specs, err := offline(cmd).ListSpecs(ctx, offlineProject, specservice.Filter{
		Status: cmd.String("status"),
		Query:  cmd.String("query"),
	})
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return writeJSON(stdout(cmd), specs)
	}

	tw := tabwriter.NewWriter(stdout(cmd), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tPRIORITY\tTITLE\tDEPENDS ON")
	for _, s := range specs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Name, s.Status, s.Priority, s.Title, strings.Join(s.DependsOn, ","))
	}
	return tw.Flush()
}

func validateSpecs(ctx context.Context, cmd *cli.Command) error {
	svc := offline(cmd)

	var results []validation.Result
	if id := cmd.Args().First(); id != "" {
		res, err := svc.ValidateSpec(ctx, offlineProject, id)
		if err != nil {
			return err
		}
		results = append(results, res)
	} else {
		all, err := svc.ValidateAll(ctx, offlineProject)
		if err != nil {
			return err
		}
		results = all
	}

	invalid := 0
	if cmd.Bool("json") {
		if err := writeJSON(stdout(cmd), results); err != nil {
			return err
		}
	}
	for _, res := range results {
		if !res.Valid {
			invalid++
		}
		if cmd.Bool("json") || len(res.Issues) == 0 {
			continue
		}
		fmt.Fprintf(stdout(cmd), "%s\n", res.SpecName)
		for _, issue := range res.Issues {
			fmt.Fprintf(stdout(cmd), "  %-7s %-22s %s\n", issue.Severity, issue.Code, issue.Message)
		}
	}
	if invalid > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d specs invalid", invalid, len(results)), 1)
	}
	if !cmd.Bool("json") {
		fmt.Fprintf(stdout(cmd), "%d specs valid\n", len(results))
	}
	return nil
}

func showStats(ctx context.Context, cmd *cli.Command) error {
	res, err := offline(cmd).Stats(ctx, offlineProject)
	if err != nil {
		return err
	}
	return writeJSON(stdout(cmd), res)
}

func showGraph(ctx context.Context, cmd *cli.Command) error {
	svc := offline(cmd)
	if id := cmd.Args().First(); id != "" {
		deps, err := svc.SpecDependencies(ctx, offlineProject, id)
		if err != nil {
			return err
		}
		return writeJSON(stdout(cmd), deps)
	}
	g, err := svc.Graph(ctx, offlineProject)
	if err != nil {
		return err
	}
	return writeJSON(stdout(cmd), g)
}

func setStatus(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return cli.Exit("usage: specdesk status <spec> <"+strings.Join(models.ValidStatuses, "|")+">", 2)
	}
	spec, err := offline(cmd).UpdateStatus(ctx, offlineProject, cmd.Args().Get(0), specservice.StatusUpdate{
		Status: cmd.Args().Get(1),
		Force:  cmd.Bool("force"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout(cmd), "%s: status is now %s\n", spec.Name, spec.Status)
	return nil
}

func migrateArchived(ctx context.Context, cmd *cli.Command) error {
	moved, err := offline(cmd).MigrateArchived(ctx, offlineProject)
	if err != nil {
		return err
	}
	for _, name := range moved {
		fmt.Fprintf(stdout(cmd), "migrated %s\n", name)
	}
	fmt.Fprintf(stdout(cmd), "%d specs migrated\n", len(moved))
	return nil
}

func listProjects(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg, err := registry.Open(cfg.Registry.Path, slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	if err != nil {
		return err
	}
	defer reg.Close()

	if root := cmd.String("discover"); root != "" {
		found, err := registry.Discover(root, 0)
		if err != nil {
			return err
		}
		for _, p := range found {
			fmt.Fprintln(stdout(cmd), p)
		}
		return nil
	}
	if dir := cmd.String("add"); dir != "" {
		p, err := reg.Add(ctx, dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout(cmd), "added %s (%s)\n", p.Name, p.ID)
		return nil
	}

	projects, err := reg.All(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout(cmd), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSPECS DIR")
	for _, p := range projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.SpecsDir)
	}
	return tw.Flush()
}

func main() {
	dirFlag := &cli.StringFlag{
		Name:    "dir",
		Aliases: []string{"d"},
		Usage:   "Specs directory",
		Value:   "specs",
		Sources: cli.EnvVars("SPECDESK_DIR"),
	}
	jsonFlag := &cli.BoolFlag{Name: "json", Usage: "Print JSON"}
	strictFlag := &cli.BoolFlag{Name: "strict", Usage: "Treat broken dependencies as errors"}

	cmd := &cli.Command{
		Name:  "specdesk",
		Usage: "Filesystem spec tracking: status, dependencies, stats and validation over Markdown specs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "project", Usage: "Register and activate this project root on start"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Serve this specs directory instead of registered projects"},
				},
			},
			{
				Name:   "list",
				Usage:  "List specs",
				Action: listSpecs,
				Flags: []cli.Flag{
					dirFlag, jsonFlag,
					&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "Only specs with this status"},
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Case-insensitive text filter"},
				},
			},
			{
				Name:      "validate",
				Usage:     "Validate one spec or all specs",
				ArgsUsage: "[spec]",
				Action:    validateSpecs,
				Flags:     []cli.Flag{dirFlag, jsonFlag, strictFlag},
			},
			{
				Name:   "stats",
				Usage:  "Print aggregate statistics",
				Action: showStats,
				Flags:  []cli.Flag{dirFlag},
			},
			{
				Name:      "graph",
				Usage:     "Print the dependency graph, or one spec's dependencies",
				ArgsUsage: "[spec]",
				Action:    showGraph,
				Flags:     []cli.Flag{dirFlag},
			},
			{
				Name:      "status",
				Usage:     "Change a spec's status",
				ArgsUsage: "<spec> <status>",
				Action:    setStatus,
				Flags: []cli.Flag{
					dirFlag,
					&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Allow skipping the planned stage"},
				},
			},
			{
				Name:   "migrate-archived",
				Usage:  "Move specs out of the legacy archived/ directory",
				Action: migrateArchived,
				Flags:  []cli.Flag{dirFlag},
			},
			{
				Name:   "projects",
				Usage:  "List, add or discover registered projects",
				Action: listProjects,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "add", Usage: "Register this project root"},
					&cli.StringFlag{Name: "discover", Usage: "Print project roots found under this directory"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
