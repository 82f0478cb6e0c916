package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"albumd/internal/album"
	"albumd/internal/app"
	"albumd/internal/config"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
func newApp(ctx context.Context) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.Load(defaults["config_path"], os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts on the terminal without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:          "albumd",
	Short:        "Self-hosted image album server",
	SilenceUsage: true,
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Serve(ctx)
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		adminKey, _ := cmd.Flags().GetString("admin-key")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		if adminKey == "" {
			adminKey = strings.ReplaceAll(uuid.NewString(), "-", "")
		}
		salt := strings.ReplaceAll(uuid.NewString(), "-", "")

		cfg := config.NewConfig(defaults["root"], defaults["base_dir"], adminKey, salt)
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Root:      %s\n", cfg.Root)
		fmt.Printf("Admin key: %s\n", adminKey)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.Load(defaults["config_path"], os.Getenv)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		vault := cfg.Archive.VaultType
		if vault == "" {
			vault = "(disabled)"
		}
		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Root:       %s\n", cfg.Root)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Listen:     %s%s\n", cfg.Server.Listen, cfg.Server.BasePath)
		fmt.Printf("Max Upload: %s\n", humanize.IBytes(uint64(cfg.Upload.MaxBytes())))
		fmt.Printf("Staging:    %s\n", cfg.Upload.Staging)
		fmt.Printf("Vault:      %s\n", vault)
		fmt.Printf("Encryption: %s\n", cfg.Archive.Encryption)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage archive encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the archive key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.SetupKeys(pass); err != nil {
			return fmt.Errorf("setting up keys: %w", err)
		}
		fmt.Println("Archive keys created.")
		return nil
	},
}

// tokens command
var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Manage token albums",
}

var tokensListCmd = &cobra.Command{
	Use:   "list",
	Short: "List token albums",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		tokens, err := a.Service().ListTokens()
		if err != nil {
			return err
		}
		if len(tokens) == 0 {
			fmt.Println("No albums.")
			return nil
		}
		for _, t := range tokens {
			fmt.Printf("%-24s  %4d  %s\n", t.Token, t.Count, t.Title)
		}
		return nil
	},
}

var tokensCreateCmd = &cobra.Command{
	Use:   "create TOKEN",
	Short: "Create a token album",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		token, err := a.Service().CreateToken(args[0])
		if err != nil {
			return fmt.Errorf("creating album: %w", err)
		}
		fmt.Printf("Created album: %s\n", token)
		return nil
	},
}

var tokensRemoveCmd = &cobra.Command{
	Use:   "remove TOKEN",
	Short: "Archive or delete a token album",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Service().RemoveToken(cmd.Context(), args[0], mode)
		if err != nil {
			return fmt.Errorf("removing album: %w", err)
		}
		switch {
		case res.ArchivedTo != "":
			fmt.Printf("Archived %s to %s\n", res.Token, res.ArchivedTo)
		default:
			fmt.Printf("Deleted %s\n", res.Token)
		}
		if res.Exported != "" {
			fmt.Printf("Exported to vault as %s\n", res.Exported)
		}
		return nil
	},
}

// tree command
var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the folder tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		nodes, err := a.Service().Tree()
		if err != nil {
			return err
		}
		printTree(nodes, 0)
		return nil
	},
}

func printTree(nodes []*album.TreeNode, depth int) {
	for _, n := range nodes {
		slug := ""
		if n.Slug != "" {
			slug = "  [" + n.Slug + "]"
		}
		fmt.Printf("%s%s/  (%d)%s\n", strings.Repeat("  ", depth), n.Name, n.ImageCount, slug)
		printTree(n.Children, depth+1)
	}
}

// slug command
var slugCmd = &cobra.Command{
	Use:   "slug",
	Short: "Manage share slugs",
}

var slugGetCmd = &cobra.Command{
	Use:   "get PATH",
	Short: "Get or create the slug for a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		slug, err := a.Service().GetOrCreateSlug(args[0])
		if err != nil {
			return err
		}
		fmt.Println(slug)
		return nil
	},
}

var slugResolveCmd = &cobra.Command{
	Use:   "resolve SLUG",
	Short: "Show the folder a slug points to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		path, ok := a.Service().ResolveSlug(args[0])
		if !ok {
			return fmt.Errorf("unknown slug: %s", args[0])
		}
		fmt.Println(path)
		return nil
	},
}

var slugListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all slugs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		for slug, path := range a.Service().Slugs() {
			fmt.Printf("%s  %s\n", slug, path)
		}
		return nil
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show view counts per album",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Service().Stats()
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Println("No visits recorded.")
			return nil
		}
		for key, s := range stats {
			fmt.Printf("%-24s  %6d  %s  %s\n", key, s.Views, s.FirstVisit, s.LastVisit)
		}
		return nil
	},
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Summarize recent visits",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		includeLocal, _ := cmd.Flags().GetBool("include-local")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.Service().Analytics(limit, includeLocal)
		if err != nil {
			return err
		}
		fmt.Printf("Total: %d  Today: %d  Unique IPs: %d  Albums: %d\n\n", r.Total, r.Today, r.UniqueIPs, r.UniqueTokens)
		fmt.Println("By album:")
		for _, c := range r.ByToken {
			fmt.Printf("  %-24s  %d\n", c.Key, c.Count)
		}
		fmt.Println("By city:")
		for _, c := range r.ByCity {
			fmt.Printf("  %-24s  %d\n", c.Key, c.Count)
		}
		return nil
	},
}

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Export and fetch album archives",
}

var archiveExportCmd = &cobra.Command{
	Use:   "export PATH",
	Short: "Export a folder to the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		name, err := a.ExportArchive(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Printf("Exported %s as %s\n", args[0], name)
		return nil
	},
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archives in the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		archives, err := a.ListArchives(cmd.Context())
		if err != nil {
			return err
		}
		if len(archives) == 0 {
			fmt.Println("No archives.")
			return nil
		}
		for _, ar := range archives {
			fmt.Printf("%s  %8s  %s\n",
				ar.Created.Format("2006-01-02 15:04:05"),
				humanize.Bytes(uint64(ar.Size)),
				ar.Name,
			)
		}
		return nil
	},
}

var archiveFetchCmd = &cobra.Command{
	Use:   "fetch NAME",
	Short: "Download and decrypt an archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		var pass string
		if a.NeedsPassphrase(args[0]) {
			if pass, err = readPassphrase("Passphrase: "); err != nil {
				return err
			}
		}

		if output == "" {
			output = plainName(args[0])
		}
		f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		if err := a.FetchArchive(cmd.Context(), args[0], pass, f); err != nil {
			f.Close()
			os.Remove(output)
			return fmt.Errorf("fetch failed: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("closing output: %w", err)
		}
		fmt.Printf("Wrote %s\n", output)
		return nil
	},
}

// plainName strips any encryption suffix after ".tar.gz".
func plainName(name string) string {
	if i := strings.Index(name, ".tar.gz"); i >= 0 {
		return name[:i+len(".tar.gz")]
	}
	return name
}

// album command
var albumCmd = &cobra.Command{
	Use:   "album",
	Short: "Edit albums",
}

var albumBatchRenameCmd = &cobra.Command{
	Use:   "batch-rename REF PREFIX",
	Short: "Rename every image of an album to PREFIX-NNN",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetInt("start")
		padding, _ := cmd.Flags().GetInt("padding")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		contents, err := a.Service().AlbumContents(args[0])
		if err != nil {
			return err
		}
		pairs, err := a.Service().BatchRename(args[0], contents.Files, args[1], start, padding)
		if err != nil {
			return fmt.Errorf("batch rename: %w", err)
		}
		for _, p := range pairs {
			fmt.Printf("%s -> %s\n", p.Old, p.New)
		}
		fmt.Printf("Renamed %d file(s)\n", len(pairs))
		return nil
	},
}

// vault command
var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage the archive vault",
}

var vaultCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the vault is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ValidateVault(cmd.Context()); err != nil {
			return fmt.Errorf("vault check failed: %w", err)
		}
		fmt.Println("Vault OK.")
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("admin-key", "", "Admin key (generated when empty)")
	configCmd.AddCommand(configListCmd)

	keysCmd.AddCommand(keysInitCmd)

	tokensCmd.AddCommand(tokensListCmd)
	tokensCmd.AddCommand(tokensCreateCmd)
	tokensCmd.AddCommand(tokensRemoveCmd)
	tokensRemoveCmd.Flags().String("mode", "archive", "Removal mode: archive or delete")

	slugCmd.AddCommand(slugGetCmd)
	slugCmd.AddCommand(slugResolveCmd)
	slugCmd.AddCommand(slugListCmd)

	archiveCmd.AddCommand(archiveExportCmd)
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveFetchCmd)
	archiveFetchCmd.Flags().StringP("output", "o", "", "Output file (defaults to the archive name)")

	albumCmd.AddCommand(albumBatchRenameCmd)
	albumBatchRenameCmd.Flags().Int("start", 1, "First sequence number")
	albumBatchRenameCmd.Flags().Int("padding", 3, "Digits in the sequence number")

	vaultCmd.AddCommand(vaultCheckCmd)

	// root commands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(slugCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(analyticsCmd)
	analyticsCmd.Flags().IntP("limit", "n", 1000, "Number of recent log lines to analyze")
	analyticsCmd.Flags().Bool("include-local", false, "Include private and loopback addresses")
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(albumCmd)
	rootCmd.AddCommand(vaultCmd)
}
