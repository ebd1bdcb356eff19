package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/modpack-tools/loadout/pkg/loadout/baseline"
	"github.com/modpack-tools/loadout/pkg/loadout/cache"
	"github.com/modpack-tools/loadout/pkg/loadout/config"
	"github.com/modpack-tools/loadout/pkg/loadout/profile"
	"github.com/modpack-tools/loadout/pkg/loadout/remote"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage sync profiles",
	Long: `A profile binds a local mod folder to a remote repository URL.
Most commands take a profile via --profile or the configured default.`,
}

var profileAddCmd = &cobra.Command{
	Use:   "add <id> <root> <repo-url>",
	Short: "Register a new profile",
	Args:  cobra.ExactArgs(3),
	RunE:  runProfileAdd,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered profiles",
	Args:  cobra.NoArgs,
	RunE:  runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one profile's settings and sync state",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileShow,
}

var profileRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a profile and its stored sync state",
	Long: `Remove a profile along with its baseline and cached digests. Files in
the mod folder itself are not touched.`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileRemove,
}

func init() {
	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileRemoveCmd)
	rootCmd.AddCommand(profileCmd)
}

// openProfileStore prepares the data directory and returns the profile
// store. Profile commands do not need the digest cache or the engine.
func openProfileStore() (*profile.Store, error) {
	if err := config.EnsureDataDir(); err != nil {
		return nil, err
	}
	return profile.NewStore(config.ProfilesDir()), nil
}

func runProfileAdd(_ *cobra.Command, args []string) error {
	id, root, repoURL := args[0], args[1], args[2]

	store, err := openProfileStore()
	if err != nil {
		return err
	}

	root, err = config.ExpandPath(root)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	if info, err := os.Stat(abs); err != nil {
		return fmt.Errorf("root %s: %w", abs, err)
	} else if !info.IsDir() {
		return fmt.Errorf("root %s is not a directory", abs)
	}

	if err := store.Create(profile.Profile{ID: id, Root: abs, RepoURL: repoURL}); err != nil {
		return err
	}
	printInfo("Profile %q added: %s <- %s", id, abs, repoURL)
	return nil
}

func runProfileList(_ *cobra.Command, _ []string) error {
	store, err := openProfileStore()
	if err != nil {
		return err
	}
	profiles, err := store.List()
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		printInfo("No profiles registered. Add one with: loadout profile add <id> <root> <repo-url>")
		return nil
	}

	baselines := baseline.NewStore(config.BaselinesDir())
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROOT\tREPOSITORY\tLAST SYNC")
	for _, p := range profiles {
		lastSync := "never"
		if sum, err := baselines.LoadSummary(p.ID); err == nil {
			lastSync = sum.ComputedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Root, p.RepoURL, lastSync)
	}
	return w.Flush()
}

func runProfileShow(_ *cobra.Command, args []string) error {
	store, err := openProfileStore()
	if err != nil {
		return err
	}
	p, err := store.Get(args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", p.ID)
	fmt.Fprintf(w, "Root:\t%s\n", p.Root)
	fmt.Fprintf(w, "Repository:\t%s\n", p.RepoURL)
	fmt.Fprintf(w, "Created:\t%s\n", p.CreatedAt.Local().Format("2006-01-02 15:04:05"))

	baselines := baseline.NewStore(config.BaselinesDir())
	if sum, err := baselines.LoadSummary(p.ID); err == nil {
		fmt.Fprintf(w, "Last sync:\t%s\n", sum.ComputedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "Baseline:\t%d files in %d mods\n", sum.FileCount, sum.ModCount)
	} else {
		fmt.Fprintf(w, "Last sync:\tnever\n")
	}
	return w.Flush()
}

func runProfileRemove(_ *cobra.Command, args []string) error {
	id := args[0]

	store, err := openProfileStore()
	if err != nil {
		return err
	}
	if err := store.Delete(id); err != nil {
		return err
	}
	if err := baseline.NewStore(config.BaselinesDir()).Delete(id); err != nil {
		printError("removing baseline: %v", err)
	}
	if err := remote.NewManifestCache(config.RemoteCacheDir()).Delete(id); err != nil {
		printError("removing remote manifest snapshot: %v", err)
	}

	// Cached digests for the profile are dropped too. A cache that
	// fails to open is not fatal here.
	if cacheStore, err := cache.Open(config.DefaultCachePath()); err == nil {
		if err := cacheStore.DropProfile(id); err != nil {
			printError("dropping cache entries: %v", err)
		}
		_ = cacheStore.Close()
	}

	printInfo("Profile %q removed", id)
	return nil
}
