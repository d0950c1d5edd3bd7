package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/obentoo/portcheck/internal/audit"
	"github.com/obentoo/portcheck/internal/common/config"
	"github.com/obentoo/portcheck/internal/common/logger"
	"github.com/obentoo/portcheck/internal/defaults"
	"github.com/obentoo/portcheck/internal/metadata"
	"github.com/obentoo/portcheck/internal/overrides"
	"github.com/obentoo/portcheck/internal/profile"
	"github.com/obentoo/portcheck/internal/vdb"
)

var (
	auditKeywords       bool
	auditUseFlags       bool
	auditKeywordPath    string
	auditUsePath        string
	auditVDB            string
	auditRepos          []string
	auditProfile        string
	auditArch           string
	auditActionableOnly bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Classify override entries as live, stale, or redundant",
	Long: `Audit the package.accept_keywords and package.use entries against the
installed package database and current repository metadata.

Classifications:
  live        the entry still changes effective behavior
  stale       nothing installed matches, or the target flag/keyword is gone
  redundant   the defaults already produce the same outcome
  parse-error the line could not be parsed

Exit status: 0 when every entry is live, 1 when stale, redundant, or
unparseable entries were found, 2 when the package database could not
be read.

Examples:
  portcheck audit                          # Audit both override kinds
  portcheck audit --use-flags=false        # Keywords only
  portcheck audit --actionable-only        # Hide live entries
  portcheck audit --vdb /mnt/g/var/db/pkg  # Audit another root`,
	Args: cobra.NoArgs,
	Run:  runAudit,
}

func init() {
	auditCmd.Flags().BoolVarP(&auditKeywords, "keywords", "k", true, "Audit package.accept_keywords entries")
	auditCmd.Flags().BoolVarP(&auditUseFlags, "use-flags", "u", true, "Audit package.use entries")
	auditCmd.Flags().StringVar(&auditKeywordPath, "keyword-path", "", "Override the package.accept_keywords location")
	auditCmd.Flags().StringVar(&auditUsePath, "use-path", "", "Override the package.use location")
	auditCmd.Flags().StringVar(&auditVDB, "vdb", "", "Package database root (default /var/db/pkg)")
	auditCmd.Flags().StringArrayVar(&auditRepos, "repo", nil, "Repository root, repeatable (default /var/db/repos/gentoo)")
	auditCmd.Flags().StringVar(&auditProfile, "profile", "", "Profile directory or make.profile link")
	auditCmd.Flags().StringVar(&auditArch, "arch", "", "Architecture keyword (default from profile)")
	auditCmd.Flags().BoolVarP(&auditActionableOnly, "actionable-only", "a", false, "Hide live entries from the listing")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) {
	if code := runAuditFlow(); code != 0 {
		os.Exit(code)
	}
}

// runAuditFlow performs the full audit and returns the process exit
// code: 0 clean, 1 actionable findings, 2 fatal snapshot failure.
func runAuditFlow() int {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("loading config: %v", err)
		return 2
	}

	// Flags override the config file
	if auditVDB != "" {
		cfg.Portage.VDB = auditVDB
	}
	if len(auditRepos) > 0 {
		cfg.Portage.Repos = auditRepos
	}
	if auditProfile != "" {
		cfg.Portage.Profile = auditProfile
	}
	if auditArch != "" {
		cfg.Portage.Arch = auditArch
	}
	if auditKeywordPath != "" {
		cfg.Audit.KeywordPath = auditKeywordPath
	}
	if auditUsePath != "" {
		cfg.Audit.UsePath = auditUsePath
	}

	index, err := buildSnapshot(cfg)
	if err != nil {
		// The installed set is the audit's ground truth; without it no
		// classification can be trusted, so no report is printed.
		logger.Error("%v", err)
		return 2
	}
	logger.Info("Indexed %d installed package versions from %s", index.Size(), cfg.VDBPath())

	repos, err := cfg.GetRepoPaths()
	if err != nil {
		var vErr *config.RepoValidationError
		if errors.As(err, &vErr) {
			logger.Error("%v", err)
			return 2
		}
		logger.Warn("%v", err)
		logger.Warn("Continuing without repository metadata; redundancy cannot be proven")
	}

	prof := loadProfile(cfg, repos)
	// Overlays often ship without a generated md5-cache, so fall back
	// to reading the ebuild files themselves.
	source := metadata.Fallback(metadata.NewCacheDir(repos...), metadata.NewEbuildDir(repos...))
	resolver := defaults.NewResolver(source, prof)

	entries, err := loadEntries(cfg)
	if err != nil {
		logger.Error("%v", err)
		return 2
	}
	logger.Info("Auditing %d override entries", len(entries))

	auditor := audit.New(index, resolver, prof.Arch)
	report := auditor.Audit(entries)

	fmt.Print(audit.FormatReport(report, audit.FormatOptions{IncludeLive: !auditActionableOnly}))

	if report.Actionable() > 0 {
		return 1
	}
	return 0
}

// buildSnapshot reads the package database once; the audit runs against
// this immutable index and never re-queries mid-run.
func buildSnapshot(cfg *config.Config) (*vdb.Index, error) {
	root, err := cfg.GetVDBPath()
	if err != nil {
		return nil, err
	}
	return vdb.BuildIndex(vdb.NewDatabase(root))
}

// loadProfile folds the profile chain plus make.conf.
func loadProfile(cfg *config.Config, repos []string) *profile.Profile {
	prof := loadProfileChain(cfg, repos)

	makeConf := filepath.Join(cfg.ConfigRootPath(), "make.conf")
	if err := prof.ApplyMakeConf(makeConf); err != nil {
		logger.Warn("%v", err)
	}

	if cfg.Portage.Arch != "" && cfg.Portage.Arch != prof.Arch {
		prof.Arch = cfg.Portage.Arch
		if len(prof.AcceptKeywords) == 0 {
			prof.AcceptKeywords = []string{prof.Arch}
		}
	}
	return prof
}

// loadProfileChain resolves and folds the configured profile. When the
// profile cannot be read the audit continues with a bare arch-only
// profile rather than aborting.
func loadProfileChain(cfg *config.Config, repos []string) *profile.Profile {
	fallback := func() *profile.Profile {
		p := &profile.Profile{Arch: cfg.Portage.Arch}
		if p.Arch != "" {
			p.AcceptKeywords = []string{p.Arch}
		}
		return p
	}

	path, err := cfg.GetProfilePath()
	if err != nil {
		logger.Warn("%v", err)
		return fallback()
	}

	prof, err := profile.Load(path, profile.ReposByName(repos))
	if err != nil {
		logger.Warn("loading profile %s: %v", path, err)
		return fallback()
	}
	return prof
}

// loadEntries reads the enabled override sources. A source that does
// not exist on this system is simply empty.
func loadEntries(cfg *config.Config) ([]overrides.Entry, error) {
	var entries []overrides.Entry

	sources := []struct {
		enabled bool
		path    string
		kind    overrides.Kind
	}{
		{auditKeywords, cfg.KeywordPath(), overrides.KindKeywords},
		{auditUseFlags, cfg.UsePath(), overrides.KindUse},
	}
	for _, src := range sources {
		if !src.enabled {
			continue
		}
		loaded, err := overrides.Load(src.path, src.kind)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("no %s entries at %s", src.kind, src.path)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", src.path, err)
		}
		entries = append(entries, loaded...)
	}
	return entries, nil
}
