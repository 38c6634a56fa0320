package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/steipete/cookieferry"
)

const passwordEnv = "COOKIEFERRY_PASSWORD"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		usage()
		return fmt.Errorf("missing command")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "export":
		return runExport(ctx, os.Args[2:])
	case "import":
		return runImport(ctx, os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", os.Args[1])
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: cookieferry <command> [flags]

commands:
  export    extract browser credentials into a sealed container file
  import    restore credentials from a container into local browser profiles

The backup password is read from -password or %s.
`, passwordEnv)
}

type commonFlags struct {
	browsers string
	profile  string
	config   string
	password string
	strict   bool
	timeout  time.Duration
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	var cf commonFlags
	fs.StringVar(&cf.browsers, "browsers", "", "comma-separated browsers (default: all installed)")
	fs.StringVar(&cf.profile, "profile", "", "profile name or directory, applied to every selected browser")
	fs.StringVar(&cf.config, "config", "", "path to cookieferry.conf")
	fs.StringVar(&cf.password, "password", "", "backup password (prefer "+passwordEnv+")")
	fs.BoolVar(&cf.strict, "require-secret-store", false, "fail instead of using the fallback key when the OS secret store is unavailable")
	fs.DurationVar(&cf.timeout, "timeout", 0, "per-command timeout for secret store helpers")
	return &cf
}

func (cf *commonFlags) options() (cookieferry.Options, string, error) {
	opts := cookieferry.Options{
		RequireSecretStore: cf.strict,
		Timeout:            cf.timeout,
	}
	if cf.browsers != "" {
		for _, part := range strings.Split(cf.browsers, ",") {
			name := strings.ToLower(strings.TrimSpace(part))
			if name == "" {
				continue
			}
			opts.Browsers = append(opts.Browsers, cookieferry.Browser(name))
		}
	}
	if cf.profile != "" {
		opts.Profiles = make(map[cookieferry.Browser]string)
		for _, b := range browsersOrAll(opts.Browsers) {
			opts.Profiles[b] = cf.profile
		}
	}

	containerPath := ""
	if cf.config != "" {
		cfg, err := cookieferry.LoadConfig(cf.config)
		if err != nil {
			return opts, "", err
		}
		opts = cfg.Apply(opts)
		containerPath = cfg.ContainerPath
	}

	return opts, containerPath, nil
}

func browsersOrAll(selected []cookieferry.Browser) []cookieferry.Browser {
	if len(selected) > 0 {
		return selected
	}
	return cookieferry.DefaultBrowsers()
}

func (cf *commonFlags) resolvePassword() (string, error) {
	if cf.password != "" {
		return cf.password, nil
	}
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}
	return "", fmt.Errorf("no backup password: set -password or %s", passwordEnv)
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cf := registerCommon(fs)
	out := fs.String("out", "", "container output path (default: browser_backup_<timestamp>.enc)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts, cfgOut, err := cf.options()
	if err != nil {
		return err
	}
	password, err := cf.resolvePassword()
	if err != nil {
		return err
	}

	outPath := *out
	if outPath == "" {
		outPath = cfgOut
	}
	if outPath == "" {
		outPath = fmt.Sprintf("browser_backup_%s.enc", time.Now().Format("20060102_150405"))
	}

	res, err := cookieferry.Export(ctx, password, opts)
	logWarnings(res.Warnings)
	logReports(res.Reports)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outPath, res.Container, 0o600); err != nil {
		return fmt.Errorf("writing container: %w", err)
	}
	slog.Info("export complete", "container", outPath, "products", len(res.Reports))
	return exitErr(res.Reports)
}

func runImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cf := registerCommon(fs)
	in := fs.String("in", "", "container file to import (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts, cfgIn, err := cf.options()
	if err != nil {
		return err
	}
	password, err := cf.resolvePassword()
	if err != nil {
		return err
	}

	inPath := *in
	if inPath == "" {
		inPath = cfgIn
	}
	if inPath == "" {
		return fmt.Errorf("no container file: set -in")
	}

	container, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("reading container: %w", err)
	}

	res, err := cookieferry.Import(ctx, container, password, opts)
	logWarnings(res.Warnings)
	logReports(res.Reports)
	if err != nil {
		return err
	}
	slog.Info("import complete", "products", len(res.Reports))
	return exitErr(res.Reports)
}

func logWarnings(warnings []string) {
	for _, w := range warnings {
		slog.Warn(w)
	}
}

func logReports(reports []cookieferry.ProductReport) {
	for _, r := range reports {
		if r.Err != nil {
			slog.Error("product failed", "browser", r.Browser, "profile", r.Profile, "error", r.Err)
			continue
		}
		slog.Info("product done",
			"browser", r.Browser,
			"profile", r.Profile,
			"cookies", r.Cookies,
			"passwords", r.Passwords,
			"failed_records", r.Failed,
		)
	}
}

func exitErr(reports []cookieferry.ProductReport) error {
	for _, r := range reports {
		if r.Err != nil {
			return fmt.Errorf("one or more products failed")
		}
	}
	return nil
}
