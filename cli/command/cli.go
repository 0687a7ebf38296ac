package command

import (
	"io"
	"path/filepath"
	"runtime"

	"winforge/cli/debug"
	cliflags "winforge/cli/flags"
	"winforge/cli/streams"
	"winforge/cli/version"
	appcoreconfig "winforge/pkg/appcore/config"
	"winforge/pkg/config"
	"winforge/pkg/config/configfile"
	"winforge/pkg/output"
	"winforge/pkg/progress"

	"github.com/spf13/cobra"
)

// Streams is an interface which exposes the standard input and output streams
type Streams interface {
	In() *streams.In
	Out() *streams.Out
	Err() *streams.Out
}

// Cli represents the winforge command line client. It is the thin host
// wrapping the pkg/appcore Manager API — the CLI is an external consumer,
// not part of the core.
type Cli interface {
	Streams
	SetIn(in *streams.In)
	Output() *output.Output
	Apply(ops ...CLIOption) error
	Progress() *progress.Progress
	Options() *cliflags.ClientOptions
	ConfigFile() *configfile.ConfigFile
	CatalogPath() string
	AppcoreConfig() appcoreconfig.Configuration
}

// WinforgeCli is the instance of the winforge command line client.
// Instances of the client can be returned from NewWinforgeCli.
type WinforgeCli struct {
	in         *streams.In
	out        *streams.Out
	err        *streams.Out
	options    *cliflags.ClientOptions
	configFile *configfile.ConfigFile
	output     *output.Output
}

// NewWinforgeCli returns a WinforgeCli instance with all operators applied
// on it. It applies the standard streams by default.
func NewWinforgeCli(ops ...CLIOption) (*WinforgeCli, error) {
	defaultOps := []CLIOption{
		WithStandardStreams(),
	}
	ops = append(defaultOps, ops...)

	cli := &WinforgeCli{}
	if err := cli.Apply(ops...); err != nil {
		return nil, err
	}

	cli.output = output.New(cli.Out(), cli.Err())

	return cli, nil
}

// Out returns the writer used for stdout
func (cli *WinforgeCli) Out() *streams.Out {
	return cli.out
}

// Err returns the writer used for stderr
func (cli *WinforgeCli) Err() *streams.Out {
	return cli.err
}

// SetIn sets the reader used for stdin
func (cli *WinforgeCli) SetIn(in *streams.In) {
	cli.in = in
}

// In returns the reader used for stdin
func (cli *WinforgeCli) In() *streams.In {
	return cli.in
}

// ShowHelp shows the command help.
func ShowHelp(err io.Writer) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cmd.SetOut(err)
		cmd.HelpFunc()(cmd, args)
		return nil
	}
}

// Apply all the operation on the cli
func (cli *WinforgeCli) Apply(ops ...CLIOption) error {
	for _, op := range ops {
		if err := op(cli); err != nil {
			return err
		}
	}
	return nil
}

// ConfigFile returns the ConfigFile
func (cli *WinforgeCli) ConfigFile() *configfile.ConfigFile {
	if cli.configFile == nil {
		cli.configFile = config.LoadDefaultConfigFile(cli.err)
	}
	return cli.configFile
}

// Options returns the options used to initialize the cli
func (cli *WinforgeCli) Options() *cliflags.ClientOptions {
	return cli.options
}

// Initialize the WinforgeCli runs initialization that must happen after
// command line flags are parsed.
func (cli *WinforgeCli) Initialize(opts *cliflags.ClientOptions, ops ...CLIOption) error {
	for _, o := range ops {
		if err := o(cli); err != nil {
			return err
		}
	}
	cliflags.SetLogLevel(opts.LogLevel)

	if opts.ConfigDir != "" {
		config.SetDir(opts.ConfigDir)
	}

	if opts.Debug {
		debug.Enable()
	}

	cli.options = opts
	cli.configFile = config.LoadDefaultConfigFile(cli.err)

	return nil
}

// CatalogPath returns the resolved path to the package catalog document:
// the --catalog flag when given, otherwise <config-dir>/catalog.json.
func (cli *WinforgeCli) CatalogPath() string {
	if cli.options != nil && cli.options.Catalog != "" {
		return cli.options.Catalog
	}
	return filepath.Join(config.Dir(), "catalog.json")
}

// AppcoreConfig derives the appcore Manager's Configuration from the
// persisted ConfigFile's overrides layered on appcoreconfig.Default().
func (cli *WinforgeCli) AppcoreConfig() appcoreconfig.Configuration {
	cfg := appcoreconfig.Default()

	cf := cli.ConfigFile()
	if cf.DefaultDryRun != nil {
		cfg.DefaultDryRun = *cf.DefaultDryRun
	}
	if cf.RequireAuthenticode != nil {
		cfg.RequireAuthenticode = *cf.RequireAuthenticode
	}

	return cfg
}

// Output returns the output handler
func (cli *WinforgeCli) Output() *output.Output {
	return cli.output
}

// UserAgent returns the user agent string used for making HTTP requests
// against vetted fetch sources.
func UserAgent() string {
	return "winforge-cli/" + version.Version + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}

// Progress returns the progress indicator
func (cli *WinforgeCli) Progress() *progress.Progress {
	return &progress.Progress{
		ProgressColorEnabled:     cli.Out().IsColorEnabled(),
		ProgressIndicatorEnabled: cli.Out().CanShowSpinner(),
	}
}
