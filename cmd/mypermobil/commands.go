package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/ambiyansyah-risyal/mypermobil"
)

func commands(log hclog.Logger, ui cli.Ui) map[string]cli.CommandFactory {
	base := &baseCommand{Log: log, UI: ui}
	return map[string]cli.CommandFactory{
		"regions": func() (cli.Command, error) {
			return &regionsCommand{baseCommand: base}, nil
		},
		"item": func() (cli.Command, error) {
			return &itemCommand{baseCommand: base}, nil
		},
		"version": func() (cli.Command, error) {
			return &versionCommand{baseCommand: base}, nil
		},
	}
}

type baseCommand struct {
	Log hclog.Logger
	UI  cli.Ui
}

func (b *baseCommand) context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func (b *baseCommand) client(configPath string) (*mypermobil.Client, error) {
	cfg, err := mypermobil.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	opts := []mypermobil.Option{}
	if cfg.Debug {
		opts = append(opts, mypermobil.WithLogger(b.Log.Named("client")), mypermobil.WithDebug())
	}
	client := mypermobil.NewFromConfig(cfg, opts...)
	if err := client.ValidationError(); err != nil {
		return nil, err
	}
	return client, nil
}

type regionsCommand struct {
	*baseCommand
}

func (c *regionsCommand) Synopsis() string {
	return "List the backend regions"
}

func (c *regionsCommand) Help() string {
	return `Usage: mypermobil regions [options]

  Lists region names and their base URLs.

Options:

  -config=<path>  YAML configuration file.
  -internal       Include non-production regions.`
}

func (c *regionsCommand) Run(args []string) int {
	var configPath string
	var internal bool
	flags := flag.NewFlagSet("regions", flag.ContinueOnError)
	flags.Usage = func() { c.UI.Output(c.Help()) }
	flags.StringVar(&configPath, "config", "", "")
	flags.BoolVar(&internal, "internal", false, "")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	client, err := c.client(configPath)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	defer client.Close()

	ctx, cancel := c.context()
	defer cancel()

	names, err := client.RequestRegionNames(ctx, internal)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error requesting regions: %v", err))
		return 1
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)
	for _, name := range sorted {
		c.UI.Output(fmt.Sprintf("%s\t%s", name, names[name]))
	}
	return 0
}

type itemCommand struct {
	*baseCommand
}

func (c *itemCommand) Synopsis() string {
	return "Resolve items for an authenticated session"
}

func (c *itemCommand) Help() string {
	return `Usage: mypermobil item [options] <item>...

  Resolves each dotted item path (for example stateOfCharge or
  mostRecent.odometerTotal) against the endpoint serving it.

Options:

  -config=<path>  YAML configuration file with email, region, token and
                  expiration_date.`
}

func (c *itemCommand) Run(args []string) int {
	var configPath string
	flags := flag.NewFlagSet("item", flag.ContinueOnError)
	flags.Usage = func() { c.UI.Output(c.Help()) }
	flags.StringVar(&configPath, "config", "", "")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() == 0 {
		c.UI.Error("at least one item is required")
		return cli.RunResultHelp
	}

	client, err := c.client(configPath)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	defer client.Close()

	if err := client.Authenticate(); err != nil {
		c.UI.Error(fmt.Sprintf("error authenticating: %v", err))
		return 1
	}

	ctx, cancel := c.context()
	defer cancel()

	if client.ProductID() == "" {
		id, err := client.RequestProductID(ctx)
		if err != nil {
			c.UI.Error(fmt.Sprintf("error requesting product id: %v", err))
			return 1
		}
		if err := client.SetProductID(id); err != nil {
			c.UI.Error(err.Error())
			return 1
		}
	}

	items := make([]mypermobil.Item, flags.NArg())
	for i, arg := range flags.Args() {
		items[i] = mypermobil.ParseItem(arg)
	}
	values, err := client.RequestItems(ctx, items...)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error requesting items: %v", err))
		return 1
	}
	for i, v := range values {
		c.UI.Output(fmt.Sprintf("%s\t%v", strings.TrimSpace(flags.Arg(i)), v))
	}
	return 0
}

type versionCommand struct {
	*baseCommand
}

func (c *versionCommand) Synopsis() string {
	return "Print the version"
}

func (c *versionCommand) Help() string {
	return "Usage: mypermobil version"
}

func (c *versionCommand) Run(args []string) int {
	c.UI.Output(mypermobil.GetVersion())
	return 0
}
