package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/promeg/multichannel/internal/channel"
	"github.com/promeg/multichannel/internal/client"
	"github.com/promeg/multichannel/internal/lock"
	"github.com/promeg/multichannel/internal/profile"
	"github.com/promeg/multichannel/internal/store"
	"go.uber.org/zap"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	archiveFlag := flag.String("archive", "", "archive path for resolve (overrides config)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "get":
		withDaemon(name, func(ctx context.Context, c *client.Client) { cmdGet(ctx, c, *jsonFlag) })
	case "describe":
		withDaemon(name, func(ctx context.Context, c *client.Client) { cmdDescribe(ctx, c, *jsonFlag) })
	case "resolve":
		cmdResolve(name, *archiveFlag, *jsonFlag)
	case "prefs":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: channelctl prefs <list|clear>")
			os.Exit(1)
		}
		cmdPrefs(name, args[1], *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: channelctl [--profile <name>] [--archive <path>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  get              Show the channel served by the daemon")
	fmt.Fprintln(os.Stderr, "  describe         Show the channel and where it came from")
	fmt.Fprintln(os.Stderr, "  resolve          Resolve in-process without a daemon")
	fmt.Fprintln(os.Stderr, "  prefs list       List the profile's stored preferences")
	fmt.Fprintln(os.Stderr, "  prefs clear      Forget the cached channel")
}

func withDaemon(name string, fn func(context.Context, *client.Client)) {
	c, err := client.New(profile.SocketPath(name))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for profile %q: %v\n", name, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fn(ctx, c)
}

func cmdGet(ctx context.Context, c *client.Client, jsonOut bool) {
	value, err := c.GetChannel(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(map[string]string{"channel": value})
		return
	}
	fmt.Printf("Channel: %s\n", value)
}

func cmdDescribe(ctx context.Context, c *client.Client, jsonOut bool) {
	desc, err := c.DescribeChannel(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(desc)
		return
	}
	printDescription(desc)
}

func cmdResolve(name, archiveFlag string, jsonOut bool) {
	settings, err := profile.Load(name, archiveFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		os.Exit(1)
	}

	prefs, release := openPrefs(name)
	defer release()

	r := channel.NewResolver(nil, zap.NewNop(), nil, channel.Options{KeepCarriageReturn: settings.KeepCarriageReturn})
	rec := r.Resolve(prefs, settings.Archive)

	desc := &client.Description{
		Value:   rec.Value,
		Source:  string(rec.Source),
		Outcome: string(rec.Outcome),
		Archive: settings.Archive,
	}
	if rec.Err != nil {
		desc.Diagnostic = rec.Err.Error()
	}
	if jsonOut {
		outputJSON(desc)
		return
	}
	printDescription(desc)
}

func cmdPrefs(name, subcmd string, jsonOut bool) {
	prefs, release := openPrefs(name)
	defer release()

	switch subcmd {
	case "list":
		all, err := prefs.All()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if jsonOut {
			outputJSON(all)
			return
		}
		if len(all) == 0 {
			fmt.Println("No preferences stored.")
			return
		}
		keys := make([]string, 0, len(all))
		for k := range all {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s = %s\n", k, all[k])
		}
	case "clear":
		if err := prefs.Remove(channel.CacheKey); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Cached channel cleared.")
	default:
		fmt.Fprintf(os.Stderr, "unknown prefs subcommand: %s\n", subcmd)
		os.Exit(1)
	}
}

// openPrefs takes the profile lock and opens its preference file. It exits
// when a daemon already owns the profile.
func openPrefs(name string) (*store.Preferences, func()) {
	lk, err := lock.Acquire(profile.Dir(name))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v (is channeld running? use 'channelctl get')\n", err)
		os.Exit(1)
	}
	db, _, err := store.OpenMigrated(profile.PrefsDBPath(name))
	if err != nil {
		_ = lk.Release()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return db.Preferences(store.DefaultFile(name)), func() {
		_ = db.Close()
		_ = lk.Release()
	}
}

func printDescription(d *client.Description) {
	fmt.Printf("Channel: %s\n", d.Value)
	fmt.Printf("Source:  %s\n", d.Source)
	fmt.Printf("Outcome: %s\n", d.Outcome)
	fmt.Printf("Archive: %s\n", d.Archive)
	if d.Diagnostic != "" {
		fmt.Printf("Detail:  %s\n", d.Diagnostic)
	}
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
