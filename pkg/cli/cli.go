package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/igolaizola/songseed/pkg/cmd/analyze"
	"github.com/igolaizola/songseed/pkg/cmd/cache"
	"github.com/igolaizola/songseed/pkg/cmd/catalog"
	"github.com/igolaizola/songseed/pkg/cmd/export"
	"github.com/igolaizola/songseed/pkg/cmd/migrate"
	"github.com/igolaizola/songseed/pkg/cmd/song"
	"github.com/igolaizola/songseed/pkg/cmd/web"
	"github.com/peterbourgon/ff/ffyaml"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

const envPrefix = "SONGSEED"

func New(version, commit, date string) *ffcli.Command {
	fs := flag.NewFlagSet("songseed", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "songseed [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(version, commit, date),
			newMigrateCommand(),
			newWebCommand(),
			newCatalogCommand(),
			newSongCommand(),
			newExportCommand(),
			newAnalyzeCommand(),
			newCacheCommand(),
		},
	}
}

func newVersionCommand(version, commit, date string) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "songseed version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

func options() []ff.Option {
	return []ff.Option{
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ffyaml.Parser),
		ff.WithEnvVarPrefix(envPrefix),
	}
}

func newMigrateCommand() *ffcli.Command {
	cmd := "migrate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &migrate.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "sqlite", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "songseed.db", "path for sqlite, dsn for mysql or postgres")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("songseed %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "create the artifact cache tables",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return migrate.Run(ctx, cfg)
		},
	}
}

func newWebCommand() *ffcli.Command {
	cmd := "web"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &web.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type for the persistent cache (sqlite, mysql, postgres), empty to disable")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.Locales, "locales", "", "folder with extra locale yaml files (optional)")
	fs.IntVar(&cfg.CacheSize, "cache-size", 256, "in-memory cache size in MB (0 disables the cache)")
	fs.StringVar(&cfg.FFmpeg, "ffmpeg", "ffmpeg", "ffmpeg binary used for mp3 exports")

	fs.StringVar(&cfg.Addr, "addr", ":1337", "address to listen on")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "prefix of the artifact links (optional)")
	fsMapVar(fs, &cfg.Credentials, "creds", nil, "credentials to use (semicolon separated) Example: user1:pass1;user2:pass2")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("songseed %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "serve the catalog api",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return web.Serve(ctx, cfg)
		},
	}
}

func newCatalogCommand() *ffcli.Command {
	cmd := "catalog"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &catalog.Config{}

	fs.StringVar(&cfg.Locales, "locales", "", "folder with extra locale yaml files (optional)")
	fs.StringVar(&cfg.Locale, "locale", "en-US", "locale code")
	fs.Uint64Var(&cfg.Seed, "seed", 0, "catalog seed")
	fs.Float64Var(&cfg.Likes, "likes", 5, "average likes per song (0-10)")
	fs.IntVar(&cfg.Page, "page", 1, "page number")
	fs.IntVar(&cfg.PageSize, "page-size", 20, "songs per page (1-100)")
	fs.StringVar(&cfg.Format, "format", "json", "output format (json, csv)")
	fs.StringVar(&cfg.Output, "output", "", "output file (stdout if empty)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("songseed %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "print a catalog page",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return catalog.Run(ctx, cfg)
		},
	}
}

func newSongCommand() *ffcli.Command {
	cmd := "song"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &song.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Locales, "locales", "", "folder with extra locale yaml files (optional)")
	fs.StringVar(&cfg.Locale, "locale", "en-US", "locale code")
	fs.Uint64Var(&cfg.Seed, "seed", 0, "catalog seed")
	fs.IntVar(&cfg.Index, "index", 1, "song index (starting at 1)")
	fs.Float64Var(&cfg.Likes, "likes", 5, "average likes per song (0-10)")
	fs.IntVar(&cfg.Size, "size", 0, "cover size in pixels (128-800)")
	fs.StringVar(&cfg.Mode, "mode", "composition", "preview mode (composition, riff)")
	fs.StringVar(&cfg.CoverFormat, "cover-format", "png", "cover format (png, jpg)")
	fs.StringVar(&cfg.Output, "output", ".", "output folder")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("songseed %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "render the details, cover and preview of a song",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return song.Run(ctx, cfg)
		},
	}
}

func newExportCommand() *ffcli.Command {
	cmd := "export"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &export.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Locales, "locales", "", "folder with extra locale yaml files (optional)")
	fs.StringVar(&cfg.Locale, "locale", "en-US", "locale code")
	fs.Uint64Var(&cfg.Seed, "seed", 0, "catalog seed")
	fs.StringVar(&cfg.Indices, "indices", "1-10", "song indices, e.g. 1,3,5-8")
	fs.StringVar(&cfg.Format, "format", "wav", "audio format (wav, mp3)")
	fs.StringVar(&cfg.Mode, "mode", "composition", "preview mode (composition, riff)")
	fs.StringVar(&cfg.Output, "output", "", "output zip file (random name if empty)")
	fs.StringVar(&cfg.FFmpeg, "ffmpeg", "ffmpeg", "ffmpeg binary used for mp3 exports")

	fs.StringVar(&cfg.FSType, "fs-type", "", "fs type to upload the archive (local, s3), empty to skip")
	fs.StringVar(&cfg.FSConn, "fs-conn", "", "path for local, key:secret@bucket.region[?endpoint=url] for s3")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type to store the upload reference (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("songseed %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "export song previews to a zip archive",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return export.Run(ctx, cfg)
		},
	}
}

func newAnalyzeCommand() *ffcli.Command {
	cmd := "analyze"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &analyze.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Input, "input", "", "input wav or mp3 file or url")
	fs.StringVar(&cfg.Output, "output", "", "output folder for the plots (optional)")
	fs.Float64Var(&cfg.Threshold, "silence-threshold", -50, "silence threshold in dB")
	fs.DurationVar(&cfg.MinSilence, "silence-min", 500*time.Millisecond, "minimum silence duration")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("songseed %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "analyze an audio file",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return analyze.Run(ctx, cfg)
		},
	}
}

func newCacheCommand() *ffcli.Command {
	cmd := "cache"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &cache.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "sqlite", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "songseed.db", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.Kind, "kind", "", "artifact kind (cover, preview, waveform), empty for all")
	fs.IntVar(&cfg.Page, "page", 1, "page number for list")
	fs.IntVar(&cfg.PageSize, "page-size", 50, "artifacts per page for list")
	fs.DurationVar(&cfg.OlderThan, "older-than", 30*24*time.Hour, "prune artifacts not updated for this long")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("songseed %s [flags] <list|prune>", cmd),
		Options:    options(),
		ShortHelp:  "list or prune cached artifacts",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return flag.ErrHelp
			}
			switch args[0] {
			case "list":
				return cache.List(ctx, cfg)
			case "prune":
				return cache.Prune(ctx, cfg)
			default:
				return fmt.Errorf("cli: unknown cache action %q", args[0])
			}
		},
	}
}

type mapValue struct {
	v *map[string]string
}

func (m *mapValue) String() string {
	if m.v == nil {
		return ""
	}
	return fmt.Sprintf("%v", map[string]string(*m.v))
}

func (m *mapValue) Set(value string) error {
	if m.v == nil {
		return errors.New("nil map reference")
	}
	pairs := strings.Split(value, ";")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid map entry: %s", pair)
		}
		(*m.v)[parts[0]] = parts[1]
	}
	return nil
}

func fsMapVar(fs *flag.FlagSet, p *map[string]string, name string, value map[string]string, usage string) {
	if value == nil {
		value = make(map[string]string)
	}
	*p = value
	fs.Var(&mapValue{p}, name, usage)
}
