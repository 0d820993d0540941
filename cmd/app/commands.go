package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/scriptorium/internal"
	"github.com/starford/scriptorium/internal/media"
	"github.com/starford/scriptorium/internal/models"
	"github.com/starford/scriptorium/internal/pipeline"
	"github.com/starford/scriptorium/internal/prompt"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// openApp wires the application for a one-shot command. Logs go to stderr
// so command output stays clean.
func openApp(ctx context.Context, cmd *cli.Command, opts ...internal.Option) (*internal.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts = append([]internal.Option{internal.WithConfig(cfg), internal.WithLogOutput(stderr)}, opts...)
	return internal.New(ctx, opts...)
}

func transcribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "transcribe",
		Usage:     "Transcribe a media file and save it to the repository",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "style",
				Usage: "Document style: Minimal, Presentation or \"Bullet List\"",
				Value: string(models.StyleMinimal),
			},
			&cli.BoolFlag{
				Name:  "timestamps",
				Usage: "Prefix document paragraphs with time ranges",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "no-save",
				Usage: "Print the transcript without saving it",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return cli.Exit("transcribe: FILE is required", 2)
			}
			if !media.Supported(path) {
				return cli.Exit(fmt.Sprintf("transcribe: unsupported file type %q (allowed: %s)",
					filepath.Ext(path), strings.Join(media.SupportedExtensions, ", ")), 2)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("transcribe: %w", err)
			}

			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			up := pipeline.Upload{Filename: filepath.Base(path), Data: data}
			opts := pipeline.SaveOptions{Style: models.Style(cmd.String("style")), IncludeTimestamps: cmd.Bool("timestamps")}

			if cmd.Bool("no-save") {
				out, err := a.Service.Transcribe(ctx, up)
				if err != nil {
					return err
				}
				if out.Empty {
					_, _ = fmt.Fprintln(stderr, "No speech detected.")
					return nil
				}
				arts, err := pipeline.Preview(out, opts)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(stdout, arts.Text)
				return nil
			}

			item, out, err := a.Service.Upload(ctx, up, opts)
			if err != nil {
				return err
			}
			if out.Empty {
				_, _ = fmt.Fprintln(stderr, "No speech detected; nothing saved.")
				return nil
			}
			return printJSON(item)
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List saved transcripts",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := openApp(ctx, cmd, internal.WithoutEngine())
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.Service.List(ctx)
			if err != nil {
				return err
			}
			return writeEntries(stdout, entries)
		},
	}
}

// writeEntries prints one row per transcript in index order.
func writeEntries(w io.Writer, entries []models.IndexEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tFILENAME\tLANG\tDURATION\tSTYLE\tCREATED")
	for _, e := range entries {
		created := time.Unix(0, int64(e.CreatedAt*1e9)).UTC().Format(time.DateTime)
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%.1fs\t%s\t%s\n",
			e.ID, e.Filename, e.Language, e.Duration, e.Style, created)
	}
	return tw.Flush()
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print a saved transcript",
		ArgsUsage: "ID",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "txt, srt or meta",
				Value: string(models.ArtifactTXT),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return cli.Exit("show: ID is required", 2)
			}
			a, err := openApp(ctx, cmd, internal.WithoutEngine())
			if err != nil {
				return err
			}
			defer a.Close()

			switch format := cmd.String("format"); format {
			case "meta":
				detail, err := a.Service.Get(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(detail.Item)
			case string(models.ArtifactTXT), string(models.ArtifactSRT):
				data, err := a.Service.Artifact(ctx, id, models.ArtifactKind(format))
				if err != nil {
					return err
				}
				_, err = stdout.Write(data)
				return err
			default:
				return cli.Exit(fmt.Sprintf("show: unsupported format %q", format), 2)
			}
		},
	}
}

func promptCommand() *cli.Command {
	return &cli.Command{
		Name:  "prompt",
		Usage: "Combine saved transcripts into a prompt",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "id",
				Usage:    "Transcript id; repeat to combine several, in order",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "template",
				Usage: "File holding the template; it should contain " + prompt.Marker,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var tmpl *string
			if path := cmd.String("template"); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("prompt: read template: %w", err)
				}
				s := string(data)
				tmpl = &s
			}

			a, err := openApp(ctx, cmd, internal.WithoutEngine())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Service.BuildPrompt(ctx, &prompt.Session{}, cmd.StringSlice("id"), tmpl)
			if err != nil {
				return err
			}
			if res.MarkerMissing {
				_, _ = fmt.Fprintf(stderr, "warning: template has no %s marker; printed unchanged\n", prompt.Marker)
			}
			_, _ = fmt.Fprintln(stdout, res.Prompt)
			return nil
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Report disagreements between the index and the transcript directories",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := openApp(ctx, cmd, internal.WithoutEngine())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Service.Check(ctx)
			if err != nil {
				return err
			}
			if err := printJSON(report); err != nil {
				return err
			}
			if !report.Consistent() {
				return cli.Exit("repository is inconsistent", 1)
			}
			return nil
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
