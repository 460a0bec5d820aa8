package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/murmur/internal/capture"
	"github.com/hpungsan/murmur/internal/capture/native"
	"github.com/hpungsan/murmur/internal/db"
	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/mcp"
	"github.com/hpungsan/murmur/internal/ops"
	"github.com/hpungsan/murmur/internal/web"
)

// newCLIApp creates the CLI application with all commands.
// e may be nil when only help or version output is needed.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "murmur",
		Usage:   "Meeting recorder and transcript assistant",
		Version: Version,
		Commands: []*cli.Command{
			importCmd(e),
			listCmd(e),
			fetchCmd(e),
			deleteCmd(e),
			indexCmd(e),
			askCmd(e),
			historyCmd(e),
			summarizeCmd(e),
			renameSpeakerCmd(e),
			reassignSegmentCmd(e),
			recordCmd(e),
			serveCmd(e),
			mcpCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// importCmd creates the import command.
func importCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a transcript file (.json, .yaml, .yml) as a new meeting",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("path is required"))
			}
			output, err := ops.Import(e.db, ops.ImportInput{Path: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List meetings, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Offset for pagination"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(e.db, ops.ListInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a meeting and its transcript",
		ArgsUsage: "<meeting-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-transcript", Usage: "Exclude the transcript from output"},
		},
		Action: func(c *cli.Context) error {
			input := ops.FetchInput{ID: c.Args().First()}
			if c.Bool("no-transcript") {
				includeTranscript := false
				input.IncludeTranscript = &includeTranscript
			}
			output, err := ops.Fetch(e.db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a meeting with its chat, summary and vectors",
		ArgsUsage: "<meeting-id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(c.Context, e.storagePipeline(), ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// indexCmd creates the index command.
func indexCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     "Embed a meeting's transcript for question answering",
		ArgsUsage: "<meeting-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Delete and rebuild existing vectors"},
		},
		Action: func(c *cli.Context) error {
			p, err := e.Pipeline()
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Index(c.Context, p, ops.IndexInput{
				MeetingID: c.Args().First(),
				Force:     c.Bool("force"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// askCmd creates the ask command.
func askCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a question about a meeting (query may be piped via stdin)",
		ArgsUsage: "<meeting-id> [query]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Usage: "Snippets to retrieve (default from config)"},
		},
		Action: func(c *cli.Context) error {
			query := strings.TrimSpace(strings.Join(c.Args().Tail(), " "))
			if query == "" && stdinHasData() {
				text, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				query = text
			}

			p, err := e.Pipeline()
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Ask(c.Context, p, ops.AskInput{
				MeetingID: c.Args().First(),
				Query:     query,
				TopK:      c.Int("top-k"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Show a meeting's chat, oldest first",
		ArgsUsage: "<meeting-id>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultHistoryLimit, Usage: "Most recent messages to show"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ChatHistory(e.db, ops.HistoryInput{
				MeetingID: c.Args().First(),
				Limit:     c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// summarizeCmd creates the summarize command.
func summarizeCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "summarize",
		Usage:     "Summarize a meeting and list its action items",
		ArgsUsage: "<meeting-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "regenerate", Aliases: []string{"r"}, Usage: "Ignore the stored summary"},
		},
		Action: func(c *cli.Context) error {
			p, err := e.Pipeline()
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Summarize(c.Context, p, ops.SummarizeInput{
				MeetingID:  c.Args().First(),
				Regenerate: c.Bool("regenerate"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// renameSpeakerCmd creates the rename-speaker command.
func renameSpeakerCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "rename-speaker",
		Usage:     "Rename or recolor a speaker, then reindex the meeting",
		ArgsUsage: "<meeting-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "speaker", Aliases: []string{"s"}, Required: true, Usage: "Speaker ID"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New display name"},
			&cli.StringFlag{Name: "color", Usage: "New display color"},
		},
		Action: func(c *cli.Context) error {
			input := ops.UpdateSpeakerInput{
				MeetingID: c.Args().First(),
				SpeakerID: c.String("speaker"),
			}
			if c.IsSet("name") {
				name := c.String("name")
				input.Name = &name
			}
			if c.IsSet("color") {
				color := c.String("color")
				input.Color = &color
			}

			p, err := e.Pipeline()
			if err != nil {
				return outputError(err)
			}
			output, err := ops.UpdateSpeaker(c.Context, p, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// reassignSegmentCmd creates the reassign-segment command.
func reassignSegmentCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "reassign-segment",
		Usage:     "Attribute a transcript segment to another speaker, then reindex",
		ArgsUsage: "<meeting-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "segment", Required: true, Usage: "Segment ID"},
			&cli.StringFlag{Name: "speaker", Aliases: []string{"s"}, Required: true, Usage: "Speaker ID"},
		},
		Action: func(c *cli.Context) error {
			p, err := e.Pipeline()
			if err != nil {
				return outputError(err)
			}
			output, err := ops.ReassignSegment(c.Context, p, ops.ReassignSegmentInput{
				MeetingID: c.Args().First(),
				SegmentID: c.String("segment"),
				SpeakerID: c.String("speaker"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// recordCmd creates the record command.
func recordCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: "Record audio until interrupted and save it as WAV",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(capture.ModeMicrophone), Usage: "Capture mode: microphone|meeting"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output .wav path (default: ~/.murmur/recordings)"},
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Register the recording as a meeting with this title"},
			&cli.DurationFlag{Name: "max-duration", Usage: "Stop automatically after this long (0 means until interrupted)"},
		},
		Action: func(c *cli.Context) error {
			mode, err := capture.ParseMode(c.String("mode"))
			if err != nil {
				return outputError(err)
			}

			devices, err := native.Open(e.log)
			if err != nil {
				return outputError(err)
			}
			defer devices.Close()

			halted := make(chan error, 1)
			rec := capture.NewRecorder(devices, capture.Options{
				Mode:       mode,
				SampleRate: e.cfg.Audio.SampleRate,
				Channels:   e.cfg.Audio.Channels,
				Log:        e.log,
				OnError: func(err error) {
					select {
					case halted <- err:
					default:
					}
				},
			})

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			startedAt := time.Now()
			if err := rec.Start(ctx); err != nil {
				return outputError(err)
			}
			if mode == capture.ModeMeeting && !rec.DisplayAudio() {
				e.log.Warnf("shared source has no audio; recording microphone only")
			}
			fmt.Fprintln(os.Stderr, "Recording. Press Ctrl+C to stop.")

			reason, failure := awaitStop(ctx, halted, c.Duration("max-duration"))
			e.log.Infof("recording stopped: %s", reason)
			if failure != nil {
				if err := rec.Err(); err != nil {
					failure = err
				}
				return outputError(failure)
			}

			blob, err := rec.Stop()
			if err != nil {
				return outputError(err)
			}

			title := c.String("title")
			path := c.String("out")
			if path == "" {
				name := title
				if name == "" {
					name = "recording"
				}
				path = ops.DefaultRecordingPath(filepath.Join(e.baseDir, db.RecordingsDir), name, startedAt)
			}

			output, err := ops.SaveRecording(e.db, ops.SaveRecordingInput{
				Path:       path,
				Blob:       blob,
				DurationMs: rec.DurationMs(),
				Title:      title,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// awaitStop blocks until ctx ends, the recorder halts on its own or limit
// elapses, and names the cause. A halt other than the end of screen sharing
// is returned as the failure that aborted the recording.
func awaitStop(ctx context.Context, halted <-chan error, limit time.Duration) (string, error) {
	var timeout <-chan time.Time
	if limit > 0 {
		timer := time.NewTimer(limit)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-ctx.Done():
		return "interrupted", nil
	case err := <-halted:
		if errors.Is(err, errors.ErrScreenShareEnded) {
			return "screen sharing ended", nil
		}
		return "recording failed", err
	case <-timeout:
		return "max duration reached", nil
	}
}

// serveCmd creates the serve command.
func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the meeting JSON API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8080, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			p, err := e.Pipeline()
			if err != nil {
				return outputError(err)
			}
			srv := web.NewServer(p, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv, e.log)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			p, err := e.Pipeline()
			if err != nil {
				return outputError(err)
			}
			return mcp.Run(p, e.cfg, Version)
		},
	}
}

// outputJSON outputs data as formatted JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if murmurErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", murmurErr.Code, murmurErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
