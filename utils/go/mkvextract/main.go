// Mkvextract extracts tracks, chapters, tags and attachments from Matroska files.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"mkvtool/pkg/chapters"
	"mkvtool/pkg/demux"
	"mkvtool/pkg/mmio"
	"mkvtool/pkg/system"

	"github.com/alecthomas/kong"
)

var CLI struct {
	Info        InfoCmd        `cmd:"" help:"Print tracks, chapters and attachments."`
	Tracks      TracksCmd      `cmd:"" help:"Extract the frames of a track."`
	Chapters    ChaptersCmd    `cmd:"" help:"Extract chapters as XML."`
	Tags        TagsCmd        `cmd:"" help:"Extract tags as XML."`
	Attachments AttachmentsCmd `cmd:"" help:"Extract attachments."`
}

// InfoCmd prints a summary of a file.
type InfoCmd struct {
	File string `arg:"" help:"Matroska file." type:"existingfile"`
}

// Run .
func (c *InfoCmd) Run(ctx *kong.Context) error {
	return withFile(c.File, func(f *demux.File) error {
		fmt.Fprintf(ctx.Stdout, "doc type: %v\n", f.DocType)
		if f.Info.Title != "" {
			fmt.Fprintf(ctx.Stdout, "title: %v\n", f.Info.Title)
		}
		fmt.Fprintf(ctx.Stdout, "duration: %v\n", chapters.FormatTimestamp(f.Duration()))
		for _, t := range f.Tracks {
			fmt.Fprintf(ctx.Stdout, "track %d: %v %v %q\n", t.Number, t.CodecID, t.Language, t.Name)
		}
		count := 0
		f.Chapters.Walk(func(*chapters.Edition, *chapters.Atom) { count++ })
		fmt.Fprintf(ctx.Stdout, "chapters: %d\n", count)
		for _, a := range f.Attachments {
			fmt.Fprintf(ctx.Stdout, "attachment %d: %v %v %v\n",
				a.UID, a.Name, a.MimeType, system.FormatSize(int64(len(a.Data))))
		}
		return nil
	})
}

// TracksCmd extracts one or more tracks.
type TracksCmd struct {
	File   string   `arg:"" help:"Matroska file." type:"existingfile"`
	Tracks []string `arg:"" help:"Tracks as <number>:<output file>."`
}

// Run .
func (c *TracksCmd) Run(ctx *kong.Context) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return withFile(c.File, func(f *demux.File) error {
		for _, spec := range c.Tracks {
			number, path, err := parseTarget(spec)
			if err != nil {
				return err
			}
			err = createFile(path, func(w io.Writer) error {
				count, err := f.ExtractTrack(sigCtx, number, w)
				if err != nil {
					return err
				}
				fmt.Fprintf(ctx.Stdout, "track %d: %d frames to %v\n", number, count, path)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ChaptersCmd extracts chapters.
type ChaptersCmd struct {
	File   string `arg:"" help:"Matroska file." type:"existingfile"`
	Output string `short:"o" help:"Output file, defaults to stdout." type:"path"`
}

// Run .
func (c *ChaptersCmd) Run(ctx *kong.Context) error {
	return withFile(c.File, func(f *demux.File) error {
		return output(ctx, c.Output, f.ExtractChapters)
	})
}

// TagsCmd extracts tags.
type TagsCmd struct {
	File   string `arg:"" help:"Matroska file." type:"existingfile"`
	Output string `short:"o" help:"Output file, defaults to stdout." type:"path"`
}

// Run .
func (c *TagsCmd) Run(ctx *kong.Context) error {
	return withFile(c.File, func(f *demux.File) error {
		return output(ctx, c.Output, f.ExtractTags)
	})
}

// AttachmentsCmd extracts attachments.
type AttachmentsCmd struct {
	File string `arg:"" help:"Matroska file." type:"existingfile"`

	// Empty extracts all attachments into Dir by name.
	Attachments []string `arg:"" optional:"" help:"Attachments as <uid>:<output file>."`
	Dir         string   `help:"Output directory when extracting all." default:"." type:"path"`
}

// Run .
func (c *AttachmentsCmd) Run(ctx *kong.Context) error {
	return withFile(c.File, func(f *demux.File) error {
		targets := map[uint64]string{}
		var order []uint64
		for _, spec := range c.Attachments {
			uid, path, err := parseTarget(spec)
			if err != nil {
				return err
			}
			targets[uid] = path
			order = append(order, uid)
		}
		if len(order) == 0 {
			for _, a := range f.Attachments {
				targets[a.UID] = filepath.Join(c.Dir, filepath.Base(a.Name))
				order = append(order, a.UID)
			}
		}

		for _, uid := range order {
			path := targets[uid]
			err := createFile(path, func(w io.Writer) error {
				return f.ExtractAttachment(uid, w)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(ctx.Stdout, "attachment %d to %v\n", uid, path)
		}
		return nil
	})
}

func withFile(path string, fn func(*demux.File) error) error {
	file, err := mmio.OpenFile(path, mmio.ReadOnly)
	if err != nil {
		return err
	}
	defer file.Close()

	f, err := demux.Open(mmio.NewReadBuffer(file, mmio.DefaultWindow, false))
	if err != nil {
		return fmt.Errorf("%v: %w", path, err)
	}
	return fn(f)
}

// parseTarget parses "<id>:<path>".
func parseTarget(spec string) (uint64, string, error) {
	idStr, path, ok := strings.Cut(spec, ":")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if !ok || err != nil || path == "" {
		return 0, "", fmt.Errorf("invalid target %q, expected <id>:<file>", spec)
	}
	return id, path, nil
}

func createFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func output(ctx *kong.Context, path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(ctx.Stdout)
	}
	return createFile(path, fn)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("mkvextract"),
		kong.Description("Extract tracks, chapters, tags and attachments from Matroska files."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
