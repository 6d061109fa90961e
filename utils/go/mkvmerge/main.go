// Mkvmerge muxes AAC and Matroska inputs into Matroska or WebM files.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"mkvtool"
	"mkvtool/pkg/chapters"
	"mkvtool/pkg/config"
	"mkvtool/pkg/log"
	"mkvtool/pkg/system"

	"github.com/alecthomas/kong"
)

var CLI struct {
	Inputs []string `arg:"" optional:"" help:"Input files. Prefix a file with + to append it to the previous input."`

	Job    string `help:"Job file, other flags are ignored." type:"existingfile"`
	Output string `short:"o" help:"Output file." type:"path"`

	WebM      bool   `name:"webm" help:"Write WebM."`
	Title     string `help:"Segment title."`
	Split     string `help:"Split mode: size:<n>[KMG], duration:<d>, timestamps:<t1>,<t2>... or chapters:all."`
	MaxFiles  int    `name:"split-max-files" help:"Stop splitting after this many files."`
	NoLinking bool   `help:"Don't link split files."`

	Chapters        string   `help:"Chapter file: XML, OGM or cue sheet." type:"existingfile"`
	ChapterLanguage string   `help:"Language of simple and cue sheet chapters."`
	Tags            string   `help:"Tag XML file." type:"existingfile"`
	Attach          []string `help:"Attach a file." type:"existingfile"`
	Language        string   `help:"Language of all input tracks."`

	ClusterLength string `help:"Maximum cluster duration."`
	NoCues        bool   `help:"Don't write cues."`
	FailFast      bool   `help:"Fail on broken chapter and tag files."`
	DryRun        bool   `help:"Mux without writing any files."`
	MinFreeSpace  string `help:"Disk space to leave free." default:"${minFreeSpace}"`

	LogDB   string `name:"log-db" help:"Also save logs to this database." type:"path"`
	Verbose bool   `short:"v" help:"Print debug logs."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("mkvmerge"),
		kong.Description("Mux AAC and Matroska files into Matroska or WebM."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"minFreeSpace": config.DefaultMinFreeSpace},
	)
	kctx.FatalIfErrorf(run())
}

func run() error {
	job, err := newJob()
	if err != nil {
		return err
	}

	wg := &sync.WaitGroup{}
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		wg.Wait()
	}()

	logger := log.NewLogger(wg)
	logger.Start(ctx)
	level := log.LevelInfo
	if CLI.Verbose {
		level = log.LevelDebug
	}
	go logger.LogToWriter(ctx, os.Stderr, level)

	if CLI.LogDB != "" {
		logDB := log.NewDB(CLI.LogDB, wg)
		if err := logDB.Init(ctx); err != nil {
			return fmt.Errorf("could not create log database: %w", err)
		}
		go logDB.SaveLogs(ctx, logger)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-stop:
			logger.Info().Src("app").Msgf("received %v, stopping", s)
			cancel()
		case <-ctx.Done():
		}
	}()

	res, err := mkvtool.Run(ctx, job, logger)
	if err != nil {
		return err
	}
	for _, f := range res.Files {
		fmt.Printf("%v\t%v\t%v\n", f.Name, system.FormatSize(f.Size), chapters.FormatTimestamp(f.End-f.Start))
	}
	return nil
}

func newJob() (*config.Job, error) {
	if CLI.Job != "" {
		return config.Load(CLI.Job)
	}
	if len(CLI.Inputs) == 0 {
		return nil, errors.New("no inputs, see --help")
	}

	job := &config.Job{
		Output:          CLI.Output,
		WebM:            CLI.WebM,
		Title:           CLI.Title,
		Split:           CLI.Split,
		SplitMaxFiles:   CLI.MaxFiles,
		NoLinking:       CLI.NoLinking,
		Chapters:        CLI.Chapters,
		ChapterLanguage: CLI.ChapterLanguage,
		Tags:            CLI.Tags,
		ClusterLength:   CLI.ClusterLength,
		DisableCues:     CLI.NoCues,
		FailFast:        CLI.FailFast,
		DryRun:          CLI.DryRun,
		MinFreeSpace:    CLI.MinFreeSpace,
	}
	for _, path := range CLI.Inputs {
		in := config.Input{Path: path, Language: CLI.Language}
		if strings.HasPrefix(path, "+") {
			in.Path = path[1:]
			in.Append = true
		}
		job.Inputs = append(job.Inputs, in)
	}
	for _, path := range CLI.Attach {
		job.Attachments = append(job.Attachments, config.Attachment{Path: path})
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if err := job.Prepare(wd); err != nil {
		return nil, err
	}
	return job, nil
}
