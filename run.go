// Copyright 2020-2022 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package mkvtool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mkvtool/pkg/chapters"
	"mkvtool/pkg/config"
	"mkvtool/pkg/demux"
	"mkvtool/pkg/log"
	"mkvtool/pkg/matroska"
	"mkvtool/pkg/mmio"
	"mkvtool/pkg/mux"
	"mkvtool/pkg/packetizer"
	"mkvtool/pkg/packetizer/aac"
	"mkvtool/pkg/system"
	"mkvtool/pkg/tags"
)

// Errors.
var (
	ErrUnknownFormat  = errors.New("unknown input format")
	ErrAppendMismatch = errors.New("appended input has a different number of tracks")
)

// input is an opened input file.
type input struct {
	config.Input
	stream      mmio.Stream
	size        int64
	packetizers []packetizer.Packetizer
	file        *demux.File // Matroska inputs only.
}

// Run muxes the job. The logger may be nil.
func Run(ctx context.Context, job *config.Job, logger *log.Logger) (*mux.Result, error) {
	opts, err := job.MuxOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = logger
	opts.UIDs = matroska.NewUIDs()

	inputs, err := openInputs(job, logger)
	defer func() {
		for _, in := range inputs {
			in.stream.Close()
		}
	}()
	if err != nil {
		return nil, err
	}

	tracks, err := appendInputs(inputs)
	if err != nil {
		return nil, err
	}

	if opts.Chapters, opts.Tags, err = loadMetadata(job, inputs, opts.UIDs, logger); err != nil {
		return nil, err
	}
	if opts.Attachments, err = loadAttachments(job); err != nil {
		return nil, err
	}

	var outputs mux.Outputs = mux.NullOutputs{}
	if !job.DryRun {
		if err := preflight(ctx, job, inputs, logger); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(job.Output), 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
		outputs = mux.FileOutputs{Path: job.Output, Split: opts.Split.Mode != mux.SplitNone}
	}

	m, err := mux.New(outputs, opts)
	if err != nil {
		return nil, err
	}
	for _, p := range tracks {
		t, err := m.AddTrack(p)
		if err != nil {
			return nil, err
		}
		logger.Debug().Src("app").Msgf("track %d: %v", t.Number, t.CodecID)
	}

	res, err := m.Run(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range res.Files {
		logger.Info().Src("app").File(f.Name).
			Msgf("wrote %v in %d clusters", system.FormatSize(f.Size), len(f.Clusters))
	}
	return res, nil
}

// openInputs opens and probes every input. The returned inputs
// must be closed even if an error is returned.
func openInputs(job *config.Job, logger *log.Logger) ([]*input, error) {
	var inputs []*input
	for _, cfg := range job.Inputs {
		f, err := mmio.OpenFile(cfg.Path, mmio.ReadOnly)
		if err != nil {
			return inputs, err
		}
		in := &input{Input: cfg, stream: mmio.NewReadBuffer(f, mmio.DefaultWindow, true)}
		inputs = append(inputs, in)

		if in.size, err = f.Size(); err != nil {
			return inputs, err
		}
		if err := in.probe(); err != nil {
			return inputs, fmt.Errorf("%v: %w", cfg.Path, err)
		}
		for _, p := range in.packetizers {
			if cfg.Language != "" {
				p.Track().Language = cfg.Language
			}
			if cfg.Name != "" {
				p.Track().Name = cfg.Name
			}
		}
		logger.Info().Src("app").File(cfg.Path).Msgf("%d tracks", len(in.packetizers))
	}
	return inputs, nil
}

func (in *input) probe() error {
	switch {
	case demux.Probe(in.stream):
		f, err := demux.Open(in.stream)
		if err != nil {
			return err
		}
		ps, err := f.Packetizers(in.Tracks...)
		if err != nil {
			return err
		}
		in.file = f
		in.packetizers = ps

	case aac.Probe(in.stream):
		p, err := aac.New(in.stream)
		if err != nil {
			return err
		}
		in.packetizers = []packetizer.Packetizer{p}

	default:
		return ErrUnknownFormat
	}
	return nil
}

// appendInputs joins the tracks of appended inputs with the
// tracks of the input before them.
func appendInputs(inputs []*input) ([]packetizer.Packetizer, error) {
	var groups [][][]packetizer.Packetizer
	for _, in := range inputs {
		if !in.Append {
			group := make([][]packetizer.Packetizer, len(in.packetizers))
			for i, p := range in.packetizers {
				group[i] = []packetizer.Packetizer{p}
			}
			groups = append(groups, group)
			continue
		}
		group := groups[len(groups)-1]
		if len(in.packetizers) != len(group) {
			return nil, fmt.Errorf("%w: %v has %d, expected %d",
				ErrAppendMismatch, in.Path, len(in.packetizers), len(group))
		}
		for i, p := range in.packetizers {
			group[i] = append(group[i], p)
		}
	}

	var ret []packetizer.Packetizer
	for _, group := range groups {
		for _, parts := range group {
			p, err := packetizer.Append(parts[0], parts[1:]...)
			if err != nil {
				return nil, err
			}
			ret = append(ret, p)
		}
	}
	return ret, nil
}

// loadMetadata merges the chapters of Matroska inputs with the
// chapter and tag documents of the job. Broken documents are
// skipped with a warning unless the job fails fast.
func loadMetadata(
	job *config.Job,
	inputs []*input,
	uids *matroska.UIDs,
	logger *log.Logger,
) (*chapters.Chapters, *tags.Tags, error) {
	all := &chapters.Chapters{}
	for _, in := range inputs {
		if in.file == nil || in.Append || in.file.Chapters.Empty() {
			continue
		}
		all.Merge(in.file.Chapters.Clone(), 0, uids)
	}

	var t *tags.Tags
	recoverable := func(err error) error {
		if job.FailFast {
			return err
		}
		logger.Warn().Src("app").Msgf("skipped: %v", err)
		return nil
	}

	if job.Chapters != "" {
		doc, err := parseChapters(job, uids)
		if err != nil {
			if err := recoverable(err); err != nil {
				return nil, nil, err
			}
		} else {
			remap := all.Merge(doc.Chapters, 0, uids)
			if doc.Tags != nil {
				doc.Tags.RemapChapterUIDs(remap)
				t = doc.Tags
			}
			logger.Info().Src("app").File(job.Chapters).Msgf("%v chapters", doc.Format)
		}
	}

	if job.Tags != "" {
		parsed, err := parseTags(job.Tags)
		if err != nil {
			if err := recoverable(err); err != nil {
				return nil, nil, err
			}
		} else {
			if t == nil {
				t = &tags.Tags{}
			}
			t.Merge(parsed)
		}
	}

	if all.Empty() {
		all = nil
	}
	return all, t, nil
}

func parseChapters(job *config.Job, uids *matroska.UIDs) (*chapters.Document, error) {
	f, err := os.Open(job.Chapters)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", chapters.ErrChapterParse, err)
	}
	defer f.Close()
	return chapters.Parse(f, filepath.Base(job.Chapters), chapters.Options{
		Language: job.ChapterLanguage,
		UIDs:     uids,
	})
}

func parseTags(path string) (*tags.Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tags.ErrParse, err)
	}
	defer f.Close()
	return tags.ParseXML(mmio.NewTextReader(f), filepath.Base(path))
}

func loadAttachments(job *config.Job) ([]mux.Attachment, error) {
	var ret []mux.Attachment
	for _, a := range job.Attachments {
		data, err := os.ReadFile(a.Path)
		if err != nil {
			return nil, fmt.Errorf("attachment: %w", err)
		}
		ret = append(ret, mux.Attachment{
			Name:        a.Name,
			MimeType:    a.MimeType,
			Description: a.Description,
			Data:        data,
		})
	}
	return ret, nil
}

// preflight checks that the output disk can hold a copy of the inputs.
func preflight(ctx context.Context, job *config.Job, inputs []*input, logger *log.Logger) error {
	reserve, err := config.ParseSize(job.MinFreeSpace)
	if err != nil {
		return err
	}
	var need int64
	for _, in := range inputs {
		need += in.size
	}
	return system.NewDisk(logger).Check(ctx, job.Output, need, reserve)
}
