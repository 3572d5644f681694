// Package batch runs the extraction pipeline over a directory of source
// documents and files the results into the resume.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spigell/resume-keeper/internal/document"
	"github.com/spigell/resume-keeper/internal/extraction"
	"github.com/spigell/resume-keeper/internal/logger"
	"github.com/spigell/resume-keeper/internal/merge"
	"github.com/spigell/resume-keeper/internal/resume"
	"github.com/spigell/resume-keeper/internal/tracking"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Position outcome statuses.
const (
	PositionSuccess          = "success"
	PositionValidationFailed = "validation_failed"
	PositionNotFound         = "position_not_found"
	PositionExtractionFailed = "extraction_failed"
)

type documentReader interface {
	Read(path string) (*document.Document, error)
}

type resumeSaver interface {
	Save(res *resume.Resume) (string, error)
}

// Options controls a batch run.
type Options struct {
	// DryRun merges in memory only. Neither the resume nor the tracking file is written.
	DryRun       bool
	TrackingFile string
}

// Summary totals a batch run. Position and achievement counts cover
// successful documents only.
type Summary struct {
	Success    int `json:"success"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	Positions  int `json:"positions"`
	New        int `json:"new_achievements"`
	Duplicates int `json:"duplicates_skipped"`
}

func (s *Summary) add(r tracking.Record) {
	switch r.Status {
	case tracking.StatusSuccess:
		s.Success++
		s.Positions += r.PositionsProcessed
		s.New += r.TotalNewAchievements
		s.Duplicates += r.TotalDuplicatesSkipped
	case tracking.StatusFailed:
		s.Failed++
	default:
		s.Skipped++
	}
}

type Processor struct {
	reader  documentReader
	service extraction.Service
	merger  *merge.Engine
	filters []Filter
	runID   string
	logger  *zap.Logger
	now     func() time.Time
}

// NewProcessor builds a processor with a fresh run id. Nil filters select
// DefaultFilters.
func NewProcessor(reader documentReader, service extraction.Service, filters []Filter, log *zap.Logger) *Processor {
	if filters == nil {
		filters = DefaultFilters()
	}
	runID := uuid.NewString()
	log = logger.WithFields(log, zap.String(logger.FieldRunID, runID))

	return &Processor{
		reader:  reader,
		service: service,
		merger:  merge.New(log),
		filters: filters,
		runID:   runID,
		logger:  log,
		now:     time.Now,
	}
}

func (p *Processor) RunID() string {
	return p.runID
}

// Scan lists supported files in dir by name, leaving out documents history
// already has as processed. A positive limit caps the list.
func Scan(dir string, history *tracking.History, limit int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning inputs: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !document.Supported(e.Name()) {
			continue
		}
		if history != nil && history.IsProcessed(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}

	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

// Run processes files one by one against res. A document that added
// achievements is checkpointed into the store before it is tracked, so a
// tracked document always has its achievements on disk. A failing document
// never stops the run, a failing save does and leaves the document untracked.
// Cancelling ctx stops before the next document.
func (p *Processor) Run(ctx context.Context, store resumeSaver, res *resume.Resume, files []string, history *tracking.History, opts Options) (Summary, error) {
	var (
		sum  Summary
		errs []error
	)
	if history == nil {
		history = &tracking.History{}
	}

	p.logger.Info("batch started",
		zap.Int("files", len(files)),
		zap.Bool("dry_run", opts.DryRun),
	)

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		p.logger.Info("processing document",
			zap.Int("index", i+1),
			zap.Int("total", len(files)),
			zap.String(logger.FieldFile, filepath.Base(path)),
		)

		rec := p.Document(ctx, res, path)
		sum.add(rec)

		if opts.DryRun {
			continue
		}
		if rec.Status == tracking.StatusSuccess && rec.TotalNewAchievements > 0 {
			backup, err := store.Save(res)
			if err != nil {
				p.logger.Error("saving resume failed, document stays untracked",
					zap.String(logger.FieldFile, rec.Filename),
					zap.Error(err),
				)
				errs = append(errs, fmt.Errorf("saving resume after %s: %w", rec.Filename, err))
				break
			}
			p.logger.Info("resume updated",
				zap.String(logger.FieldFile, rec.Filename),
				zap.String("backup", backup),
			)
		}
		if history.Add(rec) {
			if err := history.Save(opts.TrackingFile, p.now()); err != nil {
				errs = append(errs, fmt.Errorf("saving tracking file: %w", err))
				break
			}
		}
	}

	if opts.DryRun && sum.Success > 0 {
		p.logger.Info("dry run, resume not saved")
	}

	p.logger.Info("batch finished",
		zap.Int("success", sum.Success),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
		zap.Int("positions", sum.Positions),
		zap.Int("new_achievements", sum.New),
		zap.Int("duplicates_skipped", sum.Duplicates),
	)

	return sum, errors.Join(errs...)
}

// Document identifies the positions a file covers, extracts achievements for
// each and merges them into res.
func (p *Processor) Document(ctx context.Context, res *resume.Resume, path string) tracking.Record {
	name := filepath.Base(path)
	log := p.logger.With(logger.DocumentFields(name)...)
	rec := tracking.Record{Filename: name, RunID: p.runID}

	doc, err := p.reader.Read(path)
	if err != nil {
		log.Error("reading document failed", zap.Error(err))
		return failed(rec, p.now, "read error: %v", err)
	}

	analysis, err := p.service.Identify(ctx, doc, extraction.Known(res))
	if err != nil {
		log.Error("identifying positions failed", append([]zap.Field{zap.Error(err)}, rawFields(err)...)...)
		rec.RawResponse = rawResponse(err)
		return failed(rec, p.now, "analysis error: %v", err)
	}

	log.Info("document analysed",
		zap.String("document_type", analysis.DocumentType),
		zap.String("quality", analysis.OverallQuality),
		zap.Int("positions", len(analysis.Positions)),
	)

	if len(analysis.Positions) == 0 {
		return skipped(rec, p.now, "no positions found")
	}

	positions := RunFilters(p.filters, analysis.Positions, log)
	if len(positions) == 0 {
		log.Info("no confident extractable positions")
		return skipped(rec, p.now, "no extractable positions")
	}

	for _, candidate := range positions {
		pr := p.position(ctx, res, doc, describe(res, candidate), log)
		rec.Positions = append(rec.Positions, pr)
		rec.PositionsProcessed++
		if pr.Status == PositionSuccess {
			rec.SuccessfulExtractions++
			rec.TotalNewAchievements += pr.New
			rec.TotalDuplicatesSkipped += pr.Duplicates
		} else {
			rec.FailedExtractions++
		}
	}

	rec.Status = tracking.StatusFailed
	if rec.SuccessfulExtractions > 0 {
		rec.Status = tracking.StatusSuccess
	}
	rec.ProcessedAt = p.now()
	return rec
}

func (p *Processor) position(ctx context.Context, res *resume.Resume, doc *document.Document, desc extraction.Descriptor, log *zap.Logger) tracking.PositionRecord {
	log = log.With(logger.PositionFields(desc.ExperienceID, desc.Title)...)
	pr := tracking.PositionRecord{ExperienceID: desc.ExperienceID, Title: desc.Title}

	result, err := p.service.Extract(ctx, doc, desc)
	var verr *extraction.ValidationError
	switch {
	case errors.As(err, &verr):
		log.Warn("extraction failed validation", zap.Strings("errors", verr.Messages()))
		pr.Status = PositionValidationFailed
		pr.Errors = verr.Messages()
		return pr
	case err != nil:
		log.Error("extraction failed", append([]zap.Field{zap.Error(err)}, rawFields(err)...)...)
		pr.Status = PositionExtractionFailed
		pr.Errors = []string{err.Error()}
		pr.RawResponse = rawResponse(err)
		return pr
	}

	pr.Extracted = len(result.Candidates)

	_, merged, err := p.merger.File(res, desc.Target(), result.Achievements(), doc.Name, merge.StrategyDeduplicate)
	if err != nil {
		pr.Errors = []string{err.Error()}
		if notFound(err) {
			log.Warn("could not file achievements", zap.Error(err))
			pr.Status = PositionNotFound
		} else {
			log.Error("merging achievements failed", zap.Error(err))
			pr.Status = PositionExtractionFailed
		}
		return pr
	}

	pr.Status = PositionSuccess
	pr.New = merged.New
	pr.Duplicates = merged.Duplicates
	return pr
}

// describe fills in employer details the identification answer left out.
func describe(res *resume.Resume, c extraction.PositionCandidate) extraction.Descriptor {
	d := c.Descriptor()
	for _, e := range res.Experience {
		if e.ID != d.ExperienceID {
			continue
		}
		if d.Company == "" {
			d.Company = e.Company
		}
		d.CompanyParent = e.CompanyParent
		break
	}
	return d
}

// rawResponse returns the payload a ServiceError kept, if any.
func rawResponse(err error) string {
	var serr *extraction.ServiceError
	if errors.As(err, &serr) {
		return serr.Raw
	}
	return ""
}

// rawFields logs the offending payload in full so the operator can diagnose it.
func rawFields(err error) []zap.Field {
	if raw := rawResponse(err); raw != "" {
		return []zap.Field{zap.String(logger.FieldRawResponse, raw)}
	}
	return nil
}

func notFound(err error) bool {
	var (
		employer  *resume.EmployerNotFoundError
		position  *resume.PositionNotFoundError
		ambiguous *resume.AmbiguousPositionError
	)
	return errors.As(err, &employer) || errors.As(err, &position) || errors.As(err, &ambiguous)
}

func failed(rec tracking.Record, now func() time.Time, format string, args ...any) tracking.Record {
	rec.Status = tracking.StatusFailed
	rec.Error = fmt.Sprintf(format, args...)
	rec.ProcessedAt = now()
	return rec
}

func skipped(rec tracking.Record, now func() time.Time, reason string) tracking.Record {
	rec.Status = tracking.StatusSkipped
	rec.Reason = reason
	rec.ProcessedAt = now()
	return rec
}
