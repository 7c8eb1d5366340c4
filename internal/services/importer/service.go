// Package importer runs all-or-nothing bulk imports of player lists.
package importer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcoot/dotareg/internal/dependencies/clock"
	"github.com/mcoot/dotareg/internal/dependencies/idgen"
	"github.com/mcoot/dotareg/internal/metrics"
	"github.com/mcoot/dotareg/internal/model"
	"github.com/mcoot/dotareg/internal/services/parser"
	"github.com/mcoot/dotareg/internal/services/validator"
	"github.com/mcoot/dotareg/internal/storage"
)

// ErrNoRows is returned when non-empty input holds no player rows
var ErrNoRows = errors.New("no player rows found in input")

// RuleFormat marks row errors raised while splitting the input
const RuleFormat = "format"

// Options control duplicate handling
type Options struct {
	// SkipDuplicates leaves existing players untouched, overriding UpdateExisting
	SkipDuplicates bool
	// UpdateExisting overwrites the fields of an existing duplicate
	UpdateExisting bool
	// RegistrationSessionID is stamped on inserted players
	RegistrationSessionID model.RegistrationSessionID
}

func (o Options) updates() bool {
	return o.UpdateExisting && !o.SkipDuplicates
}

// Service imports batches of players into a list
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	ids     idgen.Generator
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// New creates a new import service. metrics may be nil.
func New(store storage.Storage, clk clock.Clock, ids idgen.Generator, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		storage: store,
		clock:   clk,
		ids:     ids,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("github.com/mcoot/dotareg/internal/services/importer"),
	}
}

// Import parses raw text in the given format (detected when empty) and imports it
func (s *Service) Import(ctx context.Context, list model.PlayerList, raw string, format parser.Format, opts Options) (*model.ImportResult, error) {
	parsed, err := parser.Parse(raw, format)
	if err != nil {
		return nil, err
	}
	return s.importParsed(ctx, list, parsed, opts)
}

// ImportFile imports an uploaded file, choosing the parser from its extension
func (s *Service) ImportFile(ctx context.Context, list model.PlayerList, filename string, data []byte, opts Options) (*model.ImportResult, error) {
	format, err := parser.FormatFromFilename(filename)
	if err != nil {
		return nil, err
	}
	parsed, err := parser.ParseBytes(data, format)
	if err != nil {
		return nil, err
	}
	return s.importParsed(ctx, list, parsed, opts)
}

// ImportRecords imports already-decoded JSON records
func (s *Service) ImportRecords(ctx context.Context, list model.PlayerList, records []parser.Record, opts Options) (*model.ImportResult, error) {
	if len(records) == 0 {
		return nil, parser.ErrEmptyInput
	}
	return s.importParsed(ctx, list, parser.RecordsToRows(records), opts)
}

func (s *Service) importParsed(ctx context.Context, list model.PlayerList, parsed *parser.Result, opts Options) (*model.ImportResult, error) {
	ctx, span := s.tracer.Start(ctx, "Importer.Import", trace.WithAttributes(
		attribute.String("list", string(list)),
		attribute.Int("rows", len(parsed.Rows)),
		attribute.Bool("skip_duplicates", opts.SkipDuplicates),
		attribute.Bool("update_existing", opts.UpdateExisting),
	))
	defer span.End()

	if !list.Valid() {
		return nil, model.ErrUnknownList
	}

	result := &model.ImportResult{}
	for _, e := range parsed.Errors {
		result.Errors = append(result.Errors, model.ImportError{Line: e.Position, Rule: RuleFormat, Message: e.Message})
	}

	players := make([]model.PlayerDetails, 0, len(parsed.Rows))
	for _, row := range parsed.Rows {
		v := validator.Validate(row.Name, row.Dota2ID, row.MMR, row.Notes, row.Position)
		if !v.Valid {
			result.Errors = append(result.Errors, model.ImportError{
				Line:    row.Position,
				Rule:    v.Reason.Rule,
				Message: v.Message(),
			})
			continue
		}
		players = append(players, v.Player)
	}

	if result.HasErrors() {
		slices.SortStableFunc(result.Errors, func(a, b model.ImportError) int {
			return cmp.Compare(a.Line, b.Line)
		})
		span.SetAttributes(attribute.Int("errors", len(result.Errors)))
		s.metrics.ImportRows(string(list), "rejected", len(parsed.Rows)+len(parsed.Errors))
		return result, nil
	}
	if len(players) == 0 {
		return nil, ErrNoRows
	}

	var counts model.ImportResult
	err := s.storage.RunInTx(ctx, func(ctx context.Context, tx storage.Storage) error {
		counts = model.ImportResult{}
		return s.apply(ctx, tx, list, players, opts, &counts)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "import failed")
		s.logger.ErrorContext(ctx, "import failed", "list", list, "error", err)
		return nil, fmt.Errorf("importing players: %w", err)
	}

	span.SetAttributes(
		attribute.Int("added", counts.Added),
		attribute.Int("updated", counts.Updated),
		attribute.Int("skipped", counts.Skipped),
	)
	s.metrics.ImportRows(string(list), "added", counts.Added)
	s.metrics.ImportRows(string(list), "updated", counts.Updated)
	s.metrics.ImportRows(string(list), "skipped", counts.Skipped)
	s.logger.InfoContext(ctx, "import completed",
		"list", list, "added", counts.Added, "updated", counts.Updated, "skipped", counts.Skipped)

	return &counts, nil
}

// apply writes one validated batch through tx
func (s *Service) apply(ctx context.Context, tx storage.Storage, list model.PlayerList, players []model.PlayerDetails, opts Options, counts *model.ImportResult) error {
	batch := newBatchIndex()
	now := s.clock.Now()

	for i, details := range players {
		stored, err := tx.FindPlayersByIdentity(ctx, list, details.Name, details.Dota2ID)
		if err != nil {
			return err
		}
		matches := batch.resolve(stored, details)

		switch {
		case len(matches) == 0:
			p := &model.Player{
				ID:                    model.PlayerID(s.ids.NewID("p_")),
				List:                  list,
				PlayerDetails:         details,
				RegistrationSessionID: opts.RegistrationSessionID,
				CreatedAt:             now,
				UpdatedAt:             now,
			}
			if err := tx.SavePlayer(ctx, p); err != nil {
				return err
			}
			batch.put(p)
			counts.Added++

		case !opts.updates():
			counts.Skipped++

		case len(matches) > 1:
			// name and id belong to different players; updating either would clash with the other
			s.logger.WarnContext(ctx, "skipping ambiguous duplicate",
				"list", list, "row", i+1, "name", details.Name, "dota2id", details.Dota2ID)
			counts.Skipped++

		default:
			p := *matches[0]
			p.PlayerDetails = details
			p.UpdatedAt = now
			if err := tx.SavePlayer(ctx, &p); err != nil {
				return err
			}
			batch.put(&p)
			counts.Updated++
		}
	}
	return nil
}
