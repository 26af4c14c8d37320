// Package export extracts raw clips for completed swing sequences from the
// simulator capture buffer and records their disposition in the datastore.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/screener/screener-go/internal/conf"
	"github.com/screener/screener-go/internal/datastore"
	"github.com/screener/screener-go/internal/errors"
	"github.com/screener/screener-go/internal/events"
	"github.com/screener/screener-go/internal/logging"
	"github.com/screener/screener-go/internal/video"
)

// Exporter consumes sequence completion events and writes .uyvy clips. It
// implements events.Consumer so extraction runs on the bus workers, off the
// realtime processing loop.
type Exporter struct {
	buffer   *video.CaptureBuffer
	store    datastore.Interface
	path     string
	preRoll  time.Duration
	postRoll time.Duration
	log      *slog.Logger
}

// New creates an exporter. The datastore may be nil; export then proceeds
// without status bookkeeping.
func New(settings *conf.Settings, buffer *video.CaptureBuffer, store datastore.Interface) *Exporter {
	exp := settings.Realtime.Export
	return &Exporter{
		buffer:   buffer,
		store:    store,
		path:     exp.Path,
		preRoll:  time.Duration(exp.PreRollSeconds * float64(time.Second)),
		postRoll: time.Duration(exp.PostRollSeconds * float64(time.Second)),
		log:      logging.ForService("export"),
	}
}

// Name identifies the consumer on the event bus.
func (e *Exporter) Name() string { return "export" }

// ProcessEvent extracts a clip for each completed sequence.
func (e *Exporter) ProcessEvent(ev events.Event) error {
	completed, ok := ev.(events.SequenceCompleted)
	if !ok {
		return nil
	}
	return e.exportSequence(completed)
}

func (e *Exporter) exportSequence(seq events.SequenceCompleted) error {
	e.setStatus(seq, statusExtracting, "")

	start := seq.InPoint.Add(-e.preRoll)
	end := seq.OutPoint.Add(e.postRoll)

	data, frames, err := e.buffer.ReadSegment(start, end)
	if err != nil {
		e.setStatus(seq, statusFailed, "")
		return errors.New(fmt.Errorf("segment read failed: %w", err)).
			Component("export").
			Category(errors.CategoryExport).
			Context("sequence", seq.Number).
			Build()
	}

	clipPath, err := e.writeClip(seq, data)
	if err != nil {
		e.setStatus(seq, statusFailed, "")
		return err
	}

	e.setStatus(seq, statusCompleted, clipPath)
	e.log.Info("exported swing clip",
		"sequence", seq.Number,
		"session", seq.SessionID,
		"frames", frames,
		"path", clipPath)
	return nil
}

// Status strings mirror the sequence recorder's export lifecycle.
const (
	statusExtracting = "extracting"
	statusCompleted  = "completed"
	statusFailed     = "failed"
)

func (e *Exporter) writeClip(seq events.SequenceCompleted, data []byte) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Context("path", e.path).
			Build()
	}

	name := fmt.Sprintf("%s_swing_%03d.uyvy", seq.SessionID, seq.Number)
	clipPath := filepath.Join(e.path, name)

	if err := os.WriteFile(clipPath, data, 0o644); err != nil {
		return "", errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Context("path", clipPath).
			Build()
	}
	return clipPath, nil
}

func (e *Exporter) setStatus(seq events.SequenceCompleted, status, clipPath string) {
	if e.store == nil {
		return
	}
	if err := e.store.UpdateSequenceExport(seq.SessionID, seq.Number, status, clipPath); err != nil {
		e.log.Warn("failed to update sequence export status",
			"sequence", seq.Number,
			"status", status,
			"error", err)
	}
}
