// Package app drives an inspection session: a selection phase on a reference
// image followed by one or more detection runs on a target image.
package app

import (
	"errors"
	"fmt"
	goimage "image"
	"image/color"
	"sync"

	"swatch-inspector/internal/image"
	"swatch-inspector/internal/pattern"

	"gocv.io/x/gocv"
)

// Phase is the lifecycle position of a session.
type Phase int

const (
	PhaseIdle      Phase = iota // No reference loaded
	PhaseSelecting              // Accepting samples
	PhaseReady                  // Selection finished, detection allowed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSelecting:
		return "selecting"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

var (
	ErrNoReference  = errors.New("no reference image loaded")
	ErrNoTarget     = errors.New("no target image loaded")
	ErrNotSelecting = errors.New("selection is not active")
	ErrOutOfBounds  = errors.New("point outside reference image")
	ErrNoResult     = errors.New("no detection result")
)

// EventType identifies session events.
type EventType int

const (
	EventReferenceLoaded EventType = iota
	EventTargetLoaded
	EventPatternsReset
	EventPatternAdded
	EventPatternRemoved
	EventSelectionFinished
	EventDetectionComplete
	EventResultSaved
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// PatternAdded is the payload of EventPatternAdded.
type PatternAdded struct {
	Point  goimage.Point     // Click position, or (-1,-1) for explicit colours
	Window goimage.Rectangle // Sampled window on the reference
	Sample pattern.Sample
	Band   pattern.Band
	Count  int
}

// Session holds the images, the detector and the last result.
type Session struct {
	mu sync.RWMutex

	detector  *pattern.Detector
	reference *image.Layer
	refWork   gocv.Mat // reference in the working space
	target    *image.Layer
	result    *pattern.Result
	phase     Phase
	markers   []*goimage.Rectangle // one per pattern, nil for explicit colours

	listeners map[EventType][]EventListener
}

// NewSession creates an idle session using the given policy.
func NewSession(p pattern.Params) *Session {
	return &Session{
		detector:  pattern.NewDetector(p),
		refWork:   gocv.NewMat(),
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Params returns the session's detection policy.
func (s *Session) Params() pattern.Params {
	return s.detector.Params()
}

// LoadReference loads the image patterns are sampled from and starts a new
// selection.
func (s *Session) LoadReference(path string) error {
	layer, err := image.Load(path)
	if err != nil {
		return err
	}
	s.SetReference(layer)
	return nil
}

// SetReference installs a reference layer, taking ownership of it, and starts
// a new selection.
func (s *Session) SetReference(layer *image.Layer) {
	work := s.detector.Prepare(layer.Mat)

	s.mu.Lock()
	s.reference.Close()
	s.refWork.Close()
	s.reference = layer
	s.refWork = work
	s.mu.Unlock()

	s.Emit(EventReferenceLoaded, layer)
	s.BeginSelection()
}

// LoadTarget loads the image detection runs on.
func (s *Session) LoadTarget(path string) error {
	layer, err := image.Load(path)
	if err != nil {
		return err
	}
	s.SetTarget(layer)
	return nil
}

// SetTarget installs a target layer, taking ownership of it. Any previous
// result is discarded.
func (s *Session) SetTarget(layer *image.Layer) {
	s.mu.Lock()
	s.target.Close()
	s.target = layer
	s.result.Close()
	s.result = nil
	s.mu.Unlock()

	s.Emit(EventTargetLoaded, layer)
}

// BeginSelection clears the pattern store and accepts samples again.
func (s *Session) BeginSelection() error {
	s.mu.Lock()
	if s.reference == nil {
		s.mu.Unlock()
		return ErrNoReference
	}
	s.detector.Store().Reset()
	s.markers = nil
	s.phase = PhaseSelecting
	s.mu.Unlock()

	s.Emit(EventPatternsReset, nil)
	return nil
}

// AddSampleAt samples the reference around (x, y) and stores the band built
// from it. Points outside the reference are rejected here so the sampler only
// ever sees valid coordinates.
func (s *Session) AddSampleAt(x, y int) (PatternAdded, error) {
	s.mu.Lock()
	if s.phase != PhaseSelecting {
		s.mu.Unlock()
		return PatternAdded{}, ErrNotSelecting
	}
	if !s.reference.Contains(x, y) {
		s.mu.Unlock()
		return PatternAdded{}, fmt.Errorf("%w: (%d,%d) not in %dx%d", ErrOutOfBounds,
			x, y, s.reference.Width(), s.reference.Height())
	}

	sample := s.detector.Sample(s.refWork, x, y)
	band := s.detector.AddSample(sample)
	window := pattern.SampleRect(s.reference.Width(), s.reference.Height(), x, y, s.detector.Params().SampleRadius)
	s.markers = append(s.markers, &window)
	added := PatternAdded{
		Point:  goimage.Pt(x, y),
		Window: window,
		Sample: sample,
		Band:   band,
		Count:  s.detector.Store().Len(),
	}
	s.mu.Unlock()

	s.Emit(EventPatternAdded, added)
	return added, nil
}

// AddColor stores the band of an explicit colour as if it had been sampled.
func (s *Session) AddColor(c color.Color) (PatternAdded, error) {
	s.mu.Lock()
	if s.phase != PhaseSelecting {
		s.mu.Unlock()
		return PatternAdded{}, ErrNotSelecting
	}
	sample, band := s.detector.AddColor(c)
	s.markers = append(s.markers, nil)
	added := PatternAdded{
		Point:  goimage.Pt(-1, -1),
		Sample: sample,
		Band:   band,
		Count:  s.detector.Store().Len(),
	}
	s.mu.Unlock()

	s.Emit(EventPatternAdded, added)
	return added, nil
}

// UndoLast removes the most recent pattern.
func (s *Session) UndoLast() bool {
	s.mu.Lock()
	if s.phase != PhaseSelecting || !s.detector.Store().RemoveLast() {
		s.mu.Unlock()
		return false
	}
	if n := len(s.markers); n > 0 {
		s.markers = s.markers[:n-1]
	}
	count := s.detector.Store().Len()
	s.mu.Unlock()

	s.Emit(EventPatternRemoved, count)
	return true
}

// FinishSelection ends the selection phase and returns the number of
// patterns selected.
func (s *Session) FinishSelection() (int, error) {
	s.mu.Lock()
	if s.phase == PhaseIdle {
		s.mu.Unlock()
		return 0, ErrNoReference
	}
	s.phase = PhaseReady
	count := s.detector.Store().Len()
	s.mu.Unlock()

	s.Emit(EventSelectionFinished, count)
	return count, nil
}

// Detect runs detection on the target. A selection still in progress is
// finished first. Detect may be repeated; each call replaces the previous
// result.
func (s *Session) Detect() (*pattern.Result, error) {
	s.mu.RLock()
	phase := s.phase
	s.mu.RUnlock()
	if phase == PhaseSelecting {
		if _, err := s.FinishSelection(); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	if s.target == nil {
		s.mu.Unlock()
		return nil, ErrNoTarget
	}
	result := s.detector.Run(s.target.Mat)
	s.result.Close()
	s.result = result
	s.mu.Unlock()

	s.Emit(EventDetectionComplete, result)
	return result, nil
}

// SaveResult writes the highlighted image of the last detection.
func (s *Session) SaveResult(path string) error {
	return s.save(path, func(r *pattern.Result) gocv.Mat { return r.Output })
}

// SaveMask writes the mask of the last detection.
func (s *Session) SaveMask(path string) error {
	return s.save(path, func(r *pattern.Result) gocv.Mat { return r.Mask })
}

func (s *Session) save(path string, pick func(*pattern.Result) gocv.Mat) error {
	s.mu.RLock()
	result := s.result
	if result == nil {
		s.mu.RUnlock()
		return ErrNoResult
	}
	err := image.Save(path, pick(result))
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	s.Emit(EventResultSaved, path)
	return nil
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Patterns returns the selected bands.
func (s *Session) Patterns() []pattern.Band {
	return s.detector.Store().All()
}

// Markers returns the sampled windows of clicked patterns on the reference,
// in selection order.
func (s *Session) Markers() []goimage.Rectangle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]goimage.Rectangle, 0, len(s.markers))
	for _, m := range s.markers {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out
}

// Reference returns the reference layer, or nil.
func (s *Session) Reference() *image.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reference
}

// Target returns the target layer, or nil.
func (s *Session) Target() *image.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target
}

// Result returns the last detection result, or nil.
func (s *Session) Result() *pattern.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Close releases every Mat held by the session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result.Close()
	s.result = nil
	if s.target != s.reference {
		s.target.Close()
	}
	s.target = nil
	s.reference.Close()
	s.reference = nil
	s.refWork.Close()
}
