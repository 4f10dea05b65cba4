// Package view keeps a headless copy of what the browser shows: map markers,
// list entries, the open dialogs and pending notices.
package view

import (
	"fmt"
	"math"
	"sync"

	"example.com/workoutlog/internal/domain"
	"example.com/workoutlog/internal/presenter"
)

const maxNotices = 20

// Marker is a placed map marker.
type Marker struct {
	Handle presenter.MarkerHandle `json:"handle"`
	Coords domain.Coords          `json:"coords"`
	Popup  string                 `json:"popup"`
	Class  string                 `json:"class"`
}

// Entry is one rendered list item.
type Entry struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Title     string   `json:"title"`
	Icon      string   `json:"icon"`
	Distance  float64  `json:"distance"`
	Duration  float64  `json:"duration"`
	Pace      *int     `json:"pace,omitempty"`
	Cadence   *int     `json:"cadence,omitempty"`
	Speed     *int     `json:"speed,omitempty"`
	Elevation *float64 `json:"elevation,omitempty"`
	Editing   bool     `json:"editing"`
}

// State is a copy of everything on screen.
type State struct {
	Center     *domain.Coords `json:"center,omitempty"`
	Zoom       int            `json:"zoom"`
	Markers    []Marker       `json:"markers"`
	Entries    []Entry        `json:"entries"`
	FormOpen   bool           `json:"form_open"`
	FormCoords *domain.Coords `json:"form_coords,omitempty"`
	PromptOpen bool           `json:"prompt_open"`
	Notices    []string       `json:"notices"`
}

// Screen holds the headless state. Its parts implement the presenter's
// collaborator interfaces and share one lock.
type Screen struct {
	mu      sync.Mutex
	next    int
	center  *domain.Coords
	zoom    int
	markers []Marker
	entries []Entry
	form    *domain.Coords
	prompt  bool
	notices []string
}

// NewScreen constructs an empty Screen.
func NewScreen() *Screen {
	return &Screen{}
}

// Views returns the collaborators backed by this screen.
func (s *Screen) Views() presenter.Views {
	return presenter.Views{
		Map:    (*mapView)(s),
		List:   (*listView)(s),
		Form:   (*formView)(s),
		Prompt: (*promptView)(s),
		Notify: (*notifier)(s),
	}
}

// State returns a copy of the current screen.
func (s *Screen) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Zoom:       s.zoom,
		Markers:    append([]Marker{}, s.markers...),
		Entries:    append([]Entry{}, s.entries...),
		FormOpen:   s.form != nil,
		PromptOpen: s.prompt,
		Notices:    append([]string{}, s.notices...),
	}
	if s.center != nil {
		c := *s.center
		st.Center = &c
	}
	if s.form != nil {
		c := *s.form
		st.FormCoords = &c
	}
	return st
}

// DrainNotices returns pending notices and clears them.
func (s *Screen) DrainNotices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.notices
	s.notices = nil
	if out == nil {
		out = []string{}
	}
	return out
}

type mapView Screen

func (m *mapView) PlaceMarker(coords domain.Coords, popup, class string) presenter.MarkerHandle {
	s := (*Screen)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	h := presenter.MarkerHandle(fmt.Sprintf("marker-%d", s.next))
	s.markers = append(s.markers, Marker{Handle: h, Coords: coords, Popup: popup, Class: class})
	return h
}

func (m *mapView) UpdatePopup(handle presenter.MarkerHandle, popup, class string) {
	s := (*Screen)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.markers {
		if s.markers[i].Handle == handle {
			s.markers[i].Popup = popup
			s.markers[i].Class = class
		}
	}
}

func (m *mapView) RemoveMarker(handle presenter.MarkerHandle) {
	s := (*Screen)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.markers {
		if s.markers[i].Handle == handle {
			s.markers = append(s.markers[:i], s.markers[i+1:]...)
			return
		}
	}
}

func (m *mapView) SetView(coords domain.Coords, zoom int) {
	s := (*Screen)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.center = &coords
	s.zoom = zoom
}

type listView Screen

// AppendEntry adds the entry at the top of the list, where new workouts appear
// right under the form.
func (l *listView) AppendEntry(w domain.Workout) {
	s := (*Screen)(l)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append([]Entry{toEntry(w)}, s.entries...)
}

func (l *listView) UpdateEntry(id string, w domain.Workout) {
	s := (*Screen)(l)
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.find(id); i >= 0 {
		editing := s.entries[i].Editing
		s.entries[i] = toEntry(w)
		s.entries[i].Editing = editing
	}
}

func (l *listView) RemoveEntry(id string) {
	s := (*Screen)(l)
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.find(id); i >= 0 {
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
	}
}

func (l *listView) OpenEditor(id string) {
	l.setEditing(id, true)
}

func (l *listView) CloseEditor(id string) {
	l.setEditing(id, false)
}

func (l *listView) setEditing(id string, on bool) {
	s := (*Screen)(l)
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.find(id); i >= 0 {
		s.entries[i].Editing = on
	}
}

func (s *Screen) find(id string) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

type formView Screen

func (f *formView) Open(coords domain.Coords) {
	s := (*Screen)(f)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.form = &coords
}

func (f *formView) Close() {
	s := (*Screen)(f)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.form = nil
}

type promptView Screen

func (p *promptView) Open()  { p.set(true) }
func (p *promptView) Close() { p.set(false) }

func (p *promptView) set(open bool) {
	s := (*Screen)(p)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompt = open
}

type notifier Screen

func (n *notifier) Alert(msg string) {
	s := (*Screen)(n)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notices = append(s.notices, msg)
	if len(s.notices) > maxNotices {
		s.notices = s.notices[len(s.notices)-maxNotices:]
	}
}

// toEntry renders the list item; pace and speed are shown rounded down.
func toEntry(w domain.Workout) Entry {
	e := Entry{
		ID:       w.ID,
		Type:     string(w.Kind),
		Title:    w.Description,
		Icon:     presenter.Icon(w.Kind),
		Distance: w.Distance,
		Duration: w.Duration,
	}
	switch w.Kind {
	case domain.KindRunning:
		pace, cadence := int(math.Floor(w.Pace())), w.Cadence
		e.Pace, e.Cadence = &pace, &cadence
	case domain.KindCycling:
		speed, elevation := int(math.Floor(w.Speed())), w.Elevation
		e.Speed, e.Elevation = &speed, &elevation
	}
	return e
}
