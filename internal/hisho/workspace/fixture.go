package workspace

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Fixture is a YAML description of one owner's workspace. Times are relative
// to the moment the fixture is seeded so that demo data never goes stale.
//
//	owner: "@alice:example.com"
//	mail:
//	  - from: news@example.com
//	    subject: Weekly digest
//	    category: promotions
//	    age: 3d
//	events:
//	  - title: Standup
//	    day: 1
//	    at: "09:00"
//	    duration: 30m
type Fixture struct {
	Owner    string           `yaml:"owner"`
	Mail     []FixtureMail    `yaml:"mail"`
	Events   []FixtureEvent   `yaml:"events"`
	Contacts []FixtureContact `yaml:"contacts"`
	Files    []FixtureFile    `yaml:"files"`
	Tasks    []FixtureTask    `yaml:"tasks"`
}

// FixtureMail is a received message. Age ("2d", "1w") is how long before the
// seed time it arrived.
type FixtureMail struct {
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
	Subject  string   `yaml:"subject"`
	Body     string   `yaml:"body"`
	Category string   `yaml:"category"`
	Unread   bool     `yaml:"unread"`
	Spam     bool     `yaml:"spam"`
	Age      string   `yaml:"age"`
}

// FixtureEvent places an event Day days from the seed date at At ("15:04").
// Events without At are all-day.
type FixtureEvent struct {
	Title       string        `yaml:"title"`
	Calendar    string        `yaml:"calendar"`
	Description string        `yaml:"description"`
	Location    string        `yaml:"location"`
	Attendees   []string      `yaml:"attendees"`
	Day         int           `yaml:"day"`
	At          string        `yaml:"at"`
	Duration    time.Duration `yaml:"duration"`
}

// FixtureContact is an address-book entry.
type FixtureContact struct {
	Name    string `yaml:"name"`
	Email   string `yaml:"email"`
	Phone   string `yaml:"phone"`
	Company string `yaml:"company"`
}

// FixtureFile is a file, or a folder with children.
type FixtureFile struct {
	Name     string        `yaml:"name"`
	MimeType string        `yaml:"mime_type"`
	Size     int64         `yaml:"size"`
	Age      string        `yaml:"age"`
	Children []FixtureFile `yaml:"children"`
	Folder   bool          `yaml:"folder"`
}

// FixtureTask is a to-do. DueIn is days from the seed date.
type FixtureTask struct {
	Title     string `yaml:"title"`
	Notes     string `yaml:"notes"`
	DueIn     *int   `yaml:"due_in"`
	Completed bool   `yaml:"completed"`
}

// SeedStats counts the rows a Seed call created.
type SeedStats struct {
	Mail, Events, Contacts, Files, Tasks int
}

func (s SeedStats) String() string {
	return fmt.Sprintf("%d emails, %d events, %d contacts, %d files, %d tasks",
		s.Mail, s.Events, s.Contacts, s.Files, s.Tasks)
}

// LoadFixtureFile reads and parses a fixture from disk.
func LoadFixtureFile(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("workspace: open fixture: %w", err)
	}
	defer f.Close()
	return LoadFixture(f)
}

// LoadFixture parses and validates a fixture. Unknown fields are rejected.
func LoadFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var fx Fixture
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("workspace: parse fixture: %w", err)
	}
	if err := fx.validate(); err != nil {
		return nil, fmt.Errorf("workspace: invalid fixture: %w", err)
	}
	return &fx, nil
}

func (fx *Fixture) validate() error {
	var errs []error
	for i, m := range fx.Mail {
		if m.From == "" {
			errs = append(errs, fmt.Errorf("mail[%d]: from is required", i))
		}
		if m.Age != "" && parseAge(m.Age) == 0 {
			errs = append(errs, fmt.Errorf("mail[%d]: bad age %q", i, m.Age))
		}
	}
	for i, e := range fx.Events {
		if strings.TrimSpace(e.Title) == "" {
			errs = append(errs, fmt.Errorf("events[%d]: title is required", i))
		}
		if e.At != "" {
			if _, err := time.Parse("15:04", e.At); err != nil {
				errs = append(errs, fmt.Errorf("events[%d]: bad time %q", i, e.At))
			}
		}
		if e.Duration < 0 {
			errs = append(errs, fmt.Errorf("events[%d]: negative duration", i))
		}
	}
	for i, c := range fx.Contacts {
		if c.Name == "" {
			errs = append(errs, fmt.Errorf("contacts[%d]: name is required", i))
		}
	}
	for i, t := range fx.Tasks {
		if t.Title == "" {
			errs = append(errs, fmt.Errorf("tasks[%d]: title is required", i))
		}
	}
	return errors.Join(errs...)
}

// Seed inserts the fixture's rows for owner. Relative times are resolved
// against the workspace clock in loc.
func (w *Workspace) Seed(ctx context.Context, owner string, fx *Fixture, loc *time.Location) (SeedStats, error) {
	if owner == "" {
		owner = fx.Owner
	}
	if owner == "" {
		return SeedStats{}, errors.New("workspace: fixture has no owner")
	}
	if loc == nil {
		loc = time.UTC
	}
	var (
		stats SeedStats
		now   = w.now().In(loc)
		today = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	)

	for _, m := range fx.Mail {
		if _, err := w.AddMail(ctx, Email{
			Owner: owner, From: m.From, To: m.To, Subject: m.Subject, Body: m.Body,
			Category: m.Category, Unread: m.Unread, Spam: m.Spam,
			ReceivedAt: now.Add(-parseAge(m.Age)),
		}); err != nil {
			return stats, err
		}
		stats.Mail++
	}

	for _, fe := range fx.Events {
		day := today.AddDate(0, 0, fe.Day)
		e := Event{
			Owner: owner, Calendar: fe.Calendar, Title: fe.Title, Description: fe.Description,
			Location: fe.Location, Attendees: fe.Attendees,
		}
		if fe.At == "" {
			e.Start, e.End, e.AllDay = day, day.AddDate(0, 0, 1), true
		} else {
			at, _ := time.Parse("15:04", fe.At)
			e.Start = day.Add(time.Duration(at.Hour())*time.Hour + time.Duration(at.Minute())*time.Minute)
			d := fe.Duration
			if d == 0 {
				d = time.Hour
			}
			e.End = e.Start.Add(d)
		}
		if _, err := w.CreateEvent(ctx, e); err != nil {
			return stats, err
		}
		stats.Events++
	}

	for _, c := range fx.Contacts {
		if _, err := w.AddContact(ctx, Contact{Owner: owner, Name: c.Name, Email: c.Email, Phone: c.Phone, Company: c.Company}); err != nil {
			return stats, err
		}
		stats.Contacts++
	}

	var addFiles func(parent string, files []FixtureFile) error
	addFiles = func(parent string, files []FixtureFile) error {
		for _, ff := range files {
			f, err := w.AddFile(ctx, File{
				Owner: owner, Name: ff.Name, ParentID: parent, Folder: ff.Folder || len(ff.Children) > 0,
				MimeType: ff.MimeType, Size: ff.Size, ModifiedAt: now.Add(-parseAge(ff.Age)),
			})
			if err != nil {
				return err
			}
			stats.Files++
			if err := addFiles(f.ID, ff.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := addFiles("", fx.Files); err != nil {
		return stats, err
	}

	for _, ft := range fx.Tasks {
		t := Task{Owner: owner, Title: ft.Title, Notes: ft.Notes, Completed: ft.Completed}
		if ft.DueIn != nil {
			due := today.AddDate(0, 0, *ft.DueIn).Add(17 * time.Hour)
			t.Due = &due
		}
		if ft.Completed {
			t.CompletedAt = &now
		}
		if _, err := w.AddTask(ctx, t); err != nil {
			return stats, err
		}
		stats.Tasks++
	}
	return stats, nil
}

// Reset deletes every workspace row belonging to owner.
func (w *Workspace) Reset(ctx context.Context, owner string) error {
	for _, table := range []string{"mail_messages", "events", "contacts", "files", "tasks"} {
		if _, err := w.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE owner = ?", owner); err != nil {
			return fmt.Errorf("workspace: reset %s: %w", table, err)
		}
	}
	return nil
}

//go:embed demo.yaml
var demoFixture []byte

// DemoFixture returns the built-in demo workspace.
func DemoFixture() (*Fixture, error) {
	return LoadFixture(bytes.NewReader(demoFixture))
}
