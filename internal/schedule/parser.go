// Package schedule reads iCalendar class schedules into course records.
package schedule

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/randytsao24/stopfinder/internal/models"
)

// ErrShortSummary means an event summary has too few words to carry a course code
var ErrShortSummary = errors.New("summary has fewer than 3 words")

// FormatError reports calendar input that cannot be read as a schedule
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return "calendar format: " + e.Reason + ": " + e.Err.Error()
	}
	return "calendar format: " + e.Reason
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

var locationPattern = regexp.MustCompile(`Campus:\s*(.*?)\s*Building:\s*(.*?)\s*Room:\s*([0-9]*)`)

// Parser turns calendar documents into courses. Times are normalized into loc.
type Parser struct {
	loc *time.Location
}

// NewParser creates a parser normalizing times into loc (UTC when nil)
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{loc: loc}
}

// ParseFile reads a .ics file
func (p *Parser) ParseFile(path string) ([]models.Course, error) {
	if !strings.EqualFold(filepath.Ext(path), ".ics") {
		return nil, &FormatError{Reason: fmt.Sprintf("%s is not a .ics file", filepath.Base(path))}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening calendar: %w", err)
	}
	defer f.Close()

	return p.Parse(f)
}

// ParseUpload checks the declared filename and content type of an uploaded
// calendar before parsing it. Empty values skip their check.
func (p *Parser) ParseUpload(filename, contentType string, data []byte) ([]models.Course, error) {
	if filename != "" && !strings.EqualFold(filepath.Ext(filename), ".ics") {
		return nil, &FormatError{Reason: fmt.Sprintf("%s is not a .ics file", filename)}
	}
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, &FormatError{Reason: "bad content type", Err: err}
		}
		if mediaType != "text/calendar" && mediaType != "application/octet-stream" {
			return nil, &FormatError{Reason: fmt.Sprintf("unexpected content type %s", mediaType)}
		}
	}
	return p.Parse(bytes.NewReader(data))
}

// Parse reads every VEVENT of a calendar document, in document order
func (p *Parser) Parse(r io.Reader) ([]models.Course, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len("BEGIN:VCALENDAR") + 3)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading calendar: %w", err)
	}
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	if !bytes.HasPrefix(bytes.ToUpper(bytes.TrimLeft(head, " \t\r\n")), []byte("BEGIN:VCALENDAR")) {
		return nil, &FormatError{Reason: "not an iCalendar document"}
	}

	cal, err := ics.ParseCalendar(br)
	if err != nil {
		return nil, &FormatError{Reason: "invalid iCalendar document", Err: err}
	}

	events := cal.Events()
	courses := make([]models.Course, 0, len(events))
	for i, event := range events {
		course, err := p.course(event)
		if err != nil {
			return nil, &FormatError{Reason: fmt.Sprintf("event %d", i+1), Err: err}
		}
		courses = append(courses, course)
	}
	return courses, nil
}

func (p *Parser) course(event *ics.VEvent) (models.Course, error) {
	var c models.Course

	c.Campus, c.Building, c.Room = ParseLocation(propertyText(event, ics.ComponentPropertyLocation))

	code, err := CourseCode(propertyText(event, ics.ComponentPropertySummary))
	if err != nil {
		return c, err
	}
	c.CourseCode = code

	start, err := event.GetStartAt()
	if err != nil {
		return c, fmt.Errorf("reading DTSTART: %w", err)
	}
	end, err := event.GetEndAt()
	if err != nil {
		return c, fmt.Errorf("reading DTEND: %w", err)
	}
	c.Start = start.In(p.loc)
	c.End = end.In(p.loc)

	return c, nil
}

// ParseLocation pulls campus, building and room out of an event location.
// A location that does not follow the "Campus: Building: Room:" layout yields
// three empty strings.
func ParseLocation(location string) (campus, building, room string) {
	m := locationPattern.FindStringSubmatch(strings.TrimSpace(location))
	if m == nil {
		return "", "", ""
	}
	return m[1], m[2], m[3]
}

// CourseCode joins the third- and second-to-last words of a summary,
// e.g. "CS 1060 Lecture" gives "CS 1060".
func CourseCode(summary string) (string, error) {
	words := strings.Fields(summary)
	if len(words) < 3 {
		return "", fmt.Errorf("%w: %q", ErrShortSummary, summary)
	}
	return words[len(words)-3] + " " + words[len(words)-2], nil
}

func propertyText(event *ics.VEvent, prop ics.ComponentProperty) string {
	p := event.GetProperty(prop)
	if p == nil {
		return ""
	}
	// TEXT values arrive already unescaped
	return p.Value
}
