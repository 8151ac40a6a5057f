package directory

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/randytsao24/stopfinder/internal/location"
	"github.com/randytsao24/stopfinder/internal/metrics"
	"github.com/randytsao24/stopfinder/internal/models"
)

const (
	buildingLinkSelector = "li.vt-subnav-droplist-item > a"
	addressSelector      = "address.vt-building-address"
)

// Geocoder attaches coordinates to an address. Unresolved addresses come back
// with zero coordinates.
type Geocoder interface {
	Attach(ctx context.Context, addr models.Address) models.Address
}

// Scraper rebuilds the directory from the university's building pages
type Scraper struct {
	IndexURL string

	// Registrar supplies the city, state, zip and country for every building
	Registrar models.Address

	// Campus and RadiusMeters reject geocodes that land off campus.
	// A zero radius disables the check.
	Campus       models.Coordinates
	RadiusMeters float64

	client   *http.Client
	geocoder Geocoder
	logger   *slog.Logger
}

// NewScraper creates a scraper using geocoder for building coordinates
func NewScraper(indexURL string, registrar models.Address, geocoder Geocoder, timeout time.Duration, logger *slog.Logger) *Scraper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{
		IndexURL:  indexURL,
		Registrar: registrar,
		client:    &http.Client{Timeout: timeout},
		geocoder:  geocoder,
		logger:    logger,
	}
}

// Refresh scrapes every building. It fails when the index page cannot be read
// or ctx ends before every building was visited; a building whose page,
// address or geocode is unusable is left out.
func (s *Scraper) Refresh(ctx context.Context) (models.BuildingDirectory, error) {
	links, err := s.buildingLinks(ctx)
	if err != nil {
		return nil, err
	}

	dir := make(models.BuildingDirectory, len(links))
	for name, link := range links {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scraping building directory: %w", err)
		}
		addr, err := s.building(ctx, link)
		if err != nil {
			// a partial directory must never be saved
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("scraping building directory: %w", ctxErr)
			}
			metrics.BuildingSkipped()
			s.logger.Warn("skipping building", "building", name, "error", err)
			continue
		}
		dir[name] = addr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scraping building directory: %w", err)
	}
	return dir, nil
}

func (s *Scraper) building(ctx context.Context, link string) (models.Address, error) {
	doc, err := s.fetch(ctx, "building", link)
	if err != nil {
		return models.Address{}, err
	}

	street := firstTextLine(doc.Find(addressSelector).First())
	if street == "" {
		return models.Address{}, fmt.Errorf("no address on %s", link)
	}

	addr := s.Registrar
	addr.Street = street
	addr = s.geocoder.Attach(ctx, addr)
	if !addr.Resolved() {
		return models.Address{}, fmt.Errorf("could not geocode %q", addr.String())
	}
	if !location.Within(s.Campus, addr.Coordinates(), s.RadiusMeters) {
		return models.Address{}, fmt.Errorf("geocode for %q is %.0f m from campus", street, location.Distance(s.Campus, addr.Coordinates()))
	}
	return addr, nil
}

// buildingLinks maps each building's display name to its absolute page URL
func (s *Scraper) buildingLinks(ctx context.Context) (map[string]string, error) {
	base, err := url.Parse(s.IndexURL)
	if err != nil {
		return nil, fmt.Errorf("parsing index url: %w", err)
	}

	doc, err := s.fetch(ctx, "index", s.IndexURL)
	if err != nil {
		return nil, fmt.Errorf("fetching building index: %w", err)
	}

	links := make(map[string]string)
	doc.Find(buildingLinkSelector).Each(func(_ int, a *goquery.Selection) {
		name := strings.TrimSpace(a.Text())
		href, ok := a.Attr("href")
		if name == "" || !ok {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			s.logger.Warn("bad building link", "building", name, "href", href)
			return
		}
		links[name] = base.ResolveReference(ref).String()
	})
	return links, nil
}

func (s *Scraper) fetch(ctx context.Context, op, pageURL string) (*goquery.Document, error) {
	doc, err := s.get(ctx, pageURL)
	metrics.ObserveCall("directory", op, err)
	return doc, err
}

func (s *Scraper) get(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}
	return doc, nil
}

// firstTextLine returns the first non-blank text node directly inside sel,
// which on the building pages is the street line.
func firstTextLine(sel *goquery.Selection) string {
	var line string
	sel.Contents().EachWithBreak(func(_ int, n *goquery.Selection) bool {
		if goquery.NodeName(n) != "#text" {
			return true
		}
		if t := strings.TrimSpace(n.Text()); t != "" {
			line = t
			return false
		}
		return true
	})
	return line
}
