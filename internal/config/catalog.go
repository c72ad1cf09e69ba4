package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rohmanhakim/docs-crawler/internal/model"
)

// siteDTO mirrors the YAML shape of one catalog entry. Field names follow
// the wire vocabulary from the original site catalog (parser_type,
// date_format, ...) rather than Go naming, since this struct is a
// decoding target only.
type siteDTO struct {
	URL             string              `yaml:"url"`
	ParserType      string              `yaml:"parser_type"`
	BaseURL         string              `yaml:"base_url"`
	RobotsURL       string              `yaml:"robots_url"`
	Accept          string              `yaml:"accept"`
	DateFormat      string              `yaml:"date_format"`
	Selectors       map[string]string   `yaml:"selectors"`
	CadenceSeconds  int                 `yaml:"cadence_seconds"`
	FeedURL         string              `yaml:"feed_url"`
	JSONAPIDailyCap int                 `yaml:"json_api_daily_query_cap"`
	JSONAPIQuerySet []string            `yaml:"json_api_query_set"`
	Filters         *filtersDTO         `yaml:"filters"`
}

type filtersDTO struct {
	Ignore map[string][]string `yaml:"ignore"`
	Scrub  map[string][]string `yaml:"scrub"`
}

// recognizedParserKinds is the closed set from the Design Notes;
// anything else aborts startup as InvalidConfig.
var recognizedParserKinds = map[string]model.ParserKind{
	"DOWNLOAD":     model.ParserHTTPCSV,
	"SEL_DOWNLOAD": model.ParserBrowserCSV,
	"STATIC":       model.ParserHTTPHTML,
	"JS":           model.ParserBrowserPage,
	"HIRE_BASE":    model.ParserJSONAPI,
}

const defaultCadenceHTML = 3 * 60 * 60
const defaultCadenceDownload = 24 * 60 * 60
const defaultJSONAPIDailyCap = 10

// LoadCatalog reads the site catalog YAML document (site_id -> entry),
// validates every entry per the External Interfaces rules, and returns
// the resulting immutable SiteConfig values in a deterministic (sorted
// by site_id) order. Any violation aborts with an error naming the
// offending site_id, matching WebsiteManager.verify in the original
// implementation.
func LoadCatalog(path string) ([]model.SiteConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	var dto map[string]siteDTO
	if err := yaml.Unmarshal(raw, &dto); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}
	if len(dto) == 0 {
		return nil, fmt.Errorf("%w: catalog has no sites", ErrInvalidConfig)
	}

	siteIDs := make([]string, 0, len(dto))
	for id := range dto {
		siteIDs = append(siteIDs, id)
	}
	sort.Strings(siteIDs)

	sites := make([]model.SiteConfig, 0, len(dto))
	for _, id := range siteIDs {
		site, err := verify(id, dto[id])
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, nil
}

// verify validates one catalog entry and converts it to a SiteConfig,
// naming the site_id in every error so a broken catalog is diagnosable
// from the startup log alone.
func verify(siteID string, dto siteDTO) (model.SiteConfig, error) {
	if dto.URL == "" {
		return model.SiteConfig{}, fmt.Errorf("%w: site %q missing url", ErrInvalidConfig, siteID)
	}
	if dto.DateFormat == "" {
		return model.SiteConfig{}, fmt.Errorf("%w: site %q missing date_format", ErrInvalidConfig, siteID)
	}
	if dto.ParserType == "" {
		return model.SiteConfig{}, fmt.Errorf("%w: site %q missing parser_type", ErrInvalidConfig, siteID)
	}
	kind, ok := recognizedParserKinds[dto.ParserType]
	if !ok {
		return model.SiteConfig{}, fmt.Errorf("%w: site %q has unrecognized parser_type %q", ErrInvalidConfig, siteID, dto.ParserType)
	}

	isDownloadVariant := kind == model.ParserHTTPCSV || kind == model.ParserBrowserCSV
	if !isDownloadVariant && dto.BaseURL == "" {
		return model.SiteConfig{}, fmt.Errorf("%w: site %q missing base_url (required for %s)", ErrInvalidConfig, siteID, dto.ParserType)
	}
	if isDownloadVariant && dto.Accept == "" {
		return model.SiteConfig{}, fmt.Errorf("%w: site %q missing accept (required for %s)", ErrInvalidConfig, siteID, dto.ParserType)
	}
	if len(dto.Selectors) == 0 {
		return model.SiteConfig{}, fmt.Errorf("%w: site %q has empty selectors", ErrInvalidConfig, siteID)
	}

	selectors := make(map[model.Field]string, len(dto.Selectors))
	for k, v := range dto.Selectors {
		selectors[model.Field(strings.ToLower(k))] = v
	}

	cadence := dto.CadenceSeconds
	if cadence <= 0 {
		if isDownloadVariant {
			cadence = defaultCadenceDownload
		} else {
			cadence = defaultCadenceHTML
		}
	}

	dailyCap := dto.JSONAPIDailyCap
	if dailyCap <= 0 {
		dailyCap = defaultJSONAPIDailyCap
	}
	querySet := dto.JSONAPIQuerySet
	if len(querySet) > dailyCap {
		querySet = querySet[:dailyCap]
	}

	site := model.SiteConfig{
		SiteID:          siteID,
		URL:             dto.URL,
		ParserKind:      kind,
		BaseURL:         dto.BaseURL,
		RobotsURL:       dto.RobotsURL,
		AcceptMIME:      dto.Accept,
		DateFormat:      dto.DateFormat,
		Selectors:       selectors,
		CadenceSeconds:  cadence,
		FeedURL:         dto.FeedURL,
		JSONAPIDailyCap: dailyCap,
		JSONAPIQuerySet: querySet,
	}
	if dto.Filters != nil {
		site.Filters = toFilterSet(*dto.Filters)
	}
	return site, nil
}

func toFilterSet(dto filtersDTO) model.FilterSet {
	fs := model.FilterSet{
		Ignore: make(map[model.Field][]string, len(dto.Ignore)),
		Scrub:  make(map[model.Field][]string, len(dto.Scrub)),
	}
	for k, v := range dto.Ignore {
		fs.Ignore[model.Field(strings.ToLower(k))] = v
	}
	for k, v := range dto.Scrub {
		fs.Scrub[model.Field(strings.ToLower(k))] = v
	}
	return fs
}

// LoadGlobalFilters reads the second catalog document: global ignore/scrub
// term lists applied to every site before the site-specific overrides are
// merged in by the pipeline's FilterProcessor.
func LoadGlobalFilters(path string) (model.FilterSet, error) {
	if path == "" {
		return model.FilterSet{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.FilterSet{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	var dto filtersDTO
	if err := yaml.Unmarshal(raw, &dto); err != nil {
		return model.FilterSet{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}
	return toFilterSet(dto), nil
}
